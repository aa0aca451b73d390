package model

import "encoding/json"

// NoData is the lookup sentinel for a job without a persisted record,
// whether it is still running, failed, or never existed.
const NoData = "no data"

// StatusProcessing is the ingress acknowledgement status.
const StatusProcessing = "job being processed"

// Record is the durable result of one job, written once and keyed by JobID.
// Results and SpearmanResults hold serialized JSON documents.
type Record struct {
	JobID           string          `json:"jobId"`
	JobTimestamp    int64           `json:"jobTimestamp"`
	Results         json.RawMessage `json:"results"`
	SpearmanResults json.RawMessage `json:"spearmanResults,omitempty"`
	SpearmanPValues json.RawMessage `json:"spearmanPValues,omitempty"`
}

// LookupResult is the Job Lookup response. Item is either a Record or the
// NoData string.
type LookupResult struct {
	Item   any    `json:"item"`
	JobID  string `json:"jobId"`
	Status string `json:"status,omitempty"`
}

// Found reports whether the lookup produced a record.
func (l LookupResult) Found() bool {
	_, ok := l.Item.(Record)
	return ok
}

// Ack is the ingress acknowledgement body.
type Ack struct {
	JobID        string         `json:"jobId"`
	JobTimestamp string         `json:"jobTimestamp"`
	Params       []ParamRequest `json:"params"`
	Status       string         `json:"status"`
}
