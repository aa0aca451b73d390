// Package jobclient submits job requests to a running service and collects
// their persisted results.
package jobclient

import (
	"encoding/json"
	"time"
)

// Defaults.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultWait         = 5 * time.Minute
)

// Config holds configuration for a submission run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Workers      int           // Number of concurrent submissions
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between lookups of one job
	Wait         time.Duration // How long to wait for one job's record
	OutputDir    string        // Directory for fetched records; empty skips saving
	Verbose      bool
}

// LookupResponse is the decoded GET /jobs/{id} body. Item holds either a
// record object or the "no data" string.
type LookupResponse struct {
	Item   json.RawMessage `json:"item"`
	JobID  string          `json:"jobId"`
	Status string          `json:"status"`
}

// Found reports whether the item is a record.
func (r LookupResponse) Found() bool {
	return len(r.Item) > 0 && r.Item[0] == '{'
}

// Outcome is the result of one submitted request.
type Outcome struct {
	File   string
	JobID  string
	Status string
	Record json.RawMessage
	Err    error
}

// Stats holds run statistics.
type Stats struct {
	Submitted int
	Completed int
	Failed    int
	StartTime time.Time
	Duration  time.Duration
}
