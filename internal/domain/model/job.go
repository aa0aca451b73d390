// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"

	"github.com/okian/simuq/internal/domain/distribution"
)

// SimulationKind selects between a single baseline evaluation and a
// sampled uncertainty study.
type SimulationKind string

// Simulation kinds.
const (
	KindSingle      SimulationKind = "single"
	KindUncertainty SimulationKind = "uncertainty"
)

// ParameterSpec is a validated request to put a distribution (and optionally
// a new baseline) on one catalog parameter.
type ParameterSpec struct {
	Name         string
	Distribution distribution.Distribution
	Baseline     *float64
}

// Job is one dispatched study. It is immutable once dispatched.
type Job struct {
	ID        string
	Timestamp float64 // epoch seconds as assigned at ingress
	Model     string
	Kind      SimulationKind
	Params    []ParameterSpec
	Samples   int
}

// TimestampSeconds truncates the ingress timestamp to whole seconds.
func (j Job) TimestampSeconds() int64 { return int64(j.Timestamp) }

// ParamRequest mirrors one entry of the request "params" list.
type ParamRequest struct {
	Name         string             `json:"name"`
	Distribution string             `json:"distribution"`
	Values       map[string]float64 `json:"values"`
	Baseline     *float64           `json:"baseline,omitempty"`
}

// Request is the inbound job request. JobID and JobTimestamp are assigned
// by ingress; callers leave them empty.
type Request struct {
	JobID          string         `json:"jobId,omitempty"`
	JobTimestamp   float64        `json:"jobTimestamp,omitempty"`
	Model          string         `json:"model"`
	SimulationKind string         `json:"simulationKind,omitempty"`
	SimType        string         `json:"sim_type,omitempty"`
	Params         []ParamRequest `json:"params"`
	Samples        int            `json:"samples"`
}

// Kind resolves the requested simulation kind. Requests without one are
// uncertainty studies.
func (r Request) Kind() SimulationKind {
	kind := r.SimulationKind
	if kind == "" {
		kind = r.SimType
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", string(KindUncertainty):
		return KindUncertainty
	case string(KindSingle):
		return KindSingle
	default:
		return SimulationKind(kind)
	}
}

// ParseJob validates a request and converts it to a Job. Distribution
// strings become closed variants here and are never re-interpreted later.
func ParseJob(r Request) (Job, error) {
	if strings.TrimSpace(r.JobID) == "" {
		return Job{}, fmt.Errorf("%w: missing jobId", ErrValidation)
	}
	if strings.TrimSpace(r.Model) == "" {
		return Job{}, fmt.Errorf("%w: missing model", ErrValidation)
	}

	kind := r.Kind()
	switch kind {
	case KindSingle:
	case KindUncertainty:
		if r.Samples < 1 {
			return Job{}, fmt.Errorf("%w: samples must be at least 1, got %d", ErrValidation, r.Samples)
		}
		if len(r.Params) == 0 {
			return Job{}, fmt.Errorf("%w: uncertainty study needs at least one parameter", ErrValidation)
		}
	default:
		return Job{}, fmt.Errorf("%w: unknown simulation kind %q", ErrValidation, kind)
	}

	specs, err := ParseParams(r.Params)
	if err != nil {
		return Job{}, err
	}

	job := Job{
		ID:        r.JobID,
		Timestamp: r.JobTimestamp,
		Model:     r.Model,
		Kind:      kind,
		Params:    specs,
		Samples:   r.Samples,
	}
	if kind == KindSingle {
		job.Samples = 0
	}
	return job, nil
}

// ParseParams converts wire parameter requests into specs. Names must be
// unique within a request.
func ParseParams(params []ParamRequest) ([]ParameterSpec, error) {
	seen := make(map[string]struct{}, len(params))
	specs := make([]ParameterSpec, 0, len(params))
	for _, p := range params {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("%w: parameter without name", ErrValidation)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: parameter %s listed twice", ErrValidation, p.Name)
		}
		seen[p.Name] = struct{}{}

		d, err := distribution.Parse(p.Distribution, p.Values)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %s: %w", ErrValidation, p.Name, err)
		}
		specs = append(specs, ParameterSpec{Name: p.Name, Distribution: d, Baseline: p.Baseline})
	}
	return specs, nil
}
