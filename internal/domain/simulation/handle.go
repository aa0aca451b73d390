package simulation

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Handle guards a long-lived Model. Every read or mutation of the model's
// parameter state goes through Use, which holds the model exclusively.
type Handle struct {
	sem   chan struct{}
	model *Model
	desc  Description
}

// NewHandle wraps m and snapshots its catalog.
func NewHandle(m *Model) *Handle {
	return &Handle{
		sem:   make(chan struct{}, 1),
		model: m,
		desc:  describe(m),
	}
}

// Name returns the wrapped model's name. The name is immutable.
func (h *Handle) Name() string { return h.model.name }

// Use runs fn with exclusive access to the model. Waiting for the model
// stops when ctx is done. The lock is not reentrant: fn must not call Use
// on the same handle.
func (h *Handle) Use(ctx context.Context, fn func(*Model) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case h.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-h.sem }()
	return fn(h.model)
}

// ParameterInfo describes a catalog parameter.
type ParameterInfo struct {
	Name         string             `json:"name"`
	Element      string             `json:"element,omitempty"`
	Units        string             `json:"units,omitempty"`
	Kind         string             `json:"kind"`
	Baseline     float64            `json:"baseline"`
	Distribution string             `json:"distribution,omitempty"`
	Values       map[string]float64 `json:"values,omitempty"`
}

// MetricInfo describes a model metric.
type MetricInfo struct {
	Name  string `json:"name"`
	Units string `json:"units,omitempty"`
	Label string `json:"label"`
}

// Description is a read-only view of a model's catalog.
type Description struct {
	Model      string          `json:"model"`
	Parameters []ParameterInfo `json:"parameters"`
	Metrics    []MetricInfo    `json:"metrics"`
}

// Describe returns the catalog as it was when the handle was built. It
// never waits for a running study.
func (h *Handle) Describe() Description {
	d := Description{
		Model:      h.desc.Model,
		Parameters: make([]ParameterInfo, len(h.desc.Parameters)),
		Metrics:    append([]MetricInfo(nil), h.desc.Metrics...),
	}
	for i, p := range h.desc.Parameters {
		if p.Values != nil {
			p.Values = maps.Clone(p.Values)
		}
		d.Parameters[i] = p
	}
	return d
}

func describe(m *Model) Description {
	d := Description{Model: m.name}
	for _, p := range m.catalog {
		info := ParameterInfo{
			Name:     p.Name,
			Element:  p.Element,
			Units:    p.Units,
			Kind:     p.Kind,
			Baseline: p.Baseline,
		}
		if p.Distribution != nil {
			info.Distribution = string(p.Distribution.Kind())
			info.Values = p.Distribution.Args()
		}
		d.Parameters = append(d.Parameters, info)
	}
	for _, metric := range m.metrics {
		d.Metrics = append(d.Metrics, MetricInfo{Name: metric.Name, Units: metric.Units, Label: metric.Label()})
	}
	return d
}

// Registry maps model names to handles. Names match case-insensitively.
type Registry struct {
	handles map[string]*Handle
}

// NewRegistry builds a registry over the given handles.
func NewRegistry(handles ...*Handle) *Registry {
	r := &Registry{handles: make(map[string]*Handle, len(handles))}
	for _, h := range handles {
		r.handles[strings.ToLower(h.Name())] = h
	}
	return r
}

// Get returns the handle registered under name.
func (r *Registry) Get(name string) (*Handle, error) {
	h, ok := r.handles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return h, nil
}

// Names lists registered model names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handles))
	for _, h := range r.handles {
		names = append(names, h.Name())
	}
	sort.Strings(names)
	return names
}
