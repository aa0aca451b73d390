package simulation

import (
	"github.com/okian/simuq/internal/domain/distribution"
)

// Parameter kinds mirror how a parameter couples to the system.
const (
	KindIsolated = "isolated"
	KindCoupled  = "coupled"
)

// Parameter is one addressable, settable input of a model.
// Distribution and Baseline are mutable and owned by whoever holds the
// model's Handle.
type Parameter struct {
	Name    string
	Element string
	Units   string
	Kind    string

	Baseline     float64
	Distribution distribution.Distribution

	setter func(float64)
}

// ParameterOption configures a Parameter.
type ParameterOption func(*Parameter)

// WithElement sets the display grouping of the parameter.
func WithElement(element string) ParameterOption {
	return func(p *Parameter) { p.Element = element }
}

// WithUnits sets the parameter units.
func WithUnits(units string) ParameterOption {
	return func(p *Parameter) { p.Units = units }
}

// WithKind sets the coupling kind.
func WithKind(kind string) ParameterOption {
	return func(p *Parameter) {
		if kind != "" {
			p.Kind = kind
		}
	}
}

// WithDistribution sets the initial distribution.
func WithDistribution(d distribution.Distribution) ParameterOption {
	return func(p *Parameter) { p.Distribution = d }
}

// NewParameter builds a parameter applying values through setter.
func NewParameter(name string, baseline float64, setter func(float64), opts ...ParameterOption) *Parameter {
	p := &Parameter{
		Name:     name,
		Kind:     KindIsolated,
		Baseline: baseline,
		setter:   setter,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Set pushes a value into the system.
func (p *Parameter) Set(v float64) {
	if p.setter != nil {
		p.setter(v)
	}
}

// Label returns the display name, suffixed with units when present.
func (p *Parameter) Label() string { return Label(p.Name, p.Units) }

// Metric is a named scalar output read from the system after simulation.
type Metric struct {
	Name    string
	Units   string
	Element string

	getter func() float64
}

// NewMetric builds a metric reading its value through getter.
func NewMetric(name, units string, getter func() float64) *Metric {
	return &Metric{Name: name, Units: units, getter: getter}
}

// Value reads the current metric value.
func (m *Metric) Value() float64 { return m.getter() }

// Label returns the display name, suffixed with units when present.
func (m *Metric) Label() string { return Label(m.Name, m.Units) }

// Label renders "name [units]", or just name when units are empty.
func Label(name, units string) string {
	if units == "" {
		return name
	}
	return name + " [" + units + "]"
}
