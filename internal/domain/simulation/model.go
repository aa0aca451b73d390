package simulation

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/simuq/internal/domain/distribution"
	"github.com/okian/simuq/internal/domain/sampling"
	"github.com/okian/simuq/internal/domain/sensitivity"
	"github.com/okian/simuq/pkg/logger"
)

// System is the process simulation behind a model. Parameter setters and
// metric getters close over its state; Simulate recomputes that state.
type System interface {
	Simulate() error
}

// Model binds a System to its parameter catalog and metrics and drives
// sampling and evaluation over the active parameter subset.
//
// A Model is not safe for concurrent use; share it through a Handle.
type Model struct {
	name    string
	system  System
	catalog []*Parameter
	active  []*Parameter
	metrics []*Metric

	samples sampling.Matrix
	table   *Table

	logger logger.Logger
}

// NewModel builds a model whose active set is initially the whole catalog.
func NewModel(name string, system System, parameters []*Parameter, metrics []*Metric) *Model {
	catalog := append([]*Parameter(nil), parameters...)
	return &Model{
		name:    name,
		system:  system,
		catalog: catalog,
		active:  append([]*Parameter(nil), catalog...),
		metrics: append([]*Metric(nil), metrics...),
		logger:  logger.Get().Named("model").Named(name),
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Catalog enumerates every addressable parameter.
func (m *Model) Catalog() []*Parameter { return append([]*Parameter(nil), m.catalog...) }

// Parameters returns the active parameter subset.
func (m *Model) Parameters() []*Parameter { return append([]*Parameter(nil), m.active...) }

// Metrics enumerates the model outputs.
func (m *Model) Metrics() []*Metric { return append([]*Metric(nil), m.metrics...) }

// Lookup finds a catalog parameter by exact name.
func (m *Model) Lookup(name string) (*Parameter, bool) {
	for _, p := range m.catalog {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// SetParameters replaces the active subset. Every parameter must belong to
// the catalog. Loaded samples and results are discarded.
func (m *Model) SetParameters(params []*Parameter) error {
	for _, p := range params {
		if !m.owns(p) {
			return fmt.Errorf("%w: %s", ErrUnknownParameter, p.Name)
		}
	}
	m.active = append([]*Parameter(nil), params...)
	m.samples = nil
	m.table = nil
	return nil
}

// Sample draws n rows over the active parameters' distributions.
func (m *Model) Sample(s *sampling.Sampler, n int) (sampling.Matrix, error) {
	dists := make([]distribution.Distribution, len(m.active))
	for i, p := range m.active {
		if p.Distribution == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoDistribution, p.Name)
		}
		dists[i] = p.Distribution
	}
	return s.Sample(dists, n)
}

// LoadSamples stages a matrix for the next Evaluate.
func (m *Model) LoadSamples(samples sampling.Matrix) error {
	if samples.Rows() == 0 {
		return ErrNoSamples
	}
	for i, row := range samples {
		if len(row) != len(m.active) {
			return fmt.Errorf("%w: row %d has %d values for %d parameters", ErrShapeMismatch, i, len(row), len(m.active))
		}
	}
	m.samples = samples
	m.table = nil
	return nil
}

// Evaluate applies every loaded row and records metric values. A row whose
// simulation fails records NaN for all metrics; evaluation continues.
func (m *Model) Evaluate(ctx context.Context) error {
	if m.samples == nil {
		return ErrNoSamples
	}

	n := m.samples.Rows()
	values := make([][]float64, len(m.metrics))
	for k := range values {
		values[k] = make([]float64, n)
	}

	failed := 0
	for i, row := range m.samples {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("evaluation interrupted at row %d: %w", i, err)
		}
		for j, p := range m.active {
			p.Set(row[j])
		}
		if err := m.system.Simulate(); err != nil {
			failed++
			m.logger.Debug(ctx, "sample simulation failed", logger.Int("row", i), logger.Error(err))
			for k := range values {
				values[k][i] = math.NaN()
			}
			continue
		}
		for k, metric := range m.metrics {
			values[k][i] = metric.Value()
		}
	}

	table := &Table{Columns: make([]Column, 0, len(m.active)+len(m.metrics))}
	for j, p := range m.active {
		table.Columns = append(table.Columns, Column{
			Label:   p.Label(),
			Element: p.Element,
			Kind:    ColumnParameter,
			Values:  m.samples.Column(j),
		})
	}
	for k, metric := range m.metrics {
		table.Columns = append(table.Columns, Column{
			Label:   metric.Label(),
			Element: metric.Element,
			Kind:    ColumnMetric,
			Values:  values[k],
		})
	}
	m.table = table

	if failed > 0 {
		m.logger.Warn(ctx, "some samples failed to simulate", logger.Int("failed", failed), logger.Int("samples", n))
	}
	return nil
}

// Table returns the last evaluated table, or nil.
func (m *Model) Table() *Table { return m.table }

// MetricsAtBaseline sets every catalog parameter to its baseline, simulates
// once and returns metric values aligned with Metrics.
func (m *Model) MetricsAtBaseline() ([]float64, error) {
	for _, p := range m.catalog {
		p.Set(p.Baseline)
	}
	if err := m.system.Simulate(); err != nil {
		return nil, fmt.Errorf("%w: baseline: %v", ErrSimulation, err)
	}
	out := make([]float64, len(m.metrics))
	for k, metric := range m.metrics {
		out[k] = metric.Value()
	}
	return out, nil
}

// Spearman correlates the active parameters with every metric over the last
// evaluated table, skipping rows with missing values.
func (m *Model) Spearman() (sensitivity.Matrix, error) {
	if m.table == nil {
		return sensitivity.Matrix{}, ErrNoSamples
	}
	return sensitivity.Spearman(Series(m.table.Parameters()), Series(m.table.Metrics()))
}

func (m *Model) owns(p *Parameter) bool {
	for _, c := range m.catalog {
		if c == p {
			return true
		}
	}
	return false
}
