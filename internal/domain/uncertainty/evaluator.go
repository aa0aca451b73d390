package uncertainty

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/internal/domain/sampling"
	"github.com/okian/simuq/internal/domain/sensitivity"
	"github.com/okian/simuq/internal/domain/simulation"
	"github.com/okian/simuq/pkg/metrics"
)

// Evaluator draws a sample matrix over a model's active parameters and
// evaluates it in one bulk pass.
type Evaluator struct {
	sampler *sampling.Sampler
}

// NewEvaluator returns an evaluator drawing with s.
func NewEvaluator(s *sampling.Sampler) *Evaluator {
	return &Evaluator{sampler: s}
}

// Evaluate samples n rows, loads them and evaluates the model. The returned
// table keeps every row, including rows whose metrics are NaN.
func (e *Evaluator) Evaluate(ctx context.Context, m *simulation.Model, n int) (*simulation.Table, error) {
	start := time.Now()

	samples, err := m.Sample(e.sampler, n)
	if err != nil {
		return nil, fmt.Errorf("%w: sample: %w", model.ErrEvaluation, err)
	}
	if err := m.LoadSamples(samples); err != nil {
		return nil, fmt.Errorf("%w: load: %w", model.ErrEvaluation, err)
	}
	if err := m.Evaluate(ctx); err != nil {
		return nil, fmt.Errorf("%w: evaluate: %w", model.ErrEvaluation, err)
	}

	table := m.Table()
	metrics.RecordEvaluationLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordSamplesEvaluated(table.Rows())
	if nan := table.NaNRows(); nan > 0 {
		metrics.RecordNaNRows(nan)
	}
	return table, nil
}

// Analyze computes Spearman coefficients over the last evaluated table.
func (e *Evaluator) Analyze(m *simulation.Model) (sensitivity.Matrix, error) {
	mx, err := m.Spearman()
	if err != nil {
		return sensitivity.Matrix{}, fmt.Errorf("%w: spearman: %w", model.ErrEvaluation, err)
	}
	return mx, nil
}
