package uncertainty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/internal/domain/sampling"
	"github.com/okian/simuq/internal/domain/simulation"
	"github.com/okian/simuq/pkg/logger"
	"github.com/okian/simuq/pkg/metrics"
)

// Store persists job records keyed by job id.
type Store interface {
	Put(ctx context.Context, rec model.Record) error
	Get(ctx context.Context, jobID string) (model.Record, error)
}

// Runner executes jobs end to end: bind, sample, evaluate, analyze, format
// and persist. Jobs on the same model serialize on its Handle.
type Runner struct {
	models         *simulation.Registry
	store          Store
	evaluator      *Evaluator
	persistPValues bool
	logger         logger.Logger
}

// NewRunner wires a runner over the model registry and result store.
func NewRunner(models *simulation.Registry, store Store, opts ...Option) (*Runner, error) {
	if models == nil {
		return nil, errors.New("nil model registry")
	}
	if store == nil {
		return nil, errors.New("nil result store")
	}
	sampler, err := sampling.New()
	if err != nil {
		return nil, err
	}
	r := &Runner{
		models:    models,
		store:     store,
		evaluator: NewEvaluator(sampler),
		logger:    logger.Get().Named("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes job and writes exactly one record for it. Any error means no
// record was written.
func (r *Runner) Run(ctx context.Context, job model.Job) (model.Record, error) {
	handle, err := r.models.Get(job.Model)
	if err != nil {
		return model.Record{}, fmt.Errorf("%w: %w", model.ErrValidation, err)
	}

	var rec model.Record
	err = handle.Use(ctx, func(m *simulation.Model) error {
		var runErr error
		switch job.Kind {
		case model.KindSingle:
			rec, runErr = r.single(m, job)
		case model.KindUncertainty:
			rec, runErr = r.uncertainty(ctx, m, job)
		default:
			runErr = fmt.Errorf("%w: unknown simulation kind %q", model.ErrValidation, job.Kind)
		}
		return runErr
	})
	if err != nil {
		return model.Record{}, err
	}

	start := time.Now()
	if err := r.store.Put(ctx, rec); err != nil {
		return model.Record{}, fmt.Errorf("%w: put %s: %w", model.ErrStore, job.ID, err)
	}
	metrics.RecordStoreWriteLatency(float64(time.Since(start).Microseconds()) / 1000.0)

	r.logger.Info(ctx, "job result persisted",
		logger.String("job_id", job.ID),
		logger.String("model", job.Model),
		logger.String("kind", string(job.Kind)),
		logger.Int("samples", job.Samples))
	return rec, nil
}

func (r *Runner) single(m *simulation.Model, job model.Job) (model.Record, error) {
	rec := model.Record{JobID: job.ID, JobTimestamp: job.TimestampSeconds()}
	err := Scoped(m, job.Params, func(*Binding) error {
		values, err := m.MetricsAtBaseline()
		if err != nil {
			return fmt.Errorf("%w: %w", model.ErrEvaluation, err)
		}
		labels := make([]string, 0, len(values))
		for _, metric := range m.Metrics() {
			labels = append(labels, metric.Label())
		}
		rec.Results, err = FormatScalars(labels, values)
		return err
	})
	return rec, err
}

func (r *Runner) uncertainty(ctx context.Context, m *simulation.Model, job model.Job) (model.Record, error) {
	rec := model.Record{JobID: job.ID, JobTimestamp: job.TimestampSeconds()}

	// Settle the system at catalog baselines so no state from the previous
	// job leaks into the first sample.
	if _, err := m.MetricsAtBaseline(); err != nil {
		return rec, fmt.Errorf("%w: %w", model.ErrEvaluation, err)
	}

	err := Scoped(m, job.Params, func(*Binding) error {
		table, err := r.evaluator.Evaluate(ctx, m, job.Samples)
		if err != nil {
			return err
		}
		mx, err := r.evaluator.Analyze(m)
		if err != nil {
			return err
		}

		if rec.Results, err = FormatTable(table); err != nil {
			return err
		}
		if rec.SpearmanResults, err = FormatCoefficients(mx, Rho); err != nil {
			return err
		}
		if r.persistPValues {
			if rec.SpearmanPValues, err = FormatCoefficients(mx, PValue); err != nil {
				return err
			}
		}
		if dropped := table.Rows() - mx.Samples; dropped > 0 {
			r.logger.Warn(ctx, "rows excluded from sensitivity analysis",
				logger.String("job_id", job.ID), logger.Int("dropped", dropped), logger.Int("rows", table.Rows()))
		}
		return nil
	})
	return rec, err
}
