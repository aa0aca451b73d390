package uncertainty

import (
	"github.com/okian/simuq/internal/domain/sampling"
	"github.com/okian/simuq/pkg/logger"
)

// Option configures a Runner.
type Option func(*Runner)

// WithSampler sets the sampler used for uncertainty studies.
func WithSampler(s *sampling.Sampler) Option {
	return func(r *Runner) {
		if s != nil {
			r.evaluator = NewEvaluator(s)
		}
	}
}

// WithPValues persists Spearman p-values next to the coefficients.
func WithPValues(enabled bool) Option {
	return func(r *Runner) {
		r.persistPValues = enabled
	}
}

// WithRunnerLogger overrides the runner logger.
func WithRunnerLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// LookupOption configures a Lookup.
type LookupOption func(*Lookup)

// WithStatus attaches a job status source to lookups.
func WithStatus(s StatusReader) LookupOption {
	return func(l *Lookup) {
		l.status = s
	}
}
