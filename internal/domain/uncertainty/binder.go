// Package uncertainty runs Monte-Carlo uncertainty and Spearman sensitivity
// studies against a shared simulation model and persists their results.
package uncertainty

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/simuq/internal/domain/distribution"
	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/internal/domain/simulation"
	"github.com/okian/simuq/pkg/logger"
	"github.com/okian/simuq/pkg/metrics"
)

// Binding is a scoped override of a model's parameter catalog. Release puts
// back every saved distribution, baseline and the previous active set.
type Binding struct {
	model    *simulation.Model
	bound    []*simulation.Parameter
	saved    []savedParameter
	previous []*simulation.Parameter
	once     sync.Once
}

type savedParameter struct {
	param        *simulation.Parameter
	distribution distribution.Distribution
	baseline     float64
}

// Bind resolves specs against the model catalog and applies them. The
// whole list is validated before anything is mutated, so a failed Bind
// leaves the model untouched.
func Bind(m *simulation.Model, specs []model.ParameterSpec) (*Binding, error) {
	params := make([]*simulation.Parameter, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		p, ok := m.Lookup(spec.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s", model.ErrValidation, simulation.ErrUnknownParameter, spec.Name)
		}
		if spec.Distribution == nil {
			return nil, fmt.Errorf("%w: %w: %s", model.ErrValidation, simulation.ErrNoDistribution, spec.Name)
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, fmt.Errorf("%w: parameter %s listed twice", model.ErrValidation, spec.Name)
		}
		seen[spec.Name] = struct{}{}
		params[i] = p
	}

	b := &Binding{
		model:    m,
		bound:    params,
		saved:    make([]savedParameter, len(params)),
		previous: m.Parameters(),
	}
	for i, p := range params {
		b.saved[i] = savedParameter{param: p, distribution: p.Distribution, baseline: p.Baseline}
		p.Distribution = specs[i].Distribution
		if specs[i].Baseline != nil {
			p.Baseline = *specs[i].Baseline
		}
	}

	if err := m.SetParameters(params); err != nil {
		b.Release()
		return nil, fmt.Errorf("%w: %w", model.ErrValidation, err)
	}
	return b, nil
}

// Parameters returns the bound parameters in spec order.
func (b *Binding) Parameters() []*simulation.Parameter {
	return append([]*simulation.Parameter(nil), b.bound...)
}

// Release restores the catalog. It is safe to call more than once.
func (b *Binding) Release() {
	b.once.Do(func() {
		for i := len(b.saved) - 1; i >= 0; i-- {
			s := b.saved[i]
			s.param.Distribution = s.distribution
			s.param.Baseline = s.baseline
		}
		if err := b.model.SetParameters(b.previous); err != nil {
			// previous came from the same catalog; this only fires on a broken model.
			logger.Get().Named("binder").Error(context.Background(), "restore active parameters",
				logger.String("model", b.model.Name()), logger.Error(err))
		}
		metrics.RecordParameterRestore()
	})
}

// Scoped binds specs, runs fn and releases the binding on every exit path,
// including a panic inside fn.
func Scoped(m *simulation.Model, specs []model.ParameterSpec, fn func(*Binding) error) error {
	b, err := Bind(m, specs)
	if err != nil {
		return err
	}
	defer b.Release()
	return fn(b)
}
