// Package sampling draws space-filling sample designs over parameter
// distributions.
//
// The rule is an operator-level constant (Latin hypercube by default); it is
// never chosen per request. Every Sample call reseeds the generator, so a
// given rule, seed, set of distributions and count always yields the same
// matrix.
package sampling

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/simuq/internal/domain/distribution"
)

// Rule identifies a sampling design by its single-letter code.
type Rule string

// Supported rules.
const (
	RuleLatinHypercube Rule = "L"
	RuleRandom         Rule = "R"
)

// Default sampler configuration.
const (
	DefaultRule Rule   = RuleLatinHypercube
	DefaultSeed uint64 = 42
)

// Matrix holds sample rows aligned column-for-column with the sampled
// parameters.
type Matrix [][]float64

// Rows returns the number of samples.
func (m Matrix) Rows() int { return len(m) }

// Cols returns the number of parameters per row.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Column copies column j out of the matrix.
func (m Matrix) Column(j int) []float64 {
	col := make([]float64, len(m))
	for i, row := range m {
		col[i] = row[j]
	}
	return col
}

// Sampler produces sample matrices for a fixed rule and seed.
type Sampler struct {
	rule Rule
	seed uint64
}

// New constructs a Sampler with the default rule and seed.
func New(opts ...Option) (*Sampler, error) {
	s := &Sampler{
		rule: DefaultRule,
		seed: DefaultSeed,
	}
	for _, opt := range opts {
		opt(s)
	}
	switch s.rule {
	case RuleLatinHypercube, RuleRandom:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, s.rule)
	}
	return s, nil
}

// Rule reports the configured rule.
func (s *Sampler) Rule() Rule { return s.rule }

// Sample draws n rows, one column per distribution.
func (s *Sampler) Sample(dists []distribution.Distribution, n int) (Matrix, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}
	if len(dists) == 0 {
		return nil, ErrNoParameters
	}

	rng := rand.New(rand.NewPCG(s.seed, uint64(n))) //nolint:gosec // reproducible designs, not secrets
	probs := s.design(rng, len(dists), n)

	m := make(Matrix, n)
	for i := range m {
		row := make([]float64, len(dists))
		for j, d := range dists {
			row[j] = d.Quantile(probs[i][j])
		}
		m[i] = row
	}
	return m, nil
}

// design returns an n x d matrix of probabilities in [0, 1).
func (s *Sampler) design(rng *rand.Rand, d, n int) [][]float64 {
	probs := make([][]float64, n)
	for i := range probs {
		probs[i] = make([]float64, d)
	}

	switch s.rule {
	case RuleRandom:
		for i := range probs {
			for j := range probs[i] {
				probs[i][j] = rng.Float64()
			}
		}
	default:
		// One draw per stratum per dimension, strata shuffled independently.
		for j := 0; j < d; j++ {
			perm := rng.Perm(n)
			for i := 0; i < n; i++ {
				probs[i][j] = (float64(perm[i]) + rng.Float64()) / float64(n)
			}
		}
	}
	return probs
}
