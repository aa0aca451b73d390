// Package distribution defines the closed set of probability distributions
// that can be assigned to model parameters for sampling.
package distribution

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Kind names a distribution family as it appears on the wire.
type Kind string

// Supported distribution kinds.
const (
	KindUniform    Kind = "Uniform"
	KindTriangular Kind = "Triangular"
)

// Distribution is a validated, immutable probability distribution.
// The set of implementations is closed: Uniform and Triangular.
type Distribution interface {
	// Kind reports the distribution family.
	Kind() Kind
	// Quantile maps a probability in [0, 1] to a value of the distribution.
	Quantile(p float64) float64
	// Bounds returns the support [lower, upper].
	Bounds() (lower, upper float64)
	// Args returns the wire-format arguments.
	Args() map[string]float64

	sealed()
}

// Uniform is a continuous uniform distribution on [Lower, Upper].
type Uniform struct {
	lower, upper float64
}

// NewUniform validates the bounds and returns a Uniform.
func NewUniform(lower, upper float64) (Uniform, error) {
	if !finite(lower, upper) {
		return Uniform{}, fmt.Errorf("%w: uniform bounds must be finite", ErrInvalidArgs)
	}
	if lower >= upper {
		return Uniform{}, fmt.Errorf("%w: uniform lower %g must be below upper %g", ErrInvalidArgs, lower, upper)
	}
	return Uniform{lower: lower, upper: upper}, nil
}

func (u Uniform) Kind() Kind                     { return KindUniform }
func (u Uniform) Bounds() (lower, upper float64) { return u.lower, u.upper }
func (u Uniform) sealed()                        {}

func (u Uniform) Quantile(p float64) float64 {
	return distuv.Uniform{Min: u.lower, Max: u.upper}.Quantile(clampProb(p))
}

func (u Uniform) Args() map[string]float64 {
	return map[string]float64{"lower": u.lower, "upper": u.upper}
}

// Triangular is a triangular distribution with the given lower bound,
// mode (midpoint) and upper bound.
type Triangular struct {
	lower, mode, upper float64
}

// NewTriangular validates the arguments and returns a Triangular.
// The mode must lie within [lower, upper].
func NewTriangular(lower, mode, upper float64) (Triangular, error) {
	if !finite(lower, mode, upper) {
		return Triangular{}, fmt.Errorf("%w: triangular arguments must be finite", ErrInvalidArgs)
	}
	if lower >= upper {
		return Triangular{}, fmt.Errorf("%w: triangular lower %g must be below upper %g", ErrInvalidArgs, lower, upper)
	}
	if mode < lower || mode > upper {
		return Triangular{}, fmt.Errorf("%w: triangular midpoint %g outside [%g, %g]", ErrInvalidArgs, mode, lower, upper)
	}
	return Triangular{lower: lower, mode: mode, upper: upper}, nil
}

func (t Triangular) Kind() Kind                     { return KindTriangular }
func (t Triangular) Bounds() (lower, upper float64) { return t.lower, t.upper }
func (t Triangular) sealed()                        {}

func (t Triangular) Quantile(p float64) float64 {
	return distuv.NewTriangle(t.lower, t.upper, t.mode, nil).Quantile(clampProb(p))
}

func (t Triangular) Args() map[string]float64 {
	return map[string]float64{"lower": t.lower, "midpoint": t.mode, "upper": t.upper}
}

// Parse builds a Distribution from a wire kind and its argument map.
// Kind matching is case-insensitive. Uniform reads lower/upper (or
// value1/value2); Triangular reads lower/midpoint/upper (or value1/value2/value3).
func Parse(kind string, values map[string]float64) (Distribution, error) {
	switch ParseKind(kind) {
	case KindUniform:
		lower, err := lookup(values, "lower", "value1")
		if err != nil {
			return nil, err
		}
		upper, err := lookup(values, "upper", "value2")
		if err != nil {
			return nil, err
		}
		return NewUniform(lower, upper)
	case KindTriangular:
		lower, err := lookup(values, "lower", "value1")
		if err != nil {
			return nil, err
		}
		mode, err := lookup(values, "midpoint", "value2")
		if err != nil {
			return nil, err
		}
		upper, err := lookup(values, "upper", "value3")
		if err != nil {
			return nil, err
		}
		return NewTriangular(lower, mode, upper)
	default:
		return nil, fmt.Errorf("%w: distribution %s not available yet", ErrUnsupported, kind)
	}
}

// ParseKind normalizes a wire kind ("uniform", "TRIANGULAR") to a Kind.
// Unknown kinds are returned capitalized and will not match a known Kind.
func ParseKind(kind string) Kind {
	k := strings.TrimSpace(kind)
	if k == "" {
		return ""
	}
	return Kind(strings.ToUpper(k[:1]) + strings.ToLower(k[1:]))
}

func lookup(values map[string]float64, key, legacy string) (float64, error) {
	if v, ok := values[key]; ok {
		return v, nil
	}
	if v, ok := values[legacy]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrMissingValue, key)
}

func clampProb(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
