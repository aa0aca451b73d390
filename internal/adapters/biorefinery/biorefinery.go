// Package biorefinery provides reduced-order techno-economic models of
// lignocellulosic and oilcane biorefineries. Each model exposes the
// parameter and metric surface a simulation.Model needs; mass and energy
// balances are closed-form, not rigorous.
package biorefinery

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/simuq/internal/domain/distribution"
	"github.com/okian/simuq/internal/domain/simulation"
)

// Model names.
const (
	Cornstover = "cornstover"
	Oilcane    = "oilcane"
)

// Shared plant economics.
const (
	ethanolDensity   = 2.987   // kg/gal
	kgPerDryTon      = 907.185 // kg per US ton
	heatingValue     = 18.0    // MJ/kg of combusted residue
	steamToPower     = 0.35    // share of boiler steam sent to the turbogenerator
	capitalRecovery  = 0.1061  // 10% IRR over 30 years
	mjPerMWh         = 3600.0
	sugarToEthanol   = 0.511 // theoretical kg ethanol per kg sugar
	fixedCostOfTotal = 0.04  // fixed operating cost as a share of TCI
)

// Available lists the model names New accepts.
func Available() []string { return []string{Cornstover, Oilcane} }

// New builds the named model.
func New(name string) (*simulation.Model, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Cornstover:
		return NewCornstover(), nil
	case Oilcane:
		return NewOilcane(), nil
	default:
		return nil, fmt.Errorf("%w: %s", simulation.ErrUnknownModel, name)
	}
}

// NewRegistry builds a registry holding one handle per named model. An
// empty list loads every available model.
func NewRegistry(names ...string) (*simulation.Registry, error) {
	if len(names) == 0 {
		names = Available()
	}
	handles := make([]*simulation.Handle, 0, len(names))
	for _, name := range names {
		m, err := New(name)
		if err != nil {
			return nil, err
		}
		// Settle every model at its baselines once so metrics read sensibly before the first job.
		if _, err := m.MetricsAtBaseline(); err != nil {
			return nil, fmt.Errorf("model %s baseline: %w", name, err)
		}
		handles = append(handles, simulation.NewHandle(m))
	}
	return simulation.NewRegistry(handles...), nil
}

// fraction rejects conversions and efficiencies outside [0, 1].
func fraction(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s = %g", ErrOutOfRange, name, v)
	}
	return nil
}

// positive rejects non-positive sizes, prices and times.
func positive(name string, v float64) error {
	if math.IsNaN(v) || v <= 0 {
		return fmt.Errorf("%w: %s = %g", ErrOutOfRange, name, v)
	}
	return nil
}

// powerMW converts combusted residue (kg/hr) to generated electricity.
func powerMW(residue, boilerEff, turboEff float64) float64 {
	return residue * heatingValue * boilerEff * turboEff * steamToPower / mjPerMWh
}

// capitalCharge annualizes capital with a tax gross-up.
func capitalCharge(tci, tax float64) float64 {
	return tci * capitalRecovery / (1 - tax)
}

// spread returns a uniform distribution ±rel around v.
func spread(v, rel float64) distribution.Distribution {
	d, err := distribution.NewUniform(v*(1-rel), v*(1+rel))
	if err != nil {
		panic(err)
	}
	return d
}

// triangle returns a triangular distribution; arguments are static.
func triangle(lower, mode, upper float64) distribution.Distribution {
	d, err := distribution.NewTriangular(lower, mode, upper)
	if err != nil {
		panic(err)
	}
	return d
}
