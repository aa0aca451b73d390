package biorefinery

import (
	"fmt"
	"math"

	"github.com/okian/simuq/internal/domain/simulation"
)

// Oilcane composition and plant constants.
const (
	caneDryFraction  = 0.3
	caneSugar        = 0.45 // sugar share of dry cane without oil
	oilDisplacement  = 0.5  // sugar lost per unit of oil content
	biodieselYield   = 0.9  // kg biodiesel per kg recovered oil
	biodieselDensity = 3.3  // kg/gal
	caneBaseCapacity = 1.6e6
	caneBaseTCI      = 250.0 // MM$
	biodieselTCI     = 30.0  // MM$ at base capacity and 10% oil
	canePowerDemand  = 0.00008
)

// oilcane is the state of an oilcane plant producing ethanol from juice
// sugars and biodiesel from extracted oil.
type oilcane struct {
	// inputs
	oilContent       float64 // dry wt. %
	capacity         float64 // MT/yr
	operatingDays    float64
	millRecovery     float64
	fermEfficiency   float64
	biodieselPrice   float64 // $/gal
	ethanolPrice     float64 // $/gal
	electricityPrice float64 // $/kWh
	incomeTax        float64
	boilerEff        float64
	turboEff         float64

	// outputs
	mfpp                float64
	biodieselProduction float64
	ethanolProduction   float64
	tci                 float64
	netElectricity      float64
}

// Simulate recomputes the plant balances and economics.
func (o *oilcane) Simulate() error {
	checks := []error{
		positive("Cane oil content", o.oilContent),
		positive("Plant capacity", o.capacity),
		positive("Operating days", o.operatingDays),
		fraction("Crushing mill oil recovery", o.millRecovery),
		fraction("Fermentation efficiency", o.fermEfficiency),
		positive("Biodiesel price", o.biodieselPrice),
		positive("Ethanol price", o.ethanolPrice),
		positive("Electricity price", o.electricityPrice),
		fraction("Income tax", o.incomeTax),
		fraction("Boiler efficiency", o.boilerEff),
		fraction("Turbogenerator efficiency", o.turboEff),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if o.operatingDays > 365 {
		return fmt.Errorf("%w: %g operating days", ErrOutOfRange, o.operatingDays)
	}
	oil := o.oilContent / 100
	if oil*(1+oilDisplacement) >= 1 || caneSugar-oil*oilDisplacement <= 0 {
		return fmt.Errorf("%w: oil content %g%%", ErrInfeasible, o.oilContent)
	}
	if o.incomeTax >= 1 {
		return fmt.Errorf("%w: income tax %g", ErrInfeasible, o.incomeTax)
	}

	hours := o.operatingDays * 24
	cane := o.capacity * 1000 / hours // kg/hr
	dry := cane * caneDryFraction

	recoveredOil := dry * oil * o.millRecovery
	biodiesel := recoveredOil * biodieselYield
	sugar := dry * (caneSugar - oil*oilDisplacement)
	ethanol := sugar * sugarToEthanol * o.fermEfficiency

	residue := dry - recoveredOil - sugar
	generated := powerMW(residue, o.boilerEff, o.turboEff)
	o.netElectricity = generated - cane*canePowerDemand

	scale := o.capacity / caneBaseCapacity
	o.tci = caneBaseTCI*pow06(scale) + biodieselTCI*pow06(scale*oil/0.1)

	o.biodieselProduction = biodiesel / biodieselDensity * hours / 1e6
	o.ethanolProduction = ethanol / ethanolDensity * hours / 1e6

	revenue := o.biodieselProduction*o.biodieselPrice +
		o.ethanolProduction*o.ethanolPrice +
		o.netElectricity*1000*o.electricityPrice*hours/1e6
	costs := fixedCostOfTotal*o.tci + capitalCharge(o.tci, o.incomeTax)

	// MM$/yr over MT/yr, reported in $/MT.
	o.mfpp = (revenue - costs) * 1e6 / o.capacity
	return nil
}

// NewOilcane builds the oilcane model at its baseline.
func NewOilcane() *simulation.Model {
	o := &oilcane{}
	feed := simulation.WithElement("Oilcane")
	tea := simulation.WithElement("TEA")
	mill := simulation.WithElement("Crushing mill")
	coupled := simulation.WithKind(simulation.KindCoupled)

	params := []*simulation.Parameter{
		simulation.NewParameter("Cane oil content", 10, func(v float64) { o.oilContent = v },
			feed, coupled, simulation.WithUnits("dry wt. %"), simulation.WithDistribution(triangle(5, 10, 15))),
		simulation.NewParameter("Plant capacity", 1.6e6, func(v float64) { o.capacity = v },
			feed, coupled, simulation.WithUnits("MT/yr"), simulation.WithDistribution(triangle(1.3e6, 1.6e6, 2.0e6))),
		simulation.NewParameter("Operating days", 180, func(v float64) { o.operatingDays = v },
			tea, simulation.WithUnits("day/yr"), simulation.WithDistribution(triangle(150, 180, 210))),
		simulation.NewParameter("Crushing mill oil recovery", 0.6, func(v float64) { o.millRecovery = v },
			mill, coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.5, 0.6, 0.7))),
		simulation.NewParameter("Fermentation efficiency", 0.9, func(v float64) { o.fermEfficiency = v },
			simulation.WithElement("Fermentation"), coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.85, 0.9, 0.95))),
		simulation.NewParameter("Biodiesel price", 4.5, func(v float64) { o.biodieselPrice = v },
			tea, simulation.WithUnits("USD/gal"), simulation.WithDistribution(spread(4.5, 0.2))),
		simulation.NewParameter("Ethanol price", 1.9, func(v float64) { o.ethanolPrice = v },
			tea, simulation.WithUnits("USD/gal"), simulation.WithDistribution(spread(1.9, 0.2))),
		simulation.NewParameter("Electricity price", 0.0572, func(v float64) { o.electricityPrice = v },
			tea, simulation.WithUnits("USD/kWhr"), simulation.WithDistribution(triangle(0.0515, 0.0572, 0.0629))),
		simulation.NewParameter("Income tax", 0.21, func(v float64) { o.incomeTax = v },
			tea, simulation.WithUnits("%"), simulation.WithDistribution(spread(0.21, 0.1))),
		simulation.NewParameter("Boiler efficiency", 0.8, func(v float64) { o.boilerEff = v },
			simulation.WithElement("BT"), coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.75, 0.8, 0.85))),
		simulation.NewParameter("Turbogenerator efficiency", 0.85, func(v float64) { o.turboEff = v },
			simulation.WithElement("BT"), coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.8, 0.85, 0.9))),
	}

	metrics := []*simulation.Metric{
		simulation.NewMetric("MFPP", "USD/MT", func() float64 { return o.mfpp }),
		simulation.NewMetric("Biodiesel production", "MMgal/yr", func() float64 { return o.biodieselProduction }),
		simulation.NewMetric("Ethanol production", "MMgal/yr", func() float64 { return o.ethanolProduction }),
		simulation.NewMetric("TCI", "10^6*USD", func() float64 { return o.tci }),
		simulation.NewMetric("Net electricity production", "MW", func() float64 { return o.netElectricity }),
	}

	return simulation.NewModel(Oilcane, o, params, metrics)
}

func pow06(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Pow(x, 0.6)
}
