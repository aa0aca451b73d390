package biorefinery

import (
	"fmt"
	"math"

	"github.com/okian/simuq/internal/domain/simulation"
)

// Corn stover composition and plant constants.
const (
	stoverDryFraction   = 0.8
	stoverGlucan        = 0.35
	stoverXylan         = 0.20
	glucanHydration     = 1.111 // kg glucose per kg glucan
	xylanHydration      = 1.136 // kg xylose per kg xylan
	xyloseFermentation  = 0.8
	enzymeLoading       = 0.1 // kg enzyme per kg glucan
	stoverOperatingDays = 350.4
	stoverBaseSize      = 104167.0 // kg/hr wet feed
	stoverBaseTCI       = 400.0    // MM$
	stoverPowerDemand   = 0.0002   // MW per kg/hr of feed
)

// cornstover is the state of a dilute-acid pretreatment, enzymatic
// hydrolysis and co-fermentation ethanol plant.
type cornstover struct {
	// inputs
	feedPrice        float64 // $/kg
	enzymePrice      float64 // $/kg
	electricityPrice float64 // $/kWh
	incomeTax        float64
	plantSize        float64 // kg/hr
	ptGlucan         float64
	ptXylan          float64
	xylanToFurfural  float64
	ehCellulose      float64
	ehTime           float64 // hr
	fermGlucose      float64
	fermTime         float64 // hr
	boilerEff        float64
	turboEff         float64

	// outputs
	mesp              float64
	production        float64
	yield             float64
	tci               float64
	aoc               float64
	netElectricity    float64
	electricityCredit float64
}

// Simulate recomputes the plant balances and economics.
func (c *cornstover) Simulate() error {
	checks := []error{
		positive("Cornstover price", c.feedPrice),
		positive("Enzyme price", c.enzymePrice),
		positive("Electricity price", c.electricityPrice),
		fraction("Income tax", c.incomeTax),
		positive("Plant size", c.plantSize),
		fraction("PT glucose-to-glucose", c.ptGlucan),
		fraction("PT xylan-to-xylose", c.ptXylan),
		fraction("Xylan-to-furfural conversion", c.xylanToFurfural),
		fraction("EH cellulose-to-glucose", c.ehCellulose),
		positive("EH time", c.ehTime),
		fraction("FERM glucose-to-ethanol", c.fermGlucose),
		positive("FERM time", c.fermTime),
		fraction("Boiler efficiency", c.boilerEff),
		fraction("Turbogenerator efficiency", c.turboEff),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if c.incomeTax >= 1 {
		return fmt.Errorf("%w: income tax %g", ErrInfeasible, c.incomeTax)
	}

	hours := stoverOperatingDays * 24
	dry := c.plantSize * stoverDryFraction
	glucan := dry * stoverGlucan
	xylan := dry * stoverXylan

	// Overall xylan conversion cannot exceed 100%.
	furfural := math.Min(1-c.ptXylan, c.xylanToFurfural)

	// Longer residence times recover a little more sugar and ethanol.
	ehTimeFactor := 1 - math.Exp(-c.ehTime/28)
	fermTimeFactor := 1 - math.Exp(-c.fermTime/12)

	glucanConv := c.ptGlucan + (1-c.ptGlucan)*c.ehCellulose*ehTimeFactor
	glucose := glucan * glucanConv * glucanHydration
	xylose := xylan * c.ptXylan * xylanHydration
	fermentable := glucose*c.fermGlucose*fermTimeFactor + xylose*xyloseFermentation*fermTimeFactor
	ethanol := fermentable * sugarToEthanol // kg/hr

	residue := dry - glucan*glucanConv - xylan*(c.ptXylan+furfural)
	generated := powerMW(residue, c.boilerEff, c.turboEff)
	demand := c.plantSize * stoverPowerDemand

	scale := c.plantSize / stoverBaseSize
	c.tci = stoverBaseTCI * math.Pow(scale, 0.6) *
		(1 + 0.002*(c.ehTime-84) + 0.004*(c.fermTime-36))

	gallons := ethanol / ethanolDensity
	c.production = gallons * hours / 1e6
	if c.production <= 0 {
		return fmt.Errorf("%w: no ethanol produced", ErrInfeasible)
	}
	c.yield = gallons / (dry / kgPerDryTon)
	c.netElectricity = generated - demand
	c.electricityCredit = c.netElectricity * 1000 * c.electricityPrice * hours / 1e6

	feedCost := c.plantSize * c.feedPrice * hours / 1e6
	enzymeCost := glucan * enzymeLoading * c.enzymePrice * hours / 1e6
	c.aoc = feedCost + enzymeCost + fixedCostOfTotal*c.tci - c.electricityCredit

	c.mesp = (c.aoc + capitalCharge(c.tci, c.incomeTax)) / c.production
	return nil
}

// NewCornstover builds the corn stover ethanol model at its baseline.
func NewCornstover() *simulation.Model {
	c := &cornstover{}
	feed := simulation.WithElement("Cornstover")
	tea := simulation.WithElement("TEA")
	pretreatment := simulation.WithElement("R201")
	fermentation := simulation.WithElement("R301")
	boiler := simulation.WithElement("BT")
	coupled := simulation.WithKind(simulation.KindCoupled)

	params := []*simulation.Parameter{
		simulation.NewParameter("Cornstover price", 0.0516, func(v float64) { c.feedPrice = v },
			feed, simulation.WithUnits("$/kg"), simulation.WithDistribution(triangle(0.0464, 0.0516, 0.0567))),
		simulation.NewParameter("Enzyme price", 0.507, func(v float64) { c.enzymePrice = v },
			simulation.WithElement("Cellulase"), simulation.WithUnits("$/kg"), simulation.WithDistribution(triangle(0.400, 0.507, 0.611))),
		simulation.NewParameter("Electricity price", 0.0572, func(v float64) { c.electricityPrice = v },
			tea, simulation.WithUnits("$/kWh"), simulation.WithDistribution(triangle(0.0515, 0.0572, 0.0629))),
		simulation.NewParameter("Income tax", 0.35, func(v float64) { c.incomeTax = v },
			tea, simulation.WithUnits("%"), simulation.WithDistribution(spread(0.35, 0.1))),
		simulation.NewParameter("Plant size", 104167, func(v float64) { c.plantSize = v },
			feed, coupled, simulation.WithUnits("kg/hr"), simulation.WithDistribution(spread(104167, 0.1))),
		simulation.NewParameter("PT glucose-to-glucose", 0.099, func(v float64) { c.ptGlucan = v },
			pretreatment, coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.06, 0.099, 0.12))),
		simulation.NewParameter("PT xylan-to-xylose", 0.9, func(v float64) { c.ptXylan = v },
			pretreatment, coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.8, 0.9, 0.92))),
		simulation.NewParameter("Xylan-to-furfural conversion", 0.05, func(v float64) { c.xylanToFurfural = v },
			pretreatment, coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.03, 0.05, 0.07))),
		simulation.NewParameter("EH cellulose-to-glucose", 0.9, func(v float64) { c.ehCellulose = v },
			fermentation, coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.85, 0.9, 0.95))),
		simulation.NewParameter("EH time", 84, func(v float64) { c.ehTime = v },
			fermentation, simulation.WithUnits("hr"), simulation.WithDistribution(triangle(72, 84, 96))),
		simulation.NewParameter("FERM glucose-to-ethanol", 0.95, func(v float64) { c.fermGlucose = v },
			fermentation, coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.9, 0.95, 0.97))),
		simulation.NewParameter("FERM time", 36, func(v float64) { c.fermTime = v },
			fermentation, simulation.WithUnits("hr"), simulation.WithDistribution(triangle(30, 36, 42))),
		simulation.NewParameter("Boiler efficiency", 0.8, func(v float64) { c.boilerEff = v },
			boiler, coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.75, 0.8, 0.85))),
		simulation.NewParameter("Turbogenerator efficiency", 0.85, func(v float64) { c.turboEff = v },
			boiler, coupled, simulation.WithUnits("%"), simulation.WithDistribution(triangle(0.8, 0.85, 0.9))),
	}

	metrics := []*simulation.Metric{
		simulation.NewMetric("Minimum ethanol selling price", "$/gal", func() float64 { return c.mesp }),
		simulation.NewMetric("Ethanol production", "MM gal/yr", func() float64 { return c.production }),
		simulation.NewMetric("Ethanol yield", "gal/dry-US ton", func() float64 { return c.yield }),
		simulation.NewMetric("Total capital investment", "MM$", func() float64 { return c.tci }),
		simulation.NewMetric("Annual operating cost", "MM$/yr", func() float64 { return c.aoc }),
		simulation.NewMetric("Net electricity", "MW", func() float64 { return c.netElectricity }),
		simulation.NewMetric("Electricity credit", "MM $/yr", func() float64 { return c.electricityCredit }),
	}

	return simulation.NewModel(Cornstover, c, params, metrics)
}
