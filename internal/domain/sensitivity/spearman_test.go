package sensitivity_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/simuq/internal/domain/sensitivity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSpearman(t *testing.T) {
	Convey("Given parameter and metric series", t, func() {
		price := sensitivity.Series{Label: "Price [$/kg]", Values: []float64{1, 2, 3, 4, 5}}

		Convey("When the metric increases monotonically with the parameter", func() {
			cost := sensitivity.Series{Label: "Cost", Values: []float64{10, 20, 25, 100, 101}}
			m, err := sensitivity.Spearman([]sensitivity.Series{price}, []sensitivity.Series{cost})

			Convey("Then rho should be 1 with a zero p-value", func() {
				So(err, ShouldBeNil)
				c, ok := m.At("Cost", "Price [$/kg]")
				So(ok, ShouldBeTrue)
				So(c.Rho, ShouldAlmostEqual, 1)
				So(c.P, ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When the metric decreases with the parameter", func() {
			margin := sensitivity.Series{Label: "Margin", Values: []float64{5, 4, 3, 2, 1}}
			m, err := sensitivity.Spearman([]sensitivity.Series{price}, []sensitivity.Series{margin})

			Convey("Then rho should be -1", func() {
				So(err, ShouldBeNil)
				c, _ := m.At("Margin", "Price [$/kg]")
				So(c.Rho, ShouldAlmostEqual, -1)
			})
		})

		Convey("When the ranks are partially shuffled", func() {
			y := sensitivity.Series{Label: "Y", Values: []float64{2, 1, 4, 3, 5}}
			m, err := sensitivity.Spearman([]sensitivity.Series{price}, []sensitivity.Series{y})

			Convey("Then rho and p should match the textbook values", func() {
				So(err, ShouldBeNil)
				c, _ := m.At("Y", "Price [$/kg]")
				So(c.Rho, ShouldAlmostEqual, 0.8, 1e-12)
				So(c.P, ShouldAlmostEqual, 0.1041, 1e-3)
			})
		})

		Convey("When a row carries NaN", func() {
			y := sensitivity.Series{Label: "Y", Values: []float64{1, math.NaN(), 3, 4, 5}}
			m, err := sensitivity.Spearman([]sensitivity.Series{price}, []sensitivity.Series{y})

			Convey("Then that row should be excluded", func() {
				So(err, ShouldBeNil)
				So(m.Samples, ShouldEqual, 4)
				c, _ := m.At("Y", "Price [$/kg]")
				So(c.Rho, ShouldAlmostEqual, 1)
			})
		})

		Convey("When values tie", func() {
			y := sensitivity.Series{Label: "Y", Values: []float64{1, 1, 2, 2, 3}}
			m, err := sensitivity.Spearman([]sensitivity.Series{price}, []sensitivity.Series{y})

			Convey("Then the coefficient should stay within [-1, 1]", func() {
				So(err, ShouldBeNil)
				c, _ := m.At("Y", "Price [$/kg]")
				So(c.Rho, ShouldBeBetweenOrEqual, -1, 1)
				So(c.Rho, ShouldBeGreaterThan, 0.9)
			})
		})

		Convey("When a metric is constant", func() {
			flat := sensitivity.Series{Label: "Flat", Values: []float64{7, 7, 7, 7, 7}}
			m, err := sensitivity.Spearman([]sensitivity.Series{price}, []sensitivity.Series{flat})

			Convey("Then the coefficient should be undefined", func() {
				So(err, ShouldBeNil)
				c, _ := m.At("Flat", "Price [$/kg]")
				So(math.IsNaN(c.Rho), ShouldBeTrue)
			})
		})

		Convey("When several parameters and metrics are given", func() {
			size := sensitivity.Series{Label: "Size", Values: []float64{3, 1, 2, 5, 4}}
			a := sensitivity.Series{Label: "A", Values: []float64{1, 3, 2, 5, 4}}
			b := sensitivity.Series{Label: "B", Values: []float64{9, 8, 7, 6, 5}}
			m, err := sensitivity.Spearman([]sensitivity.Series{price, size}, []sensitivity.Series{a, b})

			Convey("Then there should be one entry per pair", func() {
				So(err, ShouldBeNil)
				So(m.Metrics, ShouldResemble, []string{"A", "B"})
				So(m.Parameters, ShouldResemble, []string{"Price [$/kg]", "Size"})
				So(len(m.Cells), ShouldEqual, 2)
				for _, row := range m.Cells {
					So(len(row), ShouldEqual, 2)
					for _, c := range row {
						So(c.Rho, ShouldBeBetweenOrEqual, -1, 1)
					}
				}
			})
		})

		Convey("When series lengths differ", func() {
			short := sensitivity.Series{Label: "Short", Values: []float64{1, 2}}
			_, err := sensitivity.Spearman([]sensitivity.Series{price}, []sensitivity.Series{short})

			Convey("Then it should fail", func() {
				So(errors.Is(err, sensitivity.ErrLengthMismatch), ShouldBeTrue)
			})
		})

		Convey("When no metrics are given", func() {
			_, err := sensitivity.Spearman([]sensitivity.Series{price}, nil)
			So(errors.Is(err, sensitivity.ErrNoSeries), ShouldBeTrue)
		})
	})
}
