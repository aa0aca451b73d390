package sampling_test

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/okian/simuq/internal/domain/distribution"
	"github.com/okian/simuq/internal/domain/sampling"
	. "github.com/smartystreets/goconvey/convey"
)

func mustUniform(lo, hi float64) distribution.Distribution {
	u, err := distribution.NewUniform(lo, hi)
	if err != nil {
		panic(err)
	}
	return u
}

func TestSampler(t *testing.T) {
	Convey("Given a default sampler", t, func() {
		s, err := sampling.New()
		So(err, ShouldBeNil)
		So(s.Rule(), ShouldEqual, sampling.RuleLatinHypercube)

		price := mustUniform(0.04, 0.06)

		Convey("When drawing 10 samples of one uniform parameter", func() {
			m, err := s.Sample([]distribution.Distribution{price}, 10)

			Convey("Then the matrix should be 10 x 1 within bounds", func() {
				So(err, ShouldBeNil)
				So(m.Rows(), ShouldEqual, 10)
				So(m.Cols(), ShouldEqual, 1)
				for _, row := range m {
					So(row[0], ShouldBeBetweenOrEqual, 0.04, 0.06)
				}
			})

			Convey("Then every stratum should hold exactly one sample", func() {
				strata := make([]int, 0, 10)
				for _, v := range m.Column(0) {
					strata = append(strata, int(math.Floor((v-0.04)/0.02*10)))
				}
				sort.Ints(strata)
				for i, k := range strata {
					So(k, ShouldEqual, i)
				}
			})
		})

		Convey("When drawing for several parameters", func() {
			tri, err := distribution.NewTriangular(1, 2, 3)
			So(err, ShouldBeNil)
			dists := []distribution.Distribution{price, tri, mustUniform(-5, 5)}
			for _, n := range []int{1, 2, 7, 50} {
				m, err := s.Sample(dists, n)
				So(err, ShouldBeNil)
				So(m.Rows(), ShouldEqual, n)
				So(m.Cols(), ShouldEqual, len(dists))
			}
		})

		Convey("When sampling twice with the same inputs", func() {
			a, _ := s.Sample([]distribution.Distribution{price}, 25)
			b, _ := s.Sample([]distribution.Distribution{price}, 25)

			Convey("Then the matrices should be identical", func() {
				So(a, ShouldResemble, b)
			})
		})

		Convey("When the seed differs", func() {
			other, err := sampling.New(sampling.WithSeed(7))
			So(err, ShouldBeNil)
			a, _ := s.Sample([]distribution.Distribution{price}, 25)
			b, _ := other.Sample([]distribution.Distribution{price}, 25)

			Convey("Then the matrices should differ", func() {
				So(a, ShouldNotResemble, b)
			})
		})

		Convey("When the count is zero", func() {
			_, err := s.Sample([]distribution.Distribution{price}, 0)

			Convey("Then it should fail", func() {
				So(errors.Is(err, sampling.ErrInvalidCount), ShouldBeTrue)
			})
		})

		Convey("When no distributions are given", func() {
			_, err := s.Sample(nil, 3)

			Convey("Then it should fail", func() {
				So(errors.Is(err, sampling.ErrNoParameters), ShouldBeTrue)
			})
		})
	})

	Convey("Given the random rule", t, func() {
		s, err := sampling.New(sampling.WithRule(sampling.RuleRandom))
		So(err, ShouldBeNil)
		m, err := s.Sample([]distribution.Distribution{mustUniform(0, 1)}, 100)
		So(err, ShouldBeNil)
		So(m.Rows(), ShouldEqual, 100)
	})

	Convey("Given an unknown rule", t, func() {
		_, err := sampling.New(sampling.WithRule("Q"))
		So(errors.Is(err, sampling.ErrUnknownRule), ShouldBeTrue)
	})
}
