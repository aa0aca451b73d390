// Package sensitivity computes rank-correlation sensitivity of model
// metrics to sampled parameters.
package sensitivity

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Series is one labeled column of sampled or evaluated values.
type Series struct {
	Label  string
	Values []float64
}

// Coefficient is a Spearman rho with its two-sided p-value.
type Coefficient struct {
	Rho float64
	P   float64
}

// Matrix holds coefficients indexed [metric][parameter], in input order.
type Matrix struct {
	Metrics    []string
	Parameters []string
	Cells      [][]Coefficient
	// Samples is the number of complete rows the coefficients were computed on.
	Samples int
}

// At returns the coefficient for a (metric, parameter) pair.
func (m Matrix) At(metric, parameter string) (Coefficient, bool) {
	i := indexOf(m.Metrics, metric)
	j := indexOf(m.Parameters, parameter)
	if i < 0 || j < 0 {
		return Coefficient{}, false
	}
	return m.Cells[i][j], true
}

// Spearman correlates every parameter series with every metric series.
// Rows holding a NaN in any series are dropped first.
func Spearman(parameters, metrics []Series) (Matrix, error) {
	if len(parameters) == 0 || len(metrics) == 0 {
		return Matrix{}, ErrNoSeries
	}
	n := len(parameters[0].Values)
	for _, s := range append(append([]Series{}, parameters...), metrics...) {
		if len(s.Values) != n {
			return Matrix{}, fmt.Errorf("%w: %q has %d values, want %d", ErrLengthMismatch, s.Label, len(s.Values), n)
		}
	}

	keep := completeRows(n, parameters, metrics)

	pranks := make([][]float64, len(parameters))
	for j, s := range parameters {
		pranks[j] = rank(subset(s.Values, keep))
	}

	m := Matrix{
		Metrics:    labels(metrics),
		Parameters: labels(parameters),
		Cells:      make([][]Coefficient, len(metrics)),
		Samples:    len(keep),
	}
	for i, s := range metrics {
		mranks := rank(subset(s.Values, keep))
		row := make([]Coefficient, len(parameters))
		for j := range parameters {
			row[j] = correlate(pranks[j], mranks)
		}
		m.Cells[i] = row
	}
	return m, nil
}

func correlate(x, y []float64) Coefficient {
	n := len(x)
	if n < 2 {
		return Coefficient{Rho: math.NaN(), P: math.NaN()}
	}
	rho := stat.Correlation(x, y, nil)
	if math.IsNaN(rho) {
		return Coefficient{Rho: math.NaN(), P: math.NaN()}
	}
	rho = math.Max(-1, math.Min(1, rho))
	return Coefficient{Rho: rho, P: pValue(rho, n)}
}

// pValue is the two-sided p-value of rho under the t approximation with
// n-2 degrees of freedom.
func pValue(rho float64, n int) float64 {
	if n < 3 {
		return math.NaN()
	}
	if math.Abs(rho) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := rho * math.Sqrt(df/(1-rho*rho))
	return 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))
}

// rank assigns 1-based ranks, averaging ties.
func rank(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && values[idx[j]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // mean of ranks i+1 .. j
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}

func completeRows(n int, groups ...[]Series) []int {
	keep := make([]int, 0, n)
rows:
	for i := 0; i < n; i++ {
		for _, g := range groups {
			for _, s := range g {
				if math.IsNaN(s.Values[i]) {
					continue rows
				}
			}
		}
		keep = append(keep, i)
	}
	return keep
}

func subset(values []float64, keep []int) []float64 {
	out := make([]float64, len(keep))
	for i, k := range keep {
		out[i] = values[k]
	}
	return out
}

func labels(series []Series) []string {
	out := make([]string, len(series))
	for i, s := range series {
		out[i] = s.Label
	}
	return out
}

func indexOf(xs []string, x string) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}
