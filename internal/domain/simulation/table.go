package simulation

import (
	"math"

	"github.com/okian/simuq/internal/domain/sensitivity"
)

// ColumnKind tells parameter columns from metric columns.
type ColumnKind int

// Column kinds.
const (
	ColumnParameter ColumnKind = iota
	ColumnMetric
)

// Column is one labeled result column. Element is a display-only grouping
// and never part of the label.
type Column struct {
	Label   string
	Element string
	Kind    ColumnKind
	Values  []float64
}

// Table is the evaluated result: one row per sample, parameter columns
// first, then metric columns.
type Table struct {
	Columns []Column
}

// Rows returns the number of sample rows.
func (t *Table) Rows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Parameters returns the parameter columns.
func (t *Table) Parameters() []Column { return t.filter(ColumnParameter) }

// Metrics returns the metric columns.
func (t *Table) Metrics() []Column { return t.filter(ColumnMetric) }

// Series converts the given columns for sensitivity analysis.
func Series(cols []Column) []sensitivity.Series {
	out := make([]sensitivity.Series, len(cols))
	for i, c := range cols {
		out[i] = sensitivity.Series{Label: c.Label, Values: c.Values}
	}
	return out
}

// NaNRows counts rows holding a NaN in any column.
func (t *Table) NaNRows() int {
	count := 0
	for i := 0; i < t.Rows(); i++ {
		for _, c := range t.Columns {
			if math.IsNaN(c.Values[i]) {
				count++
				break
			}
		}
	}
	return count
}

func (t *Table) filter(kind ColumnKind) []Column {
	var out []Column
	for _, c := range t.Columns {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
