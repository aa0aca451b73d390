package uncertainty

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/okian/simuq/internal/domain/sensitivity"
	"github.com/okian/simuq/internal/domain/simulation"
)

// FormatTable serializes every column of t as {label: [values...]} in
// column order. NaN and infinities become null.
func FormatTable(t *simulation.Table) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range t.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, c.Label); err != nil {
			return nil, err
		}
		writeFloats(&buf, c.Values)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatCoefficients serializes mx as {metric: {parameter: value}} where
// value is picked from each coefficient.
func FormatCoefficients(mx sensitivity.Matrix, pick func(sensitivity.Coefficient) float64) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, metric := range mx.Metrics {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, metric); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, param := range mx.Parameters {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, param); err != nil {
				return nil, err
			}
			writeFloat(&buf, pick(mx.Cells[i][j]))
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatScalars serializes a flat {label: value} mapping in label order.
func FormatScalars(labels []string, values []float64) (json.RawMessage, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("%d labels for %d values", len(labels), len(values))
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, label := range labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, label); err != nil {
			return nil, err
		}
		writeFloat(&buf, values[i])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Rho picks the correlation coefficient.
func Rho(c sensitivity.Coefficient) float64 { return c.Rho }

// PValue picks the two-sided p-value.
func PValue(c sensitivity.Coefficient) float64 { return c.P }

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("encode label %q: %w", key, err)
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

func writeFloats(buf *bytes.Buffer, values []float64) {
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeFloat(buf, v)
	}
	buf.WriteByte(']')
}

func writeFloat(buf *bytes.Buffer, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		buf.WriteString("null")
		return
	}
	// Finite floats always marshal.
	b, _ := json.Marshal(v)
	buf.Write(b)
}
