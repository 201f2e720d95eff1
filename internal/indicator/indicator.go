// Package indicator implements deterministic technical indicator computations
// over immutable time series.
//
// Every function takes a model.TimeSeries plus window parameters and returns a
// result keyed only by timestamps whose value is fully determined: bars inside
// the warm-up window produce no entry, never a placeholder. Intermediate math
// is carried at full float64 precision; rounding to the 2-decimal display
// precision happens exclusively at the serialization boundary
// (Line.MarshalJSON), so chained computations always see unrounded values.
//
// Window arguments are validated up front: a length ≤ 0 or larger than the
// series wraps model.ErrParameter, an empty series wraps model.ErrData.
package indicator

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"tradelens/internal/model"
)

// Point is a single timestamped indicator value.
type Point struct {
	TS    time.Time
	Value float64
}

// Line is an ordered single-field indicator series. Its JSON form is an
// object keyed by ISO-8601 timestamp with values rounded to 2 decimals.
type Line []Point

// Last returns the most recent point, or false when the line is empty.
func (l Line) Last() (Point, bool) {
	if len(l) == 0 {
		return Point{}, false
	}
	return l[len(l)-1], true
}

// Values returns the raw (unrounded) values in order.
func (l Line) Values() []float64 {
	out := make([]float64, len(l))
	for i, p := range l {
		out[i] = p.Value
	}
	return out
}

// MarshalJSON emits {"<RFC3339>": <value>, ...}. This is the only place
// display rounding is applied.
func (l Line) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, len(l))
	for _, p := range l {
		m[p.TS.UTC().Format(time.RFC3339)] = Round2(p.Value)
	}
	return json.Marshal(m)
}

// Round2 rounds to the fixed display precision used on the wire.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// checkSeries rejects series with no usable bars.
func checkSeries(s model.TimeSeries) error {
	if s.Len() == 0 {
		return fmt.Errorf("empty series: %w", model.ErrData)
	}
	return nil
}

// checkWindow validates a window length against the series.
func checkWindow(s model.TimeSeries, name string, length int) error {
	if err := checkSeries(s); err != nil {
		return err
	}
	if length <= 0 {
		return fmt.Errorf("%s length %d must be positive: %w", name, length, model.ErrParameter)
	}
	if length > s.Len() {
		return fmt.Errorf("%s length %d exceeds series of %d bars: %w", name, length, s.Len(), model.ErrParameter)
	}
	return nil
}

func paramOrderErr(name string, fast, slow int) error {
	return fmt.Errorf("%s fast window %d must be shorter than slow window %d: %w", name, fast, slow, model.ErrParameter)
}

func paramValueErr(name string, v float64) error {
	return fmt.Errorf("%s value %g out of range: %w", name, v, model.ErrParameter)
}

func paramLargeErr(name string, need, have int) error {
	return fmt.Errorf("%s needs %d bars, series has %d: %w", name, need, have, model.ErrParameter)
}

// lineFrom builds a Line from a full-length value slice aligned with the
// series, keeping entries from startIdx onward (the first fully determined
// bar).
func lineFrom(s model.TimeSeries, startIdx int, vals []float64) Line {
	if startIdx < 0 {
		startIdx = 0
	}
	if startIdx >= s.Len() {
		return Line{}
	}
	out := make(Line, 0, s.Len()-startIdx)
	for i := startIdx; i < s.Len(); i++ {
		out = append(out, Point{TS: s.At(i).TS, Value: vals[i]})
	}
	return out
}

// smaVals computes a rolling mean over vals. The returned slice is aligned
// with vals; entries before index length-1 are undefined.
func smaVals(vals []float64, length int) []float64 {
	out := make([]float64, len(vals))
	var sum float64
	for i, v := range vals {
		sum += v
		if i >= length {
			sum -= vals[i-length]
		}
		if i >= length-1 {
			out[i] = sum / float64(length)
		}
	}
	return out
}

// emaVals computes an exponential moving average seeded with the SMA of the
// first length values, as the streaming engines in this codebase's lineage do.
// Entries before index length-1 are undefined.
func emaVals(vals []float64, length int) []float64 {
	out := make([]float64, len(vals))
	mult := 2.0 / float64(length+1)
	var sum float64
	for i, v := range vals {
		if i < length {
			sum += v
			if i == length-1 {
				out[i] = sum / float64(length)
			}
			continue
		}
		out[i] = v*mult + out[i-1]*(1-mult)
	}
	return out
}

// rollingMax returns the rolling window maximum; entries before index
// length-1 are undefined. O(n·length) is fine at the window sizes in use.
func rollingMax(vals []float64, length int) []float64 {
	out := make([]float64, len(vals))
	for i := length - 1; i < len(vals); i++ {
		m := vals[i]
		for j := i - length + 1; j < i; j++ {
			if vals[j] > m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

// rollingMin returns the rolling window minimum; entries before index
// length-1 are undefined.
func rollingMin(vals []float64, length int) []float64 {
	out := make([]float64, len(vals))
	for i := length - 1; i < len(vals); i++ {
		m := vals[i]
		for j := i - length + 1; j < i; j++ {
			if vals[j] < m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

// trueRanges returns TR values aligned with the series. Index 0 is undefined
// (no previous close).
func trueRanges(s model.TimeSeries) []float64 {
	tr := make([]float64, s.Len())
	for i := 1; i < s.Len(); i++ {
		c, prev := s.At(i), s.At(i-1)
		tr[i] = math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev.Close), math.Abs(c.Low-prev.Close)))
	}
	return tr
}

// wilderATR computes Wilder-smoothed ATR values aligned with the series;
// entries before index length are undefined.
func wilderATR(s model.TimeSeries, length int) []float64 {
	tr := trueRanges(s)
	out := make([]float64, s.Len())
	var sum float64
	for i := 1; i < s.Len(); i++ {
		if i <= length {
			sum += tr[i]
			if i == length {
				out[i] = sum / float64(length)
			}
			continue
		}
		out[i] = (out[i-1]*float64(length-1) + tr[i]) / float64(length)
	}
	return out
}
