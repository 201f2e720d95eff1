package indicator

import (
	"tradelens/internal/model"
)

// OBV computes on-balance volume: cumulative volume added on rising closes,
// subtracted on falling closes, unchanged otherwise. The first bar seeds the
// total with its own volume.
func OBV(s model.TimeSeries) (Line, error) {
	if err := checkSeries(s); err != nil {
		return nil, err
	}
	n := s.Len()
	vals := make([]float64, n)
	vals[0] = s.At(0).Volume
	for i := 1; i < n; i++ {
		c, prev := s.At(i), s.At(i-1)
		switch {
		case c.Close > prev.Close:
			vals[i] = vals[i-1] + c.Volume
		case c.Close < prev.Close:
			vals[i] = vals[i-1] - c.Volume
		default:
			vals[i] = vals[i-1]
		}
	}
	return lineFrom(s, 0, vals), nil
}

// VWAP computes the volume-weighted average price cumulatively over the whole
// series: Σ(typical·volume) / Σ(volume). There is no session reset — resample
// the series first if session anchoring is wanted. Bars before any volume has
// traded produce no entry.
func VWAP(s model.TimeSeries) (Line, error) {
	if err := checkSeries(s); err != nil {
		return nil, err
	}
	var cumPV, cumV float64
	out := make(Line, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		c := s.At(i)
		cumPV += c.TypicalPrice() * c.Volume
		cumV += c.Volume
		if cumV == 0 {
			continue
		}
		out = append(out, Point{TS: c.TS, Value: cumPV / cumV})
	}
	return out, nil
}

// ChaikinMoneyFlow computes CMF over the given window:
// Σ(money-flow volume) / Σ(volume), where the money-flow multiplier is
// ((close−low) − (high−close)) / (high−low). Flat bars contribute zero flow.
func ChaikinMoneyFlow(s model.TimeSeries, length int) (Line, error) {
	if err := checkWindow(s, "cmf", length); err != nil {
		return nil, err
	}
	n := s.Len()
	mfv := make([]float64, n)
	vols := make([]float64, n)
	for i := 0; i < n; i++ {
		c := s.At(i)
		vols[i] = c.Volume
		if rng := c.Range(); rng > 0 {
			mfv[i] = ((c.Close - c.Low) - (c.High - c.Close)) / rng * c.Volume
		}
	}

	vals := make([]float64, n)
	var sumMFV, sumVol float64
	for i := 0; i < n; i++ {
		sumMFV += mfv[i]
		sumVol += vols[i]
		if i >= length {
			sumMFV -= mfv[i-length]
			sumVol -= vols[i-length]
		}
		if i >= length-1 && sumVol != 0 {
			vals[i] = sumMFV / sumVol
		}
	}
	return lineFrom(s, length-1, vals), nil
}
