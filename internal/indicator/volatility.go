package indicator

import (
	"math"

	"tradelens/internal/model"
)

// BollingerResult carries the three bands plus the normalized bandwidth
// (upper − lower) / middle.
type BollingerResult struct {
	Upper     Line `json:"upper"`
	Middle    Line `json:"middle"`
	Lower     Line `json:"lower"`
	Bandwidth Line `json:"bandwidth"`
}

// BollingerBands computes an SMA middle band with upper/lower bands at
// ±k population standard deviations.
func BollingerBands(s model.TimeSeries, length int, k float64) (*BollingerResult, error) {
	if err := checkWindow(s, "bollinger", length); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, paramValueErr("bollinger k", k)
	}

	closes := s.Closes()
	mid := smaVals(closes, length)
	n := len(closes)

	upper := make([]float64, n)
	lower := make([]float64, n)
	bw := make([]float64, n)
	for i := length - 1; i < n; i++ {
		var varSum float64
		for j := i - length + 1; j <= i; j++ {
			d := closes[j] - mid[i]
			varSum += d * d
		}
		std := math.Sqrt(varSum / float64(length))
		upper[i] = mid[i] + k*std
		lower[i] = mid[i] - k*std
		if mid[i] != 0 {
			bw[i] = (upper[i] - lower[i]) / mid[i]
		}
	}
	start := length - 1
	return &BollingerResult{
		Upper:     lineFrom(s, start, upper),
		Middle:    lineFrom(s, start, mid),
		Lower:     lineFrom(s, start, lower),
		Bandwidth: lineFrom(s, start, bw),
	}, nil
}

// ATR computes Wilder's Average True Range, where true range is
// max(high−low, |high−prevClose|, |low−prevClose|). The first defined value
// is at bar index length.
func ATR(s model.TimeSeries, length int) (Line, error) {
	if err := checkWindow(s, "atr", length); err != nil {
		return nil, err
	}
	return lineFrom(s, length, wilderATR(s, length)), nil
}

// ChannelResult carries an upper/middle/lower channel triple.
type ChannelResult struct {
	Upper  Line `json:"upper"`
	Middle Line `json:"middle"`
	Lower  Line `json:"lower"`
}

// KeltnerChannel computes an EMA middle line with bands at ±multiplier ATR.
func KeltnerChannel(s model.TimeSeries, length, atrLength int, multiplier float64) (*ChannelResult, error) {
	if err := checkWindow(s, "keltner", length); err != nil {
		return nil, err
	}
	if err := checkWindow(s, "keltner atr", atrLength); err != nil {
		return nil, err
	}
	if multiplier <= 0 {
		return nil, paramValueErr("keltner multiplier", multiplier)
	}

	mid := emaVals(s.Closes(), length)
	atr := wilderATR(s, atrLength)
	start := length - 1
	if atrLength > start {
		start = atrLength
	}

	n := s.Len()
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := start; i < n; i++ {
		upper[i] = mid[i] + multiplier*atr[i]
		lower[i] = mid[i] - multiplier*atr[i]
	}
	return &ChannelResult{
		Upper:  lineFrom(s, start, upper),
		Middle: lineFrom(s, start, mid),
		Lower:  lineFrom(s, start, lower),
	}, nil
}

// DonchianChannel computes the highest-high / lowest-low channel with the
// midpoint as the middle line.
func DonchianChannel(s model.TimeSeries, length int) (*ChannelResult, error) {
	if err := checkWindow(s, "donchian", length); err != nil {
		return nil, err
	}
	upper := rollingMax(s.Highs(), length)
	lower := rollingMin(s.Lows(), length)
	mid := make([]float64, s.Len())
	for i := length - 1; i < s.Len(); i++ {
		mid[i] = (upper[i] + lower[i]) / 2.0
	}
	start := length - 1
	return &ChannelResult{
		Upper:  lineFrom(s, start, upper),
		Middle: lineFrom(s, start, mid),
		Lower:  lineFrom(s, start, lower),
	}, nil
}
