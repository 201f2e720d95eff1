package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"tradelens/internal/model"
)

// RSIStats summarizes an RSI line for the decision process. The fields are a
// presentation summary, so they are stored at display precision.
type RSIStats struct {
	Current float64 `json:"current"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
}

// RSIResult carries the RSI line plus its statistics block.
type RSIResult struct {
	Values Line     `json:"raw_values"`
	Stats  RSIStats `json:"overall_stats"`
}

// RSI computes Wilder's Relative Strength Index. Values lie in [0, 100];
// readings at or below 30 are conventionally oversold, at or above 70
// overbought. The first defined value is at bar index length (one bar of
// deltas plus the seed window).
func RSI(s model.TimeSeries, length int) (*RSIResult, error) {
	if err := checkWindow(s, "rsi", length); err != nil {
		return nil, err
	}
	// The seed window is length deltas, which takes length+1 bars.
	if length >= s.Len() {
		return nil, paramLargeErr("rsi", length+1, s.Len())
	}
	closes := s.Closes()
	vals := make([]float64, len(closes))
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		if i <= length {
			avgGain += gain
			avgLoss += loss
			if i == length {
				avgGain /= float64(length)
				avgLoss /= float64(length)
				vals[i] = rsiFrom(avgGain, avgLoss)
			}
			continue
		}
		avgGain = (avgGain*float64(length-1) + gain) / float64(length)
		avgLoss = (avgLoss*float64(length-1) + loss) / float64(length)
		vals[i] = rsiFrom(avgGain, avgLoss)
	}

	line := lineFrom(s, length, vals)
	return &RSIResult{Values: line, Stats: summarize(line)}, nil
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

func summarize(line Line) RSIStats {
	if len(line) == 0 {
		return RSIStats{}
	}
	mn, mx, sum := line[0].Value, line[0].Value, 0.0
	for _, p := range line {
		if p.Value < mn {
			mn = p.Value
		}
		if p.Value > mx {
			mx = p.Value
		}
		sum += p.Value
	}
	mean := sum / float64(len(line))
	var varSum float64
	for _, p := range line {
		d := p.Value - mean
		varSum += d * d
	}
	return RSIStats{
		Current: Round2(line[len(line)-1].Value),
		Min:     Round2(mn),
		Max:     Round2(mx),
		Mean:    Round2(mean),
		Std:     Round2(math.Sqrt(varSum / float64(len(line)))),
	}
}

// StochResult carries the %K and %D lines, aligned at the later warm-up.
type StochResult struct {
	K Line `json:"k"`
	D Line `json:"d"`
}

// Stochastic computes the stochastic oscillator:
// raw %K = 100·(close − LL(k)) / (HH(k) − LL(k)), smoothed by an SMA of
// smoothK bars; %D is the SMA of %K over d bars. A flat window (HH == LL)
// degenerates to the neutral 50 reading.
func Stochastic(s model.TimeSeries, k, d, smoothK int) (*StochResult, error) {
	if err := checkWindow(s, "stoch %k", k); err != nil {
		return nil, err
	}
	if err := checkWindow(s, "stoch %d", d); err != nil {
		return nil, err
	}
	if err := checkWindow(s, "stoch smooth_k", smoothK); err != nil {
		return nil, err
	}
	highs, lows, closes := s.Highs(), s.Lows(), s.Closes()
	hh := rollingMax(highs, k)
	ll := rollingMin(lows, k)

	raw := make([]float64, s.Len())
	for i := k - 1; i < s.Len(); i++ {
		rng := hh[i] - ll[i]
		if rng == 0 {
			raw[i] = 50.0
			continue
		}
		raw[i] = 100.0 * (closes[i] - ll[i]) / rng
	}

	smoothed := smaTail(raw, k-1, smoothK)
	dLine := smaTail(smoothed, k-1+smoothK-1, d)

	// Both lines are reported from the bar where %D first resolves, so the
	// result drops undefined leading values as one unit.
	start := k + smoothK + d - 3
	return &StochResult{
		K: lineFrom(s, start, smoothed),
		D: lineFrom(s, start, dLine),
	}, nil
}

// smaTail applies an SMA to vals that are only defined from index from
// onward. The output is defined from index from+length-1.
func smaTail(vals []float64, from, length int) []float64 {
	out := make([]float64, len(vals))
	var sum float64
	for i := from; i < len(vals); i++ {
		sum += vals[i]
		if i-from >= length {
			sum -= vals[i-length]
		}
		if i-from >= length-1 {
			out[i] = sum / float64(length)
		}
	}
	return out
}

// StochRSI computes the stochastic oscillator applied to RSI values rather
// than price, via the ta-lib port. Both lines align at the %D warm-up.
func StochRSI(s model.TimeSeries, length, fastK, fastD int) (*StochResult, error) {
	if err := checkWindow(s, "stochrsi", length); err != nil {
		return nil, err
	}
	if err := checkWindow(s, "stochrsi fast_k", fastK); err != nil {
		return nil, err
	}
	if err := checkWindow(s, "stochrsi fast_d", fastD); err != nil {
		return nil, err
	}
	kVals, dVals := talib.StochRsi(s.Closes(), length, fastK, fastD, talib.SMA)
	start := length + fastK + fastD - 2
	return &StochResult{
		K: lineFrom(s, start, kVals),
		D: lineFrom(s, start, dVals),
	}, nil
}

// WilliamsR computes Williams %R over the given window; values lie in
// [-100, 0].
func WilliamsR(s model.TimeSeries, length int) (Line, error) {
	if err := checkWindow(s, "williams %r", length); err != nil {
		return nil, err
	}
	vals := talib.WillR(s.Highs(), s.Lows(), s.Closes(), length)
	return lineFrom(s, length-1, vals), nil
}

// ROC computes the rate of change, 100·(close/close[n ago] − 1).
func ROC(s model.TimeSeries, length int) (Line, error) {
	if err := checkWindow(s, "roc", length); err != nil {
		return nil, err
	}
	vals := talib.Roc(s.Closes(), length)
	return lineFrom(s, length, vals), nil
}

// CCI computes the Commodity Channel Index over the given window.
func CCI(s model.TimeSeries, length int) (Line, error) {
	if err := checkWindow(s, "cci", length); err != nil {
		return nil, err
	}
	vals := talib.Cci(s.Highs(), s.Lows(), s.Closes(), length)
	return lineFrom(s, length-1, vals), nil
}

// MFI computes the Money Flow Index, a volume-weighted RSI analogue in
// [0, 100].
func MFI(s model.TimeSeries, length int) (Line, error) {
	if err := checkWindow(s, "mfi", length); err != nil {
		return nil, err
	}
	vals := talib.Mfi(s.Highs(), s.Lows(), s.Closes(), s.Volumes(), length)
	return lineFrom(s, length, vals), nil
}
