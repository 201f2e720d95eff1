package indicator

import (
	talib "github.com/markcheno/go-talib"

	"tradelens/internal/model"
)

// SMA computes the simple moving average of closes.
func SMA(s model.TimeSeries, length int) (Line, error) {
	if err := checkWindow(s, "sma", length); err != nil {
		return nil, err
	}
	return lineFrom(s, length-1, smaVals(s.Closes(), length)), nil
}

// EMA computes the exponential moving average of closes, seeded with the SMA
// of the first length bars.
func EMA(s model.TimeSeries, length int) (Line, error) {
	if err := checkWindow(s, "ema", length); err != nil {
		return nil, err
	}
	return lineFrom(s, length-1, emaVals(s.Closes(), length)), nil
}

// MACDResult carries the MACD line, its signal line, and the histogram.
// All three align at the signal line's warm-up so the result drops undefined
// leading bars as one unit.
type MACDResult struct {
	MACD      Line `json:"macd"`
	Signal    Line `json:"signal"`
	Histogram Line `json:"histogram"`
}

// MACD computes EMA(close, fast) − EMA(close, slow), an EMA(signal) of that
// difference, and their histogram.
func MACD(s model.TimeSeries, fast, slow, signal int) (*MACDResult, error) {
	if err := checkWindow(s, "macd fast", fast); err != nil {
		return nil, err
	}
	if err := checkWindow(s, "macd slow", slow); err != nil {
		return nil, err
	}
	if err := checkWindow(s, "macd signal", signal); err != nil {
		return nil, err
	}
	if fast >= slow {
		return nil, paramOrderErr("macd", fast, slow)
	}

	closes := s.Closes()
	fastE := emaVals(closes, fast)
	slowE := emaVals(closes, slow)

	macd := make([]float64, len(closes))
	for i := slow - 1; i < len(closes); i++ {
		macd[i] = fastE[i] - slowE[i]
	}

	// Signal EMA runs over the defined MACD tail only.
	sig := make([]float64, len(closes))
	mult := 2.0 / float64(signal+1)
	var seed float64
	for i := slow - 1; i < len(closes); i++ {
		n := i - (slow - 1)
		if n < signal {
			seed += macd[i]
			if n == signal-1 {
				sig[i] = seed / float64(signal)
			}
			continue
		}
		sig[i] = macd[i]*mult + sig[i-1]*(1-mult)
	}

	start := slow + signal - 2
	hist := make([]float64, len(closes))
	for i := start; i < len(closes); i++ {
		hist[i] = macd[i] - sig[i]
	}
	return &MACDResult{
		MACD:      lineFrom(s, start, macd),
		Signal:    lineFrom(s, start, sig),
		Histogram: lineFrom(s, start, hist),
	}, nil
}

// SupertrendResult carries the trailing trend line, the ±1 direction flag,
// and the active long/short band values. Long holds entries only for bullish
// bars and Short only for bearish bars, so the two are sparse by design.
type SupertrendResult struct {
	Trend     Line `json:"trend"`
	Direction Line `json:"direction"`
	Long      Line `json:"long"`
	Short     Line `json:"short"`
}

// Supertrend computes the ATR-based trailing band. Direction flips bullish
// (+1) when the close crosses above the upper band and bearish (−1) when it
// crosses below the lower band.
func Supertrend(s model.TimeSeries, length int, multiplier float64) (*SupertrendResult, error) {
	if err := checkWindow(s, "supertrend", length); err != nil {
		return nil, err
	}
	if multiplier <= 0 {
		return nil, paramValueErr("supertrend multiplier", multiplier)
	}

	atr := wilderATR(s, length)
	n := s.Len()
	upper := make([]float64, n)
	lower := make([]float64, n)
	dir := make([]float64, n)
	trend := make([]float64, n)

	res := &SupertrendResult{}
	for i := length; i < n; i++ {
		c := s.At(i)
		hl2 := (c.High + c.Low) / 2.0
		up := hl2 + multiplier*atr[i]
		lo := hl2 - multiplier*atr[i]

		if i == length {
			upper[i], lower[i], dir[i] = up, lo, 1
		} else {
			prev := s.At(i - 1)
			if up < upper[i-1] || prev.Close > upper[i-1] {
				upper[i] = up
			} else {
				upper[i] = upper[i-1]
			}
			if lo > lower[i-1] || prev.Close < lower[i-1] {
				lower[i] = lo
			} else {
				lower[i] = lower[i-1]
			}
			switch {
			case c.Close > upper[i-1]:
				dir[i] = 1
			case c.Close < lower[i-1]:
				dir[i] = -1
			default:
				dir[i] = dir[i-1]
			}
		}

		if dir[i] > 0 {
			trend[i] = lower[i]
			res.Long = append(res.Long, Point{TS: c.TS, Value: lower[i]})
		} else {
			trend[i] = upper[i]
			res.Short = append(res.Short, Point{TS: c.TS, Value: upper[i]})
		}
	}
	res.Trend = lineFrom(s, length, trend)
	res.Direction = lineFrom(s, length, dir)
	return res, nil
}

// ADXResult carries the trend-strength line and the two directional lines,
// aligned at the ADX warm-up (2·length − 1 bars).
type ADXResult struct {
	ADX     Line `json:"adx"`
	PlusDI  Line `json:"plus_di"`
	MinusDI Line `json:"minus_di"`
}

// ADX computes the Average Directional Index with +DI/−DI via the ta-lib
// port.
func ADX(s model.TimeSeries, length int) (*ADXResult, error) {
	if err := checkWindow(s, "adx", length); err != nil {
		return nil, err
	}
	if 2*length-1 > s.Len() {
		return nil, paramLargeErr("adx", 2*length-1, s.Len())
	}
	highs, lows, closes := s.Highs(), s.Lows(), s.Closes()
	start := 2*length - 1
	return &ADXResult{
		ADX:     lineFrom(s, start, talib.Adx(highs, lows, closes, length)),
		PlusDI:  lineFrom(s, start, talib.PlusDI(highs, lows, closes, length)),
		MinusDI: lineFrom(s, start, talib.MinusDI(highs, lows, closes, length)),
	}, nil
}

// ParabolicSAR computes the parabolic stop-and-reverse trailing level via the
// ta-lib port. Defined from the second bar.
func ParabolicSAR(s model.TimeSeries, acceleration, maximum float64) (Line, error) {
	if err := checkSeries(s); err != nil {
		return nil, err
	}
	if s.Len() < 2 {
		return nil, paramLargeErr("parabolic sar", 2, s.Len())
	}
	if acceleration <= 0 || maximum <= 0 || acceleration > maximum {
		return nil, paramValueErr("parabolic sar acceleration/maximum", acceleration)
	}
	return lineFrom(s, 1, talib.Sar(s.Highs(), s.Lows(), acceleration, maximum)), nil
}

// IchimokuResult carries the five Ichimoku lines. The leading spans are
// reported against the existing bars they project onto; no future timestamps
// are fabricated, so SpanA/SpanB start later and Lagging ends earlier than
// the series.
type IchimokuResult struct {
	Conversion Line `json:"conversion"`
	Base       Line `json:"base"`
	SpanA      Line `json:"span_a"`
	SpanB      Line `json:"span_b"`
	Lagging    Line `json:"lagging"`
}

// Ichimoku computes the Ichimoku Kinko Hyo system with the given conversion,
// base, and span-B windows (classically 9, 26, 52). The base window doubles
// as the projection displacement.
func Ichimoku(s model.TimeSeries, conversion, base, spanB int) (*IchimokuResult, error) {
	if err := checkWindow(s, "ichimoku conversion", conversion); err != nil {
		return nil, err
	}
	if err := checkWindow(s, "ichimoku base", base); err != nil {
		return nil, err
	}
	if err := checkWindow(s, "ichimoku span_b", spanB); err != nil {
		return nil, err
	}

	highs, lows := s.Highs(), s.Lows()
	mid := func(hh, ll []float64, i int) float64 { return (hh[i] + ll[i]) / 2.0 }

	hhC, llC := rollingMax(highs, conversion), rollingMin(lows, conversion)
	hhB, llB := rollingMax(highs, base), rollingMin(lows, base)
	hhS, llS := rollingMax(highs, spanB), rollingMin(lows, spanB)

	n := s.Len()
	res := &IchimokuResult{}
	for i := conversion - 1; i < n; i++ {
		res.Conversion = append(res.Conversion, Point{TS: s.At(i).TS, Value: mid(hhC, llC, i)})
	}
	for i := base - 1; i < n; i++ {
		res.Base = append(res.Base, Point{TS: s.At(i).TS, Value: mid(hhB, llB, i)})
	}
	// Leading spans: the value computed at bar i projects onto bar i+base.
	for i := base - 1; i+base < n; i++ {
		res.SpanA = append(res.SpanA, Point{TS: s.At(i + base).TS, Value: (mid(hhC, llC, i) + mid(hhB, llB, i)) / 2.0})
	}
	for i := spanB - 1; i+base < n; i++ {
		res.SpanB = append(res.SpanB, Point{TS: s.At(i + base).TS, Value: mid(hhS, llS, i)})
	}
	// Lagging span: close plotted base bars back.
	for i := base; i < n; i++ {
		res.Lagging = append(res.Lagging, Point{TS: s.At(i - base).TS, Value: s.At(i).Close})
	}
	return res, nil
}

// VortexResult carries the positive and negative vortex movement lines.
type VortexResult struct {
	Plus  Line `json:"vi_plus"`
	Minus Line `json:"vi_minus"`
}

// Vortex computes VI+ and VI− as rolling sums of vortex movement over true
// range.
func Vortex(s model.TimeSeries, length int) (*VortexResult, error) {
	if err := checkWindow(s, "vortex", length); err != nil {
		return nil, err
	}
	n := s.Len()
	tr := trueRanges(s)
	vmPlus := make([]float64, n)
	vmMinus := make([]float64, n)
	for i := 1; i < n; i++ {
		c, prev := s.At(i), s.At(i-1)
		vmPlus[i] = abs(c.High - prev.Low)
		vmMinus[i] = abs(c.Low - prev.High)
	}

	plus := make([]float64, n)
	minus := make([]float64, n)
	var sumTR, sumP, sumM float64
	for i := 1; i < n; i++ {
		sumTR += tr[i]
		sumP += vmPlus[i]
		sumM += vmMinus[i]
		if i > length {
			sumTR -= tr[i-length]
			sumP -= vmPlus[i-length]
			sumM -= vmMinus[i-length]
		}
		if i >= length && sumTR != 0 {
			plus[i] = sumP / sumTR
			minus[i] = sumM / sumTR
		}
	}
	return &VortexResult{
		Plus:  lineFrom(s, length, plus),
		Minus: lineFrom(s, length, minus),
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
