package indicator

import (
	"time"

	"tradelens/internal/model"
)

// Bullish and Bearish are the direction flags attached to detected patterns.
const (
	Bullish = 1
	Bearish = -1
)

// Pattern is one candlestick pattern detection: the bar it fired on, the
// pattern name, and its direction.
type Pattern struct {
	TS        time.Time `json:"ts"`
	Name      string    `json:"pattern"`
	Direction int       `json:"direction"`
}

// Relative-size thresholds for the pattern catalogue. Conventional values;
// the detector is intentionally strict so that noise bars do not fire.
const (
	dojiBodyMax     = 0.1  // body ≤ 10% of range
	wickBodyRatio   = 2.0  // hammer/star wick ≥ 2× body
	marubozuBodyMin = 0.95 // body ≥ 95% of range
	longBodyMin     = 0.6  // "long" candle body ≥ 60% of range
	starBodyMax     = 0.3  // star middle body ≤ 30% of range
)

// Patterns scans every bar against the classic candlestick catalogue (doji,
// hammer, shooting star, marubozu, engulfing, harami, morning/evening star).
// Patterns with look-back consider up to 2 prior bars. Nothing firing is a
// valid empty result, never an error.
func Patterns(s model.TimeSeries) ([]Pattern, error) {
	if err := checkSeries(s); err != nil {
		return nil, err
	}
	out := []Pattern{}
	for i := 0; i < s.Len(); i++ {
		c := s.At(i)
		emit := func(name string, dir int) {
			out = append(out, Pattern{TS: c.TS, Name: name, Direction: dir})
		}

		if isDoji(c) {
			emit("doji", Bullish)
		}
		if isHammer(c) {
			emit("hammer", Bullish)
		}
		if isShootingStar(c) {
			emit("shooting star", Bearish)
		}
		if dir, ok := isMarubozu(c); ok {
			emit("marubozu", dir)
		}

		if i >= 1 {
			prev := s.At(i - 1)
			if dir, ok := isEngulfing(prev, c); ok {
				if dir == Bullish {
					emit("bullish engulfing", dir)
				} else {
					emit("bearish engulfing", dir)
				}
			}
			if dir, ok := isHarami(prev, c); ok {
				if dir == Bullish {
					emit("bullish harami", dir)
				} else {
					emit("bearish harami", dir)
				}
			}
		}
		if i >= 2 {
			a, b := s.At(i-2), s.At(i-1)
			if isMorningStar(a, b, c) {
				emit("morning star", Bullish)
			}
			if isEveningStar(a, b, c) {
				emit("evening star", Bearish)
			}
		}
	}
	return out, nil
}

func upperWick(c model.Candle) float64 {
	if c.Close >= c.Open {
		return c.High - c.Close
	}
	return c.High - c.Open
}

func lowerWick(c model.Candle) float64 {
	if c.Close >= c.Open {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

func isDoji(c model.Candle) bool {
	rng := c.Range()
	return rng > 0 && c.Body() <= dojiBodyMax*rng
}

func isHammer(c model.Candle) bool {
	body := c.Body()
	return body > 0 && lowerWick(c) >= wickBodyRatio*body && upperWick(c) <= body
}

func isShootingStar(c model.Candle) bool {
	body := c.Body()
	return body > 0 && upperWick(c) >= wickBodyRatio*body && lowerWick(c) <= body
}

func isMarubozu(c model.Candle) (int, bool) {
	rng := c.Range()
	if rng == 0 || c.Body() < marubozuBodyMin*rng {
		return 0, false
	}
	if c.Bullish() {
		return Bullish, true
	}
	if c.Bearish() {
		return Bearish, true
	}
	return 0, false
}

func isEngulfing(prev, c model.Candle) (int, bool) {
	if prev.Bearish() && c.Bullish() && c.Open <= prev.Close && c.Close >= prev.Open && c.Body() > prev.Body() {
		return Bullish, true
	}
	if prev.Bullish() && c.Bearish() && c.Open >= prev.Close && c.Close <= prev.Open && c.Body() > prev.Body() {
		return Bearish, true
	}
	return 0, false
}

func isHarami(prev, c model.Candle) (int, bool) {
	if prev.Range() == 0 || prev.Body() < longBodyMin*prev.Range() {
		return 0, false
	}
	bodyHi, bodyLo := prev.Open, prev.Close
	if prev.Bullish() {
		bodyHi, bodyLo = prev.Close, prev.Open
	}
	inside := c.Open > bodyLo && c.Open < bodyHi && c.Close > bodyLo && c.Close < bodyHi
	if !inside {
		return 0, false
	}
	if prev.Bearish() && c.Bullish() {
		return Bullish, true
	}
	if prev.Bullish() && c.Bearish() {
		return Bearish, true
	}
	return 0, false
}

func isMorningStar(a, b, c model.Candle) bool {
	longDown := a.Bearish() && a.Range() > 0 && a.Body() >= longBodyMin*a.Range()
	smallMid := b.Range() == 0 || b.Body() <= starBodyMax*b.Range()
	closesHigh := c.Bullish() && c.Close > (a.Open+a.Close)/2.0
	return longDown && smallMid && closesHigh
}

func isEveningStar(a, b, c model.Candle) bool {
	longUp := a.Bullish() && a.Range() > 0 && a.Body() >= longBodyMin*a.Range()
	smallMid := b.Range() == 0 || b.Body() <= starBodyMax*b.Range()
	closesLow := c.Bearish() && c.Close < (a.Open+a.Close)/2.0
	return longUp && smallMid && closesLow
}
