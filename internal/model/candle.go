// Package model defines the core market data types shared across packages:
// candles, immutable time series, trade specifications, and outcome records.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Interval identifies the granularity of a time series using the venue's
// kline interval codes ("15" = 15 minutes, "60" = 1 hour, "D" = daily).
type Interval string

const (
	Interval1m  Interval = "1"
	Interval5m  Interval = "5"
	Interval15m Interval = "15"
	Interval1h  Interval = "60"
	Interval4h  Interval = "240"
	Interval1d  Interval = "D"
	Interval1w  Interval = "W"
)

// Duration returns the nominal bar duration for the interval.
// Daily and weekly bars use calendar approximations.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1d:
		return 24 * time.Hour
	case Interval1w:
		return 7 * 24 * time.Hour
	default:
		var mins int
		if _, err := fmt.Sscanf(string(i), "%d", &mins); err != nil || mins <= 0 {
			return time.Minute
		}
		return time.Duration(mins) * time.Minute
	}
}

// Candle represents one OHLCV bar. Timestamps are the bar open time in UTC.
type Candle struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate checks the OHLC ordering invariant (low ≤ open,close ≤ high)
// and that volume is non-negative.
func (c Candle) Validate() error {
	if c.TS.IsZero() {
		return fmt.Errorf("candle has zero timestamp: %w", ErrData)
	}
	if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close {
		return fmt.Errorf("candle at %s violates low<=open,close<=high (o=%g h=%g l=%g c=%g): %w",
			c.TS.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, ErrData)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle at %s has negative volume %g: %w", c.TS.Format(time.RFC3339), c.Volume, ErrData)
	}
	return nil
}

// TypicalPrice returns (high + low + close) / 3.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3.0
}

// Body returns the absolute candle body size |close - open|.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns high - low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the candle closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// JSON returns the JSON-encoded candle.
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
