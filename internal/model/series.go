package model

import (
	"sort"
	"time"
)

// TimeSeries is an immutable, strictly ascending sequence of candles tagged
// with a granularity. It is never mutated in place — Slice and the resampling
// helpers produce new values. Construct well-formed instances through
// series.Ingest; NewTimeSeries trusts the caller's ordering.
type TimeSeries struct {
	interval Interval
	candles  []Candle
}

// NewTimeSeries wraps the given candles in a TimeSeries. The slice is copied
// so later mutation of the argument cannot leak into the series.
func NewTimeSeries(interval Interval, candles []Candle) TimeSeries {
	cp := make([]Candle, len(candles))
	copy(cp, candles)
	return TimeSeries{interval: interval, candles: cp}
}

// Interval returns the series granularity.
func (s TimeSeries) Interval() Interval { return s.interval }

// Len returns the number of candles.
func (s TimeSeries) Len() int { return len(s.candles) }

// At returns the candle at index i. Panics on out-of-range, like a slice.
func (s TimeSeries) At(i int) Candle { return s.candles[i] }

// First returns the earliest candle, or false when the series is empty.
func (s TimeSeries) First() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[0], true
}

// Last returns the latest candle, or false when the series is empty.
func (s TimeSeries) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Slice returns the sub-series covering the half-open interval [start, end).
// An empty result is a valid series, not an error.
func (s TimeSeries) Slice(start, end time.Time) TimeSeries {
	lo := sort.Search(len(s.candles), func(i int) bool {
		return !s.candles[i].TS.Before(start)
	})
	hi := sort.Search(len(s.candles), func(i int) bool {
		return !s.candles[i].TS.Before(end)
	})
	return TimeSeries{interval: s.interval, candles: s.candles[lo:hi]}
}

// Candles returns a copy of the underlying candles.
func (s TimeSeries) Candles() []Candle {
	cp := make([]Candle, len(s.candles))
	copy(cp, s.candles)
	return cp
}

// Closes returns the close prices in order.
func (s TimeSeries) Closes() []float64 { return s.column(func(c Candle) float64 { return c.Close }) }

// Opens returns the open prices in order.
func (s TimeSeries) Opens() []float64 { return s.column(func(c Candle) float64 { return c.Open }) }

// Highs returns the high prices in order.
func (s TimeSeries) Highs() []float64 { return s.column(func(c Candle) float64 { return c.High }) }

// Lows returns the low prices in order.
func (s TimeSeries) Lows() []float64 { return s.column(func(c Candle) float64 { return c.Low }) }

// Volumes returns the volumes in order.
func (s TimeSeries) Volumes() []float64 { return s.column(func(c Candle) float64 { return c.Volume }) }

func (s TimeSeries) column(f func(Candle) float64) []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = f(c)
	}
	return out
}
