// Package series normalizes raw venue kline rows into canonical time series
// and provides bucketed resampling for session aggregation.
package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"tradelens/internal/model"
)

// ErrShortInput marks an Ingest rejection caused only by row count, never by
// malformed rows. Callers that treat a too-short window as "no data" can
// match it with errors.Is; it always arrives wrapped together with
// model.ErrData.
var ErrShortInput = errors.New("not enough rows")

// Row is one raw kline row as returned by a market data venue. All fields are
// strings because venues quote them that way on the wire; Ingest coerces them.
// Timestamp accepts epoch milliseconds or ISO-8601. Turnover is carried but
// ignored by the engine.
type Row struct {
	Timestamp string
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
	Turnover  string
}

// Ingest turns raw, possibly unsorted rows into a canonical TimeSeries:
// numeric coercion, ascending stable sort, duplicate-timestamp removal.
//
// When several rows share a timestamp the FIRST one in arrival order wins.
// The venue implies no precedence, so the rule is fixed here rather than
// left to whichever row happens to sort last.
//
// Fails wrapping model.ErrData when a field is missing or non-numeric, a
// candle violates OHLC ordering, or fewer than 2 valid rows remain.
func Ingest(rows []Row, interval model.Interval) (model.TimeSeries, error) {
	candles := make([]model.Candle, 0, len(rows))
	for i, r := range rows {
		c, err := parseRow(r)
		if err != nil {
			return model.TimeSeries{}, fmt.Errorf("row %d: %w", i, err)
		}
		candles = append(candles, c)
	}

	// Stable sort keeps arrival order among equal timestamps, so dropping
	// all but the first of each run implements first-occurrence-wins.
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].TS.Before(candles[j].TS)
	})
	deduped := candles[:0]
	for _, c := range candles {
		if n := len(deduped); n > 0 && deduped[n-1].TS.Equal(c.TS) {
			continue
		}
		deduped = append(deduped, c)
	}

	if len(deduped) < 2 {
		return model.TimeSeries{}, fmt.Errorf("need at least 2 valid rows, have %d: %w: %w", len(deduped), ErrShortInput, model.ErrData)
	}
	for _, c := range deduped {
		if err := c.Validate(); err != nil {
			return model.TimeSeries{}, err
		}
	}
	return model.NewTimeSeries(interval, deduped), nil
}

func parseRow(r Row) (model.Candle, error) {
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return model.Candle{}, err
	}
	c := model.Candle{TS: ts}
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", r.Open, &c.Open},
		{"high", r.High, &c.High},
		{"low", r.Low, &c.Low},
		{"close", r.Close, &c.Close},
		{"volume", r.Volume, &c.Volume},
	}
	for _, f := range fields {
		v, err := parseNumber(f.name, f.raw)
		if err != nil {
			return model.Candle{}, err
		}
		*f.dst = v
	}
	return c, nil
}

func parseNumber(name, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing %s field: %w", name, model.ErrData)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-numeric %s field %q: %w", name, raw, model.ErrData)
	}
	return v, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing timestamp field: %w", model.ErrData)
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", raw, model.ErrData)
}
