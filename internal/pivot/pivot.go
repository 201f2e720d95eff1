// Package pivot computes classic floor-trader reference levels from the
// previous completed trading session.
//
// Sessions follow the CME electronic convention: a session runs from 18:00
// US Eastern to 17:00 the next day. Bucketing shifts each timestamp +6h after
// converting to Eastern so the 18:00 boundary lands on midnight and a plain
// date extraction yields the session key.
package pivot

import (
	"fmt"
	"time"
	_ "time/tzdata" // embed zone data so America/New_York always resolves

	"tradelens/internal/model"
	"tradelens/internal/series"
)

const sessionShift = 6 * time.Hour

var eastern *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(fmt.Sprintf("pivot: load America/New_York: %v", err))
	}
	eastern = loc
}

// SessionKey returns the session date key ("2006-01-02") for a timestamp.
func SessionKey(t time.Time) string {
	return t.In(eastern).Add(sessionShift).Format("2006-01-02")
}

// Levels holds the pivot point, three resistance and three support levels,
// and the previous session's high/low/close they derive from.
type Levels struct {
	Pivot            float64 `json:"pivot"`
	R1               float64 `json:"r1"`
	R2               float64 `json:"r2"`
	R3               float64 `json:"r3"`
	S1               float64 `json:"s1"`
	S2               float64 `json:"s2"`
	S3               float64 `json:"s3"`
	PrevSessionHigh  float64 `json:"prev_session_high"`
	PrevSessionLow   float64 `json:"prev_session_low"`
	PrevSessionClose float64 `json:"prev_session_close"`
}

// Calculate buckets the series into sessions and derives the levels from the
// previous COMPLETED session — the second-to-last bucket, because the last
// one is always still forming. Fails wrapping model.ErrInsufficientHistory
// when fewer than 2 sessions exist.
func Calculate(s model.TimeSeries) (Levels, error) {
	sessions := series.Resample(s, SessionKey)
	if len(sessions) < 2 {
		return Levels{}, fmt.Errorf("need 2 sessions for pivot levels, have %d: %w",
			len(sessions), model.ErrInsufficientHistory)
	}
	prev := sessions[len(sessions)-2]
	return fromHLC(prev.High, prev.Low, prev.Close), nil
}

// fromHLC applies the classic floor-trader formulas.
func fromHLC(h, l, c float64) Levels {
	p := (h + l + c) / 3.0
	return Levels{
		Pivot:            p,
		R1:               2*p - l,
		R2:               p + (h - l),
		R3:               h + 2*(p-l),
		S1:               2*p - h,
		S2:               p - (h - l),
		S3:               l - 2*(h-p),
		PrevSessionHigh:  h,
		PrevSessionLow:   l,
		PrevSessionClose: c,
	}
}
