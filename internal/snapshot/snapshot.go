// Package snapshot assembles the quantitative context payload the decision
// process consumes: the standard indicator set over a series plus the
// session-derived reference levels.
package snapshot

import (
	"fmt"
	"time"

	"tradelens/internal/indicator"
	"tradelens/internal/model"
	"tradelens/internal/pivot"
)

// Default windows for the snapshot indicator set.
const (
	rsiLength        = 14
	stochRSILength   = 14
	stochRSIFastK    = 3
	stochRSIFastD    = 3
	macdFast         = 12
	macdSlow         = 26
	macdSignal       = 9
	bollingerLength  = 20
	bollingerK       = 2.0
	atrLength        = 14
	supertrendLength = 10
	supertrendMult   = 3.0
)

// emaLengths is the EMA ribbon attached to every snapshot.
var emaLengths = []int{7, 14, 20, 50}

// Snapshot is the context payload for one symbol and interval.
type Snapshot struct {
	Symbol      string    `json:"symbol"`
	Interval    string    `json:"interval"`
	GeneratedAt time.Time `json:"generated_at"`
	LastTS      time.Time `json:"last_ts"`
	LastClose   float64   `json:"last_close"`

	RSI        *indicator.RSIResult        `json:"rsi"`
	StochRSI   *indicator.StochResult      `json:"stoch_rsi"`
	MACD       *indicator.MACDResult       `json:"macd"`
	EMA        map[string]indicator.Line   `json:"ema"`
	Bollinger  *indicator.BollingerResult  `json:"bollinger"`
	ATR        indicator.Line              `json:"atr"`
	VWAP       indicator.Line              `json:"vwap"`
	OBV        indicator.Line              `json:"obv"`
	Supertrend *indicator.SupertrendResult `json:"supertrend"`
	Patterns   []indicator.Pattern         `json:"patterns"`

	Levels *pivot.Levels `json:"reference_levels,omitempty"`
}

// Build computes the full snapshot over the series. withLevels additionally
// derives pivot levels from the prior completed session; callers working with
// a window too short to span two sessions should pass false.
//
// Indicator failures propagate — a partially populated snapshot would poison
// the decision process downstream.
func Build(symbol string, s model.TimeSeries, withLevels bool) (*Snapshot, error) {
	last, ok := s.Last()
	if !ok {
		return nil, fmt.Errorf("snapshot of empty series: %w", model.ErrData)
	}

	snap := &Snapshot{
		Symbol:      symbol,
		Interval:    string(s.Interval()),
		GeneratedAt: time.Now().UTC(),
		LastTS:      last.TS,
		LastClose:   last.Close,
		EMA:         make(map[string]indicator.Line, len(emaLengths)),
	}

	var err error
	if snap.RSI, err = indicator.RSI(s, rsiLength); err != nil {
		return nil, fmt.Errorf("snapshot rsi: %w", err)
	}
	if snap.StochRSI, err = indicator.StochRSI(s, stochRSILength, stochRSIFastK, stochRSIFastD); err != nil {
		return nil, fmt.Errorf("snapshot stochrsi: %w", err)
	}
	if snap.MACD, err = indicator.MACD(s, macdFast, macdSlow, macdSignal); err != nil {
		return nil, fmt.Errorf("snapshot macd: %w", err)
	}
	for _, length := range emaLengths {
		line, err := indicator.EMA(s, length)
		if err != nil {
			return nil, fmt.Errorf("snapshot ema%d: %w", length, err)
		}
		snap.EMA[fmt.Sprintf("ema%d", length)] = line
	}
	if snap.Bollinger, err = indicator.BollingerBands(s, bollingerLength, bollingerK); err != nil {
		return nil, fmt.Errorf("snapshot bollinger: %w", err)
	}
	if snap.ATR, err = indicator.ATR(s, atrLength); err != nil {
		return nil, fmt.Errorf("snapshot atr: %w", err)
	}
	if snap.VWAP, err = indicator.VWAP(s); err != nil {
		return nil, fmt.Errorf("snapshot vwap: %w", err)
	}
	if snap.OBV, err = indicator.OBV(s); err != nil {
		return nil, fmt.Errorf("snapshot obv: %w", err)
	}
	if snap.Supertrend, err = indicator.Supertrend(s, supertrendLength, supertrendMult); err != nil {
		return nil, fmt.Errorf("snapshot supertrend: %w", err)
	}
	if snap.Patterns, err = indicator.Patterns(s); err != nil {
		return nil, fmt.Errorf("snapshot patterns: %w", err)
	}

	if withLevels {
		levels, err := pivot.Calculate(s)
		if err != nil {
			return nil, fmt.Errorf("snapshot levels: %w", err)
		}
		snap.Levels = &levels
	}
	return snap, nil
}
