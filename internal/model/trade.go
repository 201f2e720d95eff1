package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Decision is the trade direction emitted by the decision process.
// It is a closed enum: switch statements over it should cover every case
// so that adding a direction is a compile-visible change.
type Decision int

const (
	NoTrade Decision = iota
	Long
	Short
)

// String returns the wire spelling of the decision.
func (d Decision) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	case NoTrade:
		return "NO_TRADE"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// ParseDecision converts a wire string into a Decision.
func ParseDecision(s string) (Decision, error) {
	switch s {
	case "LONG":
		return Long, nil
	case "SHORT":
		return Short, nil
	case "NO_TRADE":
		return NoTrade, nil
	}
	return NoTrade, fmt.Errorf("unknown decision %q: %w", s, ErrData)
}

// MarshalJSON encodes the decision as its wire string.
func (d Decision) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a wire string into the decision.
func (d *Decision) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDecision(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TradeSpec is the trade proposal consumed from the decision collaborator.
// Immutable input to the backtest evaluator.
type TradeSpec struct {
	Decision        Decision   `json:"decision"`
	Confidence      float64    `json:"confidence"`
	Entry           float64    `json:"entry"`
	StopLoss        float64    `json:"stop_loss"`
	TakeProfit      [3]float64 `json:"take_profit"`
	RiskRewardRatio string     `json:"risk_reward_ratio"`
	KeySignals      []string   `json:"key_signals"`
}

// Verdict is the tri-state profitability outcome of a backtested trade.
// NO_TRADE proposals are "not applicable" and must never collapse to
// true or false.
type Verdict int

const (
	VerdictNotApplicable Verdict = iota
	VerdictUnprofitable
	VerdictProfitable
)

// Bool returns the verdict as a bool plus whether it applies at all.
func (v Verdict) Bool() (profitable, applicable bool) {
	switch v {
	case VerdictProfitable:
		return true, true
	case VerdictUnprofitable:
		return false, true
	}
	return false, false
}

// MarshalJSON serializes the verdict as true, false, or null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	switch v {
	case VerdictProfitable:
		return []byte("true"), nil
	case VerdictUnprofitable:
		return []byte("false"), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON reads true/false/null back into a verdict.
func (v *Verdict) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true":
		*v = VerdictProfitable
	case "false":
		*v = VerdictUnprofitable
	case "null":
		*v = VerdictNotApplicable
	default:
		return fmt.Errorf("invalid verdict %q: %w", string(b), ErrData)
	}
	return nil
}

// OutcomeRecord is the result of evaluating one trade proposal against a
// forward horizon. A nil touch timestamp means "not reached" within the
// supplied horizon — a first-class value, not an error.
type OutcomeRecord struct {
	OpenTS     time.Time  `json:"open_timestamp"`
	Profit1TS  *time.Time `json:"profit_1_timestamp"`
	Profit2TS  *time.Time `json:"profit_2_timestamp"`
	Profit3TS  *time.Time `json:"profit_3_timestamp"`
	LossTS     *time.Time `json:"loss_timestamp"`
	TradeType  Decision   `json:"trade_type"`
	OpenPrice  float64    `json:"open_price"`
	TakeProfit [3]float64 `json:"take_profit"`
	StopLoss   float64    `json:"stop_loss"`
	Profitable Verdict    `json:"profitable"`
}
