// Package advisor holds deterministic trade deciders. The production decision
// process is an external model pipeline; these rule-based deciders stand in
// for it in backtests and serve as a floor to compare it against.
package advisor

import (
	"context"
	"fmt"

	"tradelens/internal/model"
	"tradelens/internal/snapshot"
)

// ChartRenderer turns a snapshot into an image payload for multimodal
// decision pipelines. Rule-based deciders ignore it.
type ChartRenderer interface {
	Render(ctx context.Context, snap *snapshot.Snapshot) ([]byte, error)
}

// PivotRule is a deterministic decider: it trades mean reversion off the
// prior-session pivot levels, gated by RSI.
//
// Long when price is below the pivot with RSI under the oversold bound,
// short when above the pivot with RSI over the overbought bound, NO_TRADE
// otherwise. Targets ladder across the opposing pivot levels and the stop
// sits one level beyond entry.
type PivotRule struct {
	Oversold   float64
	Overbought float64
}

// NewPivotRule returns a PivotRule with the conventional 30/70 RSI bounds.
func NewPivotRule() *PivotRule {
	return &PivotRule{Oversold: 30, Overbought: 70}
}

// Decide implements the decider contract consumed by the backtest runner.
// Same snapshot in, same proposal out.
func (p *PivotRule) Decide(_ context.Context, snap *snapshot.Snapshot) (model.TradeSpec, error) {
	if snap.Levels == nil {
		return model.TradeSpec{}, fmt.Errorf("pivot rule requires reference levels: %w", model.ErrData)
	}
	if snap.RSI == nil {
		return model.TradeSpec{}, fmt.Errorf("pivot rule requires rsi: %w", model.ErrData)
	}

	lv := snap.Levels
	price := snap.LastClose
	rsi := snap.RSI.Stats.Current

	switch {
	case price < lv.Pivot && rsi <= p.Oversold:
		return buildSpec(model.Long, price, lv.S1,
			[3]float64{lv.Pivot, lv.R1, lv.R2},
			[]string{"price below pivot", fmt.Sprintf("rsi %.2f oversold", rsi)}), nil
	case price > lv.Pivot && rsi >= p.Overbought:
		return buildSpec(model.Short, price, lv.R1,
			[3]float64{lv.Pivot, lv.S1, lv.S2},
			[]string{"price above pivot", fmt.Sprintf("rsi %.2f overbought", rsi)}), nil
	}
	return model.TradeSpec{Decision: model.NoTrade}, nil
}

func buildSpec(d model.Decision, entry, stop float64, targets [3]float64, signals []string) model.TradeSpec {
	spec := model.TradeSpec{
		Decision:   d,
		Confidence: 0.5,
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: targets,
		KeySignals: signals,
	}
	risk := entry - stop
	if risk < 0 {
		risk = -risk
	}
	reward := targets[0] - entry
	if reward < 0 {
		reward = -reward
	}
	if risk > 0 {
		spec.RiskRewardRatio = fmt.Sprintf("1:%.2f", reward/risk)
	}
	return spec
}
