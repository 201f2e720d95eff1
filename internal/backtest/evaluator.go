// Package backtest resolves trade proposals against forward price data and
// runs batches of independent backtest trials.
package backtest

import (
	"time"

	"tradelens/internal/model"
)

// Evaluate determines first-touch timestamps for the proposal's three targets
// and stop against the forward horizon, plus the profitability verdict.
//
// It is a pure function: the caller supplies the complete horizon it is
// willing to scan, and no additional data is fetched. All four levels are
// resolved in one chronological pass. Touch rules are direction-dependent:
// LONG targets touch on bar.High ≥ level and the stop on bar.Low ≤ level;
// SHORT is mirrored. A level never touched stays nil.
//
// The verdict compares only the FIRST target against the stop: profitable
// when target 1 was touched and the stop either never was or was touched on a
// strictly later bar. A same-bar tie counts as not profitable. NO_TRADE
// proposals get VerdictNotApplicable. An empty horizon leaves every touch
// unreached and the verdict (for LONG/SHORT) unprofitable.
func Evaluate(spec model.TradeSpec, forward model.TimeSeries) model.OutcomeRecord {
	rec := model.OutcomeRecord{
		TradeType:  spec.Decision,
		TakeProfit: spec.TakeProfit,
		StopLoss:   spec.StopLoss,
		Profitable: model.VerdictNotApplicable,
	}
	if first, ok := forward.First(); ok {
		rec.OpenTS = first.TS
		rec.OpenPrice = (first.Open + first.Close) / 2.0
	}

	switch spec.Decision {
	case model.NoTrade:
		return rec
	case model.Long, model.Short:
		// resolved below
	}

	touches := scanTouches(spec, forward)
	rec.Profit1TS = touches[0]
	rec.Profit2TS = touches[1]
	rec.Profit3TS = touches[2]
	rec.LossTS = touches[3]

	if rec.Profit1TS != nil && (rec.LossTS == nil || rec.Profit1TS.Before(*rec.LossTS)) {
		rec.Profitable = model.VerdictProfitable
	} else {
		rec.Profitable = model.VerdictUnprofitable
	}
	return rec
}

// scanTouches walks the horizon once, resolving targets 0..2 and the stop
// (index 3) to their first-touch timestamps.
func scanTouches(spec model.TradeSpec, forward model.TimeSeries) [4]*time.Time {
	var touches [4]*time.Time
	unresolved := 4

	for i := 0; i < forward.Len() && unresolved > 0; i++ {
		bar := forward.At(i)
		for li := 0; li < 3; li++ {
			if touches[li] == nil && targetTouched(spec.Decision, bar, spec.TakeProfit[li]) {
				ts := bar.TS
				touches[li] = &ts
				unresolved--
			}
		}
		if touches[3] == nil && stopTouched(spec.Decision, bar, spec.StopLoss) {
			ts := bar.TS
			touches[3] = &ts
			unresolved--
		}
	}
	return touches
}

func targetTouched(d model.Decision, bar model.Candle, level float64) bool {
	if d == model.Long {
		return bar.High >= level
	}
	return bar.Low <= level
}

func stopTouched(d model.Decision, bar model.Candle, level float64) bool {
	if d == model.Long {
		return bar.Low <= level
	}
	return bar.High >= level
}
