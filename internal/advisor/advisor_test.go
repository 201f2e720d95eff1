package advisor

import (
	"context"
	"errors"
	"testing"

	"tradelens/internal/indicator"
	"tradelens/internal/model"
	"tradelens/internal/pivot"
	"tradelens/internal/snapshot"
)

// snap builds the minimal snapshot the pivot rule reads: last close, RSI
// stats, and reference levels around a pivot of 100.
func snap(lastClose, rsi float64) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Symbol:    "TESTUSDT",
		LastClose: lastClose,
		RSI: &indicator.RSIResult{
			Stats: indicator.RSIStats{Current: rsi},
		},
		Levels: &pivot.Levels{
			Pivot: 100,
			R1:    105,
			R2:    110,
			R3:    115,
			S1:    95,
			S2:    90,
			S3:    85,
		},
	}
}

func TestPivotRuleLong(t *testing.T) {
	spec, err := NewPivotRule().Decide(context.Background(), snap(97, 25))
	if err != nil {
		t.Fatal(err)
	}
	if spec.Decision != model.Long {
		t.Fatalf("decision = %v, want LONG", spec.Decision)
	}
	if spec.Entry != 97 || spec.StopLoss != 95 {
		t.Errorf("entry/stop = %v/%v", spec.Entry, spec.StopLoss)
	}
	if spec.TakeProfit != [3]float64{100, 105, 110} {
		t.Errorf("targets = %v", spec.TakeProfit)
	}
	// risk 2, first reward 3
	if spec.RiskRewardRatio != "1:1.50" {
		t.Errorf("rr = %q", spec.RiskRewardRatio)
	}
	if len(spec.KeySignals) == 0 {
		t.Error("long proposal has no key signals")
	}
}

func TestPivotRuleShort(t *testing.T) {
	spec, err := NewPivotRule().Decide(context.Background(), snap(104, 78))
	if err != nil {
		t.Fatal(err)
	}
	if spec.Decision != model.Short {
		t.Fatalf("decision = %v, want SHORT", spec.Decision)
	}
	if spec.Entry != 104 || spec.StopLoss != 105 {
		t.Errorf("entry/stop = %v/%v", spec.Entry, spec.StopLoss)
	}
	if spec.TakeProfit != [3]float64{100, 95, 90} {
		t.Errorf("targets = %v", spec.TakeProfit)
	}
	// risk 1, first reward 4
	if spec.RiskRewardRatio != "1:4.00" {
		t.Errorf("rr = %q", spec.RiskRewardRatio)
	}
}

func TestPivotRuleNoTrade(t *testing.T) {
	cases := []struct {
		name       string
		close, rsi float64
	}{
		{"below pivot but rsi neutral", 97, 50},
		{"oversold but above pivot", 103, 25},
		{"above pivot but rsi neutral", 103, 50},
		{"overbought but below pivot", 97, 78},
		{"exactly at pivot", 100, 25},
	}
	rule := NewPivotRule()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := rule.Decide(context.Background(), snap(tc.close, tc.rsi))
			if err != nil {
				t.Fatal(err)
			}
			if spec.Decision != model.NoTrade {
				t.Fatalf("decision = %v, want NO_TRADE", spec.Decision)
			}
		})
	}
}

func TestPivotRuleBoundsInclusive(t *testing.T) {
	rule := NewPivotRule()

	spec, err := rule.Decide(context.Background(), snap(97, 30))
	if err != nil {
		t.Fatal(err)
	}
	if spec.Decision != model.Long {
		t.Errorf("rsi exactly 30: decision = %v, want LONG", spec.Decision)
	}

	spec, err = rule.Decide(context.Background(), snap(103, 70))
	if err != nil {
		t.Fatal(err)
	}
	if spec.Decision != model.Short {
		t.Errorf("rsi exactly 70: decision = %v, want SHORT", spec.Decision)
	}
}

func TestPivotRuleMissingInputs(t *testing.T) {
	rule := NewPivotRule()

	noLevels := snap(97, 25)
	noLevels.Levels = nil
	if _, err := rule.Decide(context.Background(), noLevels); !errors.Is(err, model.ErrData) {
		t.Errorf("missing levels: err = %v, want ErrData", err)
	}

	noRSI := snap(97, 25)
	noRSI.RSI = nil
	if _, err := rule.Decide(context.Background(), noRSI); !errors.Is(err, model.ErrData) {
		t.Errorf("missing rsi: err = %v, want ErrData", err)
	}
}

func TestPivotRuleCustomBounds(t *testing.T) {
	rule := &PivotRule{Oversold: 40, Overbought: 60}
	spec, err := rule.Decide(context.Background(), snap(97, 38))
	if err != nil {
		t.Fatal(err)
	}
	if spec.Decision != model.Long {
		t.Fatalf("decision = %v, want LONG under widened bounds", spec.Decision)
	}
}
