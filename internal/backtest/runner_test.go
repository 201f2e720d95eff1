package backtest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"tradelens/internal/marketdata"
	"tradelens/internal/model"
	"tradelens/internal/series"
	"tradelens/internal/snapshot"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubDecider always goes long off the last close.
type stubDecider struct{}

func (stubDecider) Decide(_ context.Context, snap *snapshot.Snapshot) (model.TradeSpec, error) {
	entry := snap.LastClose
	return model.TradeSpec{
		Decision:   model.Long,
		Entry:      entry,
		StopLoss:   entry * 0.98,
		TakeProfit: [3]float64{entry * 1.005, entry * 1.01, entry * 1.02},
	}, nil
}

// failingProvider errors on every fetch.
type failingProvider struct{}

func (failingProvider) Klines(context.Context, string, model.Interval, time.Time, time.Time) ([]series.Row, error) {
	return nil, errors.New("venue unavailable")
}

// forwardTamperProvider serves synthetic data but rewrites the forward-horizon
// fetch (the second call of a single-trial run) through tamper.
type forwardTamperProvider struct {
	inner  marketdata.Synthetic
	tamper func([]series.Row) []series.Row
	calls  int
}

func (p *forwardTamperProvider) Klines(ctx context.Context, symbol string, interval model.Interval, start, end time.Time) ([]series.Row, error) {
	rows, err := p.inner.Klines(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	p.calls++
	if p.calls == 2 {
		return p.tamper(rows), nil
	}
	return rows, nil
}

func testBatchConfig(trials, workers int) BatchConfig {
	return BatchConfig{
		Symbol:        "TESTUSDT",
		Interval:      "5",
		Start:         time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		Trials:        trials,
		Workers:       workers,
		Seed:          7,
		ContextWindow: 24 * time.Hour,
		Horizon:       24 * time.Hour,
	}
}

func TestRunner_DeterministicAcrossWorkerCounts(t *testing.T) {
	provider := &marketdata.Synthetic{Seed: 7, BasePrice: 50_000}

	run := func(workers int) []TrialResult {
		r := NewRunner(provider, stubDecider{}, nil, discardLogger())
		results, err := r.Run(context.Background(), testBatchConfig(6, workers))
		if err != nil {
			t.Fatalf("run with %d workers: %v", workers, err)
		}
		return results
	}

	serial := run(1)
	parallel := run(4)

	if len(serial) != 6 || len(parallel) != 6 {
		t.Fatalf("result counts %d/%d, want 6", len(serial), len(parallel))
	}
	for i := range serial {
		a, b := serial[i], parallel[i]
		if !a.DecisionTS.Equal(b.DecisionTS) {
			t.Fatalf("trial %d decision TS %v vs %v: timestamp draw depends on worker count", i, a.DecisionTS, b.DecisionTS)
		}
		if a.Err != b.Err {
			t.Fatalf("trial %d err %q vs %q", i, a.Err, b.Err)
		}
		if (a.Outcome == nil) != (b.Outcome == nil) {
			t.Fatalf("trial %d outcome presence differs", i)
		}
		if a.Outcome != nil && a.Outcome.Profitable != b.Outcome.Profitable {
			t.Fatalf("trial %d verdict %v vs %v", i, a.Outcome.Profitable, b.Outcome.Profitable)
		}
	}

	cfg := testBatchConfig(6, 1)
	for _, tr := range serial {
		if tr.DecisionTS.Before(cfg.Start) || !tr.DecisionTS.Before(cfg.End) {
			t.Errorf("decision TS %v outside [%v, %v)", tr.DecisionTS, cfg.Start, cfg.End)
		}
	}
}

func TestRunner_CapturesTrialFailures(t *testing.T) {
	r := NewRunner(failingProvider{}, stubDecider{}, nil, discardLogger())
	results, err := r.Run(context.Background(), testBatchConfig(4, 2))
	if err != nil {
		t.Fatalf("batch must not fail when individual trials do: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results=%d, want 4", len(results))
	}
	for i, tr := range results {
		if tr.Err == "" {
			t.Errorf("trial %d: empty Err, want captured failure", i)
		}
		if tr.Outcome != nil {
			t.Errorf("trial %d: outcome present on failed trial", i)
		}
	}
}

func TestRunner_MalformedForwardRowsAreATrialFailure(t *testing.T) {
	provider := &forwardTamperProvider{
		inner: marketdata.Synthetic{Seed: 7, BasePrice: 50_000},
		tamper: func(rows []series.Row) []series.Row {
			rows[len(rows)/2].Close = "garbage"
			return rows
		},
	}
	r := NewRunner(provider, stubDecider{}, nil, discardLogger())
	results, err := r.Run(context.Background(), testBatchConfig(1, 1))
	if err != nil {
		t.Fatalf("batch must not fail when individual trials do: %v", err)
	}
	tr := results[0]
	if tr.Err == "" {
		t.Fatal("malformed forward rows produced no recorded failure")
	}
	if !strings.Contains(tr.Err, "forward horizon") {
		t.Errorf("err=%q, want forward-horizon ingest failure", tr.Err)
	}
	if tr.Outcome != nil {
		t.Errorf("outcome fabricated from a malformed horizon: %+v", tr.Outcome)
	}
}

func TestRunner_ShortForwardHorizonStillEvaluates(t *testing.T) {
	provider := &forwardTamperProvider{
		inner:  marketdata.Synthetic{Seed: 7, BasePrice: 50_000},
		tamper: func([]series.Row) []series.Row { return nil },
	}
	r := NewRunner(provider, stubDecider{}, nil, discardLogger())
	results, err := r.Run(context.Background(), testBatchConfig(1, 1))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	tr := results[0]
	if tr.Err != "" {
		t.Fatalf("empty horizon must not fail the trial: %q", tr.Err)
	}
	if tr.Outcome == nil {
		t.Fatal("no outcome for evaluated trial")
	}
	if tr.Outcome.Profit1TS != nil || tr.Outcome.LossTS != nil {
		t.Errorf("touches resolved against an empty horizon: %+v", tr.Outcome)
	}
	if tr.Outcome.Profitable != model.VerdictUnprofitable {
		t.Errorf("verdict=%v, want unprofitable for an untested long", tr.Outcome.Profitable)
	}
}

func TestRunner_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &marketdata.Synthetic{Seed: 7, BasePrice: 50_000}
	r := NewRunner(provider, stubDecider{}, nil, discardLogger())
	results, err := r.Run(ctx, testBatchConfig(50, 2))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if len(results) >= 50 {
		t.Errorf("results=%d, expected cancellation to stop dispatch early", len(results))
	}
}

func TestRunner_ValidatesConfig(t *testing.T) {
	provider := &marketdata.Synthetic{Seed: 7}
	r := NewRunner(provider, stubDecider{}, nil, discardLogger())

	bad := testBatchConfig(0, 1)
	if _, err := r.Run(context.Background(), bad); !errors.Is(err, model.ErrParameter) {
		t.Errorf("zero trials: err=%v, want ErrParameter", err)
	}

	bad = testBatchConfig(5, 1)
	bad.End = bad.Start
	if _, err := r.Run(context.Background(), bad); !errors.Is(err, model.ErrParameter) {
		t.Errorf("empty window: err=%v, want ErrParameter", err)
	}
}

func TestSummarize(t *testing.T) {
	ts := time.Now()
	outcome := func(v model.Verdict) *model.OutcomeRecord {
		return &model.OutcomeRecord{Profitable: v}
	}
	results := []TrialResult{
		{Trial: 0, DecisionTS: ts, Outcome: outcome(model.VerdictProfitable)},
		{Trial: 1, DecisionTS: ts, Outcome: outcome(model.VerdictUnprofitable)},
		{Trial: 2, DecisionTS: ts, Outcome: outcome(model.VerdictProfitable)},
		{Trial: 3, DecisionTS: ts, Outcome: outcome(model.VerdictNotApplicable)},
		{Trial: 4, DecisionTS: ts, Err: "fetch failed"},
	}

	s := Summarize(results)
	if s.Trials != 5 || s.Failed != 1 || s.NoTrades != 1 || s.Taken != 3 || s.Profitable != 2 {
		t.Fatalf("summary=%+v", s)
	}
	if s.HitRate < 0.66 || s.HitRate > 0.67 {
		t.Errorf("hit rate=%v, want 2/3", s.HitRate)
	}
}
