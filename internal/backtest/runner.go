package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"tradelens/internal/logger"
	"tradelens/internal/marketdata"
	"tradelens/internal/metrics"
	"tradelens/internal/model"
	"tradelens/internal/series"
	"tradelens/internal/snapshot"
)

// Decider produces a trade proposal from a context snapshot. Implementations
// live outside the numeric engine (a language-model pipeline in production, a
// deterministic rule in tests).
type Decider interface {
	Decide(ctx context.Context, snap *snapshot.Snapshot) (model.TradeSpec, error)
}

// BatchConfig describes one batch of independent trials.
type BatchConfig struct {
	Symbol   string
	Interval model.Interval

	// Decision timestamps are drawn uniformly from [Start, End).
	Start time.Time
	End   time.Time

	Trials  int
	Workers int
	Seed    int64

	// ContextWindow is how far back the snapshot series reaches from the
	// decision timestamp; Horizon is how far forward the evaluator may scan.
	ContextWindow time.Duration
	Horizon       time.Duration
}

func (c BatchConfig) validate() error {
	if c.Trials <= 0 {
		return fmt.Errorf("trials must be positive: %w", model.ErrParameter)
	}
	if !c.End.After(c.Start) {
		return fmt.Errorf("batch window end must follow start: %w", model.ErrParameter)
	}
	if c.ContextWindow <= 0 || c.Horizon <= 0 {
		return fmt.Errorf("context window and horizon must be positive: %w", model.ErrParameter)
	}
	return nil
}

// TrialResult is the outcome of one trial. Err is non-empty when the trial
// failed; failed trials are recorded, never silently dropped.
type TrialResult struct {
	Trial      int                  `json:"trial"`
	DecisionTS time.Time            `json:"decision_ts"`
	Spec       *model.TradeSpec     `json:"spec,omitempty"`
	Outcome    *model.OutcomeRecord `json:"outcome,omitempty"`
	Err        string               `json:"error,omitempty"`
}

// Runner executes batches of trials against an injected provider and decider.
type Runner struct {
	provider marketdata.Provider
	decider  Decider
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewRunner wires a runner. metrics may be nil.
func NewRunner(provider marketdata.Provider, decider Decider, m *metrics.Metrics, log *slog.Logger) *Runner {
	return &Runner{provider: provider, decider: decider, metrics: m, log: log}
}

// Run executes cfg.Trials independent trials across cfg.Workers goroutines
// and returns results ordered by trial index.
//
// All decision timestamps are drawn up front from a single seeded source, so
// the draw is reproducible regardless of worker count or scheduling. Trials
// share no state. Cancellation is cooperative: an in-flight trial finishes,
// no further trial starts, and Run returns ctx.Err() alongside the results
// collected so far.
func (r *Runner) Run(ctx context.Context, cfg BatchConfig) ([]TrialResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	span := cfg.End.Sub(cfg.Start)
	stamps := make([]time.Time, cfg.Trials)
	for i := range stamps {
		stamps[i] = cfg.Start.Add(time.Duration(rng.Int63n(int64(span)))).Truncate(time.Second)
	}

	jobs := make(chan int)
	results := make([]TrialResult, cfg.Trials)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.runTrial(ctx, cfg, i, stamps[i])
			}
		}()
	}

dispatch:
	for i := 0; i < cfg.Trials; i++ {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return compact(results), err
	}
	return results, nil
}

// compact drops zero-valued entries left behind when a run was cancelled
// before every trial was dispatched.
func compact(results []TrialResult) []TrialResult {
	out := results[:0]
	for _, tr := range results {
		if tr.DecisionTS.IsZero() && tr.Spec == nil && tr.Err == "" {
			continue
		}
		out = append(out, tr)
	}
	return out
}

func (r *Runner) runTrial(ctx context.Context, cfg BatchConfig, trial int, decisionTS time.Time) TrialResult {
	started := time.Now()
	ctx = logger.WithTrialID(ctx, logger.MakeTrialID(trial, decisionTS))
	res := TrialResult{Trial: trial, DecisionTS: decisionTS}

	spec, outcome, err := r.evaluateAt(ctx, cfg, decisionTS)
	r.metrics.ObserveTrial(time.Since(started), err != nil)
	if err != nil {
		res.Err = err.Error()
		r.log.Warn("trial failed", append(logger.Attrs(ctx), "err", err)...)
		return res
	}
	res.Spec = spec
	res.Outcome = outcome
	r.log.Info("trial evaluated", append(logger.Attrs(ctx),
		"decision", spec.Decision.String(),
		"profitable", outcome.Profitable)...)
	return res
}

// evaluateAt runs the full pipeline for one decision timestamp: fetch the
// context window, build the snapshot, obtain a proposal, fetch the forward
// horizon, and resolve the outcome.
func (r *Runner) evaluateAt(ctx context.Context, cfg BatchConfig, decisionTS time.Time) (*model.TradeSpec, *model.OutcomeRecord, error) {
	ctxRows, err := r.provider.Klines(ctx, cfg.Symbol, cfg.Interval, decisionTS.Add(-cfg.ContextWindow), decisionTS)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch context window: %w", err)
	}
	ctxSeries, err := series.Ingest(ctxRows, cfg.Interval)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest context window: %w", err)
	}

	snapStart := time.Now()
	snap, err := snapshot.Build(cfg.Symbol, ctxSeries, true)
	r.metrics.ObserveSnapshot(time.Since(snapStart))
	if err != nil {
		return nil, nil, err
	}

	spec, err := r.decider.Decide(ctx, snap)
	if err != nil {
		return nil, nil, fmt.Errorf("decide: %w", err)
	}

	fwdRows, err := r.provider.Klines(ctx, cfg.Symbol, cfg.Interval, decisionTS, decisionTS.Add(cfg.Horizon))
	if err != nil {
		return nil, nil, fmt.Errorf("fetch forward horizon: %w", err)
	}
	forward, err := series.Ingest(fwdRows, cfg.Interval)
	if err != nil && !errors.Is(err, series.ErrShortInput) {
		return nil, nil, fmt.Errorf("ingest forward horizon: %w", err)
	}
	// A horizon too short to form a series is a legal evaluation input:
	// every touch resolves to "not reached". Malformed rows are a trial
	// failure, not an empty horizon.

	outcome := Evaluate(spec, forward)
	return &spec, &outcome, nil
}

// Summary aggregates a finished batch.
type Summary struct {
	Trials     int     `json:"trials"`
	Failed     int     `json:"failed"`
	Taken      int     `json:"taken"`      // LONG/SHORT trials
	NoTrades   int     `json:"no_trades"`  // NO_TRADE trials
	Profitable int     `json:"profitable"` // verdict true
	HitRate    float64 `json:"hit_rate"`   // profitable / taken
}

// Summarize folds trial results into a Summary. NO_TRADE verdicts never
// count toward the hit rate.
func Summarize(results []TrialResult) Summary {
	s := Summary{Trials: len(results)}
	for _, tr := range results {
		if tr.Err != "" {
			s.Failed++
			continue
		}
		if tr.Outcome == nil {
			continue
		}
		profitable, applicable := tr.Outcome.Profitable.Bool()
		if !applicable {
			s.NoTrades++
			continue
		}
		s.Taken++
		if profitable {
			s.Profitable++
		}
	}
	if s.Taken > 0 {
		s.HitRate = float64(s.Profitable) / float64(s.Taken)
	}
	return s
}
