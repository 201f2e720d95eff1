// Package metrics exposes Prometheus instrumentation for the backtest
// pipeline: trial throughput and failures, snapshot build latency, venue
// fetch retries, and kline cache effectiveness.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and every
// recording method is a no-op on it, so instrumentation stays optional.
type Metrics struct {
	reg *prometheus.Registry

	TrialsTotal    prometheus.Counter
	TrialFailures  prometheus.Counter
	TrialDuration  prometheus.Histogram
	SnapshotDur    prometheus.Histogram
	FetchRetries   prometheus.Counter
	KlineCacheHits *prometheus.CounterVec // labels: result=hit|miss
}

// New registers and returns all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}

	m.TrialsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backtest_trials_total",
		Help: "Total backtest trials completed (including failed ones)",
	})
	m.TrialFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backtest_trial_failures_total",
		Help: "Total backtest trials that ended in an error",
	})
	m.TrialDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "backtest_trial_duration_seconds",
		Help:    "Wall time per trial: fetch + snapshot + decide + evaluate",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	m.SnapshotDur = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "backtest_snapshot_build_duration_seconds",
		Help:    "Indicator snapshot build duration",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})
	m.FetchRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_fetch_retries_total",
		Help: "Retried kline requests against the market data venue",
	})
	m.KlineCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kline_cache_requests_total",
		Help: "Kline cache lookups by result",
	}, []string{"result"})

	m.reg.MustRegister(
		m.TrialsTotal, m.TrialFailures, m.TrialDuration,
		m.SnapshotDur, m.FetchRetries, m.KlineCacheHits,
	)
	return m
}

// ObserveTrial records one finished trial.
func (m *Metrics) ObserveTrial(d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.TrialsTotal.Inc()
	m.TrialDuration.Observe(d.Seconds())
	if failed {
		m.TrialFailures.Inc()
	}
}

// ObserveSnapshot records one snapshot build.
func (m *Metrics) ObserveSnapshot(d time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotDur.Observe(d.Seconds())
}

// IncFetchRetry records one retried venue request.
func (m *Metrics) IncFetchRetry() {
	if m == nil {
		return
	}
	m.FetchRetries.Inc()
}

// IncCache records a kline cache hit or miss.
func (m *Metrics) IncCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.KlineCacheHits.WithLabelValues(result).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *slog.Logger) {
	if m == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server failed", "err", err)
	}
}
