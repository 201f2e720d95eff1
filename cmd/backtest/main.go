// cmd/backtest runs a scenario of randomized backtest trials: for each trial
// it builds an indicator snapshot at a random timestamp, asks the decider for
// a trade, and scores the trade against the forward price data.
//
// Usage:
//
//	go run ./cmd/backtest --scenario=scenarios/btc-5m.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradelens/config"
	"tradelens/internal/advisor"
	"tradelens/internal/backtest"
	"tradelens/internal/logger"
	"tradelens/internal/marketdata"
	"tradelens/internal/metrics"
	"tradelens/internal/model"
	redisstore "tradelens/internal/store/redis"
	sqlitestore "tradelens/internal/store/sqlite"
	"tradelens/pkg/bybit"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	scenarioPath := flag.String("scenario", "scenarios/default.yaml", "Path to scenario YAML")
	noStore := flag.Bool("no-store", false, "Skip persisting results to SQLite")
	flag.Parse()

	cfg := config.Load()
	lg := logger.Init("backtest", slog.LevelInfo)

	sc, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		lg.Info("signal received, finishing in-flight trials")
		cancel()
	}()

	m := metrics.New()
	go m.Serve(ctx, cfg.MetricsAddr, lg)

	provider, err := buildProvider(cfg, sc, m, lg)
	if err != nil {
		log.Fatalf("[backtest] provider: %v", err)
	}

	runner := backtest.NewRunner(provider, advisor.NewPivotRule(), m, lg)
	batchCfg := backtest.BatchConfig{
		Symbol:        sc.Symbol,
		Interval:      model.Interval(sc.Interval),
		Start:         sc.Start,
		End:           sc.End,
		Trials:        sc.Trials,
		Workers:       sc.Workers,
		Seed:          sc.Seed,
		ContextWindow: time.Duration(sc.ContextDays) * 24 * time.Hour,
		Horizon:       time.Duration(sc.HorizonDays) * 24 * time.Hour,
	}

	started := time.Now()
	results, err := runner.Run(ctx, batchCfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[backtest] run: %v", err)
	}

	if !*noStore && len(results) > 0 {
		store, err := sqlitestore.New(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("[backtest] sqlite: %v", err)
		}
		defer store.Close()
		if err := store.SaveResults(sc.Name, results); err != nil {
			log.Fatalf("[backtest] save results: %v", err)
		}
	}

	printSummary(sc.Name, backtest.Summarize(results), time.Since(started))
}

// buildProvider wires the scenario's data source, optionally behind the
// Redis kline cache.
func buildProvider(cfg *config.Config, sc *config.Scenario, m *metrics.Metrics, lg *slog.Logger) (marketdata.Provider, error) {
	var provider marketdata.Provider
	switch sc.Provider {
	case "synthetic":
		provider = &marketdata.Synthetic{Seed: sc.Seed, BasePrice: 50_000}
	default:
		provider = bybit.New(bybit.Config{
			APIKey:    cfg.BybitAPIKey,
			APISecret: cfg.BybitAPISecret,
			BaseURL:   cfg.BybitBaseURL,
			Category:  sc.Category,
		}, m)
	}

	if !sc.CacheKlines {
		return provider, nil
	}
	cache, err := redisstore.NewCache(redisstore.CacheConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}, provider, m)
	if err != nil {
		// Cache is an optimization, not a dependency.
		lg.Warn("kline cache unavailable, fetching direct", "err", err)
		return provider, nil
	}
	return cache, nil
}

func printSummary(batch string, s backtest.Summary, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Batch:        %-21s ║\n", batch)
	fmt.Printf("║  Trials:       %-21d ║\n", s.Trials)
	fmt.Printf("║  Failed:       %-21d ║\n", s.Failed)
	fmt.Printf("║  No trades:    %-21d ║\n", s.NoTrades)
	fmt.Printf("║  Taken:        %-21d ║\n", s.Taken)
	fmt.Printf("║  Profitable:   %-21d ║\n", s.Profitable)
	fmt.Printf("║  Hit rate:     %-21s ║\n", fmt.Sprintf("%.1f%%", s.HitRate*100))
	fmt.Printf("║  Elapsed:      %-21s ║\n", elapsed.Round(time.Millisecond))
	fmt.Println("╚══════════════════════════════════════╝")
}
