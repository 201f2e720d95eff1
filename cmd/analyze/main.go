// cmd/analyze prints the indicator snapshot for a symbol: the standard
// indicator set over the last day of klines plus prior-session pivot levels.
// One-shot by default; --cron re-runs it on a schedule.
//
// Usage:
//
//	go run ./cmd/analyze --symbol=BTCUSDT --interval=5
//	go run ./cmd/analyze --cron="*/5 * * * *"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradelens/config"
	"tradelens/internal/logger"
	"tradelens/internal/model"
	"tradelens/internal/series"
	"tradelens/internal/snapshot"
	"tradelens/pkg/bybit"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	symbol := flag.String("symbol", cfg.Symbol, "Symbol to analyze")
	interval := flag.String("interval", cfg.Interval, "Kline interval")
	window := flag.Duration("window", 24*time.Hour, "Context window to fetch")
	cronSpec := flag.String("cron", "", "Cron schedule; empty runs once and exits")
	flag.Parse()

	lg := logger.Init("analyze", slog.LevelInfo)

	client := bybit.New(bybit.Config{
		APIKey:    cfg.BybitAPIKey,
		APISecret: cfg.BybitAPISecret,
		BaseURL:   cfg.BybitBaseURL,
		Category:  cfg.Category,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := func() {
		if err := analyzeOnce(ctx, client, *symbol, model.Interval(*interval), *window); err != nil {
			lg.Error("analyze failed", "symbol", *symbol, "err", err)
		}
	}

	if *cronSpec == "" {
		run()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*cronSpec, run); err != nil {
		log.Fatalf("[analyze] bad cron spec %q: %v", *cronSpec, err)
	}
	c.Start()
	lg.Info("analyze loop started", "cron", *cronSpec, "symbol", *symbol)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()
	<-c.Stop().Done()
}

func analyzeOnce(ctx context.Context, client *bybit.Client, symbol string, interval model.Interval, window time.Duration) error {
	now := time.Now().UTC()
	rows, err := client.Klines(ctx, symbol, interval, now.Add(-window), now)
	if err != nil {
		return err
	}
	s, err := series.Ingest(rows, interval)
	if err != nil {
		return err
	}
	snap, err := snapshot.Build(symbol, s, true)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
