// cmd/stream tails the public Bybit kline websocket and prints each update.
// Useful for eyeballing live data against the REST-fetched series.
//
// Usage:
//
//	go run ./cmd/stream --symbol=BTCUSDT --interval=1 --confirmed
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tradelens/config"
	"tradelens/internal/logger"
	"tradelens/internal/model"
	"tradelens/pkg/bybit"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	symbol := flag.String("symbol", cfg.Symbol, "Symbol to stream")
	interval := flag.String("interval", cfg.Interval, "Kline interval")
	confirmedOnly := flag.Bool("confirmed", false, "Print only confirmed bars")
	flag.Parse()

	lg := logger.Init("stream", slog.LevelInfo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	stream := bybit.NewStream(cfg.Category, *symbol, model.Interval(*interval))
	events := make(chan bybit.KlineEvent, 64)
	go func() {
		if err := stream.Run(ctx, events); err != nil && ctx.Err() == nil {
			lg.Error("stream stopped", "err", err)
		}
	}()

	for ev := range events {
		if *confirmedOnly && !ev.Confirm {
			continue
		}
		mark := " "
		if ev.Confirm {
			mark = "*"
		}
		fmt.Printf("%s %s [%s] O=%.2f H=%.2f L=%.2f C=%.2f V=%.4f\n",
			mark, ev.Candle.TS.Format("2006-01-02 15:04:05"), ev.Symbol,
			ev.Candle.Open, ev.Candle.High, ev.Candle.Low, ev.Candle.Close, ev.Candle.Volume)
	}
}
