// Package logger provides structured logging via log/slog with a JSON
// handler, plus trial-ID propagation through context.Context so every log
// line inside a backtest trial can be traced back to its trial.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type ctxKey string

const trialIDKey ctxKey = "trial_id"

// Init creates a structured JSON logger tagged with the service name and
// installs it as the slog default.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	log := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(log)
	return log
}

// WithTrialID stores a trial identifier in the context.
func WithTrialID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, trialIDKey, id)
}

// TrialID extracts the trial identifier, or "" if unset.
func TrialID(ctx context.Context) string {
	if v, ok := ctx.Value(trialIDKey).(string); ok {
		return v
	}
	return ""
}

// MakeTrialID builds an identifier from the trial index and its decision
// timestamp.
func MakeTrialID(trial int, decisionTS time.Time) string {
	return fmt.Sprintf("trial-%d-%d", trial, decisionTS.Unix())
}

// Attrs returns slog attributes carrying the trial ID from ctx, or nil.
func Attrs(ctx context.Context) []any {
	id := TrialID(ctx)
	if id == "" {
		return nil
	}
	return []any{slog.String("trial_id", id)}
}
