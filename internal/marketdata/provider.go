// Package marketdata defines the venue-facing provider abstraction. The
// numeric engine never performs I/O itself; a Provider is an explicitly
// constructed, injected capability owned by the caller, which keeps venue
// clients out of package-level state and makes them trivially substitutable
// in tests.
package marketdata

import (
	"context"
	"time"

	"tradelens/internal/model"
	"tradelens/internal/series"
)

// Provider fetches raw kline rows for a symbol over [start, end). Rows may
// arrive unsorted and string-typed; series.Ingest normalizes them.
type Provider interface {
	Klines(ctx context.Context, symbol string, interval model.Interval, start, end time.Time) ([]series.Row, error)
}
