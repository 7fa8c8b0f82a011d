// Package store persists OHLCV bars in a relational table keyed by
// (symbol, timestamp, interval). All writes go through the idempotent
// upsert; re-submitting an identical or overlapping batch converges to the
// most recently submitted values per key.
package store

import (
	"context"
	"time"

	"barkeep/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// UpsertBars writes a batch of bars in one transaction. The batch is
	// deduplicated by (symbol, timestamp, interval) keeping the last
	// occurrence; conflicting stored rows are overwritten with the
	// incoming values. Returns the number of rows written.
	UpsertBars(ctx context.Context, bars []domain.Bar) (int, error)

	// ReadBars returns bars for symbol and interval within [start, end],
	// ascending by timestamp.
	ReadBars(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols present in the store.
	ListSymbols(ctx context.Context) ([]string, error)

	// Coverage returns the row count and earliest/latest timestamps for
	// the (symbol, interval) pair. Zero times mean no rows.
	Coverage(ctx context.Context, symbol string, interval domain.Interval) (rows int, first, last time.Time, err error)

	// DeleteBars removes every bar for the symbol across all intervals.
	// Administrative; nothing in the ingestion path calls it implicitly.
	DeleteBars(ctx context.Context, symbol string) (int64, error)

	// Close releases the underlying connection(s).
	Close() error
}
