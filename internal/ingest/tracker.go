// Package ingest coordinates the fetch-and-store pipeline: availability
// checks against stored coverage, single-symbol ingestion, and sequential
// multi-symbol batch runs with per-symbol failure isolation.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"barkeep/internal/domain"
	"barkeep/internal/store"
)

// Tracker answers "do we have data, and is it fresh" for (symbol, interval)
// pairs by inspecting stored coverage.
type Tracker struct {
	store         store.BarStore
	minRows       int
	stalenessDays int
	now           func() time.Time
	log           *slog.Logger
}

// NewTracker builds a Tracker. minRows is the row threshold below which a
// pair counts as having no data; stalenessDays is the age beyond which
// stored data needs refreshing.
func NewTracker(st store.BarStore, minRows, stalenessDays int) *Tracker {
	if minRows <= 0 {
		minRows = 1
	}
	if stalenessDays <= 0 {
		stalenessDays = 1
	}
	return &Tracker{
		store:         st,
		minRows:       minRows,
		stalenessDays: stalenessDays,
		now:           time.Now,
		log:           slog.Default().With("component", "tracker"),
	}
}

// Check reports coverage for the pair. With no stored rows the age is the
// sentinel value and the pair both lacks data and needs an update. A pair
// exactly at the staleness boundary is still considered fresh.
func (t *Tracker) Check(ctx context.Context, symbol string, interval domain.Interval) (domain.AvailabilityInfo, error) {
	rows, first, last, err := t.store.Coverage(ctx, symbol, interval)
	if err != nil {
		return domain.AvailabilityInfo{}, fmt.Errorf("checking availability for %s: %w", symbol, err)
	}

	info := domain.AvailabilityInfo{
		Symbol:   symbol,
		Interval: interval,
		Rows:     rows,
		First:    first,
		Last:     last,
	}

	if rows == 0 {
		info.AgeDays = domain.SentinelAgeDays
		info.NeedsUpdate = true
		return info, nil
	}

	age := t.now().Sub(last)
	info.AgeDays = int(age.Hours() / 24)
	info.HasData = rows >= t.minRows
	info.NeedsUpdate = age > time.Duration(t.stalenessDays)*24*time.Hour
	return info, nil
}
