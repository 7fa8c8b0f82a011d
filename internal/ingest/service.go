package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"barkeep/internal/domain"
	"barkeep/internal/metrics"
	"barkeep/internal/store"
)

// BarFetcher is the slice of the market-data client the service needs.
type BarFetcher interface {
	FetchBars(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error)
}

// Service runs the fetch-then-upsert pipeline for one symbol at a time.
type Service struct {
	client      BarFetcher
	store       store.BarStore
	tracker     *Tracker
	defaultDays int
	log         *slog.Logger
}

// NewService wires the pipeline. defaultDays is the lookback used when no
// explicit range is given.
func NewService(client BarFetcher, st store.BarStore, tracker *Tracker, defaultDays int) *Service {
	if defaultDays <= 0 {
		defaultDays = 90
	}
	return &Service{
		client:      client,
		store:       st,
		tracker:     tracker,
		defaultDays: defaultDays,
		log:         slog.Default().With("component", "ingest"),
	}
}

// Tracker exposes the availability tracker the service was built with.
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// IngestSymbol fetches bars for the range and upserts them, returning the
// number of rows written. An empty fetch result is a successful no-op: the
// vendor simply has nothing for the range.
func (s *Service) IngestSymbol(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) (int, error) {
	began := time.Now()
	defer func() {
		metrics.IngestDuration.Observe(time.Since(began).Seconds())
	}()

	bars, err := s.client.FetchBars(ctx, symbol, interval, start, end)
	if err != nil {
		return 0, fmt.Errorf("ingesting %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		s.log.Info("no bars for range", "symbol", symbol, "interval", interval,
			"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))
		return 0, nil
	}

	n, err := s.store.UpsertBars(ctx, bars)
	if err != nil {
		return 0, fmt.Errorf("ingesting %s: %w", symbol, err)
	}
	metrics.RowsUpserted.Add(float64(n))
	s.log.Info("ingested", "symbol", symbol, "interval", interval, "rows", n)
	return n, nil
}

// LoadDefault ingests the default lookback window ending now.
func (s *Service) LoadDefault(ctx context.Context, symbol string, interval domain.Interval) (int, error) {
	end := time.Now().UTC()
	return s.IngestSymbol(ctx, symbol, interval, end.AddDate(0, 0, -s.defaultDays), end)
}

// UpdateSymbol extends stored coverage to the present. The fetch starts one
// day before the last stored bar so the trailing (possibly partial) bar is
// re-fetched and overwritten; with no stored data it falls back to the full
// default lookback.
func (s *Service) UpdateSymbol(ctx context.Context, symbol string, interval domain.Interval) (int, error) {
	_, _, last, err := s.store.Coverage(ctx, symbol, interval)
	if err != nil {
		return 0, fmt.Errorf("updating %s: %w", symbol, err)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -s.defaultDays)
	if !last.IsZero() {
		start = last.AddDate(0, 0, -1)
	}
	return s.IngestSymbol(ctx, symbol, interval, start, end)
}
