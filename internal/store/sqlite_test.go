package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"barkeep/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bars.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func dailyBars(symbol string, n int, base float64) []domain.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	for i := range bars {
		price := base + float64(i)
		bars[i] = domain.Bar{
			Symbol:    symbol,
			Interval:  domain.Interval1Day,
			Timestamp: start.AddDate(0, 0, i),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.5,
			Volume:    int64(1000 + i),
		}
	}
	return bars
}

func TestUpsertIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	bars := dailyBars("AAPL", 10, 100)

	n, err := s.UpsertBars(ctx, bars)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if n != 10 {
		t.Fatalf("first upsert wrote %d rows, want 10", n)
	}

	if _, err := s.UpsertBars(ctx, bars); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, _, _, err := s.Coverage(ctx, "AAPL", domain.Interval1Day)
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if rows != 10 {
		t.Errorf("row count after double upsert = %d, want 10", rows)
	}
}

func TestUpsertOverwritesConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertBars(ctx, dailyBars("AAPL", 5, 100)); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	// Same keys, new prices: stored rows must converge to the new values.
	if _, err := s.UpsertBars(ctx, dailyBars("AAPL", 5, 200)); err != nil {
		t.Fatalf("overwrite upsert: %v", err)
	}

	got, err := s.ReadBars(ctx, "AAPL", domain.Interval1Day,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d rows, want 5", len(got))
	}
	if got[0].Close != 200.5 {
		t.Errorf("first close = %v, want overwritten value 200.5", got[0].Close)
	}
}

func TestUpsertDedupsWithinBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bars := dailyBars("AAPL", 3, 100)
	dup := bars[1]
	dup.Close = 999
	batch := append(bars, dup) // duplicate key, later occurrence wins

	n, err := s.UpsertBars(ctx, batch)
	if err != nil {
		t.Fatalf("UpsertBars: %v", err)
	}
	if n != 3 {
		t.Errorf("wrote %d rows, want 3 after in-batch dedup", n)
	}

	got, err := s.ReadBars(ctx, "AAPL", domain.Interval1Day,
		bars[1].Timestamp, bars[1].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 || got[0].Close != 999 {
		t.Errorf("duplicate key resolved to %+v, want close=999", got)
	}
}

func TestReadBarsAscendingAndBounded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertBars(ctx, dailyBars("MSFT", 10, 300)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	start := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	got, err := s.ReadBars(ctx, "MSFT", domain.Interval1Day, start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d rows in window, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Timestamp.Before(got[i].Timestamp) {
			t.Errorf("rows not ascending at %d: %v >= %v", i, got[i-1].Timestamp, got[i].Timestamp)
		}
	}
	if !got[0].Timestamp.Equal(start) || !got[4].Timestamp.Equal(end) {
		t.Errorf("window bounds wrong: [%v, %v]", got[0].Timestamp, got[4].Timestamp)
	}
}

func TestCoverageEmpty(t *testing.T) {
	s := openTestStore(t)

	rows, first, last, err := s.Coverage(context.Background(), "NONE", domain.Interval1Day)
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if rows != 0 || !first.IsZero() || !last.IsZero() {
		t.Errorf("empty coverage = (%d, %v, %v), want zeros", rows, first, last)
	}
}

func TestListSymbolsAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, sym := range []string{"MSFT", "AAPL"} {
		if _, err := s.UpsertBars(ctx, dailyBars(sym, 3, 100)); err != nil {
			t.Fatalf("upsert %s: %v", sym, err)
		}
	}

	syms, err := s.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(syms) != 2 || syms[0] != "AAPL" || syms[1] != "MSFT" {
		t.Errorf("symbols = %v, want [AAPL MSFT]", syms)
	}

	deleted, err := s.DeleteBars(ctx, "AAPL")
	if err != nil {
		t.Fatalf("DeleteBars: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted %d rows, want 3", deleted)
	}

	rows, _, _, err := s.Coverage(ctx, "AAPL", domain.Interval1Day)
	if err != nil {
		t.Fatalf("Coverage after delete: %v", err)
	}
	if rows != 0 {
		t.Errorf("rows after delete = %d, want 0", rows)
	}
}

func TestIntervalsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	daily := dailyBars("AAPL", 2, 100)
	weekly := dailyBars("AAPL", 2, 100)
	for i := range weekly {
		weekly[i].Interval = domain.Interval1Week
	}
	if _, err := s.UpsertBars(ctx, append(daily, weekly...)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows, _, _, err := s.Coverage(ctx, "AAPL", domain.Interval1Day)
	if err != nil {
		t.Fatalf("Coverage: %v", err)
	}
	if rows != 2 {
		t.Errorf("daily rows = %d, want 2 (weekly must not leak in)", rows)
	}
}
