package tickerdb

import (
	"context"
	"path/filepath"
	"testing"

	"barkeep/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tickers.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddListRemove(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tickers := []domain.TickerDescriptor{
		{Ticker: "msft", Name: "Microsoft", PrimaryExchange: "XNAS", Market: "stocks"},
		{Ticker: "AAPL", Name: "Apple Inc.", PrimaryExchange: "XNAS", Market: "stocks"},
	}
	for _, tk := range tickers {
		if err := db.Add(ctx, tk); err != nil {
			t.Fatalf("Add %s: %v", tk.Ticker, err)
		}
	}

	got, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d tickers, want 2", len(got))
	}
	if got[0].Ticker != "AAPL" || got[1].Ticker != "MSFT" {
		t.Errorf("tickers = %v, want upper-cased sorted [AAPL MSFT]", got)
	}

	ok, err := db.IsSelected(ctx, "aapl")
	if err != nil {
		t.Fatalf("IsSelected: %v", err)
	}
	if !ok {
		t.Error("IsSelected(aapl) = false, lookup should be case-insensitive")
	}

	removed, err := db.Remove(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Error("Remove reported not present for an existing ticker")
	}
	removed, err = db.Remove(ctx, "AAPL")
	if err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if removed {
		t.Error("Remove reported present for an already-removed ticker")
	}
}

func TestAddIsUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Add(ctx, domain.TickerDescriptor{Ticker: "AAPL", Name: "old name"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := db.Add(ctx, domain.TickerDescriptor{Ticker: "AAPL", Name: "Apple Inc."}); err != nil {
		t.Fatalf("re-Add: %v", err)
	}

	got, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d tickers after re-add, want 1", len(got))
	}
	if got[0].Name != "Apple Inc." {
		t.Errorf("name = %q, want refreshed descriptor", got[0].Name)
	}
}

func TestClear(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, sym := range []string{"AAPL", "MSFT", "GOOG"} {
		if err := db.Add(ctx, domain.TickerDescriptor{Ticker: sym}); err != nil {
			t.Fatalf("Add %s: %v", sym, err)
		}
	}

	n, err := db.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("cleared %d tickers, want 3", n)
	}

	got, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("list after clear = %v, want empty", got)
	}
}
