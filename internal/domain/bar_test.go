package domain

import (
	"testing"
	"time"
)

func TestIntervalSpan(t *testing.T) {
	tests := []struct {
		interval Interval
		wantMult int
		wantSpan string
	}{
		{Interval1Min, 1, "minute"},
		{Interval5Min, 5, "minute"},
		{Interval1Hour, 1, "hour"},
		{Interval1Day, 1, "day"},
		{Interval1Week, 1, "week"},
		{Interval("bogus"), 1, "day"}, // fallback
	}
	for _, tt := range tests {
		mult, span := tt.interval.Span()
		if mult != tt.wantMult || span != tt.wantSpan {
			t.Errorf("Span(%q) = (%d, %q), want (%d, %q)",
				tt.interval, mult, span, tt.wantMult, tt.wantSpan)
		}
	}

	if Interval("bogus").Valid() {
		t.Error("Valid() should be false for unknown interval")
	}
	if !Interval1Day.Valid() {
		t.Error("Valid() should be true for 1day")
	}
}

func TestDedupBarsKeepsLast(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Symbol: "AAPL", Interval: Interval1Day, Timestamp: ts, Close: 100},
		{Symbol: "AAPL", Interval: Interval1Day, Timestamp: ts.AddDate(0, 0, 1), Close: 101},
		{Symbol: "AAPL", Interval: Interval1Day, Timestamp: ts, Close: 105}, // duplicate key
	}

	out := DedupBars(bars)
	if len(out) != 2 {
		t.Fatalf("DedupBars returned %d bars, want 2", len(out))
	}
	// The surviving duplicate keeps its (last) input position.
	if out[0].Close != 101 {
		t.Errorf("first bar Close = %v, want 101", out[0].Close)
	}
	if out[1].Close != 105 {
		t.Errorf("surviving duplicate Close = %v, want 105 (last occurrence)", out[1].Close)
	}
}

func TestNewSeriesWindowSortsAndDedups(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Symbol: "MSFT", Interval: Interval1Day, Timestamp: base.AddDate(0, 0, 2), Close: 3},
		{Symbol: "MSFT", Interval: Interval1Day, Timestamp: base, Close: 1},
		{Symbol: "MSFT", Interval: Interval1Day, Timestamp: base.AddDate(0, 0, 1), Close: 2},
		{Symbol: "MSFT", Interval: Interval1Day, Timestamp: base, Close: 1.5}, // later write wins
	}

	w := NewSeriesWindow(bars)
	if len(w) != 3 {
		t.Fatalf("window has %d bars, want 3", len(w))
	}
	for i := 1; i < len(w); i++ {
		if !w[i-1].Timestamp.Before(w[i].Timestamp) {
			t.Fatalf("window not strictly ascending at index %d", i)
		}
	}
	if w[0].Close != 1.5 {
		t.Errorf("deduped first bar Close = %v, want 1.5", w[0].Close)
	}

	closes := w.Closes()
	if len(closes) != 3 || closes[2] != 3 {
		t.Errorf("Closes() = %v, want [1.5 2 3]", closes)
	}
}
