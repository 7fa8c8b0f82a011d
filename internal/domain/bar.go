// Package domain defines the core market-data types shared across the
// application: OHLCV bars, sampling intervals, series windows, and the value
// objects returned by availability checks and batch ingestion runs.
package domain

import (
	"sort"
	"time"
)

// Interval is the sampling granularity of a bar.
type Interval string

const (
	Interval1Min   Interval = "1min"
	Interval5Min   Interval = "5min"
	Interval15Min  Interval = "15min"
	Interval30Min  Interval = "30min"
	Interval1Hour  Interval = "1hour"
	Interval1Day   Interval = "1day"
	Interval1Week  Interval = "1week"
	Interval1Month Interval = "1month"
)

// spanTable maps each interval to the (multiplier, timespan) pair the
// aggregates API expects in its range path.
var spanTable = map[Interval]struct {
	mult int
	span string
}{
	Interval1Min:   {1, "minute"},
	Interval5Min:   {5, "minute"},
	Interval15Min:  {15, "minute"},
	Interval30Min:  {30, "minute"},
	Interval1Hour:  {1, "hour"},
	Interval1Day:   {1, "day"},
	Interval1Week:  {1, "week"},
	Interval1Month: {1, "month"},
}

// Span returns the (multiplier, timespan) pair for the interval.
// Unrecognized intervals fall back to (1, day) rather than failing, so a
// bad interval string degrades to daily bars instead of aborting a fetch.
func (iv Interval) Span() (int, string) {
	if s, ok := spanTable[iv]; ok {
		return s.mult, s.span
	}
	return 1, "day"
}

// Valid reports whether the interval is one of the known granularities.
func (iv Interval) Valid() bool {
	_, ok := spanTable[iv]
	return ok
}

// Bar is a single OHLCV observation. Bars are unique by
// (Symbol, Interval, Timestamp); a later write for the same key replaces
// the earlier one.
type Bar struct {
	Symbol    string
	Interval  Interval
	Timestamp time.Time // start of the aggregation window, UTC
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Key identifies a bar's natural key for dedup purposes.
type Key struct {
	Symbol    string
	Interval  Interval
	Timestamp int64 // unix ms
}

// BarKey returns the natural key of b.
func BarKey(b Bar) Key {
	return Key{Symbol: b.Symbol, Interval: b.Interval, Timestamp: b.Timestamp.UnixMilli()}
}

// DedupBars collapses a batch to one bar per (symbol, interval, timestamp)
// key, keeping the last occurrence in input order. Relative order of the
// surviving bars is preserved.
func DedupBars(bars []Bar) []Bar {
	if len(bars) < 2 {
		return bars
	}
	last := make(map[Key]int, len(bars))
	for i, b := range bars {
		last[BarKey(b)] = i
	}
	out := make([]Bar, 0, len(last))
	for i, b := range bars {
		if last[BarKey(b)] == i {
			out = append(out, b)
		}
	}
	return out
}

// SeriesWindow is an ascending, timestamp-deduplicated sequence of bars for
// one (symbol, interval). It is the unit the indicator engine operates on.
type SeriesWindow []Bar

// NewSeriesWindow sorts bars ascending by timestamp and drops duplicate
// timestamps, keeping the last occurrence in input order.
func NewSeriesWindow(bars []Bar) SeriesWindow {
	deduped := DedupBars(bars)
	w := make(SeriesWindow, len(deduped))
	copy(w, deduped)
	sort.SliceStable(w, func(i, j int) bool {
		return w[i].Timestamp.Before(w[j].Timestamp)
	})
	return w
}

// Closes returns the close column of the window.
func (w SeriesWindow) Closes() []float64 {
	out := make([]float64, len(w))
	for i := range w {
		out[i] = w[i].Close
	}
	return out
}

// Highs returns the high column of the window.
func (w SeriesWindow) Highs() []float64 {
	out := make([]float64, len(w))
	for i := range w {
		out[i] = w[i].High
	}
	return out
}

// Lows returns the low column of the window.
func (w SeriesWindow) Lows() []float64 {
	out := make([]float64, len(w))
	for i := range w {
		out[i] = w[i].Low
	}
	return out
}
