package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"barkeep/internal/domain"
)

// BarRecord is the Parquet schema for exported bar data.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Interval  string  `parquet:"interval"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// ExportParquet writes the window to <dir>/<SYMBOL>_<interval>.parquet,
// replacing any previous export for the pair. The window must be non-empty
// and homogeneous in (symbol, interval); the first bar determines the name.
func ExportParquet(dir string, window domain.SeriesWindow) (string, error) {
	if len(window) == 0 {
		return "", fmt.Errorf("exporting parquet: empty window")
	}

	records := make([]BarRecord, len(window))
	for i, b := range window {
		records[i] = BarRecord{
			Symbol:    b.Symbol,
			Timestamp: b.Timestamp.UnixMilli(),
			Interval:  string(b.Interval),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.parquet", strings.ToUpper(window[0].Symbol), window[0].Interval)
	path := filepath.Join(dir, name)
	if err := parquet.WriteFile(path, records); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}

// ReadParquet loads an export back into a series window, mainly for
// verification and tooling.
func ReadParquet(path string) (domain.SeriesWindow, error) {
	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	bars := make([]domain.Bar, len(records))
	for i, r := range records {
		bars[i] = domain.Bar{
			Symbol:    r.Symbol,
			Interval:  domain.Interval(r.Interval),
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		}
	}
	return domain.NewSeriesWindow(bars), nil
}
