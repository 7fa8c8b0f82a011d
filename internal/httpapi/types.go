package httpapi

import (
	"math"

	"barkeep/internal/domain"
	"barkeep/internal/indicator"
)

// BarJSON is one bar in API responses. Timestamps are Unix milliseconds.
type BarJSON struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// SeriesResponse is the payload of GET /api/series/{symbol}. Indicator
// columns are aligned with Bars; undefined positions are null.
type SeriesResponse struct {
	Symbol     string                `json:"symbol"`
	Interval   domain.Interval       `json:"interval"`
	Bars       []BarJSON             `json:"bars"`
	Indicators map[string][]*float64 `json:"indicators,omitempty"`
}

// IngestRequest is the body of POST /api/ingest.
type IngestRequest struct {
	Symbols  []string `json:"symbols"`
	Interval string   `json:"interval,omitempty"`
	Days     int      `json:"days,omitempty"`
	Update   bool     `json:"update,omitempty"` // extend coverage instead of a fixed lookback
}

// SymbolsResponse lists the symbols present in the bar store.
type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

// TickersResponse lists the selected-ticker watchlist.
type TickersResponse struct {
	Tickers []domain.TickerDescriptor `json:"tickers"`
}

// ReferenceTicker is one vendor reference entry, marked with whether it is
// already in the watchlist.
type ReferenceTicker struct {
	domain.TickerDescriptor
	Selected bool `json:"selected"`
}

// ReferenceResponse is the payload of GET /api/tickers/reference.
type ReferenceResponse struct {
	Tickers []ReferenceTicker `json:"tickers"`
}

// ExportResponse reports where a Parquet export was written.
type ExportResponse struct {
	Symbol   string          `json:"symbol"`
	Interval domain.Interval `json:"interval"`
	Rows     int             `json:"rows"`
	Path     string          `json:"path"`
}

// DeleteResponse reports how many rows an administrative delete removed.
type DeleteResponse struct {
	Symbol  string `json:"symbol,omitempty"`
	Deleted int64  `json:"deleted"`
}

func convertBars(window domain.SeriesWindow) []BarJSON {
	out := make([]BarJSON, len(window))
	for i, b := range window {
		out[i] = BarJSON{
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return out
}

// convertIndicators maps NaN (undefined) to JSON null via nil pointers.
func convertIndicators(set indicator.Set) map[string][]*float64 {
	if len(set) == 0 {
		return nil
	}
	out := make(map[string][]*float64, len(set))
	for name, values := range set {
		col := make([]*float64, len(values))
		for i := range values {
			if !math.IsNaN(values[i]) {
				col[i] = &values[i]
			}
		}
		out[name] = col
	}
	return out
}
