package massive

import "barkeep/internal/domain"

// aggRow is one aggregate bar as returned by the vendor. Timestamps are
// epoch milliseconds; volume arrives as a float.
type aggRow struct {
	T  int64   `json:"t"`
	O  float64 `json:"o"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	C  float64 `json:"c"`
	V  float64 `json:"v"`
	VW float64 `json:"vw"`
	N  int64   `json:"n"`
}

// aggsResponse is one page of the aggregates endpoint. NextURL carries the
// continuation cursor when the range spans more than one page.
type aggsResponse struct {
	Ticker       string   `json:"ticker"`
	ResultsCount int      `json:"resultsCount"`
	Results      []aggRow `json:"results"`
	NextURL      string   `json:"next_url"`
	Status       string   `json:"status"`
}

// referenceResponse is one page of the reference tickers endpoint.
type referenceResponse struct {
	Results []domain.TickerDescriptor `json:"results"`
	Count   int                       `json:"count"`
	NextURL string                    `json:"next_url"`
}
