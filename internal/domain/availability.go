package domain

import "time"

// SentinelAgeDays is reported as the age when no rows are stored for a
// (symbol, interval) pair, instead of leaving the age undefined.
const SentinelAgeDays = 999

// AvailabilityInfo summarizes stored coverage for one (symbol, interval).
type AvailabilityInfo struct {
	Symbol      string    `json:"symbol"`
	Interval    Interval  `json:"interval"`
	Rows        int       `json:"rows"`
	First       time.Time `json:"first,omitzero"`
	Last        time.Time `json:"last,omitzero"`
	AgeDays     int       `json:"age_days"`
	HasData     bool      `json:"has_data"`
	NeedsUpdate bool      `json:"needs_update"`
}

// BatchResult aggregates the outcome of a multi-symbol ingestion run.
// Invariants: Total == Success+Failed and Failed == len(FailedSymbols).
type BatchResult struct {
	Total         int      `json:"total"`
	Success       int      `json:"success"`
	Failed        int      `json:"failed"`
	FailedSymbols []string `json:"failed_symbols"`
}

// IngestionJob names one symbol and time range to ingest. It does not
// persist beyond the call that produced it.
type IngestionJob struct {
	Symbol   string
	Interval Interval
	Start    time.Time
	End      time.Time
}

// TickerDescriptor is one entry from the vendor's reference endpoint.
type TickerDescriptor struct {
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	PrimaryExchange string `json:"primary_exchange"`
	Market          string `json:"market"`
}
