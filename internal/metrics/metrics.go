// Package metrics defines the Prometheus instruments shared across the
// ingestion path and the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VendorRequests counts upstream API requests by outcome
	// (ok, not_found, rate_limited, auth, soft, transient).
	VendorRequests = newCounterVec(prometheus.CounterOpts{
		Name: "barkeep_vendor_requests_total",
		Help: "Upstream market-data API requests by outcome.",
	}, []string{"outcome"})

	// RowsUpserted counts bars written through the upsert path.
	RowsUpserted = newCounter(prometheus.CounterOpts{
		Name: "barkeep_rows_upserted_total",
		Help: "Bars written to the store (post-dedup).",
	})

	// BatchSymbols counts per-symbol outcomes of batch ingestion runs.
	BatchSymbols = newCounterVec(prometheus.CounterOpts{
		Name: "barkeep_batch_symbols_total",
		Help: "Symbols processed by batch ingestion, by result.",
	}, []string{"result"})

	// IngestDuration observes wall time of single-symbol ingestion.
	IngestDuration = newHist(prometheus.HistogramOpts{
		Name:    "barkeep_ingest_duration_seconds",
		Help:    "Duration of single-symbol ingestion.",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler exposes the default registry, for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Convenience constructors to avoid repeating MustRegister.

func newCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	prometheus.MustRegister(c)
	return c
}

func newCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	prometheus.MustRegister(c)
	return c
}

func newHist(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	prometheus.MustRegister(h)
	return h
}
