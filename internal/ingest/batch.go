package ingest

import (
	"context"
	"log/slog"
	"time"

	"barkeep/internal/domain"
	"barkeep/internal/metrics"
)

// ProgressFunc receives per-symbol progress during a batch run. phase is
// "start", "ok" or "fail"; fraction is completed symbols over total.
type ProgressFunc func(symbol, phase string, fraction float64)

// Coordinator runs multi-symbol ingestion sequentially. One symbol's
// failure never aborts the run; it is recorded and the loop moves on.
type Coordinator struct {
	service *Service
	log     *slog.Logger
}

// NewCoordinator wraps the ingestion service for batch runs.
func NewCoordinator(service *Service) *Coordinator {
	return &Coordinator{
		service: service,
		log:     slog.Default().With("component", "batch"),
	}
}

// LoadMultiple ingests [start, end] for each symbol in order. progress may
// be nil. The returned result always satisfies Total == Success+Failed and
// Failed == len(FailedSymbols).
func (c *Coordinator) LoadMultiple(ctx context.Context, symbols []string, interval domain.Interval, start, end time.Time, progress ProgressFunc) domain.BatchResult {
	result := domain.BatchResult{Total: len(symbols)}

	for i, symbol := range symbols {
		if progress != nil {
			progress(symbol, "start", float64(i)/float64(len(symbols)))
		}

		_, err := c.service.IngestSymbol(ctx, symbol, interval, start, end)
		fraction := float64(i+1) / float64(len(symbols))
		if err != nil {
			result.Failed++
			result.FailedSymbols = append(result.FailedSymbols, symbol)
			metrics.BatchSymbols.WithLabelValues("fail").Inc()
			c.log.Error("symbol failed, continuing batch", "symbol", symbol, "error", err)
			if progress != nil {
				progress(symbol, "fail", fraction)
			}
			continue
		}

		result.Success++
		metrics.BatchSymbols.WithLabelValues("ok").Inc()
		if progress != nil {
			progress(symbol, "ok", fraction)
		}
	}

	c.log.Info("batch complete", "total", result.Total,
		"success", result.Success, "failed", result.Failed)
	return result
}

// UpdateMultiple runs UpdateSymbol for each symbol in order, with the same
// failure isolation as LoadMultiple.
func (c *Coordinator) UpdateMultiple(ctx context.Context, symbols []string, interval domain.Interval, progress ProgressFunc) domain.BatchResult {
	result := domain.BatchResult{Total: len(symbols)}

	for i, symbol := range symbols {
		if progress != nil {
			progress(symbol, "start", float64(i)/float64(len(symbols)))
		}

		_, err := c.service.UpdateSymbol(ctx, symbol, interval)
		fraction := float64(i+1) / float64(len(symbols))
		if err != nil {
			result.Failed++
			result.FailedSymbols = append(result.FailedSymbols, symbol)
			metrics.BatchSymbols.WithLabelValues("fail").Inc()
			c.log.Error("symbol failed, continuing batch", "symbol", symbol, "error", err)
			if progress != nil {
				progress(symbol, "fail", fraction)
			}
			continue
		}

		result.Success++
		metrics.BatchSymbols.WithLabelValues("ok").Inc()
		if progress != nil {
			progress(symbol, "ok", fraction)
		}
	}

	c.log.Info("update batch complete", "total", result.Total,
		"success", result.Success, "failed", result.Failed)
	return result
}
