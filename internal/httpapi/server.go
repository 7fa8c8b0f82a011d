// Package httpapi exposes the market-data subsystem over a JSON REST API:
// stored series with optional indicator columns, availability checks, batch
// ingestion, watchlist management, and Parquet export.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"barkeep/internal/domain"
	"barkeep/internal/indicator"
	"barkeep/internal/ingest"
	"barkeep/internal/metrics"
	"barkeep/internal/store"
	"barkeep/internal/tickerdb"
)

// ReferenceFetcher is the slice of the market-data client the ticker
// reference endpoint needs.
type ReferenceFetcher interface {
	FetchReference(ctx context.Context, market string, active bool) ([]domain.TickerDescriptor, error)
}

// Server serves the market-data HTTP API.
type Server struct {
	store       store.BarStore
	service     *ingest.Service
	coord       *ingest.Coordinator
	tickers     *tickerdb.DB
	reference   ReferenceFetcher // nil disables /api/tickers/reference
	exportDir   string
	defaultDays int
	log         *slog.Logger
}

// NewServer wires the API over the given components. reference may be nil
// when no vendor client is configured.
func NewServer(
	st store.BarStore,
	service *ingest.Service,
	coord *ingest.Coordinator,
	tickers *tickerdb.DB,
	reference ReferenceFetcher,
	exportDir string,
	defaultDays int,
) *Server {
	if defaultDays <= 0 {
		defaultDays = 90
	}
	return &Server{
		store:       st,
		service:     service,
		coord:       coord,
		tickers:     tickers,
		reference:   reference,
		exportDir:   exportDir,
		defaultDays: defaultDays,
		log:         slog.Default().With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/series/{symbol}", s.handleSeries)
	mux.HandleFunc("DELETE /api/series/{symbol}", s.handleDeleteSeries)
	mux.HandleFunc("GET /api/availability/{symbol}", s.handleAvailability)
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/symbols", s.handleSymbols)
	mux.HandleFunc("POST /api/export/{symbol}", s.handleExport)
	mux.HandleFunc("GET /api/tickers", s.handleListTickers)
	mux.HandleFunc("GET /api/tickers/reference", s.handleReference)
	mux.HandleFunc("PUT /api/tickers/{symbol}", s.handleAddTicker)
	mux.HandleFunc("DELETE /api/tickers/{symbol}", s.handleRemoveTicker)
	mux.HandleFunc("DELETE /api/tickers", s.handleClearTickers)
	mux.Handle("GET /metrics", metrics.Handler())
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// parseInterval reads the "interval" query param, defaulting to daily.
func parseInterval(r *http.Request) (domain.Interval, error) {
	raw := r.URL.Query().Get("interval")
	if raw == "" {
		return domain.Interval1Day, nil
	}
	iv := domain.Interval(raw)
	if !iv.Valid() {
		return "", fmt.Errorf("unknown interval %q", raw)
	}
	return iv, nil
}

// parseRange reads "start" and "end" date params (YYYY-MM-DD). Defaults:
// end is now, start is the default lookback before end.
func (s *Server) parseRange(r *http.Request) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad end date %q", raw)
		}
		end = t
	}
	start := end.AddDate(0, 0, -s.defaultDays)
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad start date %q", raw)
		}
		start = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end before start")
	}
	return start, end, nil
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	interval, err := parseInterval(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := s.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.store.ReadBars(r.Context(), symbol, interval, start, end)
	if err != nil {
		s.log.Error("reading series", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read series")
		return
	}
	window := domain.NewSeriesWindow(bars)

	resp := SeriesResponse{
		Symbol:   symbol,
		Interval: interval,
		Bars:     convertBars(window),
	}
	if q := r.URL.Query().Get("indicators"); q == "true" || q == "1" {
		resp.Indicators = convertIndicators(indicator.AddAll(window, indicator.DefaultConfig()))
	}
	writeJSON(w, resp)
}

func (s *Server) handleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	deleted, err := s.store.DeleteBars(r.Context(), symbol)
	if err != nil {
		s.log.Error("deleting series", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete series")
		return
	}
	writeJSON(w, DeleteResponse{Symbol: symbol, Deleted: deleted})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	interval, err := parseInterval(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.Tracker().Check(r.Context(), symbol, interval)
	if err != nil {
		s.log.Error("checking availability", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check availability")
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if len(req.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols required")
		return
	}

	interval := domain.Interval1Day
	if req.Interval != "" {
		interval = domain.Interval(req.Interval)
		if !interval.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown interval %q", req.Interval))
			return
		}
	}

	var result domain.BatchResult
	if req.Update {
		result = s.coord.UpdateMultiple(r.Context(), req.Symbols, interval, nil)
	} else {
		days := req.Days
		if days <= 0 {
			days = s.defaultDays
		}
		end := time.Now().UTC()
		result = s.coord.LoadMultiple(r.Context(), req.Symbols, interval,
			end.AddDate(0, 0, -days), end, nil)
	}
	writeJSON(w, result)
}

// handleSymbols returns the union of symbols with stored bars and the
// selected-ticker watchlist, sorted ascending.
func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.ListSymbols(r.Context())
	if err != nil {
		s.log.Error("listing symbols", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list symbols")
		return
	}
	selected, err := s.tickers.List(r.Context())
	if err != nil {
		s.log.Error("listing tickers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tickers")
		return
	}

	seen := make(map[string]bool, len(stored)+len(selected))
	symbols := make([]string, 0, len(stored)+len(selected))
	for _, sym := range stored {
		if !seen[sym] {
			seen[sym] = true
			symbols = append(symbols, sym)
		}
	}
	for _, t := range selected {
		if !seen[t.Ticker] {
			seen[t.Ticker] = true
			symbols = append(symbols, t.Ticker)
		}
	}
	sort.Strings(symbols)
	writeJSON(w, SymbolsResponse{Symbols: symbols})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	interval, err := parseInterval(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := s.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.store.ReadBars(r.Context(), symbol, interval, start, end)
	if err != nil {
		s.log.Error("reading bars for export", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read bars")
		return
	}
	if len(bars) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no bars for %s %s", symbol, interval))
		return
	}

	window := domain.NewSeriesWindow(bars)
	path, err := store.ExportParquet(s.exportDir, window)
	if err != nil {
		s.log.Error("exporting parquet", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	writeJSON(w, ExportResponse{Symbol: symbol, Interval: interval, Rows: len(window), Path: path})
}

func (s *Server) handleListTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := s.tickers.List(r.Context())
	if err != nil {
		s.log.Error("listing tickers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tickers")
		return
	}
	if tickers == nil {
		tickers = []domain.TickerDescriptor{}
	}
	writeJSON(w, TickersResponse{Tickers: tickers})
}

func (s *Server) handleAddTicker(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	// Optional descriptor fields in the body; the path symbol wins.
	desc := domain.TickerDescriptor{Ticker: symbol}
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	desc.Ticker = symbol

	if err := s.tickers.Add(r.Context(), desc); err != nil {
		s.log.Error("adding ticker", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to add %s", symbol))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveTicker(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	removed, err := s.tickers.Remove(r.Context(), symbol)
	if err != nil {
		s.log.Error("removing ticker", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to remove %s", symbol))
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s not selected", symbol))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearTickers(w http.ResponseWriter, r *http.Request) {
	n, err := s.tickers.Clear(r.Context())
	if err != nil {
		s.log.Error("clearing tickers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear tickers")
		return
	}
	writeJSON(w, DeleteResponse{Deleted: n})
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	if s.reference == nil {
		writeError(w, http.StatusServiceUnavailable, "vendor client not configured")
		return
	}
	market := r.URL.Query().Get("market")
	active := r.URL.Query().Get("active") != "false"

	tickers, err := s.reference.FetchReference(r.Context(), market, active)
	if err != nil {
		s.log.Error("fetching reference tickers", "error", err)
		writeError(w, http.StatusBadGateway, "reference fetch failed")
		return
	}

	// One watchlist read marks every row instead of a lookup per ticker.
	selected, err := s.tickers.List(r.Context())
	if err != nil {
		s.log.Error("listing tickers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tickers")
		return
	}
	inList := make(map[string]bool, len(selected))
	for _, t := range selected {
		inList[t.Ticker] = true
	}

	out := make([]ReferenceTicker, len(tickers))
	for i, t := range tickers {
		out[i] = ReferenceTicker{
			TickerDescriptor: t,
			Selected:         inList[strings.ToUpper(t.Ticker)],
		}
	}
	writeJSON(w, ReferenceResponse{Tickers: out})
}
