package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barkeep/internal/config"
	"barkeep/internal/httpapi"
	"barkeep/internal/ingest"
	"barkeep/internal/massive"
	"barkeep/internal/store"
	"barkeep/internal/tickerdb"
	"barkeep/internal/util"
)

func main() {
	cfgPath := "config/barkeep.yaml"
	if p := os.Getenv("BARKEEP_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("loading config: %v", err)
		}
		cfg = config.Default()
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	barStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("opening bar store: %v", err)
	}
	defer barStore.Close()

	tickers, err := tickerdb.Open(cfg.Storage.TickerDBPath)
	if err != nil {
		log.Fatalf("opening ticker db: %v", err)
	}
	defer tickers.Close()

	if cfg.Massive.APIKey == "" {
		logger.Warn("no API key configured; vendor requests will be rejected upstream")
	}
	client := massive.NewClient(cfg.Massive.APIKey, massive.Options{
		BaseURL:    cfg.Massive.BaseURL,
		Timeout:    time.Duration(cfg.Massive.TimeoutSec) * time.Second,
		MaxRetries: cfg.Massive.MaxRetries,
		RetryDelay: time.Duration(cfg.Massive.RetryDelaySec) * time.Second,
		Cooldown:   time.Duration(cfg.Massive.CooldownSec) * time.Second,
		PageLimit:  cfg.Massive.PageLimit,
		MaxRows:    cfg.Massive.MaxRows,
		RatePerMin: cfg.Massive.RateLimitPerMin,
	})

	tracker := ingest.NewTracker(barStore, cfg.Ingest.MinRows, cfg.Ingest.StalenessDays)
	service := ingest.NewService(client, barStore, tracker, cfg.Ingest.DefaultDays)
	coord := ingest.NewCoordinator(service)

	srv := httpapi.NewServer(barStore, service, coord, tickers, client,
		cfg.Storage.ExportDir, cfg.Ingest.DefaultDays)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("server listening", "addr", httpServer.Addr, "driver", cfg.Storage.Driver)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.BarStore, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Storage.PostgresURL)
	case "sqlite", "":
		return store.NewSQLiteStore(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
