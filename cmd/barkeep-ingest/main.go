// Command barkeep-ingest loads or refreshes OHLCV history for a list of
// symbols from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"barkeep/internal/config"
	"barkeep/internal/domain"
	"barkeep/internal/ingest"
	"barkeep/internal/massive"
	"barkeep/internal/store"
	"barkeep/internal/util"
)

func main() {
	var (
		symbolsFlag  = flag.String("symbols", "", "comma-separated symbols to ingest (required)")
		daysFlag     = flag.Int("days", 0, "lookback window in days (default from config)")
		intervalFlag = flag.String("interval", "", "bar interval (default from config)")
		updateFlag   = flag.Bool("update", false, "extend existing coverage instead of a fixed lookback")
	)
	flag.Parse()

	symbols := splitSymbols(*symbolsFlag)
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "usage: barkeep-ingest -symbols AAPL,MSFT [-days 90] [-interval 1day] [-update]")
		os.Exit(2)
	}

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

	interval := domain.Interval(cfg.Ingest.DefaultInterval)
	if *intervalFlag != "" {
		interval = domain.Interval(*intervalFlag)
	}
	if !interval.Valid() {
		log.Fatalf("unknown interval %q", interval)
	}
	days := cfg.Ingest.DefaultDays
	if *daysFlag > 0 {
		days = *daysFlag
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	barStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("opening bar store: %v", err)
	}
	defer barStore.Close()

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

	progress := func(symbol, phase string, fraction float64) {
		if phase == "start" {
			return
		}
		fmt.Printf("[%3.0f%%] %-8s %s\n", fraction*100, symbol, phase)
	}

	var result domain.BatchResult
	if *updateFlag {
		result = coord.UpdateMultiple(ctx, symbols, interval, progress)
	} else {
		end := time.Now().UTC()
		result = coord.LoadMultiple(ctx, symbols, interval, end.AddDate(0, 0, -days), end, progress)
	}

	fmt.Printf("done: %d total, %d ok, %d failed\n", result.Total, result.Success, result.Failed)
	if result.Failed > 0 {
		fmt.Printf("failed symbols: %s\n", strings.Join(result.FailedSymbols, ", "))
		os.Exit(1)
	}
}

func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
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
