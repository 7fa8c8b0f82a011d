package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"barkeep/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ BarStore = (*SQLiteStore)(nil)

// SQLiteStore implements BarStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, switches it
// to WAL mode for concurrent readers, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_ohlcv (
			symbol   TEXT    NOT NULL,
			ts       INTEGER NOT NULL, -- unix ms, start of aggregation window
			interval TEXT    NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   INTEGER NOT NULL,
			PRIMARY KEY (symbol, ts, interval)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ohlcv_symbol_interval
			ON stock_ohlcv(symbol, interval, ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsert = `INSERT INTO stock_ohlcv (symbol, ts, interval, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, ts, interval) DO UPDATE SET
		open = excluded.open,
		high = excluded.high,
		low = excluded.low,
		close = excluded.close,
		volume = excluded.volume`

// UpsertBars writes the batch in a single transaction. Any statement error
// rolls the whole batch back, so partial application is never observable.
func (s *SQLiteStore) UpsertBars(ctx context.Context, bars []domain.Bar) (int, error) {
	deduped := domain.DedupBars(bars)
	if len(deduped) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range deduped {
		if _, err := stmt.ExecContext(ctx,
			b.Symbol, b.Timestamp.UnixMilli(), string(b.Interval),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		); err != nil {
			return 0, fmt.Errorf("upserting %s@%s: %w", b.Symbol, b.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(deduped), nil
}

// ReadBars returns bars for symbol and interval within [start, end],
// ascending by timestamp.
func (s *SQLiteStore) ReadBars(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, ts, interval, open, high, low, close, volume
		 FROM stock_ohlcv
		 WHERE symbol = ? AND interval = ? AND ts BETWEEN ? AND ?
		 ORDER BY ts ASC`,
		symbol, string(interval), start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("querying bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var (
			b  domain.Bar
			ts int64
			iv string
		)
		if err := rows.Scan(&b.Symbol, &ts, &iv, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scanning bar: %w", err)
		}
		b.Timestamp = time.UnixMilli(ts).UTC()
		b.Interval = domain.Interval(iv)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns all distinct symbols, sorted ascending.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT symbol FROM stock_ohlcv ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("listing symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scanning symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Coverage returns row count and min/max timestamps for (symbol, interval).
func (s *SQLiteStore) Coverage(ctx context.Context, symbol string, interval domain.Interval) (int, time.Time, time.Time, error) {
	var (
		count    int
		min, max sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(ts), MAX(ts)
		 FROM stock_ohlcv WHERE symbol = ? AND interval = ?`,
		symbol, string(interval)).Scan(&count, &min, &max)
	if err != nil {
		return 0, time.Time{}, time.Time{}, fmt.Errorf("coverage for %s: %w", symbol, err)
	}

	var first, last time.Time
	if min.Valid {
		first = time.UnixMilli(min.Int64).UTC()
	}
	if max.Valid {
		last = time.UnixMilli(max.Int64).UTC()
	}
	return count, first, last, nil
}

// DeleteBars removes every bar for the symbol across all intervals.
func (s *SQLiteStore) DeleteBars(ctx context.Context, symbol string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stock_ohlcv WHERE symbol = ?`, symbol)
	if err != nil {
		return 0, fmt.Errorf("deleting bars for %s: %w", symbol, err)
	}
	return res.RowsAffected()
}
