package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"barkeep/internal/domain"
)

var _ BarStore = (*PostgresStore)(nil)

// PostgresStore implements BarStore over a pgx connection pool. It targets
// plain Postgres; on TimescaleDB the table can be converted to a hypertable
// without changing any query here.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at connString, verifies the
// connection, and runs migrations.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_ohlcv (
			symbol   TEXT             NOT NULL,
			ts       TIMESTAMPTZ      NOT NULL,
			interval TEXT             NOT NULL,
			open     DOUBLE PRECISION NOT NULL,
			high     DOUBLE PRECISION NOT NULL,
			low      DOUBLE PRECISION NOT NULL,
			close    DOUBLE PRECISION NOT NULL,
			volume   BIGINT           NOT NULL,
			PRIMARY KEY (symbol, ts, interval)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ohlcv_symbol_interval
			ON stock_ohlcv(symbol, interval, ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgUpsert = `INSERT INTO stock_ohlcv (symbol, ts, interval, open, high, low, close, volume)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (symbol, ts, interval) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume`

// UpsertBars writes the batch in one transaction using pgx's statement
// batching, so a large window costs one round trip.
func (s *PostgresStore) UpsertBars(ctx context.Context, bars []domain.Bar) (int, error) {
	deduped := domain.DedupBars(bars)
	if len(deduped) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, b := range deduped {
		batch.Queue(pgUpsert,
			b.Symbol, b.Timestamp.UTC(), string(b.Interval),
			b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("sending upsert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(deduped), nil
}

func (s *PostgresStore) ReadBars(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol, ts, interval, open, high, low, close, volume
		 FROM stock_ohlcv
		 WHERE symbol = $1 AND interval = $2 AND ts BETWEEN $3 AND $4
		 ORDER BY ts ASC`,
		symbol, string(interval), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var (
			b  domain.Bar
			iv string
		)
		if err := rows.Scan(&b.Symbol, &b.Timestamp, &iv, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scanning bar: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		b.Interval = domain.Interval(iv)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *PostgresStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
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

func (s *PostgresStore) Coverage(ctx context.Context, symbol string, interval domain.Interval) (int, time.Time, time.Time, error) {
	var (
		count       int
		first, last *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(ts), MAX(ts)
		 FROM stock_ohlcv WHERE symbol = $1 AND interval = $2`,
		symbol, string(interval)).Scan(&count, &first, &last)
	if err != nil {
		return 0, time.Time{}, time.Time{}, fmt.Errorf("coverage for %s: %w", symbol, err)
	}

	var f, l time.Time
	if first != nil {
		f = first.UTC()
	}
	if last != nil {
		l = last.UTC()
	}
	return count, f, l, nil
}

func (s *PostgresStore) DeleteBars(ctx context.Context, symbol string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM stock_ohlcv WHERE symbol = $1`, symbol)
	if err != nil {
		return 0, fmt.Errorf("deleting bars for %s: %w", symbol, err)
	}
	return tag.RowsAffected(), nil
}
