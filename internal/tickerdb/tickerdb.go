// Package tickerdb persists the user's selected-ticker watchlist in its own
// SQLite database, separate from the bar store.
package tickerdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"barkeep/internal/domain"

	_ "modernc.org/sqlite"
)

// DB stores selected tickers keyed by symbol.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the ticker database at dbPath.
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ticker db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS selected_tickers (
		ticker           TEXT PRIMARY KEY,
		name             TEXT NOT NULL DEFAULT '',
		primary_exchange TEXT NOT NULL DEFAULT '',
		market           TEXT NOT NULL DEFAULT '',
		added_at         INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ticker db: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Add inserts or refreshes a ticker. Symbols are stored upper-cased;
// re-adding an existing ticker updates its descriptor fields.
func (d *DB) Add(ctx context.Context, t domain.TickerDescriptor) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO selected_tickers (ticker, name, primary_exchange, market, added_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (ticker) DO UPDATE SET
			name = excluded.name,
			primary_exchange = excluded.primary_exchange,
			market = excluded.market`,
		strings.ToUpper(t.Ticker), t.Name, t.PrimaryExchange, t.Market,
		time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("adding ticker %s: %w", t.Ticker, err)
	}
	return nil
}

// Remove deletes a ticker, reporting whether it was present.
func (d *DB) Remove(ctx context.Context, ticker string) (bool, error) {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM selected_tickers WHERE ticker = ?`, strings.ToUpper(ticker))
	if err != nil {
		return false, fmt.Errorf("removing ticker %s: %w", ticker, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes every selected ticker and returns how many were removed.
func (d *DB) Clear(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM selected_tickers`)
	if err != nil {
		return 0, fmt.Errorf("clearing tickers: %w", err)
	}
	return res.RowsAffected()
}

// List returns all selected tickers sorted by symbol.
func (d *DB) List(ctx context.Context) ([]domain.TickerDescriptor, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT ticker, name, primary_exchange, market
		 FROM selected_tickers ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("listing tickers: %w", err)
	}
	defer rows.Close()

	var tickers []domain.TickerDescriptor
	for rows.Next() {
		var t domain.TickerDescriptor
		if err := rows.Scan(&t.Ticker, &t.Name, &t.PrimaryExchange, &t.Market); err != nil {
			return nil, fmt.Errorf("scanning ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// IsSelected reports whether the ticker is in the watchlist.
func (d *DB) IsSelected(ctx context.Context, ticker string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM selected_tickers WHERE ticker = ?`,
		strings.ToUpper(ticker)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking ticker %s: %w", ticker, err)
	}
	return n > 0, nil
}
