// Package sqlite implements the portfolio store on an embedded SQLite file.
// Dates are stored as YYYY-MM-DD text.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/models"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS stocks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol VARCHAR(100) UNIQUE,
  shares INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS stock_prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol VARCHAR(100) NOT NULL,
  date TEXT NOT NULL,
  price REAL NOT NULL,
  UNIQUE(symbol, date)
);
CREATE INDEX IF NOT EXISTS idx_stock_prices_date ON stock_prices(date);
`

// Store is a SQLite-backed portfolio store
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database file at path and ensures the schema exists
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database
func (s *Store) Close() error { return s.db.Close() }

// GetAllPositions retrieves every position in insertion order
func (s *Store) GetAllPositions(ctx context.Context) ([]*models.Position, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, symbol, shares FROM stocks ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := []*models.Position{}
	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Shares); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, &p)
	}
	return positions, rows.Err()
}

// GetPosition retrieves a position by symbol
func (s *Store) GetPosition(ctx context.Context, symbol string) (*models.Position, error) {
	var p models.Position
	err := s.db.QueryRowContext(ctx, `SELECT id, symbol, shares FROM stocks WHERE symbol = ?`, symbol).
		Scan(&p.ID, &p.Symbol, &p.Shares)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("position %s: %w", symbol, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &p, nil
}

// CreatePosition inserts a position with zero shares and reports whether it was new
func (s *Store) CreatePosition(ctx context.Context, symbol string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO stocks (symbol, shares) VALUES (?, 0)`, symbol)
	if err != nil {
		return false, fmt.Errorf("failed to create position: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// DeletePosition removes the position for symbol and returns the rows removed
func (s *Store) DeletePosition(ctx context.Context, symbol string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM stocks WHERE symbol = ?`, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to delete position: %w", err)
	}
	return result.RowsAffected()
}

// AdjustShares adds delta to the share balance of symbol and returns the new
// balance. The balance never goes below zero and the portfolio total never
// exceeds math.MaxInt64.
func (s *Store) AdjustShares(ctx context.Context, symbol string, delta int64) (int64, error) {
	if delta == math.MinInt64 {
		return 0, fmt.Errorf("position %s: %w", symbol, database.ErrInsufficientShares)
	}

	var shares int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE stocks SET shares = shares + ?
		WHERE symbol = ?
		  AND shares + min(?, 0) >= 0
		  AND (SELECT COALESCE(SUM(shares), 0) FROM stocks) <= 9223372036854775807 - max(?, 0)
		RETURNING shares
	`, delta, symbol, delta, delta).Scan(&shares)
	if err == nil {
		return shares, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust shares: %w", err)
	}

	if _, err := s.GetPosition(ctx, symbol); err != nil {
		return 0, err
	}
	if delta > 0 {
		return 0, fmt.Errorf("position %s: %w", symbol, database.ErrShareLimit)
	}
	return 0, fmt.Errorf("position %s: %w", symbol, database.ErrInsufficientShares)
}

const upsertPricePointQuery = `
	INSERT INTO stock_prices (symbol, date, price)
	VALUES (?, ?, ?)
	ON CONFLICT(symbol, date) DO UPDATE SET price = excluded.price
`

// UpsertPricePoints writes points in one transaction; a later point for the
// same (symbol, date) replaces an earlier one
func (s *Store) UpsertPricePoints(ctx context.Context, points []*models.PricePoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range points {
		date := p.Date.Format(models.DateLayout)
		if _, err := tx.ExecContext(ctx, upsertPricePointQuery, p.Symbol, date, p.Price.InexactFloat64()); err != nil {
			return fmt.Errorf("failed to upsert price point for %s on %s: %w", p.Symbol, date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPriceSeries retrieves the price history of symbol ordered by date
func (s *Store) GetPriceSeries(ctx context.Context, symbol string) ([]*models.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, date, price FROM stock_prices
		WHERE symbol = ?
		ORDER BY date ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get price series: %w", err)
	}
	defer rows.Close()

	points := []*models.PricePoint{}
	for rows.Next() {
		var p models.PricePoint
		var date string
		var price float64
		if err := rows.Scan(&p.ID, &p.Symbol, &date, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		if p.Date, err = time.Parse(models.DateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
		}
		p.Price = decimal.NewFromFloat(price)
		points = append(points, &p)
	}
	return points, rows.Err()
}

// GetPortfolioSummary aggregates share totals, position count and the most
// recent price date
func (s *Store) GetPortfolioSummary(ctx context.Context) (*models.PortfolioSummary, error) {
	var summary models.PortfolioSummary
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(shares), 0), COUNT(*) FROM stocks`).
		Scan(&summary.TotalShares, &summary.TotalStocks)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate positions: %w", err)
	}

	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(date) FROM stock_prices`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to get latest price date: %w", err)
	}

	summary.LatestPriceDate = models.NoPriceDataSentinel
	if latest.Valid {
		summary.LatestPriceDate = latest.String
	}
	return &summary, nil
}
