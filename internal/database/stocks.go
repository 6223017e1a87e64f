package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// GetAllPositions retrieves every position in insertion order
func (db *DB) GetAllPositions(ctx context.Context) ([]*models.Position, error) {
	query := `SELECT id, symbol, shares FROM stocks ORDER BY id ASC`
	rows, err := db.conn.QueryContext(ctx, query)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}

	return positions, nil
}

// GetPosition retrieves a position by symbol
func (db *DB) GetPosition(ctx context.Context, symbol string) (*models.Position, error) {
	query := `SELECT id, symbol, shares FROM stocks WHERE symbol = $1`

	var p models.Position
	err := db.conn.QueryRowContext(ctx, query, symbol).Scan(&p.ID, &p.Symbol, &p.Shares)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("position %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &p, nil
}

// CreatePosition inserts a position with zero shares. It reports false when
// the symbol was already tracked, in which case nothing changes.
func (db *DB) CreatePosition(ctx context.Context, symbol string) (bool, error) {
	query := `
		INSERT INTO stocks (symbol, shares) VALUES ($1, 0)
		ON CONFLICT (symbol) DO NOTHING
	`
	result, err := db.conn.ExecContext(ctx, query, symbol)
	if err != nil {
		return false, fmt.Errorf("failed to create position: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeletePosition removes the position for symbol and returns the number of
// rows removed. Price history is left in place.
func (db *DB) DeletePosition(ctx context.Context, symbol string) (int64, error) {
	query := `DELETE FROM stocks WHERE symbol = $1`
	result, err := db.conn.ExecContext(ctx, query, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to delete position: %w", err)
	}
	return result.RowsAffected()
}

// AdjustShares adds delta to the share balance of symbol in a single
// conditional statement and returns the new balance. The balance never goes
// below zero and the portfolio total never exceeds math.MaxInt64.
func (db *DB) AdjustShares(ctx context.Context, symbol string, delta int64) (int64, error) {
	if delta == math.MinInt64 {
		return 0, fmt.Errorf("position %s: %w", symbol, ErrInsufficientShares)
	}

	query := `
		UPDATE stocks SET shares = shares + $2::BIGINT
		WHERE symbol = $1
		  AND shares + LEAST($2::BIGINT, 0) >= 0
		  AND (SELECT COALESCE(SUM(shares), 0) FROM stocks) <= 9223372036854775807 - GREATEST($2::BIGINT, 0)
		RETURNING shares
	`
	var shares int64
	err := db.conn.QueryRowContext(ctx, query, symbol, delta).Scan(&shares)
	if err == nil {
		return shares, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust shares: %w", err)
	}

	if _, err := db.GetPosition(ctx, symbol); err != nil {
		return 0, err
	}
	if delta > 0 {
		return 0, fmt.Errorf("position %s: %w", symbol, ErrShareLimit)
	}
	return 0, fmt.Errorf("position %s: %w", symbol, ErrInsufficientShares)
}
