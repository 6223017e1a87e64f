package database

import (
	"context"
	"fmt"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

const upsertPricePointQuery = `
	INSERT INTO stock_prices (symbol, date, price)
	VALUES ($1, $2, $3)
	ON CONFLICT (symbol, date) DO UPDATE SET
		price = EXCLUDED.price
`

// UpsertPricePoints upserts a batch of price points in one transaction
func (db *DB) UpsertPricePoints(ctx context.Context, points []*models.PricePoint) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPricePointQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.Symbol, p.Date, p.Price); err != nil {
			return fmt.Errorf("failed to upsert price point for %s on %s: %w",
				p.Symbol, p.Date.Format(models.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPriceSeries retrieves all price points for a symbol ordered by date ascending
func (db *DB) GetPriceSeries(ctx context.Context, symbol string) ([]*models.PricePoint, error) {
	query := `
		SELECT id, symbol, date, price
		FROM stock_prices
		WHERE symbol = $1
		ORDER BY date ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get price series: %w", err)
	}
	defer rows.Close()

	points := []*models.PricePoint{}
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Date, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		p.Date = p.Date.UTC()
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price points: %w", err)
	}

	return points, nil
}
