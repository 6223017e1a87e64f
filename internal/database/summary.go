package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// GetPortfolioSummary aggregates share totals, position count and the most
// recent price date
func (db *DB) GetPortfolioSummary(ctx context.Context) (*models.PortfolioSummary, error) {
	var s models.PortfolioSummary

	query := `SELECT COALESCE(SUM(shares), 0)::BIGINT, COUNT(*) FROM stocks`
	if err := db.conn.QueryRowContext(ctx, query).Scan(&s.TotalShares, &s.TotalStocks); err != nil {
		return nil, fmt.Errorf("failed to aggregate positions: %w", err)
	}

	var latest sql.NullTime
	if err := db.conn.QueryRowContext(ctx, `SELECT MAX(date) FROM stock_prices`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to get latest price date: %w", err)
	}

	s.LatestPriceDate = models.NoPriceDataSentinel
	if latest.Valid {
		s.LatestPriceDate = latest.Time.Format(models.DateLayout)
	}
	return &s, nil
}
