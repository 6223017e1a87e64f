package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// rowDateLayout is the date form used by the history table ("Jan 2, 2024")
const rowDateLayout = "Jan 2, 2006"

// IngestRange fetches daily closing prices for symbol between start and end
// (YYYY-MM-DD) and upserts every row that parses. Rows that fail to parse are
// reported in the result rather than failing the call.
func (s *Service) IngestRange(ctx context.Context, symbol, start, end string) (*models.IngestResult, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return nil, fmt.Errorf("%w: missing start or end date", ErrInvalidInput)
	}

	startDate, err := time.Parse(models.DateLayout, strings.TrimSpace(start))
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q is not YYYY-MM-DD", ErrInvalidInput, start)
	}
	endDate, err := time.Parse(models.DateLayout, strings.TrimSpace(end))
	if err != nil {
		return nil, fmt.Errorf("%w: end date %q is not YYYY-MM-DD", ErrInvalidInput, end)
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}

	return s.ingest(ctx, symbol, startDate, endDate)
}

func (s *Service) ingest(ctx context.Context, symbol string, start, end time.Time) (*models.IngestResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("symbol", symbol).Logger()

	rows, err := s.fetcher.FetchHistory(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalFetch, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no history rows for %s", ErrExternalFetch, symbol)
	}

	points, skipped := ParseRows(symbol, rows)
	for _, sk := range skipped {
		logger.Debug().
			Int("row", sk.Index).
			Str("date", sk.DateText).
			Str("close", sk.CloseText).
			Str("reason", sk.Reason).
			Msg("skipping history row")
	}

	if len(points) > 0 {
		if err := s.store.UpsertPricePoints(ctx, points); err != nil {
			return nil, err
		}
	}

	result := &models.IngestResult{
		Symbol:   symbol,
		Ingested: len(points),
		Skipped:  skipped,
	}
	logger.Info().Int("ingested", result.Ingested).Int("skipped", len(skipped)).Msg("ingested price history")

	s.publish(ctx, models.PortfolioEvent{EventType: models.EventPricesIngested, Symbol: symbol, Ingested: &result.Ingested})
	return result, nil
}

// ParseRows converts raw history rows into price points for symbol. Rows that
// cannot be parsed are returned as skipped with the reason.
func ParseRows(symbol string, rows []models.RawPriceRow) ([]*models.PricePoint, []models.SkippedRow) {
	points := make([]*models.PricePoint, 0, len(rows))
	var skipped []models.SkippedRow

	for i, row := range rows {
		p, err := parseRow(symbol, row)
		if err != nil {
			skipped = append(skipped, models.SkippedRow{
				Index:     i,
				DateText:  row.Date,
				CloseText: row.Close,
				Reason:    err.Error(),
			})
			continue
		}
		points = append(points, p)
	}
	return points, skipped
}

func parseRow(symbol string, row models.RawPriceRow) (*models.PricePoint, error) {
	date, err := time.Parse(rowDateLayout, strings.TrimSpace(row.Date))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", row.Date)
	}

	price, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(row.Close), ",", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid price %q", row.Close)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("negative price %s", price)
	}

	return &models.PricePoint{Symbol: symbol, Date: date, Price: price}, nil
}

// RefreshAll ingests the last lookbackDays days of prices for every tracked
// position. A failing symbol does not stop the others; all failures are
// returned joined.
func (s *Service) RefreshAll(ctx context.Context, lookbackDays int) error {
	positions, err := s.store.GetAllPositions(ctx)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -lookbackDays)

	var errs []error
	for _, p := range positions {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.ingest(ctx, p.Symbol, start, end); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("symbol", p.Symbol).Msg("refresh failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.Symbol, err))
		}
	}
	return errors.Join(errs...)
}
