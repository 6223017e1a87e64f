// Package portfolio implements the portfolio operations: tracking symbols,
// adjusting held shares, reading and exporting price history, ingesting
// prices from the external source and summarizing the portfolio.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/export"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Store is the persistence the service runs against
type Store interface {
	Ping(ctx context.Context) error
	GetAllPositions(ctx context.Context) ([]*models.Position, error)
	CreatePosition(ctx context.Context, symbol string) (bool, error)
	DeletePosition(ctx context.Context, symbol string) (int64, error)
	AdjustShares(ctx context.Context, symbol string, delta int64) (int64, error)
	UpsertPricePoints(ctx context.Context, points []*models.PricePoint) error
	GetPriceSeries(ctx context.Context, symbol string) ([]*models.PricePoint, error)
	GetPortfolioSummary(ctx context.Context) (*models.PortfolioSummary, error)
}

// PriceFetcher retrieves raw daily history rows for a symbol and date range
type PriceFetcher interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.RawPriceRow, error)
}

// EventPublisher publishes portfolio change events
type EventPublisher interface {
	Publish(ctx context.Context, event models.PortfolioEvent) error
}

// Action is a share adjustment direction
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// ParseAction accepts "buy" or "sell" in any case
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionBuy, ActionSell:
		return a, nil
	default:
		return "", fmt.Errorf("%w: action must be buy or sell, got %q", ErrInvalidInput, s)
	}
}

// Service implements the portfolio operations
type Service struct {
	store     Store
	fetcher   PriceFetcher
	publisher EventPublisher
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithPublisher publishes an event after every successful mutation
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the clock used for event timestamps and refresh windows
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service
func NewService(store Store, fetcher PriceFetcher, opts ...Option) *Service {
	s := &Service{
		store:   store,
		fetcher: fetcher,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeSymbol trims and uppercases a symbol
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	return s, nil
}

// Ping checks the store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ListPositions returns every tracked position in insertion order
func (s *Service) ListPositions(ctx context.Context) ([]*models.Position, error) {
	return s.store.GetAllPositions(ctx)
}

// AddPosition starts tracking symbol with zero shares. Adding a tracked
// symbol is a no-op.
func (s *Service) AddPosition(ctx context.Context, symbol string) error {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return err
	}

	created, err := s.store.CreatePosition(ctx, symbol)
	if err != nil {
		return err
	}
	if created {
		s.publish(ctx, models.PortfolioEvent{EventType: models.EventPositionAdded, Symbol: symbol})
	}
	return nil
}

// RemovePosition stops tracking symbol. Its price history is kept.
func (s *Service) RemovePosition(ctx context.Context, symbol string) error {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return err
	}

	removed, err := s.store.DeletePosition(ctx, symbol)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.publish(ctx, models.PortfolioEvent{EventType: models.EventPositionRemoved, Symbol: symbol})
	}
	return nil
}

// AdjustShares buys or sells amount shares of symbol and returns the new
// balance. A sell larger than the balance fails with ErrInvalidOperation; a
// buy that would take the portfolio total past math.MaxInt64 fails with
// ErrInvalidInput. Neither changes the balance.
func (s *Service) AdjustShares(ctx context.Context, symbol string, action Action, amount int64) (int64, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return 0, err
	}
	if amount < 0 {
		return 0, fmt.Errorf("%w: amount must be a non-negative integer", ErrInvalidInput)
	}

	var delta int64
	switch action {
	case ActionBuy:
		delta = amount
	case ActionSell:
		delta = -amount
	default:
		return 0, fmt.Errorf("%w: action must be buy or sell, got %q", ErrInvalidInput, action)
	}

	shares, err := s.store.AdjustShares(ctx, symbol, delta)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return 0, fmt.Errorf("%w: stock %s", ErrNotFound, symbol)
	case errors.Is(err, database.ErrInsufficientShares):
		return 0, ErrInvalidOperation
	case errors.Is(err, database.ErrShareLimit):
		return 0, fmt.Errorf("%w: buying %d shares would exceed the maximum share balance", ErrInvalidInput, amount)
	case err != nil:
		return 0, err
	}

	s.publish(ctx, models.PortfolioEvent{EventType: models.EventSharesAdjusted, Symbol: symbol, Shares: &shares})
	return shares, nil
}

// GetChart returns the date-ordered price series for symbol. A symbol with no
// prices yields an empty series.
func (s *Service) GetChart(ctx context.Context, symbol string) (*models.ChartSeries, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	points, err := s.store.GetPriceSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return models.NewChartSeries(points), nil
}

// ExportSeries renders the price series of symbol as csv (the default) or
// xlsx. An empty series is ErrNotFound.
func (s *Service) ExportSeries(ctx context.Context, symbol, format string) (*export.File, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	points, err := s.store.GetPriceSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no data to export for %s", ErrNotFound, symbol)
	}

	return export.Render(f, symbol, points)
}

// Summarize aggregates the whole portfolio
func (s *Service) Summarize(ctx context.Context) (*models.PortfolioSummary, error) {
	return s.store.GetPortfolioSummary(ctx)
}

func (s *Service) publish(ctx context.Context, event models.PortfolioEvent) {
	if s.publisher == nil {
		return
	}
	event.Timestamp = s.now()
	if err := s.publisher.Publish(ctx, event); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("event_type", event.EventType).
			Str("symbol", event.Symbol).
			Msg("failed to publish portfolio event")
	}
}
