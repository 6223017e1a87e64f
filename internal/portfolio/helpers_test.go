package portfolio

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/database/sqlite"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

var (
	_ Store = (*database.DB)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// fakeFetcher returns canned rows per symbol and records its calls
type fakeFetcher struct {
	mu    sync.Mutex
	rows  map[string][]models.RawPriceRow
	err   error
	calls []fetchCall
}

type fetchCall struct {
	Symbol     string
	Start, End time.Time
}

func (f *fakeFetcher) FetchHistory(_ context.Context, symbol string, start, end time.Time) ([]models.RawPriceRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{Symbol: symbol, Start: start, End: end})
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[symbol], nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.PortfolioEvent
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, event models.PortfolioEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

var fixedNow = time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, fetcher *fakeFetcher, opts ...Option) (*Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "portfolio.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(store, fetcher, opts...), store
}
