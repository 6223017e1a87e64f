package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Fetcher retrieves raw history rows
type Fetcher interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.RawPriceRow, error)
}

// CachedFetcher serves repeated history fetches from redis. Any redis error
// falls through to the wrapped fetcher.
type CachedFetcher struct {
	next   Fetcher
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCachedFetcher wraps next with a redis cache
func NewCachedFetcher(next Fetcher, client *redis.Client, prefix string, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{next: next, redis: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient connects to redis and pings it
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Key returns the cache key for a fetch
func (c *CachedFetcher) Key(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s:history:%s:%s:%s", c.prefix, symbol,
		start.Format(models.DateLayout), end.Format(models.DateLayout))
}

// FetchHistory returns cached rows when present, otherwise fetches and caches
// a non-empty result
func (c *CachedFetcher) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.RawPriceRow, error) {
	logger := zerolog.Ctx(ctx)
	key := c.Key(symbol, start, end)

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rows []models.RawPriceRow
		if err := json.Unmarshal(cached, &rows); err == nil {
			logger.Debug().Str("key", key).Int("rows", len(rows)).Msg("history cache hit")
			return rows, nil
		}
		logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		logger.Warn().Err(err).Str("key", key).Msg("history cache read failed")
	}

	rows, err := c.next.FetchHistory(ctx, symbol, start, end)
	if err != nil || len(rows) == 0 {
		return rows, err
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return rows, nil
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("history cache write failed")
	}
	return rows, nil
}
