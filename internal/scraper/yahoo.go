// Package scraper fetches daily price history rows from the finance site's
// history page.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

const (
	DefaultBaseURL   = "https://finance.yahoo.com"
	DefaultUserAgent = "Mozilla/5.0"

	// history table columns: Date, Open, High, Low, Close, Adj Close, Volume
	minColumns  = 6
	dateColumn  = 0
	closeColumn = 4
)

// Config configures a Client
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Debug     bool
}

// Client scrapes the history table of a quote page
type Client struct {
	client *resty.Client
}

// New creates a new Client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	client := resty.New().
		SetDebug(cfg.Debug).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("User-Agent", cfg.UserAgent)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Client{client: client}
}

// FetchHistory returns the candidate history rows for symbol between start
// and end. Rows are returned as found, unparsed; rows with too few cells are
// dropped here since they are dividend or split notices.
func (c *Client) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.RawPriceRow, error) {
	logger := zerolog.Ctx(ctx)
	params := map[string]string{
		"period1":   strconv.FormatInt(utcMidnight(start).Unix(), 10),
		"period2":   strconv.FormatInt(utcMidnight(end).Unix(), 10),
		"interval":  "1d",
		"filter":    "history",
		"frequency": "1d",
	}

	logger.Debug().Str("symbol", symbol).Interface("params", params).Msg("fetching price history")

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		SetPathParam("symbol", symbol).
		SetQueryParams(params).
		Get("/quote/{symbol}/history")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch history for %s: unexpected status %s", symbol, resp.Status())
	}

	rows, err := ParseHistoryTable(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to parse history for %s: %w", symbol, err)
	}

	logger.Debug().Str("symbol", symbol).Int("rows", len(rows)).Msg("fetched price history")
	return rows, nil
}

// ParseHistoryTable extracts (date, close) text from every `table tbody tr`
// row that has at least six cells
func ParseHistoryTable(page []byte) ([]models.RawPriceRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var rows []models.RawPriceRow
	doc.Find("table tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < minColumns {
			return
		}
		rows = append(rows, models.RawPriceRow{
			Date:  strings.TrimSpace(cells.Eq(dateColumn).Text()),
			Close: strings.TrimSpace(cells.Eq(closeColumn).Text()),
		})
	})
	return rows, nil
}

func utcMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
