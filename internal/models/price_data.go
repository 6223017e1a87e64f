package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for stored and exchanged dates
const DateLayout = "2006-01-02"

// PricePoint represents one daily closing price observation
type PricePoint struct {
	ID     int             `json:"id"`
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Price  decimal.Decimal `json:"price"`
}

// RawPriceRow is an unparsed history row as extracted from the external source.
// Date is in "Mon DD, YYYY" form and Close is the closing price text.
type RawPriceRow struct {
	Date  string `json:"date"`
	Close string `json:"close"`
}

// ChartSeries is the date-ordered price series of a symbol
type ChartSeries struct {
	Dates  []string  `json:"dates"`
	Prices []float64 `json:"prices"`
}

// NewChartSeries builds a chart series from date-ordered price points
func NewChartSeries(points []*PricePoint) *ChartSeries {
	series := &ChartSeries{
		Dates:  make([]string, 0, len(points)),
		Prices: make([]float64, 0, len(points)),
	}
	for _, p := range points {
		series.Dates = append(series.Dates, p.Date.Format(DateLayout))
		series.Prices = append(series.Prices, p.Price.InexactFloat64())
	}
	return series
}

// SkippedRow records a candidate row that could not be ingested
type SkippedRow struct {
	Index     int    `json:"index"`
	DateText  string `json:"date_text"`
	CloseText string `json:"close_text"`
	Reason    string `json:"reason"`
}

// IngestResult reports the outcome of ingesting a date range for a symbol
type IngestResult struct {
	Symbol   string       `json:"symbol"`
	Ingested int          `json:"ingested"`
	Skipped  []SkippedRow `json:"skipped,omitempty"`
}
