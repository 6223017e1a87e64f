package models

import "time"

// Portfolio event type constants
const (
	EventPositionAdded   = "POSITION_ADDED"
	EventPositionRemoved = "POSITION_REMOVED"
	EventSharesAdjusted  = "SHARES_ADJUSTED"
	EventPricesIngested  = "PRICES_INGESTED"
)

// PortfolioEvent represents a Kafka event for portfolio changes
type PortfolioEvent struct {
	EventType string    `json:"event_type"`
	Symbol    string    `json:"symbol"`
	Shares    *int64    `json:"shares,omitempty"`
	Ingested  *int      `json:"ingested,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestRequestEvent asks the service to ingest a date range for a symbol.
// Start and End use DateLayout.
type IngestRequestEvent struct {
	Symbol string `json:"symbol"`
	Start  string `json:"start"`
	End    string `json:"end"`
}
