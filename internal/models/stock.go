package models

// Position represents a tracked stock symbol and the shares currently held
type Position struct {
	ID     int    `json:"id"`
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}

// PortfolioSummary is the aggregate view over all positions and price history
type PortfolioSummary struct {
	TotalShares     int64  `json:"total_shares"`
	TotalStocks     int    `json:"total_stocks"`
	LatestPriceDate string `json:"latest_price_date"`
}

// NoPriceDataSentinel is reported as LatestPriceDate when no price rows exist
const NoPriceDataSentinel = "N/A"
