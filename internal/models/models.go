// Package models holds the data types passed between providers, services and the tool surface.
package models

import "time"

// QuoteInfo is the raw profile a quote provider returns for one symbol.
// Providers leave a field nil when the upstream response does not carry it.
type QuoteInfo struct {
	Symbol              string
	CurrentPrice        *float64
	MarketCap           *int64
	TrailingPE          *float64
	RecommendationKey   *string
	LongBusinessSummary *string
}

// Snapshot is the point-in-time quote returned by get_stock_data.
// Field order is the serialized key order.
type Snapshot struct {
	Symbol          string   `json:"symbol"`
	CurrentPrice    *float64 `json:"current_price"`
	MarketCap       *int64   `json:"market_cap"`
	PERatio         *float64 `json:"pe_ratio"`
	Recommendation  *string  `json:"recommendation"`
	BusinessSummary *string  `json:"business_summary"`
}

// NewsItem is a single news search hit
type NewsItem struct {
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	Excerpt   string    `json:"excerpt,omitempty"`
	Published time.Time `json:"published,omitempty"`
}
