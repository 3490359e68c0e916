package domain

import "time"

// PriceQuote is a single source's observation of an asset price in USD.
// Quotes are ephemeral; they are consumed by aggregation and never persisted.
type PriceQuote struct {
	Price     float64
	Timestamp time.Time
	Source    string
}

// AggregatedPrice is the trusted output of multi-source aggregation.
type AggregatedPrice struct {
	Price        float64
	Timestamp    time.Time
	SourcesUsed  int
	MaxDeviation float64
}
