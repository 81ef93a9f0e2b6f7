package domain

import "time"

// ExchangeStat is one venue's contribution to an aggregated symbol view.
type ExchangeStat struct {
	Name            string    `json:"name"`
	Price           float64   `json:"price"`
	FundingRate     float64   `json:"fundingRate"`
	NextFundingTime time.Time `json:"nextFundingTime"`
	OpenInterest    float64   `json:"openInterest"` // USD, post-normalisation
	URL             string    `json:"url"`
}

// AggregatedStats is the cross-venue result for one base symbol (e.g. "BTC").
// It is value-typed and never persisted beyond the cache TTL.
type AggregatedStats struct {
	Symbol           string         `json:"symbol"`
	TotalOpenInterest float64       `json:"totalOpenInterest"`
	AvgPrice         float64        `json:"avgPrice"`
	Exchanges        []ExchangeStat `json:"exchanges"`
}

// OISurge is emitted when the aggregate open interest for a symbol moves by
// at least the configured threshold since the last scan.
type OISurge struct {
	Symbol        string
	PreviousOI    float64
	CurrentOI     float64
	PercentChange float64
	Price         float64
}

// LongShortRatio is the top-account long/short ratio for a symbol, sourced
// from Binance's topLongShortAccountRatio endpoint.
type LongShortRatio struct {
	Symbol     string
	LongRatio  float64
	ShortRatio float64
	Timestamp  time.Time
}

// FundingRanking is one row of the global top-funding leaderboard.
type FundingRanking struct {
	Symbol      string
	Venue       string
	FundingRate float64
}
