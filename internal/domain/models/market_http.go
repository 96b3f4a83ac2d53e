package models

import "time"

// Requests for the market data HTTP endpoints. Defined in domain for consistency and reuse.

type QuoteRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,min=1,max=12"`
}

type OptionChainRequest struct {
	Ticker      string  `param:"ticker" json:"ticker" validate:"required,min=1,max=12"`
	Expiration  string  `query:"expiration" json:"expiration" validate:"required"`
	Type        string  `query:"type" json:"type" default:"all" validate:"oneof=all call put"`
	StrikeBelow float64 `query:"strike_below" json:"strike_below" validate:"gte=0"`
	StrikeAbove float64 `query:"strike_above" json:"strike_above" validate:"gte=0"`
}

type HistoryRequest struct {
	Ticker   string `param:"ticker" json:"ticker" validate:"required,min=1,max=12"`
	From     string `query:"from" json:"from" validate:"required"`
	To       string `query:"to" json:"to" validate:"required"`
	Interval string `query:"interval" json:"interval" default:"daily" validate:"oneof=daily weekly monthly"`
	Limit    int    `query:"limit" json:"limit" default:"250" validate:"gte=1,lte=2000"`
}

type SentimentRequest struct {
	ForceRefresh bool `query:"force_refresh" json:"force_refresh"`
}

// Envelope wraps a domain payload with cache provenance metadata.
type Envelope struct {
	Data           interface{} `json:"data"`
	Cached         bool        `json:"cached"`
	Provenance     Provenance  `json:"provenance"`
	CacheExpiresAt *time.Time  `json:"cache_expires_at,omitempty"`
}

// StatusReport is the get_status payload.
type StatusReport struct {
	Environment string             `json:"environment"`
	Uptime      string             `json:"uptime"`
	Cache       CacheStats         `json:"cache"`
	RateLimiter RateLimiterState   `json:"rate_limiter"`
	TTLs        map[string]float64 `json:"ttl_seconds"`
}

// CacheStats is the cache hit/miss/size snapshot.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// RateLimiterState is a limiter snapshot for status reporting.
type RateLimiterState struct {
	Tokens     float64 `json:"tokens"`
	Capacity   float64 `json:"capacity"`
	RefillRate float64 `json:"refill_per_sec"`
}
