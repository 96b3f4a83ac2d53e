package repository

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
)

// MarketDataProvider is the upstream provider call surface. Implementations
// classify failures into models.ProviderError kinds.
type MarketDataProvider interface {
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)
	GetOptionChain(ctx context.Context, ticker, expiration string) (*models.OptionChain, error)
	GetHistory(ctx context.Context, ticker string, from, to time.Time, interval string) (*models.Series, error)
}

// Metrics abstracts the metrics recorder so usecases stay backend-agnostic.
type Metrics interface {
	RecordProviderCall(endpoint, outcome string)
	RecordCacheLookup(dataType string, hit bool)
	RecordLimiterWait(seconds float64)
	RecordSentiment(decision string, score float64)
	RecordLatency(op string, seconds float64)
}
