package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	icache "MarketPulse/internal/service/cache"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/config"
	applogger "MarketPulse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordProviderCall(string, string) {}
func (nopMetrics) RecordCacheLookup(string, bool)    {}
func (nopMetrics) RecordLimiterWait(float64)         {}
func (nopMetrics) RecordSentiment(string, float64)   {}
func (nopMetrics) RecordLatency(string, float64)     {}

// markerProvider records whether the first call arrived on a best-effort
// context, then fails so the refresh loop completes quickly.
type markerProvider struct {
	once       sync.Once
	called     chan struct{}
	bestEffort bool
}

func (p *markerProvider) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	p.once.Do(func() {
		p.bestEffort = drepo.BestEffort(ctx)
		close(p.called)
	})
	return nil, models.NewTransportError("unavailable", nil)
}

func (p *markerProvider) GetOptionChain(ctx context.Context, ticker, expiration string) (*models.OptionChain, error) {
	return nil, models.NewTransportError("unavailable", nil)
}

func (p *markerProvider) GetHistory(ctx context.Context, ticker string, from, to time.Time, interval string) (*models.Series, error) {
	return nil, models.NewTransportError("unavailable", nil)
}

func TestRefreshSentimentRunsBestEffort(t *testing.T) {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	p := &markerProvider{called: make(chan struct{})}
	c := icache.NewTTLCache(icache.WithSweepInterval(0))
	defer c.Close()

	market := usecase.NewMarketDataService(p, c, nil, usecase.DefaultTTLs(), l, nopMetrics{})
	calc := usecase.NewSentimentCalculator(market, usecase.DefaultSentimentConfig(), l, nopMetrics{})
	app := New(&config.Config{}, l, nil, calc, c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.refreshSentiment(ctx, 5*time.Millisecond)

	select {
	case <-p.called:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never reached the provider")
	}
	if !p.bestEffort {
		t.Fatal("scheduled refresh must acquire limiter tokens best-effort")
	}
}
