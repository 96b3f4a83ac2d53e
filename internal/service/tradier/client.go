package tradier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/ratelimit"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"
)

// Config holds provider connection settings. BaseURL is the sandbox or
// production endpoint selected by pkg/config.
type Config struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	MaxAttempts     int
	BackoffBase     time.Duration
	PenaltyCooldown time.Duration
}

// Client wraps the upstream provider's REST surface. Every call acquires a
// permit from the local limiter first; retries cover transport failures and
// 5xx only, with exponential backoff and jitter.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	logger  *xlogger.Logger
	metrics drepo.Metrics
}

// New creates a provider client.
func New(cfg Config, limiter *ratelimit.Limiter, logger *xlogger.Logger, metrics drepo.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.PenaltyCooldown <= 0 {
		cfg.PenaltyCooldown = 5 * time.Minute
	}
	return &Client{
		cfg:     cfg,
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		limiter: limiter,
		logger:  logger,
		metrics: metrics,
	}
}

var _ drepo.MarketDataProvider = (*Client)(nil)

// GetQuote fetches a current quote for ticker.
func (c *Client) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	body, err := c.call(ctx, "/v1/markets/quotes", map[string][]string{
		"symbols": {ticker},
	})
	if err != nil {
		return nil, err
	}
	var env quoteEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, models.NewValidationError("quote payload", err)
	}
	if env.Quotes.Quote == nil {
		return nil, models.NewNotFoundError(fmt.Sprintf("no quote for %s", ticker))
	}
	q, err := env.Quotes.Quote.toDomain()
	if err != nil {
		return nil, models.NewValidationError("quote payload", err)
	}
	return q, nil
}

// GetOptionChain fetches the contract set for one expiration, greeks included.
// UnderlyingPrice is left zero; the market data service enriches it from the
// quote path so the chain call stays a single request.
func (c *Client) GetOptionChain(ctx context.Context, ticker, expiration string) (*models.OptionChain, error) {
	body, err := c.call(ctx, "/v1/markets/options/chains", map[string][]string{
		"symbol":     {ticker},
		"expiration": {expiration},
		"greeks":     {"true"},
	})
	if err != nil {
		return nil, err
	}
	var env chainEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, models.NewValidationError("chain payload", err)
	}
	if len(env.Options.Option) == 0 {
		return nil, models.NewNotFoundError(fmt.Sprintf("no chain for %s exp %s", ticker, expiration))
	}
	contracts := make([]models.OptionContract, 0, len(env.Options.Option))
	for i := range env.Options.Option {
		oc, err := env.Options.Option[i].toDomain()
		if err != nil {
			return nil, models.NewValidationError("chain payload", err)
		}
		contracts = append(contracts, oc)
	}
	return &models.OptionChain{
		Underlying: ticker,
		Expiration: expiration,
		Contracts:  contracts,
	}, nil
}

// GetHistory fetches daily/weekly/monthly bars for the date range.
func (c *Client) GetHistory(ctx context.Context, ticker string, from, to time.Time, interval string) (*models.Series, error) {
	body, err := c.call(ctx, "/v1/markets/history", map[string][]string{
		"symbol":   {ticker},
		"interval": {drepo.NormalizeInterval(interval)},
		"start":    {from.Format("2006-01-02")},
		"end":      {to.Format("2006-01-02")},
	})
	if err != nil {
		return nil, err
	}
	var env historyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, models.NewValidationError("history payload", err)
	}
	if len(env.History.Day) == 0 {
		return nil, models.NewNotFoundError(fmt.Sprintf("no history for %s", ticker))
	}
	series, err := barsToSeries(ticker, interval, env.History.Day)
	if err != nil {
		return nil, models.NewValidationError("history payload", err)
	}
	return series, nil
}

// call acquires a permit, performs the request with retry/backoff, and
// classifies failures into the typed provider taxonomy.
func (c *Client) call(ctx context.Context, path string, query map[string][]string) ([]byte, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.cfg.BackoffBase * time.Duration(1<<(attempt-2))
			jitter := time.Duration(rand.Int63n(int64(backoff) + 1))
			select {
			case <-ctx.Done():
				return nil, models.NewTransportError(path, ctx.Err())
			case <-time.After(backoff + jitter):
			}
		}

		body, retryable, err := c.doOnce(ctx, path, query)
		if err == nil {
			c.metrics.RecordProviderCall(path, "ok")
			return body, nil
		}
		if !retryable {
			c.metrics.RecordProviderCall(path, string(models.KindOf(err)))
			return nil, err
		}
		lastErr = err
		c.logger.Warn("provider call retry",
			xlogger.String("path", path),
			xlogger.Int("attempt", attempt),
			xlogger.Error(err),
		)
	}
	c.metrics.RecordProviderCall(path, "exhausted")
	return nil, lastErr
}

func (c *Client) acquire(ctx context.Context) error {
	if drepo.BestEffort(ctx) {
		ok, retryAfter := c.limiter.TryAcquire()
		if !ok {
			return models.NewRateLimitError("local rate limit exhausted", retryAfter)
		}
		return nil
	}
	start := time.Now()
	if err := c.limiter.Acquire(ctx); err != nil {
		// caller gave up while waiting; not a quota condition
		return err
	}
	c.metrics.RecordLimiterWait(time.Since(start).Seconds())
	return nil
}

// doOnce performs a single attempt. The bool result reports retryability.
func (c *Client) doOnce(ctx context.Context, path string, query map[string][]string) ([]byte, bool, error) {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.cfg.BaseURL + path,
		Headers: map[string]string{
			"Accept":        "application/json",
			"Authorization": "Bearer " + c.cfg.APIKey,
		},
		QueryParams: query,
	})
	if err != nil {
		return nil, true, models.NewTransportError(path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, models.NewTransportError(path, err)
		}
		return body, false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, models.NewAuthError(fmt.Sprintf("provider rejected credentials (%d)", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, models.NewNotFoundError(path)
	case resp.StatusCode == http.StatusTooManyRequests:
		// upstream quota is authoritative: tighten the local limiter
		c.limiter.Penalize(c.cfg.PenaltyCooldown)
		return nil, false, models.NewRateLimitError("provider quota exhausted", parseRetryAfter(resp))
	case resp.StatusCode >= 500:
		return nil, true, models.NewTransportError(fmt.Sprintf("%s: status %d", path, resp.StatusCode), nil)
	default:
		return nil, false, models.NewValidationError(fmt.Sprintf("%s: unexpected status %d", path, resp.StatusCode), nil)
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Minute
}
