package usecase

import (
	"context"
	"encoding/json"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	icache "MarketPulse/internal/service/cache"
	pkgcache "MarketPulse/pkg/cache"
	xlogger "MarketPulse/pkg/logger"
	xutil "MarketPulse/pkg/util"

	"golang.org/x/sync/singleflight"
)

// TTLConfig holds the per-data-type cache lifetimes.
type TTLConfig struct {
	Quote     time.Duration
	Chain     time.Duration
	History   time.Duration
	Sentiment time.Duration
}

// DefaultTTLs returns the documented defaults.
func DefaultTTLs() TTLConfig {
	return TTLConfig{
		Quote:     60 * time.Second,
		Chain:     5 * time.Minute,
		History:   time.Hour,
		Sentiment: 5 * time.Minute,
	}
}

// Provenanced pairs a payload with its cache provenance.
type Provenanced[T any] struct {
	Value      T
	Provenance models.Provenance
	ExpiresAt  time.Time // zero when unknown (stale fallback past expiry)
}

// Cached reports whether the value was served from cache (fresh or stale).
func (p Provenanced[T]) Cached() bool { return p.Provenance != models.ProvenanceLive }

// MarketDataService orchestrates cache-aside access to provider data. It is
// the exclusive owner of cache content; consumers read through its accessors.
type MarketDataService struct {
	provider drepo.MarketDataProvider
	cache    *icache.TTLCache
	l2       pkgcache.Service // optional redis mirror, may be nil
	ttls     TTLConfig
	group    singleflight.Group
	logger   *xlogger.Logger
	metrics  drepo.Metrics
}

// NewMarketDataService wires the service. l2 may be nil.
func NewMarketDataService(
	provider drepo.MarketDataProvider,
	cache *icache.TTLCache,
	l2 pkgcache.Service,
	ttls TTLConfig,
	logger *xlogger.Logger,
	metrics drepo.Metrics,
) *MarketDataService {
	return &MarketDataService{
		provider: provider,
		cache:    cache,
		l2:       l2,
		ttls:     ttls,
		logger:   logger,
		metrics:  metrics,
	}
}

// GetQuote returns the quote for ticker, cache-aside with the quote TTL.
func (s *MarketDataService) GetQuote(ctx context.Context, ticker string) (Provenanced[*models.Quote], error) {
	key := drepo.CacheKey(drepo.DataQuote, ticker, nil)
	v, err := fetch(ctx, s, key, string(drepo.DataQuote), s.ttls.Quote,
		func(b []byte) (*models.Quote, error) {
			var q models.Quote
			if err := json.Unmarshal(b, &q); err != nil {
				return nil, err
			}
			return &q, nil
		},
		func(fctx context.Context) (*models.Quote, error) {
			return s.provider.GetQuote(fctx, ticker)
		},
	)
	return v, err
}

// GetOptionChain returns the chain for one expiration, enriched with the
// underlying price through the quote path. Type and strike filters are
// request-level: all filter variants share the same cached chain.
func (s *MarketDataService) GetOptionChain(ctx context.Context, req *models.OptionChainRequest) (Provenanced[*models.OptionChain], error) {
	expiration := xutil.CanonicalDate(req.Expiration)
	key := drepo.CacheKey(drepo.DataChain, req.Ticker, map[string]string{"expiration": expiration})

	out, err := fetch(ctx, s, key, string(drepo.DataChain), s.ttls.Chain,
		func(b []byte) (*models.OptionChain, error) {
			var c models.OptionChain
			if err := json.Unmarshal(b, &c); err != nil {
				return nil, err
			}
			return &c, nil
		},
		func(fctx context.Context) (*models.OptionChain, error) {
			return s.provider.GetOptionChain(fctx, req.Ticker, expiration)
		},
	)
	if err != nil {
		return out, err
	}

	chain := filterChain(out.Value, req)
	if q, qerr := s.GetQuote(ctx, req.Ticker); qerr == nil {
		chain.UnderlyingPrice = q.Value.Last
		if q.Provenance.Degraded(out.Provenance) {
			out.Provenance = q.Provenance
		}
	} else {
		s.logger.Warn("chain underlying price unavailable",
			xlogger.String("ticker", req.Ticker), xlogger.Error(qerr))
	}
	out.Value = chain
	return out, nil
}

// GetHistory returns bars for the date range, trimmed to the last limit bars.
func (s *MarketDataService) GetHistory(ctx context.Context, req *models.HistoryRequest) (Provenanced[*models.Series], error) {
	from, to := xutil.CanonicalDate(req.From), xutil.CanonicalDate(req.To)
	interval := drepo.NormalizeInterval(req.Interval)
	key := drepo.CacheKey(drepo.DataHistory, req.Ticker, map[string]string{
		"from": from, "to": to, "interval": interval,
	})

	out, err := fetch(ctx, s, key, string(drepo.DataHistory), s.ttls.History,
		func(b []byte) (*models.Series, error) {
			var sr models.Series
			if err := json.Unmarshal(b, &sr); err != nil {
				return nil, err
			}
			return &sr, nil
		},
		func(fctx context.Context) (*models.Series, error) {
			fromT, _ := time.Parse("2006-01-02", from)
			toT, _ := time.Parse("2006-01-02", to)
			return s.provider.GetHistory(fctx, req.Ticker, fromT, toT, interval)
		},
	)
	if err != nil {
		return out, err
	}
	if req.Limit > 0 && len(out.Value.Bars) > req.Limit {
		trimmed := *out.Value
		trimmed.Bars = trimmed.Bars[len(trimmed.Bars)-req.Limit:]
		out.Value = &trimmed
	}
	return out, nil
}

// CachedSentiment returns the cached sentiment result if still fresh.
// Accessor for the calculator; it never touches the cache directly.
func (s *MarketDataService) CachedSentiment() (*models.SentimentResult, bool) {
	key := drepo.CacheKey(drepo.DataSentiment, "market", nil)
	v, found, _ := s.cache.Get(key)
	if !found {
		return nil, false
	}
	r, ok := v.(*models.SentimentResult)
	return r, ok
}

// StoreSentiment caches a freshly computed result under the sentiment TTL.
func (s *MarketDataService) StoreSentiment(r *models.SentimentResult) {
	key := drepo.CacheKey(drepo.DataSentiment, "market", nil)
	s.cache.Set(key, r, s.ttls.Sentiment)
}

// CacheStats snapshots hit/miss/size counters for get_status.
func (s *MarketDataService) CacheStats() models.CacheStats { return s.cache.Stats() }

// TTLs exposes the configured lifetimes for status reporting.
func (s *MarketDataService) TTLs() TTLConfig { return s.ttls }

// fetch is the generic cache-aside core. Lookup order: fresh L1 entry, redis
// mirror, then a single-flight provider call. On a fallbackable failure the
// stale L1 entry is served instead of the error. The provider call runs on a
// context detached from the caller so an abandoning waiter does not cancel
// the shared fetch.
func fetch[T any](
	ctx context.Context,
	s *MarketDataService,
	key, dataType string,
	ttl time.Duration,
	decode func([]byte) (T, error),
	call func(context.Context) (T, error),
) (Provenanced[T], error) {
	var out Provenanced[T]

	start := time.Now()
	defer func() { s.metrics.RecordLatency(dataType, time.Since(start).Seconds()) }()

	if v, found, _ := s.cache.Get(key); found {
		s.metrics.RecordCacheLookup(dataType, true)
		out.Value = v.(T)
		out.Provenance = models.ProvenanceCached
		out.ExpiresAt, _ = s.cache.ExpiresAt(key)
		return out, nil
	}
	s.metrics.RecordCacheLookup(dataType, false)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// a waiter released after the winning flight may find L1 warm now
		if v, ok := s.cache.Peek(key); ok {
			return v, nil
		}
		if s.l2 != nil {
			var raw string
			if err := s.l2.Get(ctx, key, &raw); err == nil && raw != "" {
				if dv, derr := decode([]byte(raw)); derr == nil {
					s.cache.Set(key, dv, ttl)
					return dv, nil
				}
			}
		}

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
		defer cancel()
		fetched, ferr := call(fctx)
		if ferr != nil {
			return nil, ferr
		}
		s.cache.Set(key, fetched, ttl)
		if s.l2 != nil {
			if b, merr := json.Marshal(fetched); merr == nil {
				_ = s.l2.Set(ctx, key, string(b), ttl)
			}
		}
		return fetched, nil
	})
	if err != nil {
		if models.IsFallbackable(err) {
			if sv, ok := s.cache.GetStale(key); ok {
				s.logger.Warn("serving stale fallback",
					xlogger.String("key", key), xlogger.Error(err))
				out.Value = sv.(T)
				out.Provenance = models.ProvenanceStaleFallback
				out.ExpiresAt, _ = s.cache.ExpiresAt(key)
				return out, nil
			}
		}
		return out, err
	}

	out.Value = v.(T)
	out.Provenance = models.ProvenanceLive
	out.ExpiresAt, _ = s.cache.ExpiresAt(key)
	return out, nil
}

func filterChain(chain *models.OptionChain, req *models.OptionChainRequest) *models.OptionChain {
	filtered := *chain
	if req.Type == "all" && req.StrikeBelow == 0 && req.StrikeAbove == 0 {
		return &filtered
	}
	contracts := make([]models.OptionContract, 0, len(chain.Contracts))
	for _, oc := range chain.Contracts {
		if req.Type != "all" && string(oc.Type) != req.Type {
			continue
		}
		if req.StrikeBelow > 0 && oc.Strike > req.StrikeBelow {
			continue
		}
		if req.StrikeAbove > 0 && oc.Strike < req.StrikeAbove {
			continue
		}
		contracts = append(contracts, oc)
	}
	filtered.Contracts = contracts
	return &filtered
}
