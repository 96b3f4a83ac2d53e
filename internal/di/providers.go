package di

import (
	"fmt"
	"net"
	"strconv"

	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	icache "MarketPulse/internal/service/cache"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/internal/service/tradier"
	"MarketPulse/internal/usecase"
	pkgcache "MarketPulse/pkg/cache"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	"MarketPulse/pkg/server"
)

const (
	sandboxBaseURL    = "https://sandbox.tradier.com"
	productionBaseURL = "https://api.tradier.com"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	l, err := applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLimiter creates the token bucket guarding provider calls.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerMin/60)
}

// ProvideTTLCache creates the in-process market data cache.
func ProvideTTLCache(cfg *config.Config) *icache.TTLCache {
	return icache.NewTTLCache(
		icache.WithRetention(cfg.Cache.StaleRetention),
		icache.WithSweepInterval(cfg.Cache.SweepInterval),
	)
}

// ProvideRedisCache creates the optional redis mirror. Returns nil when
// disabled; the market data service treats nil as "no second layer".
func ProvideRedisCache(cfg *config.Config, logger *applogger.Logger) (pkgcache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, nil
	}
	host, port := splitHostPort(cfg.Cache.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	logger.Info("redis cache connected", applogger.String("addr", cfg.Cache.Redis.Addr))
	return rc, nil
}

// ProvideProvider creates the upstream market data client.
func ProvideProvider(
	cfg *config.Config,
	limiter *ratelimit.Limiter,
	logger *applogger.Logger,
	m repository.Metrics,
) repository.MarketDataProvider {
	baseURL := sandboxBaseURL
	if cfg.Tradier.Environment == "production" {
		baseURL = productionBaseURL
	}
	return tradier.New(tradier.Config{
		APIKey:          cfg.Tradier.APIKey,
		BaseURL:         baseURL,
		Timeout:         cfg.Tradier.Timeout,
		MaxAttempts:     cfg.Tradier.MaxAttempts,
		BackoffBase:     cfg.Tradier.BackoffBase,
		PenaltyCooldown: cfg.Tradier.PenaltyCooldown,
	}, limiter, logger, m)
}

// ProvideMarketDataService creates the cache-aside orchestrator.
func ProvideMarketDataService(
	cfg *config.Config,
	provider repository.MarketDataProvider,
	cache *icache.TTLCache,
	l2 pkgcache.Service,
	logger *applogger.Logger,
	m repository.Metrics,
) *usecase.MarketDataService {
	ttls := usecase.TTLConfig{
		Quote:     cfg.Cache.QuoteTTL,
		Chain:     cfg.Cache.ChainTTL,
		History:   cfg.Cache.HistoryTTL,
		Sentiment: cfg.Cache.SentimentTTL,
	}
	return usecase.NewMarketDataService(provider, cache, l2, ttls, logger, m)
}

// ProvideSentimentCalculator creates the decision engine.
func ProvideSentimentCalculator(
	cfg *config.Config,
	market *usecase.MarketDataService,
	logger *applogger.Logger,
	m repository.Metrics,
) *usecase.SentimentCalculator {
	sc := usecase.SentimentConfig{
		Underlying:     cfg.Sentiment.Underlying,
		VIXTicker:      cfg.Sentiment.VIXTicker,
		FuturesTicker:  cfg.Sentiment.FuturesTicker,
		VIXLow:         cfg.Sentiment.VIXLow,
		VIXHigh:        cfg.Sentiment.VIXHigh,
		FuturesBullish: cfg.Sentiment.FuturesBullish,
		RSIPeriod:      cfg.Sentiment.RSIPeriod,
		RSIUpper:       cfg.Sentiment.RSIUpper,
		RSILower:       cfg.Sentiment.RSILower,
		MAPeriod:       cfg.Sentiment.MAPeriod,
		BollPeriod:     cfg.Sentiment.BollPeriod,
		BollStdDev:     cfg.Sentiment.BollStdDev,
		BollInnerRange: cfg.Sentiment.BollInnerRange,
		MinScore:       cfg.Sentiment.MinScore,
		HistoryDays:    cfg.Sentiment.HistoryDays,
	}
	return usecase.NewSentimentCalculator(market, sc, logger, m)
}

// ProvideHandler creates the HTTP route surface.
func ProvideHandler(
	cfg *config.Config,
	logger *applogger.Logger,
	market *usecase.MarketDataService,
	sentiment *usecase.SentimentCalculator,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return api.NewMarketHandler(logger, market, sentiment, limiter, cfg.Environment)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	sentiment *usecase.SentimentCalculator,
	cache *icache.TTLCache,
	l2 pkgcache.Service,
) *server.App {
	app := server.New(cfg, logger, handler, sentiment, cache)
	if rc, ok := l2.(*pkgcache.RedisCache); ok && rc != nil {
		app.AddCloser(rc.Close)
	}
	return app
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
