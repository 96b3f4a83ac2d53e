package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	drepo "MarketPulse/internal/domain/repository"
	icache "MarketPulse/internal/service/cache"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	sentiment  *usecase.SentimentCalculator
	cache      *icache.TTLCache
	httpServer *xhttp.Server
	closers    []func() error
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	sentiment *usecase.SentimentCalculator,
	cache *icache.TTLCache,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		handler:   handler,
		sentiment: sentiment,
		cache:     cache,
	}
}

// AddCloser registers a resource to close on shutdown.
func (a *App) AddCloser(fn func() error) { a.closers = append(a.closers, fn) }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("environment", a.cfg.Environment),
	)

	if a.cfg.Sentiment.RefreshInterval > 0 {
		go a.refreshSentiment(ctx, a.cfg.Sentiment.RefreshInterval)
		a.logger.Info("sentiment scheduler started",
			applogger.Duration("interval_ms", a.cfg.Sentiment.RefreshInterval))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// refreshSentiment keeps the cached decision warm so interactive requests
// rarely pay the full computation. Ticks acquire limiter tokens best-effort:
// a drained bucket skips the refresh instead of queueing behind callers.
func (a *App) refreshSentiment(ctx context.Context, interval time.Duration) {
	ctx = drepo.WithBestEffort(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.sentiment.Calculate(ctx, true); err != nil {
				a.logger.Warn("scheduled sentiment refresh failed", applogger.Error(err))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.cache != nil {
		a.cache.Close()
	}
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.logger.Warn("resource close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
