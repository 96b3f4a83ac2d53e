package api

import (
	"strconv"
	"time"

	models "MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler exposes the market data and sentiment endpoints over Echo.
type MarketHandler struct {
	logger      *xlogger.Logger
	market      *usecase.MarketDataService
	sentiment   *usecase.SentimentCalculator
	limiter     *ratelimit.Limiter
	environment string
	startedAt   time.Time
}

func NewMarketHandler(
	logger *xlogger.Logger,
	market *usecase.MarketDataService,
	sentiment *usecase.SentimentCalculator,
	limiter *ratelimit.Limiter,
	environment string,
) *MarketHandler {
	return &MarketHandler{
		logger:      logger,
		market:      market,
		sentiment:   sentiment,
		limiter:     limiter,
		environment: environment,
		startedAt:   time.Now(),
	}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/quote/:ticker", h.Quote)
	g.GET("/options/:ticker", h.OptionChain)
	g.GET("/history/:ticker", h.History)
	g.GET("/sentiment", h.Sentiment)
	g.GET("/status", h.Status)
}

func (h *MarketHandler) Quote(c echo.Context) error {
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.market.GetQuote(c.Request().Context(), req.Ticker)
	if err != nil {
		h.logger.Error("quote fetch failed", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return h.providerErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, envelope(out.Value, out.Provenance, out.ExpiresAt))
}

func (h *MarketHandler) OptionChain(c echo.Context) error {
	req := &models.OptionChainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.market.GetOptionChain(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("option chain fetch failed",
			xlogger.String("ticker", req.Ticker),
			xlogger.String("expiration", req.Expiration),
			xlogger.Error(err))
		return h.providerErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, envelope(out.Value, out.Provenance, out.ExpiresAt))
}

func (h *MarketHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.market.GetHistory(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("history fetch failed", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return h.providerErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, envelope(out.Value, out.Provenance, out.ExpiresAt))
}

func (h *MarketHandler) Sentiment(c echo.Context) error {
	req := &models.SentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.sentiment.Calculate(c.Request().Context(), req.ForceRefresh)
	if err != nil {
		h.logger.Error("sentiment computation failed", xlogger.Error(err))
		return h.providerErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, envelope(res, res.Provenance, time.Time{}))
}

func (h *MarketHandler) Status(c echo.Context) error {
	ttls := h.market.TTLs()
	report := &models.StatusReport{
		Environment: h.environment,
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
		Cache:       h.market.CacheStats(),
		RateLimiter: h.limiter.State(),
		TTLs: map[string]float64{
			"quote":     ttls.Quote.Seconds(),
			"chain":     ttls.Chain.Seconds(),
			"history":   ttls.History.Seconds(),
			"sentiment": ttls.Sentiment.Seconds(),
		},
	}
	return xhttp.SuccessResponse(c, report)
}

// providerErrorResponse maps the provider error taxonomy onto HTTP statuses.
// Rate-limit responses carry the retry-after hint when the upstream gave one.
func (h *MarketHandler) providerErrorResponse(c echo.Context, err error) error {
	switch models.KindOf(err) {
	case models.ErrKindNotFound:
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()).WithError(err))
	case models.ErrKindRateLimit:
		appErr := xhttp.TooManyRequestsError(err.Error()).WithError(err)
		if ra := models.RetryAfterOf(err); ra > 0 {
			c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(int(ra.Seconds())))
			appErr = appErr.WithParam("retry_after_seconds", ra.Seconds())
		}
		return xhttp.AppErrorResponse(c, appErr)
	case models.ErrKindTransport:
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(err.Error()).WithError(err))
	case models.ErrKindValidation:
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(err.Error()).WithError(err))
	case models.ErrKindAuth:
		// credentials are a server-side configuration problem, not the caller's
		return xhttp.AppErrorResponse(c, xhttp.InternalError("provider authentication failed").WithError(err))
	default:
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("unexpected error: %v", err))
	}
}

func envelope(data interface{}, p models.Provenance, expiresAt time.Time) *models.Envelope {
	env := &models.Envelope{
		Data:       data,
		Cached:     p != models.ProvenanceLive,
		Provenance: p,
	}
	if !expiresAt.IsZero() {
		env.CacheExpiresAt = &expiresAt
	}
	return env
}
