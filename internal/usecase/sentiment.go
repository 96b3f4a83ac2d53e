package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/indicators"
	xlogger "MarketPulse/pkg/logger"
)

// SentimentConfig holds the scoring thresholds. All thresholds are
// configuration, tuned for one instrument class (0-DTE index options).
type SentimentConfig struct {
	Underlying    string
	VIXTicker     string
	FuturesTicker string

	VIXLow         float64
	VIXHigh        float64
	FuturesBullish float64 // overnight % move

	RSIPeriod int
	RSIUpper  float64
	RSILower  float64

	MAPeriod int

	BollPeriod     int
	BollStdDev     float64
	BollInnerRange float64 // fraction of the band range treated as "inside"

	MinScore    float64
	HistoryDays int
}

// DefaultSentimentConfig returns the documented defaults.
func DefaultSentimentConfig() SentimentConfig {
	return SentimentConfig{
		Underlying:     "SPY",
		VIXTicker:      "VIX",
		FuturesTicker:  "ES",
		VIXLow:         16,
		VIXHigh:        20,
		FuturesBullish: 0.1,
		RSIPeriod:      14,
		RSIUpper:       70,
		RSILower:       30,
		MAPeriod:       20,
		BollPeriod:     20,
		BollStdDev:     2,
		BollInnerRange: 0.8,
		MinScore:       60,
		HistoryDays:    60,
	}
}

// component weights; they sum to 100 so the aggregate is bounded.
const (
	weightVIX       = 20.0
	weightFutures   = 20.0
	weightRSI       = 20.0
	weightMA        = 20.0
	weightBollinger = 20.0
)

// SentimentInputs are the raw signals feeding the pure scoring function.
type SentimentInputs struct {
	VIX              float64
	HasVIX           bool
	FuturesChangePct float64
	HasFutures       bool
	RSI              float64
	Price            float64
	SMA              float64
	Bands            indicators.Bands
}

// SentimentCalculator aggregates market data into a single decision. Reads go
// exclusively through the market data service accessors.
type SentimentCalculator struct {
	market  *MarketDataService
	cfg     SentimentConfig
	logger  *xlogger.Logger
	metrics drepo.Metrics
	now     func() time.Time
}

// NewSentimentCalculator wires the calculator.
func NewSentimentCalculator(market *MarketDataService, cfg SentimentConfig, logger *xlogger.Logger, metrics drepo.Metrics) *SentimentCalculator {
	return &SentimentCalculator{
		market:  market,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock overrides the wall clock. Test hook.
func (c *SentimentCalculator) WithClock(now func() time.Time) *SentimentCalculator {
	c.now = now
	return c
}

// Calculate computes (or returns the cached) sentiment result. force bypasses
// the cache read but only a successful recompute replaces the stored entry, so
// a failed forced refresh leaves any still-fresh result servable.
func (c *SentimentCalculator) Calculate(ctx context.Context, force bool) (*models.SentimentResult, error) {
	if !force {
		if cached, ok := c.market.CachedSentiment(); ok {
			return cached, nil
		}
	}

	inputs, provenance, err := c.gather(ctx)
	if err != nil {
		return nil, err
	}

	result := ScoreSentiment(inputs, c.cfg, c.now())
	result.Provenance = provenance
	c.market.StoreSentiment(result)
	c.metrics.RecordSentiment(string(result.Decision), result.Score)
	c.logger.Info("sentiment computed",
		xlogger.String("decision", string(result.Decision)),
		xlogger.Any("score", result.Score),
		xlogger.String("provenance", string(provenance)),
	)
	return result, nil
}

// gather pulls every raw input through the market data service and tracks the
// most degraded provenance seen.
func (c *SentimentCalculator) gather(ctx context.Context) (SentimentInputs, models.Provenance, error) {
	var in SentimentInputs
	provenance := models.ProvenanceLive

	worst := func(p models.Provenance) {
		if p.Degraded(provenance) {
			provenance = p
		}
	}

	quote, err := c.market.GetQuote(ctx, c.cfg.Underlying)
	if err != nil {
		return in, provenance, fmt.Errorf("underlying quote: %w", err)
	}
	worst(quote.Provenance)
	in.Price = quote.Value.Last

	to := c.now()
	from := to.AddDate(0, 0, -c.cfg.HistoryDays)
	history, err := c.market.GetHistory(ctx, &models.HistoryRequest{
		Ticker:   c.cfg.Underlying,
		From:     from.Format("2006-01-02"),
		To:       to.Format("2006-01-02"),
		Interval: "daily",
	})
	if err != nil {
		return in, provenance, fmt.Errorf("underlying history: %w", err)
	}
	worst(history.Provenance)

	closes := history.Value.Closes()
	in.RSI, err = indicators.RSI(closes, c.cfg.RSIPeriod)
	if err != nil {
		return in, provenance, fmt.Errorf("rsi: %w", err)
	}
	in.SMA, err = indicators.SMA(closes, c.cfg.MAPeriod)
	if err != nil {
		return in, provenance, fmt.Errorf("sma: %w", err)
	}
	in.Bands, err = indicators.Bollinger(closes, c.cfg.BollPeriod, c.cfg.BollStdDev)
	if err != nil {
		return in, provenance, fmt.Errorf("bollinger: %w", err)
	}

	// VIX and futures are optional feeds: unconfigured tickers degrade to the
	// fixed neutral placeholder rather than failing the whole computation.
	if c.cfg.VIXTicker != "" {
		vix, err := c.market.GetQuote(ctx, c.cfg.VIXTicker)
		if err != nil {
			return in, provenance, fmt.Errorf("vix quote: %w", err)
		}
		worst(vix.Provenance)
		in.VIX = vix.Value.Last
		in.HasVIX = true
	}
	if c.cfg.FuturesTicker != "" {
		fut, err := c.market.GetQuote(ctx, c.cfg.FuturesTicker)
		if err != nil {
			return in, provenance, fmt.Errorf("futures quote: %w", err)
		}
		worst(fut.Provenance)
		in.FuturesChangePct = fut.Value.ChangePct
		in.HasFutures = true
	}

	return in, provenance, nil
}

// ScoreSentiment is the pure scoring function: same inputs, same result.
func ScoreSentiment(in SentimentInputs, cfg SentimentConfig, now time.Time) *models.SentimentResult {
	components := []models.SentimentComponent{
		scoreVIX(in, cfg),
		scoreFutures(in, cfg),
		scoreRSI(in.RSI, cfg),
		scoreMA(in.Price, in.SMA),
		scoreBollinger(in.Price, in.Bands, cfg),
	}

	total := 0.0
	allTechnicalsBullish := true
	for _, comp := range components {
		total += comp.Score
		switch comp.Name {
		case models.ComponentRSI, models.ComponentMA, models.ComponentBollinger:
			if !comp.Bullish() {
				allTechnicalsBullish = false
			}
		}
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	decision := models.DecisionSkip
	if total >= cfg.MinScore && allTechnicalsBullish {
		decision = models.DecisionProceed
	}

	return &models.SentimentResult{
		Score:      total,
		Decision:   decision,
		Components: components,
		ComputedAt: now,
	}
}

func clamp(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// placeholder contributes a fixed neutral half-weight so the total stays
// well-defined when a feed is not configured.
func placeholder(name string, weight float64) models.SentimentComponent {
	return models.SentimentComponent{
		Name:     name,
		Score:    weight / 2,
		MaxScore: weight,
		Label:    models.LabelNeutral,
	}
}

func scoreVIX(in SentimentInputs, cfg SentimentConfig) models.SentimentComponent {
	if !in.HasVIX {
		return placeholder(models.ComponentVIX, weightVIX)
	}
	comp := models.SentimentComponent{Name: models.ComponentVIX, Raw: in.VIX, MaxScore: weightVIX}
	switch {
	case in.VIX <= cfg.VIXLow:
		comp.Score = weightVIX
		comp.Label = models.LabelBullish
	case in.VIX >= cfg.VIXHigh:
		comp.Score = 0
		comp.Label = models.LabelBearish
	default:
		comp.Score = clamp(weightVIX*(cfg.VIXHigh-in.VIX)/(cfg.VIXHigh-cfg.VIXLow), weightVIX)
		comp.Label = models.LabelNeutral
	}
	return comp
}

func scoreFutures(in SentimentInputs, cfg SentimentConfig) models.SentimentComponent {
	if !in.HasFutures {
		return placeholder(models.ComponentFutures, weightFutures)
	}
	comp := models.SentimentComponent{Name: models.ComponentFutures, Raw: in.FuturesChangePct, MaxScore: weightFutures}
	switch {
	case in.FuturesChangePct >= cfg.FuturesBullish:
		comp.Score = weightFutures
		comp.Label = models.LabelBullish
	case in.FuturesChangePct >= 0:
		comp.Score = weightFutures / 2
		comp.Label = models.LabelNeutral
	default:
		comp.Score = 0
		comp.Label = models.LabelBearish
	}
	return comp
}

func scoreRSI(rsi float64, cfg SentimentConfig) models.SentimentComponent {
	comp := models.SentimentComponent{Name: models.ComponentRSI, Raw: rsi, MaxScore: weightRSI}
	switch {
	case rsi >= cfg.RSIUpper:
		comp.Score = 0
		comp.Label = models.LabelOverbought
	case rsi <= cfg.RSILower:
		comp.Score = 0
		comp.Label = models.LabelOversold
	default:
		comp.Score = weightRSI
		comp.Label = models.LabelBullish
	}
	return comp
}

func scoreMA(price, sma float64) models.SentimentComponent {
	comp := models.SentimentComponent{Name: models.ComponentMA, Raw: sma, MaxScore: weightMA}
	if price > sma {
		comp.Score = weightMA
		comp.Label = models.LabelBullish
	} else {
		comp.Score = 0
		comp.Label = models.LabelBearish
	}
	return comp
}

func scoreBollinger(price float64, b indicators.Bands, cfg SentimentConfig) models.SentimentComponent {
	comp := models.SentimentComponent{Name: models.ComponentBollinger, Raw: price, MaxScore: weightBollinger}
	width := b.Upper - b.Lower
	if width <= 0 {
		comp.Score = weightBollinger / 2
		comp.Label = models.LabelNeutral
		return comp
	}
	center := (b.Upper + b.Lower) / 2
	innerHalf := cfg.BollInnerRange * width / 2
	switch {
	case price >= center-innerHalf && price <= center+innerHalf:
		comp.Score = weightBollinger
		comp.Label = models.LabelBullish
	case price >= b.Lower && price <= b.Upper:
		comp.Score = weightBollinger / 2
		comp.Label = models.LabelNeutral
	case price > b.Upper:
		comp.Score = 0
		comp.Label = models.LabelOverbought
	default:
		comp.Score = 0
		comp.Label = models.LabelOversold
	}
	return comp
}
