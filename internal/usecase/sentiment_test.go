package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/indicators"
)

// bullishTechnicals yields RSI in band, price above SMA, price at band center.
func bullishTechnicals() SentimentInputs {
	return SentimentInputs{
		RSI:   55,
		Price: 505,
		SMA:   500,
		Bands: indicators.Bands{Upper: 510, Lower: 500, MovingAverage: 505},
	}
}

func TestScoreSentimentDecisionBoundary(t *testing.T) {
	cfg := DefaultSentimentConfig()
	now := time.Date(2026, 8, 28, 9, 45, 0, 0, time.UTC)

	t.Run("exactly 60 with all technicals bullish proceeds", func(t *testing.T) {
		in := bullishTechnicals()
		in.HasVIX = true
		in.VIX = 25 // bearish, 0
		in.HasFutures = true
		in.FuturesChangePct = -0.5 // bearish, 0

		r := ScoreSentiment(in, cfg, now)
		assert.Equal(t, 60.0, r.Score)
		assert.Equal(t, models.DecisionProceed, r.Decision)
	})

	t.Run("59 skips", func(t *testing.T) {
		in := bullishTechnicals()
		in.HasVIX = true
		in.VIX = 18.2 // interpolates to 9
		in.HasFutures = true
		in.FuturesChangePct = 0.05 // neutral, 10
		in.Bands = indicators.Bands{Upper: 510, Lower: 500, MovingAverage: 505}
		in.Price = 511 // above upper band, 0

		r := ScoreSentiment(in, cfg, now)
		assert.InDelta(t, 59.0, r.Score, 1e-9)
		assert.Equal(t, models.DecisionSkip, r.Decision)
	})

	t.Run("60 with one bearish technical skips", func(t *testing.T) {
		in := bullishTechnicals()
		in.HasVIX = true
		in.VIX = 15 // bullish, 20
		in.HasFutures = true
		in.FuturesChangePct = 0.3 // bullish, 20
		in.SMA = 506              // price below SMA, bearish
		in.Price = 505
		in.Bands = indicators.Bands{Upper: 504, Lower: 494} // price above band, 0

		r := ScoreSentiment(in, cfg, now)
		assert.Equal(t, 60.0, r.Score)
		assert.Equal(t, models.DecisionSkip, r.Decision, "the gate requires every technical to read bullish")
	})
}

func TestScoreSentimentComponents(t *testing.T) {
	cfg := DefaultSentimentConfig()
	now := time.Now()

	t.Run("vix interpolates between thresholds", func(t *testing.T) {
		in := bullishTechnicals()
		in.HasVIX = true
		in.VIX = 18 // midpoint of 16..20

		r := ScoreSentiment(in, cfg, now)
		vix, ok := r.Component(models.ComponentVIX)
		require.True(t, ok)
		assert.InDelta(t, 10.0, vix.Score, 1e-9)
		assert.Equal(t, models.LabelNeutral, vix.Label)
	})

	t.Run("rsi extremes score zero with directional labels", func(t *testing.T) {
		in := bullishTechnicals()
		in.RSI = 75
		r := ScoreSentiment(in, cfg, now)
		rsi, _ := r.Component(models.ComponentRSI)
		assert.Equal(t, 0.0, rsi.Score)
		assert.Equal(t, models.LabelOverbought, rsi.Label)

		in.RSI = 25
		r = ScoreSentiment(in, cfg, now)
		rsi, _ = r.Component(models.ComponentRSI)
		assert.Equal(t, models.LabelOversold, rsi.Label)
	})

	t.Run("bollinger tiers", func(t *testing.T) {
		in := bullishTechnicals()
		in.Bands = indicators.Bands{Upper: 520, Lower: 500}

		in.Price = 510 // dead center
		boll, _ := ScoreSentiment(in, cfg, now).Component(models.ComponentBollinger)
		assert.Equal(t, 20.0, boll.Score)
		assert.Equal(t, models.LabelBullish, boll.Label)

		in.Price = 519 // inside band but outside the inner 80%
		boll, _ = ScoreSentiment(in, cfg, now).Component(models.ComponentBollinger)
		assert.Equal(t, 10.0, boll.Score)
		assert.Equal(t, models.LabelNeutral, boll.Label)

		in.Price = 495 // below the band
		boll, _ = ScoreSentiment(in, cfg, now).Component(models.ComponentBollinger)
		assert.Equal(t, 0.0, boll.Score)
		assert.Equal(t, models.LabelOversold, boll.Label)
	})

	t.Run("unconfigured feeds contribute the neutral placeholder", func(t *testing.T) {
		in := bullishTechnicals() // HasVIX and HasFutures both false

		r := ScoreSentiment(in, cfg, now)
		vix, _ := r.Component(models.ComponentVIX)
		fut, _ := r.Component(models.ComponentFutures)
		assert.Equal(t, 10.0, vix.Score)
		assert.Equal(t, models.LabelNeutral, vix.Label)
		assert.Equal(t, 10.0, fut.Score)
		assert.Equal(t, 80.0, r.Score)
	})
}

func TestScoreSentimentDeterministicAndBounded(t *testing.T) {
	cfg := DefaultSentimentConfig()
	now := time.Date(2026, 8, 28, 9, 45, 0, 0, time.UTC)

	in := bullishTechnicals()
	in.HasVIX = true
	in.VIX = 17.3
	in.HasFutures = true
	in.FuturesChangePct = 0.07

	first := ScoreSentiment(in, cfg, now)
	second := ScoreSentiment(in, cfg, now)
	assert.Equal(t, first, second, "same inputs must yield an identical result")

	for _, vix := range []float64{0, 10, 16, 18, 20, 50} {
		for _, rsi := range []float64{0, 25, 50, 75, 100} {
			in := bullishTechnicals()
			in.HasVIX = true
			in.VIX = vix
			in.RSI = rsi
			r := ScoreSentiment(in, cfg, now)
			assert.GreaterOrEqual(t, r.Score, 0.0)
			assert.LessOrEqual(t, r.Score, 100.0)
			require.Len(t, r.Components, 5)
		}
	}
}

func TestCalculateCachesAndForceRefreshes(t *testing.T) {
	p := defaultFake()
	// enough bars for RSI(14), SMA(20) and Bollinger(20)
	bars := make([]models.HistoricalBar, 0, 60)
	price := 480.0
	for i := 0; i < 60; i++ {
		if i%2 == 0 {
			price += 2
		} else {
			price -= 1
		}
		bars = append(bars, models.HistoricalBar{
			Timestamp: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:      price, High: price + 1, Low: price - 1, Close: price, Volume: 1000,
		})
	}
	p.bars = bars
	svc := newTestService(t, p, nil)

	t0 := time.Date(2026, 8, 28, 9, 45, 0, 0, time.UTC)
	calc := NewSentimentCalculator(svc, DefaultSentimentConfig(), testLogger(t), nopMetrics{}).
		WithClock(func() time.Time { return t0 })

	first, err := calc.Calculate(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, first.Components, 5)
	assert.GreaterOrEqual(t, first.Score, 0.0)
	assert.LessOrEqual(t, first.Score, 100.0)
	assert.Equal(t, models.ProvenanceLive, first.Provenance)
	assert.Equal(t, t0, first.ComputedAt)

	cached, err := calc.Calculate(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, first, cached, "a fresh result is served from cache")

	calc.WithClock(func() time.Time { return t0.Add(time.Minute) })
	forced, err := calc.Calculate(context.Background(), true)
	require.NoError(t, err)
	assert.NotSame(t, first, forced)
	assert.Equal(t, t0.Add(time.Minute), forced.ComputedAt)
}

func TestForcedRefreshFailureKeepsCachedResult(t *testing.T) {
	p := defaultFake()
	bars := make([]models.HistoricalBar, 0, 60)
	price := 480.0
	for i := 0; i < 60; i++ {
		if i%2 == 0 {
			price += 2
		} else {
			price -= 1
		}
		bars = append(bars, models.HistoricalBar{
			Timestamp: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:      price, High: price + 1, Low: price - 1, Close: price, Volume: 1000,
		})
	}
	p.bars = bars

	t0 := time.Date(2026, 8, 28, 9, 45, 0, 0, time.UTC)
	now := t0
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }

	svc := newTestService(t, p, clock)
	calc := NewSentimentCalculator(svc, DefaultSentimentConfig(), testLogger(t), nopMetrics{}).WithClock(clock)

	first, err := calc.Calculate(context.Background(), false)
	require.NoError(t, err)

	// quote TTL has lapsed, the sentiment entry is still well inside its own TTL
	mu.Lock()
	now = t0.Add(90 * time.Second)
	mu.Unlock()
	p.fail(models.NewValidationError("malformed payload", nil))

	_, err = calc.Calculate(context.Background(), true)
	require.Error(t, err, "forced recompute surfaces the upstream failure")

	cached, err := calc.Calculate(context.Background(), false)
	require.NoError(t, err, "a failed forced refresh must not destroy a fresh result")
	assert.Same(t, first, cached)
}
