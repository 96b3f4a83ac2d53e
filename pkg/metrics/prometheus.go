package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerCalls  *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	limiterWait    prometheus.Histogram
	sentimentScore prometheus.Gauge
	decisions      *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		providerCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_provider_calls_total",
				Help: "Total provider API calls by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_cache_lookups_total",
				Help: "Cache lookups by data type and result",
			},
			[]string{"data_type", "result"},
		),
		limiterWait: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketpulse_limiter_wait_seconds",
				Help:    "Time spent waiting on the local rate limiter",
				Buckets: prometheus.DefBuckets,
			},
		),
		sentimentScore: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketpulse_sentiment_score",
				Help: "Most recent aggregate sentiment score",
			},
		),
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_sentiment_decisions_total",
				Help: "Sentiment decisions by outcome",
			},
			[]string{"decision"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordProviderCall records one upstream API call.
func (r *Recorder) RecordProviderCall(endpoint, outcome string) {
	r.providerCalls.WithLabelValues(endpoint, outcome).Inc()
}

// RecordCacheLookup records a cache hit or miss for a data type.
func (r *Recorder) RecordCacheLookup(dataType string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(dataType, result).Inc()
}

// RecordLimiterWait records time spent blocked on the token bucket.
func (r *Recorder) RecordLimiterWait(seconds float64) {
	r.limiterWait.Observe(seconds)
}

// RecordSentiment records a computed decision and its score.
func (r *Recorder) RecordSentiment(decision string, score float64) {
	r.decisions.WithLabelValues(decision).Inc()
	r.sentimentScore.Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
