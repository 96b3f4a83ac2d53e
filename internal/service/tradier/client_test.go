package tradier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/ratelimit"
	xlogger "MarketPulse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordProviderCall(string, string) {}
func (nopMetrics) RecordCacheLookup(string, bool)    {}
func (nopMetrics) RecordLimiterWait(float64)         {}
func (nopMetrics) RecordSentiment(string, float64)   {}
func (nopMetrics) RecordLatency(string, float64)     {}

func testClient(t *testing.T, baseURL string, limiter *ratelimit.Limiter) *Client {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	if limiter == nil {
		limiter = ratelimit.New(1000, 1000)
	}
	return New(Config{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	}, limiter, l, nopMetrics{})
}

func TestGetQuoteParsesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", got)
		}
		if got := r.URL.Query().Get("symbols"); got != "SPY" {
			t.Errorf("unexpected symbols param %q", got)
		}
		w.Write([]byte(`{"quotes":{"quote":{
			"symbol":"SPY","last":451.25,"bid":451.24,"ask":451.26,
			"bidsize":3,"asksize":5,"volume":1200000,"prevclose":449.80,
			"change":1.45,"change_percentage":0.32,"trade_date":1700000000000}}}`))
	}))
	defer srv.Close()

	q, err := testClient(t, srv.URL, nil).GetQuote(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Ticker != "SPY" || q.Last != 451.25 || q.PrevClose != 449.80 {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestAuthFailureIsFatalAndNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, nil).GetQuote(context.Background(), "SPY")
	if models.KindOf(err) != models.ErrKindAuth {
		t.Fatalf("want auth error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("auth failure retried %d times", n)
	}
}

func TestServerErrorsAreRetriedThenSurfaced(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, nil).GetQuote(context.Background(), "SPY")
	if models.KindOf(err) != models.ErrKindTransport {
		t.Fatalf("want transport error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("want 3 attempts, got %d", n)
	}
}

func TestRetryRecoversOnSecondAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"quotes":{"quote":{"symbol":"SPY","last":450.0,"bid":449.9,"ask":450.1,"trade_date":1700000000000}}}`))
	}))
	defer srv.Close()

	q, err := testClient(t, srv.URL, nil).GetQuote(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("GetQuote after retry: %v", err)
	}
	if q.Last != 450.0 {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestUpstream429PenalizesLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	limiter := ratelimit.New(10, 4)
	_, err := testClient(t, srv.URL, limiter).GetQuote(context.Background(), "SPY")
	if models.KindOf(err) != models.ErrKindRateLimit {
		t.Fatalf("want rate limit error, got %v", err)
	}
	if got := models.RetryAfterOf(err); got != 30*time.Second {
		t.Fatalf("want retry-after 30s, got %v", got)
	}
	if st := limiter.State(); st.RefillRate != 2 {
		t.Fatalf("limiter should run at half rate after 429, got %f", st.RefillRate)
	}
}

func TestMalformedPayloadIsValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quotes":{"quote":{"symbol":"SPY","last":-1,"trade_date":1700000000000}}}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, nil).GetQuote(context.Background(), "SPY")
	if models.KindOf(err) != models.ErrKindValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestBestEffortSignalsInsteadOfBlocking(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	drained := ratelimit.New(1, 0.01)
	drained.TryAcquire()

	ctx := drepo.WithBestEffort(context.Background())
	_, err := testClient(t, srv.URL, drained).GetQuote(ctx, "SPY")
	if models.KindOf(err) != models.ErrKindRateLimit {
		t.Fatalf("want rate limit error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("best-effort call must not reach the provider when drained")
	}
}

func TestCanceledLimiterWaitSurfacesContextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("drained limiter must not let the request through")
	}))
	defer srv.Close()

	drained := ratelimit.New(1, 0.01)
	drained.TryAcquire()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := testClient(t, srv.URL, drained).GetQuote(ctx, "SPY")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if models.KindOf(err) == models.ErrKindRateLimit {
		t.Fatalf("caller cancellation must not be reported as quota exhaustion")
	}
}

func TestGetHistoryOrdersBarsChronologically(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"history":{"day":[
			{"date":"2026-08-21","open":449,"high":452,"low":448,"close":451,"volume":100},
			{"date":"2026-08-20","open":447,"high":450,"low":446,"close":449,"volume":90}]}}`))
	}))
	defer srv.Close()

	from := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	s, err := testClient(t, srv.URL, nil).GetHistory(context.Background(), "SPY", from, to, "daily")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(s.Bars) != 2 || !s.Bars[0].Timestamp.Before(s.Bars[1].Timestamp) {
		t.Fatalf("bars not chronological: %+v", s.Bars)
	}
}
