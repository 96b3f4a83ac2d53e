package ratelimit

import (
	"context"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
)

// Limiter is a token bucket guarding the upstream provider quota.
// Refill is lazy: tokens accrue based on elapsed wall-clock time inside the
// same critical section that deducts, so refill-and-deduct is atomic.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time

	// upstream 429 feedback: refill runs at half rate until penaltyUntil
	penaltyUntil time.Time

	now func() time.Time
}

// New creates a full bucket with the given capacity and refill rate.
func New(capacity, refillPerSec float64) *Limiter {
	l := &Limiter{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillPerSec,
		now:        time.Now,
	}
	l.last = l.now()
	return l
}

// WithClock overrides the wall clock. Test hook.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	l.last = now()
	return l
}

func (l *Limiter) effectiveRate(now time.Time) float64 {
	if now.Before(l.penaltyUntil) {
		return l.refillRate / 2
	}
	return l.refillRate
}

// refill accrues tokens since last. Caller holds mu.
func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.last).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.effectiveRate(now)
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.last = now
}

// TryAcquire consumes one token if available. When none is available it
// returns false plus the wait until a token will have accrued.
func (l *Limiter) TryAcquire() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.refill(now)
	if l.tokens >= 1 {
		l.tokens--
		return true, 0
	}
	rate := l.effectiveRate(now)
	if rate <= 0 {
		return false, time.Hour
	}
	wait := time.Duration((1 - l.tokens) / rate * float64(time.Second))
	return false, wait
}

// Acquire blocks until a token is consumed or ctx is done. Waiters are not
// FIFO; under sustained overload throughput still converges to the refill
// rate because each retry re-enters the shared bucket.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		ok, wait := l.TryAcquire()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Penalize halves the effective refill rate for the cooldown window.
// Called when the provider itself reports 429: local limiting is the
// pre-emptive guard, the upstream signal is authoritative.
func (l *Limiter) Penalize(cooldown time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.refill(now)
	until := now.Add(cooldown)
	if until.After(l.penaltyUntil) {
		l.penaltyUntil = until
	}
}

// State snapshots the bucket for status reporting.
func (l *Limiter) State() models.RateLimiterState {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.refill(now)
	return models.RateLimiterState{
		Tokens:     l.tokens,
		Capacity:   l.capacity,
		RefillRate: l.effectiveRate(now),
	}
}
