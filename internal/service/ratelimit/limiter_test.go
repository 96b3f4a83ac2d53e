package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock advances only when told to, keeping refill math deterministic.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestBurstThenBlocked(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(5, 5.0/60).WithClock(clk.now)

	for i := 0; i < 5; i++ {
		ok, _ := l.TryAcquire()
		if !ok {
			t.Fatalf("token %d should be available", i+1)
		}
	}

	ok, wait := l.TryAcquire()
	if ok {
		t.Fatalf("6th acquire should be rejected")
	}
	// one token interval at 5/min is 12s
	if wait < 11*time.Second || wait > 13*time.Second {
		t.Fatalf("unexpected retry-after %v", wait)
	}

	clk.advance(12 * time.Second)
	if ok, _ := l.TryAcquire(); !ok {
		t.Fatalf("token should be available after one interval")
	}
}

func TestTokensNeverExceedCapacity(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(3, 10).WithClock(clk.now)

	clk.advance(time.Hour)
	st := l.State()
	if st.Tokens > st.Capacity {
		t.Fatalf("tokens %f exceed capacity %f", st.Tokens, st.Capacity)
	}
}

func TestSustainedThroughputConvergesToRefillRate(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(5, 2).WithClock(clk.now)

	granted := 0
	// 60s of 10ms polling, far above the configured rate
	for i := 0; i < 6000; i++ {
		if ok, _ := l.TryAcquire(); ok {
			granted++
		}
		clk.advance(10 * time.Millisecond)
	}
	// expect 60s * 2/s = 120, plus the initial burst of 5
	if granted < 120 || granted > 126 {
		t.Fatalf("granted %d, want ~125", granted)
	}
}

func TestPenaltyHalvesRefill(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(1, 1).WithClock(clk.now)

	if ok, _ := l.TryAcquire(); !ok {
		t.Fatalf("initial token expected")
	}
	l.Penalize(time.Minute)

	clk.advance(time.Second)
	if ok, _ := l.TryAcquire(); ok {
		t.Fatalf("half-rate refill should not yield a token after 1s")
	}
	clk.advance(time.Second)
	if ok, _ := l.TryAcquire(); !ok {
		t.Fatalf("token expected after 2s at half rate")
	}
}

func TestAcquireBlocksAndHonorsContext(t *testing.T) {
	l := New(1, 1000)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	drained := New(1, 0.001)
	_, _ = drained.TryAcquire()
	if err := drained.Acquire(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestConcurrentAcquireIsAtomic(t *testing.T) {
	l := New(50, 0.0001)

	var granted int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.TryAcquire(); ok {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	if granted != 50 {
		t.Fatalf("granted %d tokens from a bucket of 50", granted)
	}
}
