package cache

import (
	"sync"
	"testing"
	"time"
)

func newTestCache(start time.Time) (*TTLCache, *time.Time) {
	now := start
	c := NewTTLCache(
		WithSweepInterval(0),
		WithRetention(24*time.Hour),
		WithClock(func() time.Time { return now }),
	)
	return c, &now
}

func TestFreshHitWithinTTL(t *testing.T) {
	c, now := newTestCache(time.Unix(1_700_000_000, 0))
	defer c.Close()

	c.Set("quote:SPY:abc", 451.2, 60*time.Second)

	*now = now.Add(59 * time.Second)
	v, found, stale := c.Get("quote:SPY:abc")
	if !found || stale {
		t.Fatalf("expected fresh hit at T=59s, got found=%v stale=%v", found, stale)
	}
	if v.(float64) != 451.2 {
		t.Fatalf("unexpected value %v", v)
	}
}

func TestExpiredEntryReportsStale(t *testing.T) {
	c, now := newTestCache(time.Unix(1_700_000_000, 0))
	defer c.Close()

	c.Set("quote:SPY:abc", 451.2, 60*time.Second)

	*now = now.Add(61 * time.Second)
	v, found, stale := c.Get("quote:SPY:abc")
	if found {
		t.Fatalf("entry must never be fresh past expiry")
	}
	if !stale || v == nil {
		t.Fatalf("expired entry should remain reachable as stale")
	}

	sv, ok := c.GetStale("quote:SPY:abc")
	if !ok || sv.(float64) != 451.2 {
		t.Fatalf("stale path should return the retained value")
	}
}

func TestRetentionCutsOffStaleReads(t *testing.T) {
	c, now := newTestCache(time.Unix(1_700_000_000, 0))
	defer c.Close()

	c.Set("chain:SPY:abc", "payload", time.Minute)

	*now = now.Add(25 * time.Hour)
	if _, ok := c.GetStale("chain:SPY:abc"); ok {
		t.Fatalf("stale read should fail past retention")
	}
	if _, found, stale := c.Get("chain:SPY:abc"); found || stale {
		t.Fatalf("entry past retention should behave as absent")
	}
}

func TestInvalidateRemovesStaleCopy(t *testing.T) {
	c, _ := newTestCache(time.Unix(1_700_000_000, 0))
	defer c.Close()

	c.Set("quote:QQQ:abc", 1.0, time.Minute)
	c.Invalidate("quote:QQQ:abc")
	if _, ok := c.GetStale("quote:QQQ:abc"); ok {
		t.Fatalf("invalidate should drop the stale copy too")
	}
}

func TestStatsCountsHitsAndMisses(t *testing.T) {
	c, _ := newTestCache(time.Unix(1_700_000_000, 0))
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Size != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	c := NewTTLCache(WithSweepInterval(0))
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("shared", n*100+j, time.Minute)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get("shared")
			}
		}()
	}
	wg.Wait()

	if _, found, _ := c.Get("shared"); !found {
		t.Fatalf("value should be present after concurrent writes")
	}
}
