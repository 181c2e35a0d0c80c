package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// backwardClock is a Clock whose instant can be set freely, backward
// included. ManualClock refuses to regress, so exercising the algorithms
// under a misbehaving time source needs its own stub.
type backwardClock struct {
	mu  sync.Mutex
	now time.Time
}

func newBackwardClock(start time.Time) *backwardClock {
	return &backwardClock{now: start}
}

func (c *backwardClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *backwardClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func TestTokenBucket_ClockRegression(t *testing.T) {
	t0 := time.Unix(1000, 0)
	clk := newBackwardClock(t0)
	bucket := NewTokenBucket(10, 1, clk)

	if !bucket.Allow(4) {
		t.Fatal("expected admit from a full bucket")
	}
	if got := bucket.Tokens(); got != 6 {
		t.Fatalf("tokens = %v, want 6", got)
	}

	// A backward jump credits nothing and never drives the count negative.
	clk.Set(t0.Add(-5 * time.Second))
	if got := bucket.Tokens(); got != 6 {
		t.Errorf("tokens after regression = %v, want 6", got)
	}
	if !bucket.Allow(4) {
		t.Error("expected admit while the clock is behind")
	}
	if got := bucket.Tokens(); got != 2 {
		t.Errorf("tokens = %v, want 2", got)
	}

	// The refill timestamp must not have moved backward: once the clock
	// recovers, only time past the original instant is credited.
	clk.Set(t0.Add(3 * time.Second))
	if got := bucket.Tokens(); got != 5 {
		t.Errorf("tokens after recovery = %v, want 5", got)
	}
}

func TestFixedWindow_ClockRegression(t *testing.T) {
	clk := newBackwardClock(time.Unix(1005, 0))
	fw := NewFixedWindow(2, 10*time.Second, clk)

	if !fw.Allow("client") || !fw.Allow("client") {
		t.Fatal("expected both admits in the initial window")
	}
	if fw.Allow("client") {
		t.Fatal("expected denial at the window limit")
	}

	// Jumping backward within the same window keeps the counter intact.
	clk.Set(time.Unix(1001, 0))
	if fw.Allow("client") {
		t.Error("expected denial after an in-window regression")
	}
	if got := fw.Count("client"); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}

	// Recovering to the original instant must not have reset anything.
	clk.Set(time.Unix(1005, 0))
	if fw.Allow("client") {
		t.Error("expected denial after the clock recovered")
	}
}

func TestSlidingWindow_ClockRegression(t *testing.T) {
	t0 := time.Unix(1000, 0)
	clk := newBackwardClock(t0)
	sw := NewSlidingWindow(2, 10*time.Second, clk)

	sw.Allow("client")
	sw.Allow("client")
	if sw.Allow("client") {
		t.Fatal("expected denial at the limit")
	}

	// Log entries timestamped ahead of a regressed clock still count, so
	// the key is not granted quota it already spent.
	clk.Set(t0.Add(-5 * time.Second))
	if sw.Allow("client") {
		t.Error("expected denial while the clock is behind")
	}
	if got := sw.Remaining("client"); got != 0 {
		t.Errorf("remaining = %d, want 0", got)
	}

	// Normal expiry resumes once the clock moves past the window.
	clk.Set(t0.Add(11 * time.Second))
	if !sw.Allow("client") {
		t.Error("expected admit after entries expired")
	}
}
