package ratelimit

import (
	"sync"
	"time"
)

// Clock is the time source consulted by all algorithms.
//
// Implementations must be safe for concurrent use and should be monotonically
// non-decreasing. The algorithms tolerate regressions (a negative elapsed
// interval is treated as zero), but a well-behaved clock never goes backward.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock implements Clock using the system's monotonic clock.
// time.Now carries a monotonic reading, so differences between values are
// immune to wall-clock adjustments.
type SystemClock struct{}

// NewSystemClock returns a stateless system clock that can be shared freely.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current system time.
func (*SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock implements Clock with explicitly controlled time.
//
// It exists for deterministic tests: time only moves when Advance is called,
// so time-dependent behavior (refill, window expiry, eviction) can be tested
// without sleeps or flakiness.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a manual clock starting at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the clock's current instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Negative durations are ignored so a
// ManualClock never violates monotonicity.
func (c *ManualClock) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
