package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Load factor bounds. Factors outside this range are clamped, never rejected,
// so a noisy load signal can only tighten admission to 10% of base capacity.
const (
	minLoadFactor = 0.1
	maxLoadFactor = 1.0
)

// AdaptiveController wraps a SlidingWindow and rescales its capacity from an
// externally reported load factor.
//
// External load signals (CPU pressure, queue depth) tighten or relax
// admission without a restart: SetLoadFactor rebuilds the inner sliding
// window at floor(baseLimit * factor) over the original window length.
//
// # History Loss On Rescale
//
// Rebuilding the inner limiter discards all in-flight window history, so
// every key briefly sees a full quota after a load factor change. This is a
// known, deliberately preserved limitation; callers that cannot tolerate it
// should rate limit load factor updates themselves.
type AdaptiveController struct {
	mu         sync.RWMutex
	baseLimit  int
	window     time.Duration
	loadFactor float64
	inner      *SlidingWindow
	clock      Clock
}

// NewAdaptiveController creates an adaptive controller at full capacity
// (load factor 1.0). A nil clock falls back to the system clock.
func NewAdaptiveController(baseLimit int, window time.Duration, clock Clock) *AdaptiveController {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &AdaptiveController{
		baseLimit:  baseLimit,
		window:     window,
		loadFactor: maxLoadFactor,
		inner:      NewSlidingWindow(baseLimit, window, clock),
		clock:      clock,
	}
}

// ClampLoadFactor bounds a raw load factor into [0.1, 1.0], the range
// SetLoadFactor accepts. Callers that skip redundant updates can clamp
// first and compare against LoadFactor.
func ClampLoadFactor(factor float64) float64 {
	if factor < minLoadFactor {
		return minLoadFactor
	}
	if factor > maxLoadFactor {
		return maxLoadFactor
	}
	return factor
}

// SetLoadFactor applies an external load signal. The factor is clamped into
// [0.1, 1.0] and the wrapped limiter is replaced by a fresh instance at
// floor(baseLimit * factor), discarding accumulated window history.
func (a *AdaptiveController) SetLoadFactor(factor float64) {
	factor = ClampLoadFactor(factor)

	adjusted := int(math.Floor(float64(a.baseLimit) * factor))

	a.mu.Lock()
	a.loadFactor = factor
	a.inner = NewSlidingWindow(adjusted, a.window, a.clock)
	a.mu.Unlock()
}

// Allow forwards to the current wrapped sliding window.
func (a *AdaptiveController) Allow(key string) bool {
	a.mu.RLock()
	inner := a.inner
	a.mu.RUnlock()
	return inner.Allow(key)
}

// Remaining forwards to the current wrapped sliding window.
func (a *AdaptiveController) Remaining(key string) int {
	a.mu.RLock()
	inner := a.inner
	a.mu.RUnlock()
	return inner.Remaining(key)
}

// LoadFactor returns the current (clamped) load factor.
func (a *AdaptiveController) LoadFactor() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loadFactor
}

// Limit returns the current adjusted admission limit.
func (a *AdaptiveController) Limit() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.inner.Limit()
}

// BaseLimit returns the configured base limit before load scaling.
func (a *AdaptiveController) BaseLimit() int {
	return a.baseLimit
}
