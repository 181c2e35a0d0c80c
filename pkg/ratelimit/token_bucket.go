package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket rate limiting algorithm.
//
// The bucket holds a single shared pool of fractional tokens that refills
// continuously at a fixed rate, capped at capacity. Each admission consumes
// a whole number of tokens; a request is denied when fewer tokens remain
// than its cost. There is no per-key partitioning: all callers through one
// bucket draw from the same pool.
//
// # Algorithm
//
//  1. Compute elapsed time since the last refill (negative elapsed is zero)
//  2. Add elapsed * refillRate tokens, capped at capacity
//  3. If tokens >= cost: subtract cost and admit
//  4. Otherwise: deny without mutating the token count
//
// The lazy refill on every call avoids a background timer.
//
// # Thread Safety
//
// TokenBucket is safe for concurrent use; all operations run under one
// mutex, matching its semantics of a single shared pool.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens added per second
	lastRefill time.Time
	clock      Clock
}

// NewTokenBucket creates a token bucket that starts full.
//
// Parameters:
//   - capacity: maximum tokens in the bucket (burst ceiling)
//   - refillRate: tokens added per second (sustained rate)
//   - clock: time source; nil falls back to the system clock
func NewTokenBucket(capacity, refillRate float64, clock Clock) *TokenBucket {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: clock.Now(),
		clock:      clock,
	}
}

// newTokenBucketFromConfig maps a limiter config onto a bucket using the
// conventional rate maxRequests/windowSeconds with burst up to maxRequests.
func newTokenBucketFromConfig(cfg Config, clock Clock) *TokenBucket {
	capacity := float64(cfg.MaxRequests)
	return NewTokenBucket(capacity, capacity/float64(cfg.WindowSeconds), clock)
}

// Allow attempts to consume cost tokens. It returns true if the tokens were
// available and consumed. A cost of zero (or less) is a no-op that always
// admits.
func (tb *TokenBucket) Allow(cost int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()

	if cost <= 0 {
		return true
	}
	if tb.tokens >= float64(cost) {
		tb.tokens -= float64(cost)
		return true
	}
	return false
}

// Tokens returns the current token count after applying any pending refill.
// Exposed for observability; an external collector reports this value.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return tb.tokens
}

// Capacity returns the bucket's maximum token count.
func (tb *TokenBucket) Capacity() float64 {
	return tb.capacity
}

// refillLocked credits tokens for the time elapsed since the last refill and
// advances the refill timestamp. The timestamp only moves forward: if the
// clock regressed, nothing is credited and the timestamp is left alone.
// Caller must hold mu.
func (tb *TokenBucket) refillLocked() {
	now := tb.clock.Now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed.Seconds() * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}
