package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Strategy selects the rate limiting algorithm for a limiter.
type Strategy string

const (
	// StrategyTokenBucket admits by debiting a single shared token pool.
	// The identity key is accepted but ignored: all callers through one
	// limiter draw from the same pool.
	StrategyTokenBucket Strategy = "token_bucket"

	// StrategyFixedWindow counts requests per key in coarse, floor-divided
	// time buckets. Cheap, but admits up to 2x the limit across a window
	// boundary.
	StrategyFixedWindow Strategy = "fixed_window"

	// StrategySlidingWindow keeps a per-key log of admission timestamps
	// over a rolling horizon. Request-accurate at the cost of per-key
	// storage proportional to the limit.
	StrategySlidingWindow Strategy = "sliding_window"
)

// Valid reports whether s is one of the recognized strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyTokenBucket, StrategyFixedWindow, StrategySlidingWindow:
		return true
	}
	return false
}

// Config describes a single limiter: how many requests are admitted per
// window and which algorithm enforces it.
type Config struct {
	// MaxRequests is the maximum number of admissions per window. Must be > 0.
	MaxRequests int

	// WindowSeconds is the accounting window length in seconds. Must be > 0.
	WindowSeconds int

	// Strategy selects the enforcing algorithm.
	Strategy Strategy
}

// Window returns the accounting window as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// validate checks the config for limiter name, returning a *ConfigError
// describing the first problem found.
func (c Config) validate(limiter string) error {
	if c.MaxRequests <= 0 {
		return &ConfigError{Limiter: limiter, Reason: fmt.Sprintf("max_requests must be > 0, got %d", c.MaxRequests)}
	}
	if c.WindowSeconds <= 0 {
		return &ConfigError{Limiter: limiter, Reason: fmt.Sprintf("window_seconds must be > 0, got %d", c.WindowSeconds)}
	}
	if !c.Strategy.Valid() {
		return &ConfigError{Limiter: limiter, Reason: fmt.Sprintf("unknown strategy %q", c.Strategy)}
	}
	return nil
}

// ConfigError reports an invalid limiter configuration. It is returned
// synchronously from registration; the registry is left unchanged, so there
// is never a partially registered limiter.
type ConfigError struct {
	// Limiter is the name the limiter was being registered under.
	Limiter string

	// Reason describes what was invalid.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid rate limit config for %q: %s", e.Limiter, e.Reason)
}

// Errors returned by registry operations other than Check. Check never
// returns an error: an unknown limiter name is a logged, fail-open condition.
var (
	// ErrLimiterNotFound is returned when an operation names an
	// unregistered limiter.
	ErrLimiterNotFound = errors.New("rate limiter not found")

	// ErrNotAdaptive is returned when a load factor is applied to a
	// limiter that was not registered as adaptive.
	ErrNotAdaptive = errors.New("rate limiter is not adaptive")
)
