package ratelimit

import (
	"log/slog"
	"sort"
	"sync"
)

// entry binds a name to exactly one constructed algorithm. The algorithm is
// a closed tagged variant rather than an open interface: exactly one of the
// variant fields is non-nil, and dispatch switches on which.
type entry struct {
	name   string
	config Config

	bucket   *TokenBucket
	fixed    *FixedWindow
	sliding  *SlidingWindow
	adaptive *AdaptiveController
}

// allow dispatches an admission check to the bound algorithm. TokenBucket
// entries ignore the key: there is one shared pool per entry.
func (e *entry) allow(key string) bool {
	switch {
	case e.bucket != nil:
		return e.bucket.Allow(1)
	case e.fixed != nil:
		return e.fixed.Allow(key)
	case e.sliding != nil:
		return e.sliding.Allow(key)
	case e.adaptive != nil:
		return e.adaptive.Allow(key)
	}
	return true
}

// Registry holds named limiter instances and routes admission checks to
// them. Limiters are registered once at configuration time; checks run on
// every admission-sensitive operation, so the registry map is read-mostly
// and guarded by an RWMutex.
//
// An entry is active from the moment registration returns until the registry
// is discarded or the name is reused; there is no paused state.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*entry
	clock    Clock
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source shared by all algorithms the registry
// constructs. Tests use this with ManualClock.
func WithClock(clock Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates an empty limiter registry. Without options it uses the
// system clock and slog.Default.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		limiters: make(map[string]*entry),
		clock:    NewSystemClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "ratelimit")
	return r
}

// AddLimiter registers a limiter under name, constructing the algorithm
// selected by cfg.Strategy. It returns a *ConfigError if the strategy is
// unrecognized or the limits are non-positive, leaving the registry
// unchanged.
//
// Registering a name that already exists replaces the prior entry and
// discards its accumulated per-key history. Callers expecting idempotent
// registration must check existence first.
func (r *Registry) AddLimiter(name string, cfg Config) error {
	if err := cfg.validate(name); err != nil {
		return err
	}

	e := &entry{name: name, config: cfg}
	switch cfg.Strategy {
	case StrategyTokenBucket:
		e.bucket = newTokenBucketFromConfig(cfg, r.clock)
	case StrategyFixedWindow:
		e.fixed = NewFixedWindow(cfg.MaxRequests, cfg.Window(), r.clock)
	case StrategySlidingWindow:
		e.sliding = NewSlidingWindow(cfg.MaxRequests, cfg.Window(), r.clock)
	}

	r.mu.Lock()
	if _, exists := r.limiters[name]; exists {
		r.logger.Warn("replacing existing rate limiter", "limiter", name)
	}
	r.limiters[name] = e
	r.mu.Unlock()
	return nil
}

// AddAdaptiveLimiter registers a sliding window limiter wrapped in an
// AdaptiveController, so its capacity can later be rescaled through
// SetLoadFactor. cfg.Strategy must be StrategySlidingWindow; the adaptive
// controller has no fixed-window or token-bucket form.
func (r *Registry) AddAdaptiveLimiter(name string, cfg Config) error {
	if err := cfg.validate(name); err != nil {
		return err
	}
	if cfg.Strategy != StrategySlidingWindow {
		return &ConfigError{Limiter: name, Reason: "adaptive limiters require the sliding_window strategy"}
	}

	e := &entry{
		name:     name,
		config:   cfg,
		adaptive: NewAdaptiveController(cfg.MaxRequests, cfg.Window(), r.clock),
	}

	r.mu.Lock()
	if _, exists := r.limiters[name]; exists {
		r.logger.Warn("replacing existing rate limiter", "limiter", name)
	}
	r.limiters[name] = e
	r.mu.Unlock()
	return nil
}

// Check reports whether the request identified by key is admitted by the
// named limiter.
//
// An unregistered name is not an error: the check logs a warning and admits
// the request. This fail-open policy prioritizes availability over strict
// enforcement when misconfigured, and callers are never forced to handle an
// error path on the hot path.
func (r *Registry) Check(name, key string) bool {
	r.mu.RLock()
	e, ok := r.limiters[name]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("rate limiter not registered, admitting request",
			"limiter", name,
			"key", key,
		)
		return true
	}
	return e.allow(key)
}

// SetLoadFactor feeds an external load signal to the named adaptive limiter.
// It returns ErrLimiterNotFound for unknown names and ErrNotAdaptive for
// limiters registered through AddLimiter.
func (r *Registry) SetLoadFactor(name string, factor float64) error {
	r.mu.RLock()
	e, ok := r.limiters[name]
	r.mu.RUnlock()

	if !ok {
		return ErrLimiterNotFound
	}
	if e.adaptive == nil {
		return ErrNotAdaptive
	}
	e.adaptive.SetLoadFactor(factor)
	return nil
}

// Tokens returns the refreshed token count of the named token bucket
// limiter. The second return is false when the name is unknown or the
// limiter is not token bucket backed.
func (r *Registry) Tokens(name string) (float64, bool) {
	r.mu.RLock()
	e, ok := r.limiters[name]
	r.mu.RUnlock()

	if !ok || e.bucket == nil {
		return 0, false
	}
	return e.bucket.Tokens(), true
}

// Remaining returns how many admissions remain for key on the named sliding
// window or adaptive limiter. The second return is false when the name is
// unknown or the limiter has no per-key remaining count.
func (r *Registry) Remaining(name, key string) (int, bool) {
	r.mu.RLock()
	e, ok := r.limiters[name]
	r.mu.RUnlock()

	if !ok {
		return 0, false
	}
	switch {
	case e.sliding != nil:
		return e.sliding.Remaining(key), true
	case e.adaptive != nil:
		return e.adaptive.Remaining(key), true
	}
	return 0, false
}

// AdaptiveState returns the adjusted limit and current load factor of the
// named adaptive limiter. The third return is false when the name is
// unknown or the limiter is not adaptive.
func (r *Registry) AdaptiveState(name string) (limit int, factor float64, ok bool) {
	r.mu.RLock()
	e, found := r.limiters[name]
	r.mu.RUnlock()

	if !found || e.adaptive == nil {
		return 0, 0, false
	}
	return e.adaptive.Limit(), e.adaptive.LoadFactor(), true
}

// Names returns the registered limiter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.limiters))
	for name := range r.limiters {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Strategy returns the strategy of the named limiter. Adaptive entries
// report StrategySlidingWindow, the algorithm they wrap.
func (r *Registry) Strategy(name string) (Strategy, bool) {
	r.mu.RLock()
	e, ok := r.limiters[name]
	r.mu.RUnlock()

	if !ok {
		return "", false
	}
	return e.config.Strategy, true
}
