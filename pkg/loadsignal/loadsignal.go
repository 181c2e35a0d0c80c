// Package loadsignal feeds observed system pressure into adaptive rate
// limiters.
//
// A Provider reports current load in the range [0.0, 1.0]. The Sampler
// polls the provider on a cron schedule, converts load into a limiter
// load factor (high load shrinks the factor), and pushes it to every
// adaptive limiter registered with the admission registry.
package loadsignal

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/agobrik/webtesttool/pkg/ratelimit"
	"github.com/agobrik/webtesttool/pkg/telemetry/logging"
)

// Provider reports current system load.
//
// Implementations must return a value in [0.0, 1.0], where 0.0 means idle
// and 1.0 means saturated. Values outside the range are clamped by the
// sampler.
type Provider interface {
	Load() float64
}

// GoroutineLoadProvider derives load from the goroutine count relative to
// a saturation threshold. It is a cheap default that needs no external
// metrics collection.
type GoroutineLoadProvider struct {
	// SaturationCount is the goroutine count treated as full load.
	// Zero selects a default of 5000.
	SaturationCount int
}

// Load returns the goroutine count scaled to [0.0, 1.0].
func (p *GoroutineLoadProvider) Load() float64 {
	saturation := p.SaturationCount
	if saturation <= 0 {
		saturation = 5000
	}
	load := float64(runtime.NumGoroutine()) / float64(saturation)
	if load > 1.0 {
		return 1.0
	}
	return load
}

// StaticProvider always reports the same load. Useful for tests and for
// operator-pinned load factors.
type StaticProvider struct {
	mu    sync.RWMutex
	value float64
}

// NewStaticProvider creates a provider pinned at the given load.
func NewStaticProvider(value float64) *StaticProvider {
	return &StaticProvider{value: value}
}

// Load returns the pinned load value.
func (p *StaticProvider) Load() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set replaces the pinned load value.
func (p *StaticProvider) Set(value float64) {
	p.mu.Lock()
	p.value = value
	p.mu.Unlock()
}

// SamplerConfig controls the load sampling loop.
type SamplerConfig struct {
	// Schedule is a cron expression for sampling, e.g. "@every 30s".
	Schedule string
}

// Sampler periodically reads a Provider and applies the resulting load
// factor to all adaptive limiters in the registry.
type Sampler struct {
	config   SamplerConfig
	provider Provider
	registry *ratelimit.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSampler creates a load sampler. A nil logger falls back to
// slog.Default.
func NewSampler(config SamplerConfig, provider Provider, registry *ratelimit.Registry, logger *slog.Logger) *Sampler {
	return &Sampler{
		config:   config,
		provider: provider,
		registry: registry,
		logger:   logging.Component(logger, "loadsignal"),
	}
}

// Start begins the sampling loop. It applies one sample immediately so
// limiters do not wait a full schedule interval for their first
// adjustment, then samples on the configured cron schedule until the
// context is cancelled.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("load sampler already running")
	}
	if s.config.Schedule == "" {
		return fmt.Errorf("load sampler schedule is empty")
	}
	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid sampling schedule %q: %w", s.config.Schedule, err)
	}

	s.Sample()

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.config.Schedule, s.Sample); err != nil {
		return fmt.Errorf("failed to schedule load sampling: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info("load sampler started", "schedule", s.config.Schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the sampling loop.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info("load sampler stopped")
}

// Sample reads the provider once and pushes the derived load factor to
// every adaptive limiter whose factor would change. A load of 0.0 leaves
// limiters at full capacity; a load of 1.0 shrinks them to their minimum
// factor.
//
// Rescaling an adaptive limiter discards its window history, so limiters
// already at the target factor are left untouched. A steady load signal
// therefore never resets saturated keys between samples.
func (s *Sampler) Sample() {
	load := s.provider.Load()
	if load < 0 {
		load = 0
	}
	if load > 1 {
		load = 1
	}

	factor := FactorForLoad(load)
	target := ratelimit.ClampLoadFactor(factor)
	applied := 0
	for _, name := range s.registry.Names() {
		// Non-adaptive limiters are expected in the registry.
		_, current, ok := s.registry.AdaptiveState(name)
		if !ok || current == target {
			continue
		}
		if err := s.registry.SetLoadFactor(name, factor); err != nil {
			s.logger.Warn("failed to apply load factor",
				"limiter", name,
				"error", err,
			)
			continue
		}
		applied++
	}

	s.logger.Debug("applied load sample",
		"load", load,
		"factor", factor,
		"limiters", applied,
	)
}

// FactorForLoad maps observed load in [0, 1] to a limiter load factor.
// Idle systems run at full capacity and saturated systems shed load by
// dropping toward the limiter's minimum factor.
func FactorForLoad(load float64) float64 {
	return 1.0 - load
}
