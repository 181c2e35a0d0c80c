package metrics

import (
	"context"
	"time"

	"github.com/agobrik/webtesttool/pkg/ratelimit"
)

// Refresher periodically copies limiter state gauges (token counts,
// adjusted limits, load factors) out of the admission registry. Counters
// and histograms are recorded at check time by callers; only the
// point-in-time gauges need polling.
type Refresher struct {
	registry *ratelimit.Registry
	metrics  *Metrics
	interval time.Duration
}

// NewRefresher creates a gauge refresher. A non-positive interval selects
// 15 seconds.
func NewRefresher(registry *ratelimit.Registry, m *Metrics, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Refresher{
		registry: registry,
		metrics:  m,
		interval: interval,
	}
}

// Run refreshes gauges on the configured interval until the context is
// cancelled. It refreshes once immediately on entry.
func (r *Refresher) Run(ctx context.Context) {
	r.Refresh()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh()
		}
	}
}

// Refresh copies the current limiter state into the gauges once.
func (r *Refresher) Refresh() {
	for _, name := range r.registry.Names() {
		if tokens, ok := r.registry.Tokens(name); ok {
			r.metrics.UpdateBucketTokens(name, tokens)
		}
		if limit, factor, ok := r.registry.AdaptiveState(name); ok {
			r.metrics.UpdateAdaptive(name, limit, factor)
		}
	}
}
