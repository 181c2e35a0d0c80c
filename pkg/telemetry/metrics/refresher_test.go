package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/agobrik/webtesttool/pkg/ratelimit"
)

func TestRefresher_CopiesLimiterState(t *testing.T) {
	registry := ratelimit.NewRegistry()
	if err := registry.AddLimiter("ingest", ratelimit.Config{
		MaxRequests:   60,
		WindowSeconds: 60,
		Strategy:      ratelimit.StrategyTokenBucket,
	}); err != nil {
		t.Fatal(err)
	}
	if err := registry.AddAdaptiveLimiter("scan-submit", ratelimit.Config{
		MaxRequests:   100,
		WindowSeconds: 60,
		Strategy:      ratelimit.StrategySlidingWindow,
	}); err != nil {
		t.Fatal(err)
	}
	if err := registry.SetLoadFactor("scan-submit", 0.5); err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	m := New(reg)

	NewRefresher(registry, m, time.Minute).Refresh()

	if got := testutil.ToFloat64(m.bucketTokens.WithLabelValues("ingest")); got != 60 {
		t.Errorf("bucket tokens = %v, want full capacity 60", got)
	}
	if got := testutil.ToFloat64(m.adaptiveLimit.WithLabelValues("scan-submit")); got != 50 {
		t.Errorf("adaptive limit = %v, want 50", got)
	}
	if got := testutil.ToFloat64(m.loadFactor.WithLabelValues("scan-submit")); got != 0.5 {
		t.Errorf("load factor = %v, want 0.5", got)
	}
}
