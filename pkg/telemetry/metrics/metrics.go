// Package metrics exposes Prometheus collectors for the admission-control
// subsystem. The core ratelimit package stays metrics-free; callers record
// outcomes here and a gauge refresher reads the registry's introspection
// methods (token counts, adjusted limits) on a schedule.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for admission control.
type Metrics struct {
	checks        *prometheus.CounterVec
	denials       *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec

	bucketTokens  *prometheus.GaugeVec
	adaptiveLimit *prometheus.GaugeVec
	loadFactor    *prometheus.GaugeVec
}

// New creates a Metrics instance and registers its collectors with reg.
// Pass prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webtesttool_admission_checks_total",
				Help: "Total number of admission checks performed",
			},
			[]string{"limiter", "result"},
		),
		denials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webtesttool_admission_denials_total",
				Help: "Total number of denied admission checks",
			},
			[]string{"limiter"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webtesttool_admission_check_duration_seconds",
				Help:    "Duration of admission checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"limiter"},
		),
		bucketTokens: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "webtesttool_admission_bucket_tokens",
				Help: "Current token count of token-bucket limiters",
			},
			[]string{"limiter"},
		),
		adaptiveLimit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "webtesttool_admission_adaptive_limit",
				Help: "Current adjusted limit of adaptive limiters",
			},
			[]string{"limiter"},
		),
		loadFactor: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "webtesttool_admission_load_factor",
				Help: "Most recently applied load factor",
			},
			[]string{"limiter"},
		),
	}

	reg.MustRegister(m.checks, m.denials, m.checkDuration,
		m.bucketTokens, m.adaptiveLimit, m.loadFactor)
	return m
}

// RecordCheck records an admission check outcome and its duration.
func (m *Metrics) RecordCheck(limiter string, allowed bool, duration time.Duration) {
	result := "allowed"
	if !allowed {
		result = "denied"
		m.denials.WithLabelValues(limiter).Inc()
	}
	m.checks.WithLabelValues(limiter, result).Inc()
	m.checkDuration.WithLabelValues(limiter).Observe(duration.Seconds())
}

// UpdateBucketTokens updates the token gauge for a token-bucket limiter.
func (m *Metrics) UpdateBucketTokens(limiter string, tokens float64) {
	m.bucketTokens.WithLabelValues(limiter).Set(tokens)
}

// UpdateAdaptive updates the adjusted-limit and load-factor gauges for an
// adaptive limiter.
func (m *Metrics) UpdateAdaptive(limiter string, limit int, factor float64) {
	m.adaptiveLimit.WithLabelValues(limiter).Set(float64(limit))
	m.loadFactor.WithLabelValues(limiter).Set(factor)
}
