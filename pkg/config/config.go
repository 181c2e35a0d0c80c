package config

import (
	"time"

	"github.com/agobrik/webtesttool/pkg/ratelimit"
)

// Config is the root configuration structure for webtesttool.
type Config struct {
	// Server contains HTTP server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Limits maps limiter names to admission-control configurations.
	// Each named limiter gates one admission-sensitive operation.
	Limits map[string]LimiterConfig `yaml:"limits"`

	// Adaptive contains the load-signal sampler configuration feeding
	// adaptive limiters.
	Adaptive AdaptiveConfig `yaml:"adaptive"`

	// Storage configures persistence of scan results and findings.
	Storage StorageConfig `yaml:"storage"`

	// Notify configures outbound webhook delivery of findings.
	Notify NotifyConfig `yaml:"notify"`

	// Telemetry contains logging configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8089"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LimiterConfig describes a single named rate limiter.
type LimiterConfig struct {
	// MaxRequests is the maximum number of admissions per window.
	MaxRequests int `yaml:"max_requests"`

	// WindowSeconds is the accounting window length in seconds.
	WindowSeconds int `yaml:"window_seconds"`

	// Strategy selects the algorithm: "token_bucket", "fixed_window" or
	// "sliding_window".
	Strategy string `yaml:"strategy"`

	// Adaptive wraps the limiter in an adaptive controller driven by the
	// load-signal sampler. Requires the sliding_window strategy.
	Adaptive bool `yaml:"adaptive"`
}

// RateLimit converts the YAML form into the core package's config.
func (l LimiterConfig) RateLimit() ratelimit.Config {
	return ratelimit.Config{
		MaxRequests:   l.MaxRequests,
		WindowSeconds: l.WindowSeconds,
		Strategy:      ratelimit.Strategy(l.Strategy),
	}
}

// AdaptiveConfig configures the load-signal sampler.
type AdaptiveConfig struct {
	// SampleSchedule is a cron expression controlling how often the load
	// signal is sampled and applied to adaptive limiters.
	// Default: "@every 30s"
	SampleSchedule string `yaml:"sample_schedule"`
}

// StorageConfig configures scan result persistence.
type StorageConfig struct {
	// Backend selects the storage backend: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path. Required for the sqlite backend.
	Path string `yaml:"path"`

	// RetentionDays is how long scan results are kept before pruning.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduled retention pruning.
	// Empty disables scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// NotifyConfig configures webhook notification delivery.
type NotifyConfig struct {
	// WebhookURL is the endpoint findings are delivered to.
	// Empty disables notifications.
	WebhookURL string `yaml:"webhook_url"`

	// Timeout is the per-delivery HTTP timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is how many times a failed delivery is retried.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}
