package config

import "time"

// Default values applied by ApplyDefaults for fields left zero in the file.
const (
	DefaultListenAddress   = "127.0.0.1:8089"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultSampleSchedule = "@every 30s"

	DefaultStorageBackend = "memory"
	DefaultRetentionDays  = 30
	DefaultPruneSchedule  = "0 3 * * *"

	DefaultNotifyTimeout    = 10 * time.Second
	DefaultNotifyMaxRetries = 3

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills in default values for any unset configuration fields.
// Limiter entries are not defaulted: an admission limit is meaningless
// without explicit numbers, so missing fields there fail validation instead.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Adaptive.SampleSchedule == "" {
		cfg.Adaptive.SampleSchedule = DefaultSampleSchedule
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = DefaultRetentionDays
	}
	if cfg.Storage.PruneSchedule == "" {
		cfg.Storage.PruneSchedule = DefaultPruneSchedule
	}

	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = DefaultNotifyTimeout
	}
	if cfg.Notify.MaxRetries == 0 {
		cfg.Notify.MaxRetries = DefaultNotifyMaxRetries
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
}
