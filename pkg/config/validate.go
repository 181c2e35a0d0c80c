package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/agobrik/webtesttool/pkg/ratelimit"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "limits.scan-submit.max_requests").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateLimits(cfg.Limits)...)
	errs = append(errs, validateAdaptive(&cfg.Adaptive)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	errs = append(errs, validateLogging(&cfg.Telemetry.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError
	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "must not be empty"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{"server.shutdown_timeout", "must not be negative"})
	}
	return errs
}

func validateLimits(limits map[string]LimiterConfig) []FieldError {
	var errs []FieldError
	for name, l := range limits {
		field := func(f string) string { return fmt.Sprintf("limits.%s.%s", name, f) }

		if l.MaxRequests <= 0 {
			errs = append(errs, FieldError{field("max_requests"), fmt.Sprintf("must be > 0, got %d", l.MaxRequests)})
		}
		if l.WindowSeconds <= 0 {
			errs = append(errs, FieldError{field("window_seconds"), fmt.Sprintf("must be > 0, got %d", l.WindowSeconds)})
		}
		if !ratelimit.Strategy(l.Strategy).Valid() {
			errs = append(errs, FieldError{field("strategy"),
				fmt.Sprintf("must be one of token_bucket, fixed_window, sliding_window; got %q", l.Strategy)})
		}
		if l.Adaptive && ratelimit.Strategy(l.Strategy) != ratelimit.StrategySlidingWindow {
			errs = append(errs, FieldError{field("adaptive"), "adaptive limiters require the sliding_window strategy"})
		}
	}
	return errs
}

func validateAdaptive(cfg *AdaptiveConfig) []FieldError {
	var errs []FieldError
	if cfg.SampleSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SampleSchedule); err != nil {
			errs = append(errs, FieldError{"adaptive.sample_schedule", fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError
	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.Path == "" {
			errs = append(errs, FieldError{"storage.path", "required for the sqlite backend"})
		}
	default:
		errs = append(errs, FieldError{"storage.backend", fmt.Sprintf("must be \"memory\" or \"sqlite\", got %q", cfg.Backend)})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{"storage.retention_days", "must not be negative"})
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{"storage.prune_schedule", fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	return errs
}

func validateNotify(cfg *NotifyConfig) []FieldError {
	var errs []FieldError
	if cfg.WebhookURL != "" {
		u, err := url.Parse(cfg.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{"notify.webhook_url", "must be a valid http or https URL"})
		}
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{"notify.max_retries", "must not be negative"})
	}
	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level",
			fmt.Sprintf("must be one of debug, info, warn, error; got %q", cfg.Level)})
	}
	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format",
			fmt.Sprintf("must be \"json\" or \"text\", got %q", cfg.Format)})
	}
	return errs
}
