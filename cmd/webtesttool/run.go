package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/agobrik/webtesttool/pkg/config"
	"github.com/agobrik/webtesttool/pkg/loadsignal"
	"github.com/agobrik/webtesttool/pkg/notify"
	"github.com/agobrik/webtesttool/pkg/ratelimit"
	"github.com/agobrik/webtesttool/pkg/scanner"
	"github.com/agobrik/webtesttool/pkg/server"
	"github.com/agobrik/webtesttool/pkg/storage"
	"github.com/agobrik/webtesttool/pkg/telemetry/logging"
	"github.com/agobrik/webtesttool/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the webtesttool API server",
	Long: `Start the webtesttool API server with the specified configuration.

The server accepts scan submissions over HTTP, gated by the configured
admission limiters, runs the passive checks, and stores the results.

Examples:
  # Start with default config
  webtesttool run

  # Start with custom config
  webtesttool run --config /etc/webtesttool/config.yaml

  # Override listen address
  webtesttool run --listen 0.0.0.0:8089

  # Reload limiter configuration on config file changes
  webtesttool run --watch

  # Validate config without starting the server
  webtesttool run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload limiter configuration on config file changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return newConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("Configuration valid")
		return nil
	}

	fmt.Printf("Webtesttool v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Admission registry
	registry := ratelimit.NewRegistry(ratelimit.WithLogger(logger))
	if err := registerLimiters(registry, cfg.Limits, logger); err != nil {
		return err
	}
	fmt.Printf("Limiters registered (%d)\n", len(cfg.Limits))

	// Storage backend
	backend, err := buildBackend(&cfg.Storage)
	if err != nil {
		return err
	}
	defer backend.Close()
	fmt.Printf("Storage initialized (%s)\n", cfg.Storage.Backend)

	// Retention pruner
	pruner := storage.NewPruner(backend, cfg.Storage.RetentionDays, cfg.Storage.PruneSchedule, logger)
	if err := pruner.Start(ctx); err != nil {
		logger.Warn("failed to start retention pruner", "error", err)
	} else {
		defer pruner.Stop()
	}

	// Webhook notifier
	var notifier *notify.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewNotifier(notify.Config{
			WebhookURL: cfg.Notify.WebhookURL,
			Timeout:    cfg.Notify.Timeout,
			MaxRetries: cfg.Notify.MaxRetries,
		}, logger)
		fmt.Println("Webhook notifications enabled")
	}

	sc := scanner.NewScanner(scanner.Config{}, scanner.DefaultChecks(), backend, notifier, logger)

	// Metrics
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	go metrics.NewRefresher(registry, m, 15*time.Second).Run(ctx)

	// Load sampler for adaptive limiters
	if hasAdaptiveLimiter(cfg.Limits) {
		sampler := loadsignal.NewSampler(
			loadsignal.SamplerConfig{Schedule: cfg.Adaptive.SampleSchedule},
			&loadsignal.GoroutineLoadProvider{},
			registry,
			logger,
		)
		if err := sampler.Start(ctx); err != nil {
			logger.Warn("failed to start load sampler", "error", err)
		} else {
			defer sampler.Stop()
			fmt.Println("Load-adaptive limiting enabled")
		}
	}

	// Config watcher re-registers limiters on file changes
	if runFlags.watch {
		watcher, err := config.NewWatcher(config.WatcherConfig{Path: cfgFile}, logger)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		go func() {
			err := watcher.Watch(ctx, func() error {
				fresh, err := config.LoadConfigWithEnvOverrides(cfgFile)
				if err != nil {
					return err
				}
				return registerLimiters(registry, fresh.Limits, logger)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
		fmt.Println("Config watching enabled")
	}

	srv := server.NewServer(cfg.Server, registry, sc, backend, m, promReg, logger)

	fmt.Printf("\nServer listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	fmt.Printf("Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return newCommandError("run", err)
	}
	return nil
}

// registerLimiters loads every configured limiter into the registry.
// Replacement semantics make this safe to call again on config reload.
func registerLimiters(registry *ratelimit.Registry, limits map[string]config.LimiterConfig, logger *slog.Logger) error {
	for name, lc := range limits {
		var err error
		if lc.Adaptive {
			err = registry.AddAdaptiveLimiter(name, lc.RateLimit())
		} else {
			err = registry.AddLimiter(name, lc.RateLimit())
		}
		if err != nil {
			return fmt.Errorf("failed to register limiter %q: %w", name, err)
		}
		logger.Debug("limiter registered",
			"limiter", name,
			"strategy", lc.Strategy,
			"max_requests", lc.MaxRequests,
			"window_seconds", lc.WindowSeconds,
			"adaptive", lc.Adaptive,
		)
	}
	return nil
}

func hasAdaptiveLimiter(limits map[string]config.LimiterConfig) bool {
	for _, lc := range limits {
		if lc.Adaptive {
			return true
		}
	}
	return false
}

func buildBackend(cfg *config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		backend, err := storage.NewSQLiteBackend(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite storage: %w", err)
		}
		return backend, nil
	case "memory":
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
