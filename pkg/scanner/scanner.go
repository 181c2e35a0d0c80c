// Package scanner runs passive security checks against a web target and
// records the results.
//
// A scan fetches the target once, hands the response to each registered
// check, persists the resulting findings through the storage backend, and
// optionally delivers them to a webhook.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agobrik/webtesttool/pkg/notify"
	"github.com/agobrik/webtesttool/pkg/storage"
	"github.com/agobrik/webtesttool/pkg/telemetry/logging"
)

// Check inspects a target response and reports findings. Implementations
// must be safe for concurrent use.
type Check interface {
	// Name identifies the check in findings and logs.
	Name() string

	// Inspect examines the response and returns zero or more findings.
	// The finding ID, ScanID, Check, and DetectedAt fields are filled in
	// by the scanner.
	Inspect(resp *http.Response) []storage.Finding
}

// Config controls scan execution.
type Config struct {
	// RequestTimeout bounds the target fetch. Zero selects 30 seconds.
	RequestTimeout time.Duration
}

// Scanner fetches targets and evaluates security checks against them.
type Scanner struct {
	config   Config
	checks   []Check
	backend  storage.Backend
	notifier *notify.Notifier
	client   *http.Client
	logger   *slog.Logger
}

// NewScanner creates a scanner with the given checks. A nil notifier
// disables webhook delivery and a nil logger falls back to slog.Default.
func NewScanner(config Config, checks []Check, backend storage.Backend, notifier *notify.Notifier, logger *slog.Logger) *Scanner {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scanner{
		config:   config,
		checks:   checks,
		backend:  backend,
		notifier: notifier,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.Component(logger, "scanner"),
	}
}

// Scan fetches the target, runs every check, and persists the result.
// The returned scan is also stored when the fetch fails, with a failed
// status and no findings, so operators can see the attempt.
func (s *Scanner) Scan(ctx context.Context, target string) (*storage.ScanResult, error) {
	scan := &storage.ScanResult{
		ID:        uuid.NewString(),
		Target:    target,
		Status:    storage.StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Info("scan started", "scan_id", scan.ID, "target", target)

	resp, err := s.fetch(ctx, target)
	if err != nil {
		scan.Status = storage.StatusFailed
		scan.FinishedAt = time.Now().UTC()
		if saveErr := s.backend.SaveScan(ctx, scan); saveErr != nil {
			s.logger.Error("failed to record failed scan",
				"scan_id", scan.ID,
				"error", saveErr,
			)
		}
		return scan, fmt.Errorf("failed to fetch target %s: %w", target, err)
	}
	defer resp.Body.Close()

	for _, check := range s.checks {
		findings := check.Inspect(resp)
		for i := range findings {
			findings[i].ID = uuid.NewString()
			findings[i].ScanID = scan.ID
			findings[i].Check = check.Name()
			findings[i].DetectedAt = time.Now().UTC()
		}
		scan.Findings = append(scan.Findings, findings...)
	}

	scan.Status = storage.StatusCompleted
	scan.FinishedAt = time.Now().UTC()

	if err := s.backend.SaveScan(ctx, scan); err != nil {
		return scan, fmt.Errorf("failed to persist scan %s: %w", scan.ID, err)
	}

	s.logger.Info("scan completed",
		"scan_id", scan.ID,
		"target", target,
		"findings", len(scan.Findings),
	)

	if s.notifier != nil && s.notifier.Enabled() && len(scan.Findings) > 0 {
		if err := s.notifier.NotifyScan(ctx, scan); err != nil {
			// Delivery failures must not fail the scan.
			s.logger.Warn("webhook notification failed",
				"scan_id", scan.ID,
				"error", err,
			)
		}
	}

	return scan, nil
}

func (s *Scanner) fetch(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "webtesttool-scanner")
	return s.client.Do(req)
}
