// Package notify delivers scan findings to an external webhook endpoint.
//
// Deliveries are JSON POST requests carrying the scan summary and its
// findings. Transient failures (network errors, 5xx responses) are retried
// with exponential backoff; client errors are not retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agobrik/webtesttool/pkg/storage"
	"github.com/agobrik/webtesttool/pkg/telemetry/logging"
)

// Config controls webhook delivery behavior.
type Config struct {
	// WebhookURL is the endpoint that receives scan notifications.
	// An empty URL disables delivery.
	WebhookURL string

	// Timeout bounds a single delivery attempt.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first
	// delivery fails with a retryable error.
	MaxRetries int
}

// Payload is the JSON body sent to the webhook.
type Payload struct {
	DeliveryID string            `json:"delivery_id"`
	SentAt     time.Time         `json:"sent_at"`
	Scan       ScanSummary       `json:"scan"`
	Findings   []storage.Finding `json:"findings"`
}

// ScanSummary is the scan-level portion of the payload.
type ScanSummary struct {
	ID         string             `json:"id"`
	Target     string             `json:"target"`
	Status     storage.ScanStatus `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// DeliveryError describes a webhook delivery that failed after all retries.
type DeliveryError struct {
	DeliveryID string
	StatusCode int
	Cause      error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("webhook delivery %s failed: %v", e.DeliveryID, e.Cause)
	}
	return fmt.Sprintf("webhook delivery %s failed with status %d", e.DeliveryID, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error { return e.Cause }

// Notifier posts scan results to a configured webhook.
type Notifier struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// NewNotifier creates a webhook notifier. A nil logger falls back to
// slog.Default.
func NewNotifier(config Config, logger *slog.Logger) *Notifier {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		config: config,
		client: &http.Client{Timeout: timeout},
		logger: logging.Component(logger, "notify"),
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.config.WebhookURL != ""
}

// NotifyScan delivers the scan and its findings to the webhook. Each call
// gets a fresh delivery ID so the receiver can deduplicate retried batches.
// It returns nil when no webhook is configured.
func (n *Notifier) NotifyScan(ctx context.Context, scan *storage.ScanResult) error {
	if !n.Enabled() {
		return nil
	}

	payload := Payload{
		DeliveryID: uuid.NewString(),
		SentAt:     time.Now().UTC(),
		Scan: ScanSummary{
			ID:         scan.ID,
			Target:     scan.Target,
			Status:     scan.Status,
			StartedAt:  scan.StartedAt,
			FinishedAt: scan.FinishedAt,
		},
		Findings: scan.Findings,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			n.logger.Debug("retrying webhook delivery",
				"delivery_id", payload.DeliveryID,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		status, err := n.deliver(ctx, body, payload.DeliveryID)
		if err == nil {
			n.logger.Info("webhook delivered",
				"delivery_id", payload.DeliveryID,
				"scan_id", scan.ID,
				"findings", len(scan.Findings),
			)
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// 4xx responses indicate a receiver-side rejection that a retry
		// cannot fix.
		if status >= 400 && status < 500 {
			return &DeliveryError{DeliveryID: payload.DeliveryID, StatusCode: status}
		}

		lastErr = err
		n.logger.Warn("webhook delivery failed, will retry",
			"delivery_id", payload.DeliveryID,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return &DeliveryError{DeliveryID: payload.DeliveryID, Cause: lastErr}
}

// deliver performs a single POST attempt. The returned status is zero when
// the request never reached the receiver.
func (n *Notifier) deliver(ctx context.Context, body []byte, deliveryID string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", deliveryID)

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
}
