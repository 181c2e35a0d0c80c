package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agobrik/webtesttool/pkg/storage"
)

func testScan() *storage.ScanResult {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &storage.ScanResult{
		ID:         "scan-1",
		Target:     "https://example.com",
		Status:     storage.StatusCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Findings: []storage.Finding{
			{
				ID:       "finding-1",
				ScanID:   "scan-1",
				Check:    "security-headers",
				Severity: storage.SeverityMedium,
				Title:    "Missing Content-Security-Policy",
			},
		},
	}
}

func TestNotifier_DeliversPayload(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if r.Header.Get("X-Delivery-ID") == "" {
			t.Error("missing delivery ID header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(Config{WebhookURL: srv.URL}, nil)
	if err := n.NotifyScan(context.Background(), testScan()); err != nil {
		t.Fatalf("NotifyScan: %v", err)
	}

	if got.Scan.ID != "scan-1" || got.Scan.Target != "https://example.com" {
		t.Errorf("scan summary mismatch: %+v", got.Scan)
	}
	if len(got.Findings) != 1 || got.Findings[0].Check != "security-headers" {
		t.Errorf("findings mismatch: %+v", got.Findings)
	}
	if got.DeliveryID == "" {
		t.Error("expected delivery ID in payload")
	}
}

func TestNotifier_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(Config{WebhookURL: srv.URL, MaxRetries: 2}, nil)
	if err := n.NotifyScan(context.Background(), testScan()); err != nil {
		t.Fatalf("NotifyScan: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestNotifier_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier(Config{WebhookURL: srv.URL, MaxRetries: 3}, nil)
	err := n.NotifyScan(context.Background(), testScan())

	var delivErr *DeliveryError
	if !errors.As(err, &delivErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if delivErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", delivErr.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestNotifier_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewNotifier(Config{WebhookURL: srv.URL, MaxRetries: 1}, nil)
	err := n.NotifyScan(context.Background(), testScan())

	var delivErr *DeliveryError
	if !errors.As(err, &delivErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestNotifier_DisabledWithoutURL(t *testing.T) {
	n := NewNotifier(Config{}, nil)
	if n.Enabled() {
		t.Error("expected notifier disabled")
	}
	if err := n.NotifyScan(context.Background(), testScan()); err != nil {
		t.Errorf("NotifyScan with no URL: %v", err)
	}
}
