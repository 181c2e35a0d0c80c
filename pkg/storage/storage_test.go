package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

// backendUnderTest runs the shared conformance tests against each backend.
func backends(t *testing.T) map[string]Backend {
	t.Helper()

	sqlite, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "scans.db"))
	if err != nil {
		t.Fatalf("NewSQLiteBackend: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"sqlite": sqlite,
	}
}

func sampleScan(started time.Time) *ScanResult {
	scanID := uuid.NewString()
	return &ScanResult{
		ID:         scanID,
		Target:     "https://example.com",
		Status:     StatusCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Findings: []Finding{
			{
				ID:         uuid.NewString(),
				ScanID:     scanID,
				Check:      "tls-version",
				Severity:   SeverityHigh,
				Title:      "Deprecated TLS version accepted",
				Detail:     "Server negotiated TLS 1.0",
				DetectedAt: started.Add(10 * time.Second),
			},
			{
				ID:         uuid.NewString(),
				ScanID:     scanID,
				Check:      "security-headers",
				Severity:   SeverityLow,
				Title:      "Missing X-Content-Type-Options",
				DetectedAt: started.Add(20 * time.Second),
			},
		},
	}
}

func TestBackend_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			scan := sampleScan(time.Now().Add(-time.Hour))
			if err := b.SaveScan(ctx, scan); err != nil {
				t.Fatalf("SaveScan: %v", err)
			}

			got, err := b.GetScan(ctx, scan.ID)
			if err != nil {
				t.Fatalf("GetScan: %v", err)
			}
			if got.Target != scan.Target || got.Status != scan.Status {
				t.Errorf("scan mismatch: %+v", got)
			}
			if len(got.Findings) != 2 {
				t.Fatalf("expected 2 findings, got %d", len(got.Findings))
			}
			if got.Findings[0].Check != "tls-version" || got.Findings[0].Severity != SeverityHigh {
				t.Errorf("finding mismatch: %+v", got.Findings[0])
			}
		})
	}
}

func TestBackend_GetMissing(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.GetScan(ctx, uuid.NewString())
			if !errors.Is(err, ErrScanNotFound) {
				t.Errorf("expected ErrScanNotFound, got %v", err)
			}
		})
	}
}

func TestBackend_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			scan := sampleScan(time.Now())
			if err := b.SaveScan(ctx, scan); err != nil {
				t.Fatal(err)
			}

			scan.Status = StatusFailed
			scan.Findings = scan.Findings[:1]
			if err := b.SaveScan(ctx, scan); err != nil {
				t.Fatal(err)
			}

			got, err := b.GetScan(ctx, scan.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Status != StatusFailed {
				t.Errorf("status = %q, want failed", got.Status)
			}
			if len(got.Findings) != 1 {
				t.Errorf("expected replaced findings, got %d", len(got.Findings))
			}
		})
	}
}

func TestBackend_ListScansNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Now().Add(-3 * time.Hour)
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if err := b.SaveScan(ctx, sampleScan(base.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatal(err)
				}
			}

			scans, err := b.ListScans(ctx, 2)
			if err != nil {
				t.Fatalf("ListScans: %v", err)
			}
			if len(scans) != 2 {
				t.Fatalf("expected 2 scans, got %d", len(scans))
			}
			if !scans[0].StartedAt.After(scans[1].StartedAt) {
				t.Error("expected newest-first ordering")
			}
			if len(scans[0].Findings) != 0 {
				t.Error("expected findings omitted from listing")
			}
		})
	}
}

func TestBackend_Cleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			old := sampleScan(now.Add(-48 * time.Hour))
			recent := sampleScan(now.Add(-time.Hour))
			if err := b.SaveScan(ctx, old); err != nil {
				t.Fatal(err)
			}
			if err := b.SaveScan(ctx, recent); err != nil {
				t.Fatal(err)
			}

			deleted, err := b.Cleanup(ctx, now.Add(-24*time.Hour))
			if err != nil {
				t.Fatalf("Cleanup: %v", err)
			}
			if deleted != 1 {
				t.Errorf("deleted = %d, want 1", deleted)
			}

			if _, err := b.GetScan(ctx, old.ID); !errors.Is(err, ErrScanNotFound) {
				t.Error("expected old scan removed")
			}
			if _, err := b.GetScan(ctx, recent.ID); err != nil {
				t.Errorf("expected recent scan retained: %v", err)
			}
		})
	}
}
