// Package storage persists scan results and findings.
//
// The admission-control core never touches this package; it is one of the
// external collaborators that consume admission decisions. Two backends are
// provided: an in-memory store for tests and ephemeral runs, and a SQLite
// store for single-instance deployments that need durability.
package storage

import (
	"context"
	"errors"
	"time"
)

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ScanStatus is the lifecycle state of a scan.
type ScanStatus string

const (
	StatusRunning   ScanStatus = "running"
	StatusCompleted ScanStatus = "completed"
	StatusFailed    ScanStatus = "failed"
)

// ScanResult is the outcome of a single scan of a target. The JSON tags
// define the wire shape shared by the API and webhook payloads.
type ScanResult struct {
	// ID uniquely identifies the scan (UUID).
	ID string `json:"id"`

	// Target is the URL or host that was scanned.
	Target string `json:"target"`

	// Status is the scan's lifecycle state.
	Status ScanStatus `json:"status"`

	// StartedAt is when the scan began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the scan ended; zero while running.
	FinishedAt time.Time `json:"finished_at"`

	// Findings are the issues detected by the scan.
	Findings []Finding `json:"findings,omitempty"`
}

// Finding is a single issue detected during a scan.
type Finding struct {
	// ID uniquely identifies the finding (UUID).
	ID string `json:"id"`

	// ScanID references the owning scan.
	ScanID string `json:"scan_id"`

	// Check names the check that produced the finding.
	Check string `json:"check"`

	// Severity classifies the finding.
	Severity Severity `json:"severity"`

	// Title is a short human-readable summary.
	Title string `json:"title"`

	// Detail carries the full description and evidence.
	Detail string `json:"detail"`

	// DetectedAt is when the finding was recorded.
	DetectedAt time.Time `json:"detected_at"`
}

// Backend is the interface for scan result persistence.
// Implementations must be safe for concurrent use.
type Backend interface {
	// SaveScan persists a scan result and its findings. An existing scan
	// with the same ID is replaced.
	SaveScan(ctx context.Context, scan *ScanResult) error

	// GetScan retrieves a scan with its findings by ID.
	// Returns ErrScanNotFound if no such scan exists.
	GetScan(ctx context.Context, id string) (*ScanResult, error)

	// ListScans returns the most recent scans, newest first, without
	// findings. limit <= 0 means no limit.
	ListScans(ctx context.Context, limit int) ([]*ScanResult, error)

	// Cleanup removes scans (and their findings) that started before the
	// given time. Returns the number of scans deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases any resources held by the backend.
	Close() error
}

// ErrScanNotFound is returned when a requested scan does not exist.
var ErrScanNotFound = errors.New("scan not found")
