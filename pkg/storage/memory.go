package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend implements Backend with an in-memory map. All data is lost
// when the process exits; it exists for tests and ephemeral runs.
type MemoryBackend struct {
	mu    sync.RWMutex
	scans map[string]*ScanResult
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{scans: make(map[string]*ScanResult)}
}

// SaveScan stores a copy of the scan keyed by ID.
func (b *MemoryBackend) SaveScan(_ context.Context, scan *ScanResult) error {
	cp := *scan
	cp.Findings = append([]Finding(nil), scan.Findings...)

	b.mu.Lock()
	b.scans[scan.ID] = &cp
	b.mu.Unlock()
	return nil
}

// GetScan retrieves a scan by ID.
func (b *MemoryBackend) GetScan(_ context.Context, id string) (*ScanResult, error) {
	b.mu.RLock()
	scan, ok := b.scans[id]
	b.mu.RUnlock()

	if !ok {
		return nil, ErrScanNotFound
	}
	cp := *scan
	cp.Findings = append([]Finding(nil), scan.Findings...)
	return &cp, nil
}

// ListScans returns stored scans newest first, findings omitted.
func (b *MemoryBackend) ListScans(_ context.Context, limit int) ([]*ScanResult, error) {
	b.mu.RLock()
	out := make([]*ScanResult, 0, len(b.scans))
	for _, scan := range b.scans {
		cp := *scan
		cp.Findings = nil
		out = append(out, &cp)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Cleanup removes scans that started before olderThan.
func (b *MemoryBackend) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	deleted := 0
	for id, scan := range b.scans {
		if scan.StartedAt.Before(olderThan) {
			delete(b.scans, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (b *MemoryBackend) Close() error {
	return nil
}
