package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/agobrik/webtesttool/pkg/telemetry/logging"
)

// Pruner removes scans older than the retention period on a cron schedule.
type Pruner struct {
	backend   Backend
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewPruner creates a pruner deleting scans older than retentionDays,
// running on the given cron schedule (e.g., "0 3 * * *" for daily at 3 AM).
func NewPruner(backend Backend, retentionDays int, schedule string, logger *slog.Logger) *Pruner {
	return &Pruner{
		backend:   backend,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logging.Component(logger, "storage.pruner"),
	}
}

// Start begins scheduled pruning. An empty schedule disables the pruner.
// The pruner stops when ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.schedule == "" {
		p.logger.Info("prune schedule not configured, skipping pruner")
		return nil
	}
	if p.running {
		return fmt.Errorf("pruner already running")
	}

	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.schedule, err)
	}
	if _, err := p.cron.AddFunc(p.schedule, func() { p.runPrune(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("retention pruner started",
		"schedule", p.schedule,
		"retention", p.retention.String(),
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop halts scheduled pruning.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.cron.Stop()
	p.running = false
	p.logger.Info("retention pruner stopped")
}

// runPrune executes one pruning cycle.
func (p *Pruner) runPrune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)
	deleted, err := p.backend.Cleanup(ctx, cutoff)
	if err != nil {
		p.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	if deleted > 0 {
		p.logger.Info("scheduled pruning completed",
			"deleted_scans", deleted,
			"cutoff", cutoff,
		)
	}
}
