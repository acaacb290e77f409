package mwl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PrunerConfig controls scheduled retention of stale MWL entries.
type PrunerConfig struct {
	// RetentionAfterScheduledStart is how long an entry is kept past its
	// ScheduledStart before a pruning cycle removes it.
	RetentionAfterScheduledStart time.Duration

	// Schedule is a robfig/cron/v3 expression; an empty schedule disables
	// the background scheduler (Prune can still be invoked directly).
	Schedule string
}

// Pruner removes MWL entries whose ScheduledStart has fallen outside the
// configured retention window, on a cron schedule.
type Pruner struct {
	store  Store
	cfg    PrunerConfig
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewPruner builds a Pruner over store. Call Start to begin the
// scheduled sweep, or Prune directly for a one-off run (e.g. from an
// admin command).
func NewPruner(store Store, cfg PrunerConfig) *Pruner {
	return &Pruner{
		store:  store,
		cfg:    cfg,
		logger: slog.Default().With("component", "mwl.pruner"),
	}
}

// Prune deletes every entry whose ScheduledStart is older than now minus
// the retention window, and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-p.cfg.RetentionAfterScheduledStart)

	stale, err := p.store.Query(ctx, Filter{StartTo: cutoff})
	if err != nil {
		return 0, fmt.Errorf("mwl: query stale entries: %w", err)
	}

	var removed int
	for _, entry := range stale {
		if err := p.store.RemoveByAccession(ctx, entry.Accession); err != nil {
			return removed, fmt.Errorf("mwl: remove accession %s: %w", entry.Accession, err)
		}
		removed++
	}

	if removed > 0 {
		p.logger.Info("pruned stale worklist entries", "count", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// Start schedules Prune on cfg.Schedule. It is a no-op if Schedule is
// empty. The scheduler stops when ctx is canceled.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.Schedule == "" {
		p.logger.Info("mwl pruner schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(p.cfg.Schedule); err != nil {
		return fmt.Errorf("mwl: invalid pruner schedule %q: %w", p.cfg.Schedule, err)
	}

	p.cron = cron.New()
	if _, err := p.cron.AddFunc(p.cfg.Schedule, func() {
		if _, err := p.Prune(ctx); err != nil {
			p.logger.Error("scheduled mwl prune failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("mwl: schedule pruner: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("mwl pruner scheduler started", "schedule", p.cfg.Schedule)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop halts the scheduler, waiting for any in-flight prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil && p.running {
		stopCtx := p.cron.Stop()
		<-stopCtx.Done()
		p.running = false
		p.logger.Info("mwl pruner scheduler stopped")
	}
}
