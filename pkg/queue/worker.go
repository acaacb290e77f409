package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sender delivers one queue entry's payload to its destination and
// reports success or failure. The queue depends only on this narrow
// interface, not on transport or routing, to avoid a cyclic dependency
// between the router and the queue.
type Sender interface {
	Send(ctx context.Context, destination string, payload []byte) error
}

// WorkerPoolConfig controls the claim/drain loop.
type WorkerPoolConfig struct {
	Workers      int
	PollInterval time.Duration
	ReapInterval time.Duration
	ReapAfter    time.Duration
	Backoff      BackoffConfig
}

// DefaultWorkerPoolConfig returns 4 workers polling every 200ms, reaping
// in_flight entries abandoned for more than 2 minutes.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:      4,
		PollInterval: 200 * time.Millisecond,
		ReapInterval: 30 * time.Second,
		ReapAfter:    2 * time.Minute,
		Backoff:      DefaultBackoffConfig(),
	}
}

// WorkerPool drains the durable queue: each worker claims one entry at a
// time and hands it to Sender, marking success or scheduling a retry. A
// separate reaper recovers entries whose worker crashed mid-delivery.
type WorkerPool struct {
	store  Store
	sender Sender
	cfg    WorkerPoolConfig

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewWorkerPool(store Store, sender Sender, cfg WorkerPoolConfig) *WorkerPool {
	return &WorkerPool{
		store:  store,
		sender: sender,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
}

// Start launches the worker goroutines and the reaper. It returns
// immediately; call Stop to shut down.
func (p *WorkerPool) Start(ctx context.Context) {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx)
	}
	p.wg.Add(1)
	go p.runReaper(ctx)
}

// Stop signals all goroutines to exit and waits for them.
func (p *WorkerPool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

func (p *WorkerPool) runWorker(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.drainOnce(ctx)
		}
	}
}

func (p *WorkerPool) drainOnce(ctx context.Context) {
	entries, err := p.store.Claim(ctx, 1)
	if err != nil {
		slog.Error("queue claim failed", "error", err)
		return
	}

	for _, e := range entries {
		sendErr := p.sender.Send(ctx, e.Destination, e.Payload)
		if sendErr == nil {
			if err := p.store.MarkSuccess(ctx, e.ID); err != nil {
				slog.Error("queue mark success failed", "id", e.ID, "error", err)
			}
			continue
		}

		deadLettered, err := p.store.MarkFailure(ctx, e.ID, sendErr.Error(), p.cfg.Backoff)
		if err != nil {
			slog.Error("queue mark failure failed", "id", e.ID, "error", err)
			continue
		}
		if deadLettered {
			slog.Warn("queue entry dead-lettered", "id", e.ID, "destination", e.Destination, "attempts", e.Attempts, "last_error", sendErr)
		} else {
			slog.Debug("queue delivery failed, retry scheduled", "id", e.ID, "destination", e.Destination, "attempts", e.Attempts, "error", sendErr)
		}
	}
}

func (p *WorkerPool) runReaper(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			n, err := p.store.ReapStale(ctx, time.Now().Add(-p.cfg.ReapAfter))
			if err != nil {
				slog.Error("queue reap failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Warn("queue reaped stale in_flight entries", "count", n)
			}
		}
	}
}
