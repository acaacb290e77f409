package routing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Prober periodically dials every destination in a set to keep Health
// current for destinations that aren't receiving live traffic. A dial
// success clears the failure streak the same as a delivery success
// would; a dial failure advances it.
type Prober struct {
	dial         func(ctx context.Context, dest *Destination) error
	destinations []*Destination
	interval     time.Duration
	timeout      time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewProber builds a Prober over destinations, dialing each one with dial
// (typically an mllp.Client wired to a short-lived probe connection).
func NewProber(destinations []*Destination, interval, timeout time.Duration, dial func(ctx context.Context, dest *Destination) error) *Prober {
	return &Prober{
		dial:         dial,
		destinations: destinations,
		interval:     interval,
		timeout:      timeout,
		logger:       slog.Default().With("component", "routing.prober"),
	}
}

// Start launches the probe loop. It returns immediately; probing continues
// in the background until Stop is called or ctx is canceled.
func (p *Prober) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})

	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop halts the probe loop and waits for the in-flight round to finish.
func (p *Prober) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Prober) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.probeAll(ctx)
		}
	}
}

func (p *Prober) probeAll(ctx context.Context) {
	for _, dest := range p.destinations {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.dial(probeCtx, dest)
		cancel()

		dest.RecordProbe()
		if err != nil {
			dest.RecordFailure()
			p.logger.Warn("destination probe failed", "destination", dest.Name, "error", err)
			continue
		}
		dest.RecordSuccess()
	}
}

// Address formats a destination's host/port as a dial address.
func Address(dest *Destination) string {
	return fmt.Sprintf("%s:%d", dest.Host, dest.Port)
}
