package history

import (
	"context"
	"sync"
	"time"
)

const (
	// defaultSweepInterval is how often the pruner deletes expired events.
	defaultSweepInterval = 12 * time.Hour

	// pruneTimeout bounds a single delete sweep.
	pruneTimeout = 30 * time.Second
)

// Pruner periodically deletes events older than the retention window
// so the history database does not grow without bound.
//
// Thread Safety: Start and Stop are safe for concurrent use.
type Pruner struct {
	repo      Repository
	retention time.Duration
	interval  time.Duration
	logger    Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewPruner creates a pruner that keeps events for the given retention
// window. A zero interval selects the default (12h).
func NewPruner(repo Repository, retention, interval time.Duration) *Pruner {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Pruner{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the pruner.
func (p *Pruner) SetLogger(logger Logger) {
	p.logger = logger
}

// Start runs one sweep immediately, then sweeps on the interval.
// No-op if already running.
func (p *Pruner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})

	go p.run(p.stopCh, p.done)
	p.logger.Info("history pruner started", "retention", p.retention, "interval", p.interval)
}

// Stop halts the sweep loop and waits for it to finish.
// Safe to call when never started.
func (p *Pruner) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopCh, done := p.stopCh, p.done
	p.mu.Unlock()

	close(stopCh)
	<-done
	p.logger.Info("history pruner stopped")
}

func (p *Pruner) run(stopCh, done chan struct{}) {
	defer close(done)

	p.sweep()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// sweep deletes expired events. Failures are logged and retried on the
// next tick.
func (p *Pruner) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	pruned, err := p.repo.Prune(ctx, p.retention)
	if err != nil {
		p.logger.Error("history prune failed", "error", err)
		return
	}
	if pruned > 0 {
		p.logger.Info("history pruned", "events", pruned)
	}
}
