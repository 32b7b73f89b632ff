package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vendas/internal/core"
	"vendas/internal/log"
)

// DatasetLoader is the part of dataset.Loader the prefetcher drives.
type DatasetLoader interface {
	Load(ctx context.Context) (core.Dataset, error)
	TTL() time.Duration
}

// Prefetcher keeps the dataset cache warm by loading it on a fixed interval,
// so page requests rarely wait on the remote feed.
type Prefetcher struct {
	loader   DatasetLoader
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPrefetcher creates a prefetcher. A non-positive interval means the
// loader's TTL.
func NewPrefetcher(loader DatasetLoader, interval time.Duration) *Prefetcher {
	if interval <= 0 {
		interval = loader.TTL()
	}
	return &Prefetcher{loader: loader, interval: interval}
}

// Start begins the loop. Returns an error if already running.
func (p *Prefetcher) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("prefetcher is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Dataset prefetcher started",
		log.FieldComponent, log.ComponentDataset,
		"interval", p.interval)
	return nil
}

// Stop ends the loop and waits for it.
func (p *Prefetcher) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Dataset prefetcher stop timed out", log.FieldComponent, log.ComponentDataset)
		return ctx.Err()
	}
}

// IsRunning returns whether the loop is active.
func (p *Prefetcher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Prefetcher) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.prefetch(ctx)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prefetch(ctx)
		}
	}
}

func (p *Prefetcher) prefetch(ctx context.Context) {
	if _, err := p.loader.Load(ctx); err != nil {
		slog.WarnContext(ctx, "Dataset prefetch failed",
			log.FieldComponent, log.ComponentDataset,
			log.FieldError, err)
	}
}
