// Package pool implements the fixed-size render worker pool (§5): a
// channel-based semaphore sized max(1, config.maxWorkers), grounded on the
// pack's channel-based session pool pattern.
package pool

import (
	"context"

	"github.com/resamplr/hifigo/internal/renderctx"
)

// WorkerPool serializes calls onto size permits. Each Run acquires a
// permit, runs fn with a cancellation token tied to ctx, then releases.
type WorkerPool struct {
	permits chan struct{}
}

// New creates a pool with size permits (clamped to at least 1).
func New(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	p := &WorkerPool{permits: make(chan struct{}, size)}
	for i := 0; i < size; i++ {
		p.permits <- struct{}{}
	}
	return p
}

// Size reports the pool's permit count.
func (p *WorkerPool) Size() int { return cap(p.permits) }

// Run acquires a permit (blocking until one is free or ctx is done), runs
// fn with a canceller that reports ctx's cancellation, then releases the
// permit. Returns ctx.Err() without running fn if ctx is already done when
// a permit would otherwise be granted.
func (p *WorkerPool) Run(ctx context.Context, fn func(canceller renderctx.Canceller) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.permits:
	}
	defer func() { p.permits <- struct{}{} }()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	canceller := renderctx.CancelFunc(func() bool { return ctx.Err() != nil })
	return fn(canceller)
}
