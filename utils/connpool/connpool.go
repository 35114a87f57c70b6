// Package connpool provides a fixed-size pool of reusable client handles
// with an explicit warmup/drain lifecycle. It exists for providers whose
// handles are expensive to establish; cheap-handle providers use a plain
// concurrency gate instead.
package connpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/jgaeb/no-news/utils/logger"
)

// Factory creates one handle during warmup.
type Factory[T any] func(ctx context.Context) (T, error)

// Closer releases one handle during drain.
type Closer[T any] func(handle T) error

// Pool holds exactly maxsize handles. Between Acquire and Release a handle
// is owned exclusively by one in-flight call; available + in-use always
// equals maxsize after a successful Initialize.
//
// The pool is not reusable after Close.
type Pool[T any] struct {
	maxsize int
	factory Factory[T]
	closer  Closer[T]
	handles chan T
	logger  logger.Logger

	mu          sync.Mutex
	initialized bool
	closed      bool
}

// New creates an empty pool. Initialize must complete before the first
// Acquire.
func New[T any](maxsize int, factory Factory[T], closer Closer[T]) *Pool[T] {
	return &Pool[T]{
		maxsize: maxsize,
		factory: factory,
		closer:  closer,
		handles: make(chan T, maxsize),
		logger:  logger.NewNoopLogger(),
	}
}

// SetLogger sets the logger used for warmup and drain messages.
func (p *Pool[T]) SetLogger(l logger.Logger) *Pool[T] {
	p.logger = l
	return p
}

// Initialize pre-creates exactly maxsize handles and enqueues them. If any
// creation fails, every handle created so far is closed and the error is
// returned. Calling Initialize more than once is a no-op.
func (p *Pool[T]) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("pool is closed")
	}
	if p.initialized {
		return nil
	}

	for i := 0; i < p.maxsize; i++ {
		handle, err := p.factory(ctx)
		if err != nil {
			p.drainLocked()
			return fmt.Errorf("failed to create pooled handle %d of %d: %w", i+1, p.maxsize, err)
		}
		p.handles <- handle
		p.logger.Printf("connpool: created handle %d/%d", i+1, p.maxsize)
	}

	p.initialized = true
	return nil
}

// Acquire removes one handle from the pool, blocking while the pool is
// empty. The caller owns the handle exclusively until Release.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	select {
	case handle := <-p.handles:
		return handle, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Release returns a handle to the pool. Must be called exactly once per
// successful Acquire, on every exit path.
func (p *Pool[T]) Release(handle T) {
	p.handles <- handle
}

// Close drains the pool, closing every queued handle exactly once. Handles
// still in use are not closed; callers must finish and Release before
// Close. Subsequent Acquire calls are undefined.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.drainLocked()
	return nil
}

// Size returns the number of handles currently available.
func (p *Pool[T]) Size() int {
	return len(p.handles)
}

// drainLocked closes every queued handle. Caller must hold the lock.
func (p *Pool[T]) drainLocked() {
	for {
		select {
		case handle := <-p.handles:
			if err := p.closer(handle); err != nil {
				p.logger.Printf("connpool: error closing handle: %v", err)
			} else {
				p.logger.Println("connpool: closed handle")
			}
		default:
			return
		}
	}
}
