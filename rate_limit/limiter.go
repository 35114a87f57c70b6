package rate_limit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrExceedsCapacity is returned by Acquire when a single request asks for
// more than the bucket can ever hold. Such a request could never be
// satisfied, so it is rejected immediately rather than suspending forever.
type ErrExceedsCapacity struct {
	Amount   int
	Capacity int
}

func (e *ErrExceedsCapacity) Error() string {
	return fmt.Sprintf("rate limit request of %d exceeds bucket capacity %d", e.Amount, e.Capacity)
}

// Limiter is a leaky-bucket rate limiter. The bucket fills by the amount of
// each successful Acquire and drains continuously at capacity/period, so
// consumption may be bursty but is bounded to the configured rate.
//
// Safe for concurrent use.
type Limiter struct {
	capacity int
	period   time.Duration
	clock    clock.Clock

	mu    sync.Mutex
	level float64
	last  time.Time
}

// NewLimiter creates a limiter allowing capacity units per period.
func NewLimiter(capacity int, period time.Duration) *Limiter {
	return NewLimiterWithClock(capacity, period, clock.New())
}

// NewLimiterWithClock creates a limiter on an injected clock so tests can
// advance time deterministically.
func NewLimiterWithClock(capacity int, period time.Duration, clk clock.Clock) *Limiter {
	return &Limiter{
		capacity: capacity,
		period:   period,
		clock:    clk,
		last:     clk.Now(),
	}
}

// Capacity returns the configured bucket capacity.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// Level returns the current bucket level after draining for elapsed time.
func (l *Limiter) Level() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.leak(l.clock.Now())
	return l.level
}

// Acquire blocks until amount units of capacity are available, then commits
// the consumption. It never fails for satisfiable requests; it returns
// ErrExceedsCapacity for amount > capacity and the context error if ctx is
// cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context, amount int) error {
	if amount > l.capacity {
		return &ErrExceedsCapacity{Amount: amount, Capacity: l.capacity}
	}

	for {
		l.mu.Lock()
		now := l.clock.Now()
		l.leak(now)

		if l.level+float64(amount) <= float64(l.capacity) {
			l.level += float64(amount)
			l.mu.Unlock()
			return nil
		}

		// Wait for enough of the bucket to drain away.
		excess := l.level + float64(amount) - float64(l.capacity)
		wait := time.Duration(excess / l.ratePerSecond() * float64(time.Second))
		l.mu.Unlock()

		timer := l.clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Re-check under the lock; another waiter may have won.
		}
	}
}

// ratePerSecond returns the drain rate in units per second.
func (l *Limiter) ratePerSecond() float64 {
	return float64(l.capacity) / l.period.Seconds()
}

// leak drains the bucket by the elapsed time since the last observation,
// clamped at zero. Caller must hold the lock.
func (l *Limiter) leak(now time.Time) {
	elapsed := now.Sub(l.last)
	if elapsed <= 0 {
		return
	}
	l.level -= elapsed.Seconds() * l.ratePerSecond()
	if l.level < 0 {
		l.level = 0
	}
	l.last = now
}
