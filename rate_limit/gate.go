package rate_limit

import "context"

// Gate is a counting-permit pool bounding simultaneous in-flight calls.
// At most capacity holders proceed at once; excess acquirers block until a
// release. No fairness is guaranteed among waiters beyond "some waiter
// proceeds when a slot frees".
type Gate struct {
	permits chan struct{}
}

// NewGate creates a gate admitting at most capacity concurrent holders.
func NewGate(capacity int) *Gate {
	return &Gate{
		permits: make(chan struct{}, capacity),
	}
}

// Acquire blocks until a permit is available or ctx is cancelled.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a permit. Must be called exactly once per successful
// Acquire, on every exit path of the guarded work.
func (g *Gate) Release() {
	<-g.permits
}

// InUse returns the number of permits currently held.
func (g *Gate) InUse() int {
	return len(g.permits)
}

// Capacity returns the maximum number of concurrent holders.
func (g *Gate) Capacity() int {
	return cap(g.permits)
}
