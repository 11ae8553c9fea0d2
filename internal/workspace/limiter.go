package workspace

// limiter.go implements the single-flight guard for uploads and queries.
//
// The guard is a one-slot semaphore. Operations claim the slot with
// TryAcquire and never wait for it: a second upload or query while one is in
// flight is refused outright. WaitForDrain lets shutdown block until the
// running operation has finished.

import (
	"context"
	"sync"
	"time"
)

// drainPollInterval is how often WaitForDrain re-checks the slot.
const drainPollInterval = 50 * time.Millisecond

type flightGuard struct {
	slot chan struct{}

	mu     sync.RWMutex
	active int
}

func newFlightGuard() *flightGuard {
	return &flightGuard{slot: make(chan struct{}, 1)}
}

// TryAcquire claims the slot without blocking.
// The caller MUST call Release when the operation completes (use defer).
func (g *flightGuard) TryAcquire() bool {
	select {
	case g.slot <- struct{}{}:
		g.mu.Lock()
		g.active++
		g.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees the slot. Must be called exactly once per successful TryAcquire.
func (g *flightGuard) Release() {
	g.mu.Lock()
	g.active--
	g.mu.Unlock()

	<-g.slot
}

// Busy reports whether an operation holds the slot.
func (g *flightGuard) Busy() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active > 0
}

// WaitForDrain blocks until the slot is free or ctx is done.
func (g *flightGuard) WaitForDrain(ctx context.Context) error {
	if !g.Busy() {
		return nil
	}

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !g.Busy() {
				return nil
			}
		}
	}
}
