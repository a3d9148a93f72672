package ingest

import "sync"

// cycleGuard admits at most one ingestion cycle. Acquisition never blocks.
type cycleGuard struct {
	mu sync.Mutex
}

// TryAcquire reports whether the caller now owns the guard.
func (g *cycleGuard) TryAcquire() bool {
	return g.mu.TryLock()
}

// Release gives up ownership. Only the owner may call it.
func (g *cycleGuard) Release() {
	g.mu.Unlock()
}
