package realtime

import (
	"sync"
	"time"
)

// breaker bypasses a failing dependency for a fixed window after a failure.
type breaker struct {
	window time.Duration

	mu    sync.Mutex
	until time.Time
}

func newBreaker(window time.Duration) *breaker {
	return &breaker{window: window}
}

// Open reports whether the window started by the last Trip covers now.
func (b *breaker) Open(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.until.IsZero() {
		return false
	}
	if now.Before(b.until) {
		return true
	}
	b.until = time.Time{}
	return false
}

// Trip opens the window at now. It reports false when the breaker was
// already open, so callers log a failure once per window.
func (b *breaker) Trip(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.until.IsZero() && now.Before(b.until) {
		return false
	}
	b.until = now.Add(b.window)
	return true
}
