// Package realtime announces newly stored punches to interested subscribers:
// in-process listeners such as the SSE endpoint and, optionally, a Redis channel.
package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one published message.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher delivers events. Implementations must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NewEvent stamps a payload with a fresh id and the current time.
func NewEvent(eventType string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}
