// internal/events/handler.go
package events

import (
	"context"
	"sync"
)

// Handler processes events of a specific type. Handlers run on the bus
// dispatcher and should not block.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as event handlers.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription represents a subscription to events.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
	once     sync.Once
}

// Unsubscribe removes this subscription from the event bus. Safe to call twice.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.eventBus.unsubscribe(s.id, s.typ) })
}
