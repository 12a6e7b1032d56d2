// internal/events/handler.go
package events

import (
	"context"
)

// Handler receives events dispatched by the bus. Delivery happens on the
// bus worker goroutine, so a handler must return quickly.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function act as a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription is the handle returned by Subscribe. After Unsubscribe no
// new deliveries happen, though an event already in flight may still land.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id  string
	bus *Bus
	typ EventType
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.typ)
}
