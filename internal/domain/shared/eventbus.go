package shared

import (
	"context"
	"fmt"
)

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
}

// EventHandlerFunc adapts a function to EventHandler
type EventHandlerFunc func(ctx context.Context, event DomainEvent) error

// Handle calls f(ctx, event)
func (f EventHandlerFunc) Handle(ctx context.Context, event DomainEvent) error {
	return f(ctx, event)
}

// Unsubscribe removes the subscription it was returned for.
// Calling it more than once is a no-op.
type Unsubscribe func()

// EventPublisher publishes domain events
type EventPublisher interface {
	// Publish delivers events to subscribers in the order given
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber subscribes to domain events
type EventSubscriber interface {
	// Subscribe registers a handler for specific event types
	// If no event types are provided, the handler receives all events
	Subscribe(handler EventHandler, eventTypes ...string) Unsubscribe
}

// EventBus combines publisher and subscriber capabilities
type EventBus interface {
	EventPublisher
	EventSubscriber
	// Start starts the event bus
	Start(ctx context.Context) error
	// Stop gracefully stops the event bus
	Stop(ctx context.Context) error
}

// Topic binds an event type name to its concrete payload type.
type Topic[E DomainEvent] string

// Name returns the event type the topic is published under
func (t Topic[E]) Name() string {
	return string(t)
}

// Subscribe registers fn for events on this topic. Events of another
// concrete type published under the same name are rejected.
func (t Topic[E]) Subscribe(sub EventSubscriber, fn func(ctx context.Context, event E) error) Unsubscribe {
	return sub.Subscribe(EventHandlerFunc(func(ctx context.Context, event DomainEvent) error {
		typed, ok := event.(E)
		if !ok {
			return fmt.Errorf("topic %s: unexpected event %T", t, event)
		}
		return fn(ctx, typed)
	}), string(t))
}
