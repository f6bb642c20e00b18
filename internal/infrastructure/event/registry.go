package event

import (
	"sync"

	"github.com/storefront/backend/internal/domain/shared"
)

// subscription is one registered handler. Handlers are often closures, so
// they are told apart by id rather than by value.
type subscription struct {
	id      uint64
	handler shared.EventHandler
}

// HandlerRegistry manages event handler registrations
type HandlerRegistry struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]subscription // eventType -> subscriptions, in registration order
	wildcard []subscription            // subscriptions for all events
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string][]subscription),
		wildcard: make([]subscription, 0),
	}
}

// Register adds a handler for specific event types and returns the
// subscription id. If no event types are provided, the handler receives
// all events.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub := subscription{id: r.nextID, handler: handler}

	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, sub)
		return sub.id
	}

	for _, eventType := range eventTypes {
		r.handlers[eventType] = append(r.handlers[eventType], sub)
	}
	return sub.id
}

// Unregister removes the subscription with the given id. Unknown ids are
// ignored.
func (r *HandlerRegistry) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = removeSubscription(r.wildcard, id)

	for eventType, subs := range r.handlers {
		r.handlers[eventType] = removeSubscription(subs, id)
		if len(r.handlers[eventType]) == 0 {
			delete(r.handlers, eventType)
		}
	}
}

// GetHandlers returns the handlers for a specific event type in
// registration order, type-specific handlers first, then wildcard ones.
// The slice is a copy, so handlers may subscribe or unsubscribe while it
// is being iterated.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.handlers[eventType]
	result := make([]shared.EventHandler, 0, len(typed)+len(r.wildcard))
	for _, sub := range typed {
		result = append(result, sub.handler)
	}
	for _, sub := range r.wildcard {
		result = append(result, sub.handler)
	}
	return result
}

// Count returns the number of live subscriptions
func (r *HandlerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uint64]struct{})
	for _, sub := range r.wildcard {
		seen[sub.id] = struct{}{}
	}
	for _, subs := range r.handlers {
		for _, sub := range subs {
			seen[sub.id] = struct{}{}
		}
	}
	return len(seen)
}

func removeSubscription(subs []subscription, id uint64) []subscription {
	result := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			result = append(result, s)
		}
	}
	return result
}
