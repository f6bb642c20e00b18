package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// ErrBusStopped is returned by Publish after Stop
var ErrBusStopped = errors.New("event: bus stopped")

// InMemoryEventBus is the process-wide broadcaster. Publish delivers on
// the caller's goroutine, so every subscriber sees events in publish order.
// Late subscribers get no replay.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	stopped  atomic.Bool
	inflight sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish delivers events to all registered handlers synchronously. A
// failing or panicking handler is logged and does not stop delivery to
// the others.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	b.inflight.Add(1)
	defer b.inflight.Done()

	for _, event := range events {
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatchToHandler(ctx, handler, event); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("session", logger.ShortSession(event.SessionKey())),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types. The returned
// disposer removes it and is safe to call more than once.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) shared.Unsubscribe {
	id := b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Uint64("subscription", id),
		zap.Strings("event_types", eventTypes),
	)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.registry.Unregister(id)
			b.logger.Debug("handler unsubscribed", zap.Uint64("subscription", id))
		})
	}
}

// Subscribers returns the number of live subscriptions
func (b *InMemoryEventBus) Subscribers() int {
	return b.registry.Count()
}

// Start starts the event bus
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.stopped.Store(false)
	b.logger.Info("event bus started")
	return nil
}

// Stop rejects further publishes and waits for in-flight deliveries or
// ctx, whichever ends first
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.stopped.Store(true)

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchToHandler safely dispatches an event to a handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
