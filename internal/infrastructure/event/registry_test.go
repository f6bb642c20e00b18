package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storefront/backend/internal/domain/shared"
)

func nopHandler() shared.EventHandler {
	return shared.EventHandlerFunc(func(context.Context, shared.DomainEvent) error { return nil })
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()

	registry.Register(nopHandler(), "CartChanged", "OrderPlaced")

	assert.Len(t, registry.GetHandlers("CartChanged"), 1)
	assert.Len(t, registry.GetHandlers("OrderPlaced"), 1)
	assert.Len(t, registry.GetHandlers("Other"), 0)
	assert.Equal(t, 1, registry.Count())
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()

	registry.Register(nopHandler(), "CartChanged")
	registry.Register(nopHandler())

	assert.Len(t, registry.GetHandlers("CartChanged"), 2)
	assert.Len(t, registry.GetHandlers("Other"), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()

	first := registry.Register(nopHandler(), "CartChanged", "OrderPlaced")
	second := registry.Register(nopHandler(), "CartChanged")
	assert.NotEqual(t, first, second)

	registry.Unregister(first)
	assert.Len(t, registry.GetHandlers("CartChanged"), 1)
	assert.Len(t, registry.GetHandlers("OrderPlaced"), 0)

	registry.Unregister(first)
	registry.Unregister(999)
	assert.Equal(t, 1, registry.Count())
}

func TestHandlerRegistry_SameClosureRegisteredTwice(t *testing.T) {
	registry := NewHandlerRegistry()
	h := nopHandler()

	a := registry.Register(h, "CartChanged")
	registry.Register(h, "CartChanged")
	registry.Unregister(a)

	assert.Len(t, registry.GetHandlers("CartChanged"), 1)
}
