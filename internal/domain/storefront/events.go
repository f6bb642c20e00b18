package storefront

import "github.com/storefront/backend/internal/domain/shared"

// Event types
const (
	EventTypeCartCountChanged = "storefront.cart.count_changed"
	EventTypeOrderPlaced      = "storefront.order.placed"
)

// CartCountChanged tells listeners the cart of a session now holds
// NewItemCount items
type CartCountChanged struct {
	shared.BaseDomainEvent
	NewItemCount int `json:"newItemCount"`
}

// NewCartCountChanged creates a CartCountChanged event
func NewCartCountChanged(sessionKey string, count int) *CartCountChanged {
	return &CartCountChanged{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartCountChanged, sessionKey),
		NewItemCount:    count,
	}
}

// OrderPlaced is published after the backend accepted an order or opened
// a payment session, so cached order lists can be dropped
type OrderPlaced struct {
	shared.BaseDomainEvent
	OrderID string           `json:"orderId,omitempty"`
	Payment PaymentSelection `json:"payment"`
}

// NewOrderPlaced creates an OrderPlaced event
func NewOrderPlaced(sessionKey, orderID string, payment PaymentSelection) *OrderPlaced {
	return &OrderPlaced{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, sessionKey),
		OrderID:         orderID,
		Payment:         payment,
	}
}

// Topics
var (
	CartCountChangedTopic = shared.Topic[*CartCountChanged](EventTypeCartCountChanged)
	OrderPlacedTopic      = shared.Topic[*OrderPlaced](EventTypeOrderPlaced)
)
