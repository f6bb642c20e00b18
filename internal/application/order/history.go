// Package order serves the shopper's order history.
package order

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// History lists orders through a per-session cache. Cached lists are
// dropped whenever an order is placed for the session.
type History struct {
	gateway storefront.OrderGateway
	cache   storefront.OrderCache
	logger  *zap.Logger

	unsubscribe shared.Unsubscribe
}

// NewHistory creates a new order History
func NewHistory(gateway storefront.OrderGateway, cache storefront.OrderCache, log *zap.Logger) *History {
	if log == nil {
		log = zap.NewNop()
	}
	return &History{
		gateway: gateway,
		cache:   cache,
		logger:  log,
	}
}

// Subscribe invalidates cached lists on OrderPlaced events. The returned
// function removes the subscription.
func (h *History) Subscribe(sub shared.EventSubscriber) shared.Unsubscribe {
	h.unsubscribe = storefront.OrderPlacedTopic.Subscribe(sub, func(ctx context.Context, event *storefront.OrderPlaced) error {
		return h.Invalidate(ctx, event.SessionKey())
	})
	return h.unsubscribe
}

// Close removes the event subscription
func (h *History) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

// List returns the session's orders, newest first
func (h *History) List(ctx context.Context, sess session.Session) ([]storefront.Order, error) {
	if sess.IsZero() {
		return nil, storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
	}

	log := logger.WithLogger(ctx, h.logger)
	if orders, ok, err := h.cache.Get(ctx, sess.Key); err != nil {
		log.Warn("order cache read failed", zap.Error(err))
	} else if ok {
		return orders, nil
	}

	orders, err := h.gateway.ListOrders(ctx, sess.Credential)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []storefront.Order{}
	}
	slices.SortStableFunc(orders, func(a, b storefront.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if err := h.cache.Set(ctx, sess.Key, orders); err != nil {
		log.Warn("order cache write failed", zap.Error(err))
	}
	return orders, nil
}

// Get returns one order, from the cached list when present
func (h *History) Get(ctx context.Context, sess session.Session, orderID string) (*storefront.Order, error) {
	if sess.IsZero() {
		return nil, storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgOrderNotFound)
	}

	if orders, ok, err := h.cache.Get(ctx, sess.Key); err == nil && ok {
		for i := range orders {
			if orders[i].ID == orderID {
				found := orders[i]
				return &found, nil
			}
		}
	}
	return h.gateway.GetOrder(ctx, sess.Credential, orderID)
}

// Invalidate drops the cached list of a session
func (h *History) Invalidate(ctx context.Context, sessionKey string) error {
	if err := h.cache.Invalidate(ctx, sessionKey); err != nil {
		logger.WithLogger(ctx, h.logger).Warn("order cache invalidation failed",
			zap.String("session", logger.ShortSession(sessionKey)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Discard forgets everything held for a session
func (h *History) Discard(ctx context.Context, sessionKey string) {
	_ = h.Invalidate(ctx, sessionKey)
}
