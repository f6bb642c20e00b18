package cart

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// Mutation operation names, used in metrics and logs
const (
	OpAddItem     = "cart.add_item"
	OpSetQuantity = "cart.set_quantity"
	OpRemoveItem  = "cart.remove_item"
	OpClear       = "cart.clear"
	OpRefresh     = "cart.refresh"
)

// Service reads and mutates carts through the backend, keeps the Store in
// step with every successful response and announces the new item count
// once per change.
type Service struct {
	gateway   storefront.CartGateway
	store     *Store
	publisher shared.EventPublisher
	metrics   *telemetry.CheckoutMetrics
	logger    *zap.Logger

	refreshes singleflight.Group
	inflight  sync.Map // session|product -> struct{}
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records mutation outcomes
func WithMetrics(m *telemetry.CheckoutMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new cart Service
func NewService(gateway storefront.CartGateway, store *Store, publisher shared.EventPublisher, opts ...Option) *Service {
	s := &Service{
		gateway:   gateway,
		store:     store,
		publisher: publisher,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the backing store
func (s *Service) Store() *Store {
	return s.store
}

// Get returns the held snapshot, fetching it on first use. A nil snapshot
// means the account has no cart.
func (s *Service) Get(ctx context.Context, sess session.Session) (*storefront.CartSnapshot, error) {
	if sess.IsZero() {
		return nil, storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
	}
	if snap, ok := s.store.Get(sess.Key); ok {
		return snap, nil
	}
	return s.Refresh(ctx, sess)
}

// Count returns the current item count of the session's cart
func (s *Service) Count(ctx context.Context, sess session.Session) (int, error) {
	snap, err := s.Get(ctx, sess)
	if err != nil {
		return 0, err
	}
	return snap.Count(), nil
}

// Refresh re-reads the cart from the backend. Concurrent refreshes of the
// same session share one backend call.
func (s *Service) Refresh(ctx context.Context, sess session.Session) (*storefront.CartSnapshot, error) {
	if sess.IsZero() {
		return nil, storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
	}

	// the shared fetch outlives any one caller; each caller waits on its own ctx
	flight := context.WithoutCancel(ctx)
	ch := s.refreshes.DoChan(sess.Key, func() (any, error) {
		snap, err := s.gateway.FetchCart(flight, sess.Credential)
		if err != nil {
			return nil, err
		}
		s.apply(flight, sess.Key, snap)
		return snap, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	v, err := res.Val, res.Err
	if err != nil {
		logger.WithLogger(ctx, s.logger).Warn("cart refresh failed",
			zap.String("operation", OpRefresh),
			zap.Error(err),
		)
		return nil, err
	}
	snap, _ := v.(*storefront.CartSnapshot)
	return nonEmpty(snap), nil
}

// AddItem puts one unit of a product into the cart. A line already at its
// known stock is rejected before any call.
func (s *Service) AddItem(ctx context.Context, sess session.Session, productID string) (*storefront.CartSnapshot, error) {
	if snap, ok := s.store.Get(sess.Key); ok {
		if line, found := snap.Line(strings.TrimSpace(productID)); found {
			if err := line.CheckQuantity(line.Quantity + 1); err != nil {
				s.metrics.RecordCartMutation(ctx, OpAddItem, err)
				return nil, err
			}
		}
	}
	return s.mutateLine(ctx, sess, OpAddItem, productID, func(cred storefront.Credential, id string) (*storefront.CartSnapshot, error) {
		return s.gateway.AddItem(ctx, cred, id)
	})
}

// SetQuantity changes the quantity of a cart line. Quantities below one,
// or above the known stock of the line, are rejected before any call.
func (s *Service) SetQuantity(ctx context.Context, sess session.Session, productID string, quantity int) (*storefront.CartSnapshot, error) {
	if err := storefront.ValidateQuantity(quantity); err != nil {
		s.metrics.RecordCartMutation(ctx, OpSetQuantity, err)
		return nil, err
	}
	if snap, ok := s.store.Get(sess.Key); ok {
		if line, found := snap.Line(strings.TrimSpace(productID)); found {
			if err := line.CheckQuantity(quantity); err != nil {
				s.metrics.RecordCartMutation(ctx, OpSetQuantity, err)
				return nil, err
			}
		}
	}

	return s.mutateLine(ctx, sess, OpSetQuantity, productID, func(cred storefront.Credential, id string) (*storefront.CartSnapshot, error) {
		return s.gateway.SetItemQuantity(ctx, cred, id, quantity)
	})
}

// RemoveItem removes a line from the cart
func (s *Service) RemoveItem(ctx context.Context, sess session.Session, productID string) (*storefront.CartSnapshot, error) {
	return s.mutateLine(ctx, sess, OpRemoveItem, productID, func(cred storefront.Credential, id string) (*storefront.CartSnapshot, error) {
		return s.gateway.RemoveItem(ctx, cred, id)
	})
}

// Clear empties the cart on the backend
func (s *Service) Clear(ctx context.Context, sess session.Session) error {
	if sess.IsZero() {
		return storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
	}

	snap, err := s.gateway.ClearCart(ctx, sess.Credential)
	s.metrics.RecordCartMutation(ctx, OpClear, err)
	if err != nil {
		return err
	}
	s.apply(ctx, sess.Key, snap)
	return nil
}

// ClearLocal records the cart as empty without calling the backend, after
// the backend consumed it to create an order
func (s *Service) ClearLocal(ctx context.Context, sessionKey string) {
	s.apply(ctx, sessionKey, nil)
}

// Discard forgets everything held for a session
func (s *Service) Discard(_ context.Context, sessionKey string) {
	s.store.Drop(sessionKey)
	s.refreshes.Forget(sessionKey)
}

func (s *Service) mutateLine(
	ctx context.Context,
	sess session.Session,
	op, productID string,
	call func(storefront.Credential, string) (*storefront.CartSnapshot, error),
) (*storefront.CartSnapshot, error) {
	if sess.IsZero() {
		return nil, storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgMissingProduct)
	}

	release, ok := s.acquireLine(sess.Key, productID)
	if !ok {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgLineBusy)
	}
	defer release()

	snap, err := call(sess.Credential, productID)
	s.metrics.RecordCartMutation(ctx, op, err)
	span := telemetry.SpanFromContext(ctx)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOperation, op,
		telemetry.SpanAttrProductID, productID,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithLogger(ctx, s.logger).Warn("cart mutation failed",
			zap.String("operation", op),
			zap.String("product_id", productID),
			zap.Error(err),
		)
		return nil, err
	}

	s.apply(ctx, sess.Key, snap)
	telemetry.SetAttribute(span, telemetry.SpanAttrItemCount, snap.Count())
	return nonEmpty(snap), nil
}

// acquireLine marks a cart line as in flight. It fails while another
// mutation of the same line is outstanding.
func (s *Service) acquireLine(sessionKey, productID string) (func(), bool) {
	key := sessionKey + "|" + productID
	if _, loaded := s.inflight.LoadOrStore(key, struct{}{}); loaded {
		return nil, false
	}
	return func() { s.inflight.Delete(key) }, true
}

// LineBusy reports whether a mutation of the line is in flight
func (s *Service) LineBusy(sessionKey, productID string) bool {
	_, busy := s.inflight.Load(sessionKey + "|" + productID)
	return busy
}

func (s *Service) apply(ctx context.Context, sessionKey string, snap *storefront.CartSnapshot) {
	s.store.Replace(sessionKey, snap)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, storefront.NewCartCountChanged(sessionKey, snap.Count())); err != nil {
		s.logger.Warn("failed to publish cart count",
			zap.String("session", logger.ShortSession(sessionKey)),
			zap.Error(err),
		)
	}
}

// nonEmpty returns the snapshot as the store holds it, so an item-less
// backend cart surfaces as nil
func nonEmpty(snap *storefront.CartSnapshot) *storefront.CartSnapshot {
	if snap.IsEmpty() {
		return nil
	}
	return snap
}
