// Package checkout drives a shopper from a filled cart to a placed order.
//
// Each session owns one flow whose state moves through
// SELECTING_ADDRESS, SELECTING_PAYMENT and SUBMITTING to REDIRECTING,
// CONFIRMED or FAILED. When the backend reports that the account has no
// cart the flow parks in EMPTY_CART_DETECTED until the shopper picks a
// recovery action.
package checkout

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/address"
	"github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// Config holds the orchestrator settings
type Config struct {
	// ReturnURL is the absolute order-confirmation URL the payment gateway
	// sends the shopper back to
	ReturnURL string
	// AllowSampleCart enables the sample cart recovery action
	AllowSampleCart bool
	// SubmissionTTL bounds how long a submission claim blocks another
	SubmissionTTL time.Duration
}

// Orchestrator owns the checkout flow of every session
type Orchestrator struct {
	carts     *cart.Service
	addresses *address.Book
	orders    storefront.OrderGateway
	catalog   storefront.CatalogGateway
	publisher shared.EventPublisher
	guard     shared.ClaimStore
	metrics   *telemetry.CheckoutMetrics
	logger    *zap.Logger
	cfg       Config

	mu    sync.Mutex
	flows map[string]*flow
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records submission and recovery outcomes
func WithMetrics(m *telemetry.CheckoutMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithSubmissionGuard claims a submission key before an order is created,
// so two processes serving the same session cannot both submit
func WithSubmissionGuard(guard shared.ClaimStore) Option {
	return func(o *Orchestrator) {
		o.guard = guard
	}
}

// Deps groups the collaborators of an Orchestrator
type Deps struct {
	Carts     *cart.Service
	Addresses *address.Book
	Orders    storefront.OrderGateway
	Catalog   storefront.CatalogGateway
	Publisher shared.EventPublisher
}

// NewOrchestrator creates a new checkout Orchestrator
func NewOrchestrator(deps Deps, cfg Config, opts ...Option) *Orchestrator {
	if cfg.SubmissionTTL <= 0 {
		cfg.SubmissionTTL = shared.DefaultClaimTTL
	}
	o := &Orchestrator{
		carts:     deps.Carts,
		addresses: deps.Addresses,
		orders:    deps.Orders,
		catalog:   deps.Catalog,
		publisher: deps.Publisher,
		logger:    zap.NewNop(),
		cfg:       cfg,
		flows:     make(map[string]*flow),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// flow is the checkout of one session
type flow struct {
	mu         sync.Mutex
	state      storefront.CheckoutState
	address    *storefront.Address
	payment    storefront.PaymentSelection
	result     storefront.OrderResult
	failure    *storefront.Failure
	sampleCart bool
	attemptID  string
	busy       atomic.Bool
}

func newFlow() *flow {
	return &flow{state: storefront.CheckoutSelectingAddress}
}

// moveTo changes state if the transition is allowed
func (f *flow) moveTo(target storefront.CheckoutState) error {
	if !f.state.CanTransitionTo(target) {
		return stateError(shared.ErrInvalidTransition.Code,
			fmt.Sprintf("cannot move checkout from %s to %s", f.state, target))
	}
	f.state = target
	return nil
}

func (o *Orchestrator) lookup(sessionKey string) (*flow, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.flows[sessionKey]
	return f, ok
}

func (o *Orchestrator) require(sess session.Session) (*flow, error) {
	if sess.IsZero() {
		return nil, storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
	}
	f, ok := o.lookup(sess.Key)
	if !ok {
		return nil, stateError("CHECKOUT_NOT_STARTED", "Checkout has not been started")
	}
	return f, nil
}

// Begin starts a fresh checkout from the current backend cart. An empty
// cart parks the flow in EMPTY_CART_DETECTED; otherwise the default
// address is preselected.
func (o *Orchestrator) Begin(ctx context.Context, sess session.Session) (*View, error) {
	if sess.IsZero() {
		return nil, storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
	}

	o.mu.Lock()
	if prev, ok := o.flows[sess.Key]; ok && prev.busy.Load() {
		o.mu.Unlock()
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSubmissionInProgress)
	}
	f := newFlow()
	o.flows[sess.Key] = f
	o.mu.Unlock()

	snap, err := o.carts.Refresh(ctx, sess)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		fail := storefront.ToFailure(err)
		if fail.Reason != storefront.ReasonNoCartForAccount {
			return nil, fail
		}
		snap = nil
	}
	if snap.IsEmpty() {
		_ = f.moveTo(storefront.CheckoutEmptyCartDetected)
		f.failure = storefront.NewFailure(storefront.ReasonNoCartForAccount, storefront.MsgNoCartForAccount)
		return o.view(f, nil), nil
	}

	if err := o.preselectAddress(ctx, sess, f); err != nil {
		return nil, err
	}
	return o.view(f, snap), nil
}

// preselectAddress picks the default address when none is selected yet
func (o *Orchestrator) preselectAddress(ctx context.Context, sess session.Session, f *flow) error {
	if f.address != nil {
		return nil
	}
	def, ok, err := o.addresses.Default(ctx, sess)
	if err != nil {
		return err
	}
	if ok {
		f.address = &def
	}
	return nil
}

// View returns the current checkout, starting one when none exists
func (o *Orchestrator) View(ctx context.Context, sess session.Session) (*View, error) {
	if sess.IsZero() {
		return nil, storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
	}
	f, ok := o.lookup(sess.Key)
	if !ok {
		return o.Begin(ctx, sess)
	}

	snap, _ := o.carts.Store().Get(sess.Key)
	f.mu.Lock()
	defer f.mu.Unlock()
	return o.view(f, snap), nil
}

// SelectAddress chooses the delivery address and moves on to payment
// selection
func (o *Orchestrator) SelectAddress(ctx context.Context, sess session.Session, addressID string) (*View, error) {
	f, err := o.require(sess)
	if err != nil {
		return nil, err
	}
	addr, err := o.addresses.Find(ctx, sess, addressID)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != storefront.CheckoutSelectingPayment {
		if err := f.moveTo(storefront.CheckoutSelectingPayment); err != nil {
			return nil, err
		}
	}
	f.address = &addr
	f.failure = nil
	return o.view(f, o.heldCart(sess)), nil
}

// SelectPayment chooses how the order is paid. A preselected address is
// confirmed implicitly.
func (o *Orchestrator) SelectPayment(_ context.Context, sess session.Session, method string) (*View, error) {
	f, err := o.require(sess)
	if err != nil {
		return nil, err
	}
	payment, ok := storefront.ParsePaymentSelection(method)
	if !ok {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSelectPayment)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != storefront.CheckoutSelectingPayment {
		if f.address == nil {
			return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSelectAddress)
		}
		if err := f.moveTo(storefront.CheckoutSelectingPayment); err != nil {
			return nil, err
		}
	}
	f.payment = payment
	f.failure = nil
	return o.view(f, o.heldCart(sess)), nil
}

// Retry leaves FAILED for address or payment selection
func (o *Orchestrator) Retry(_ context.Context, sess session.Session, to storefront.CheckoutState) (*View, error) {
	f, err := o.require(sess)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != storefront.CheckoutFailed {
		return nil, stateError(shared.ErrInvalidTransition.Code,
			fmt.Sprintf("cannot retry checkout in state %s", f.state))
	}
	if to != storefront.CheckoutSelectingAddress && to != storefront.CheckoutSelectingPayment {
		return nil, stateError("INVALID_RETRY_TARGET",
			fmt.Sprintf("cannot retry checkout into %s", to))
	}
	if to == storefront.CheckoutSelectingPayment && f.address == nil {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSelectAddress)
	}
	if err := f.moveTo(to); err != nil {
		return nil, err
	}
	f.failure = nil
	f.result = nil
	return o.view(f, o.heldCart(sess)), nil
}

// Discard forgets the session's checkout
func (o *Orchestrator) Discard(_ context.Context, sessionKey string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.flows, sessionKey)
}

// Len returns the number of live flows
func (o *Orchestrator) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.flows)
}

func (o *Orchestrator) heldCart(sess session.Session) *storefront.CartSnapshot {
	snap, _ := o.carts.Store().Get(sess.Key)
	return snap
}

func (o *Orchestrator) log(ctx context.Context, sess session.Session) *logger.ContextLogger {
	l := logger.WithLogger(ctx, o.logger)
	if logger.GetSession(ctx) == "" {
		l = l.With(zap.String("session", logger.ShortSession(sess.Key)))
	}
	return l
}

// stateError reports an operation the checkout cannot perform in its
// current state, classified as a validation failure
func stateError(code, message string) error {
	return storefront.ToFailure(shared.NewDomainError(code, message))
}

func newAttemptID() string {
	return uuid.NewString()
}
