package checkout

import (
	"context"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

const submissionKeyPrefix = "checkout:"

// Submit places the order. Only one submission per session runs at a
// time; a second call while one is outstanding is rejected without any
// backend call. Local checks (cart, address, payment) fail before the
// network is touched.
//
// On failure the returned view is still set and carries the failure.
func (o *Orchestrator) Submit(ctx context.Context, sess session.Session) (*View, error) {
	f, err := o.require(sess)
	if err != nil {
		return nil, err
	}
	log := o.log(ctx, sess)

	if !f.busy.CompareAndSwap(false, true) {
		o.metrics.RecordRejectedSubmission(ctx, f.paymentLabel())
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSubmissionInProgress)
	}
	defer f.busy.Store(false)

	f.mu.Lock()
	addr, payment, err := o.readyToSubmit(sess, f)
	if err != nil {
		label := f.label()
		f.mu.Unlock()
		o.metrics.RecordRejectedSubmission(ctx, label)
		return nil, err
	}

	release, err := o.claim(ctx, sess)
	if err != nil {
		f.mu.Unlock()
		o.metrics.RecordRejectedSubmission(ctx, payment.String())
		return nil, err
	}
	defer release()

	if err := f.moveTo(storefront.CheckoutSubmitting); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.attemptID = newAttemptID()
	f.result = nil
	f.failure = nil
	attemptID := f.attemptID
	f.mu.Unlock()

	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "submit",
		telemetry.WithAttribute(telemetry.SpanAttrSessionKey, logger.ShortSession(sess.Key)),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentMethod, payment.String()),
	)
	defer span.End()

	log = log.With(zap.String("attempt_id", attemptID), zap.String("payment", payment.String()))
	log.Info("submitting order")

	result := o.place(ctx, sess, addr, payment)
	if failure, ok := result.(*storefront.Failure); ok {
		telemetry.SetAttribute(span, telemetry.SpanAttrFailureReason, failure.Reason.String())
		telemetry.RecordError(span, failure)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return o.settle(ctx, sess, f, payment, result)
}

// readyToSubmit checks everything SUBMITTING requires. The caller holds f.mu.
func (o *Orchestrator) readyToSubmit(sess session.Session, f *flow) (storefront.Address, storefront.PaymentSelection, error) {
	if f.state == storefront.CheckoutSelectingAddress {
		if f.address == nil {
			return storefront.Address{}, "", storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSelectAddress)
		}
		return storefront.Address{}, "", storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSelectPayment)
	}
	if !f.state.CanTransitionTo(storefront.CheckoutSubmitting) {
		return storefront.Address{}, "", f.moveTo(storefront.CheckoutSubmitting)
	}
	if o.heldCart(sess).IsEmpty() {
		return storefront.Address{}, "", storefront.NewFailure(storefront.ReasonValidation, storefront.MsgEmptyCart)
	}
	if f.address == nil {
		return storefront.Address{}, "", storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSelectAddress)
	}
	if !f.payment.IsValid() {
		return storefront.Address{}, "", storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSelectPayment)
	}
	return *f.address, f.payment, nil
}

// claim takes the shared submission key. A guard that cannot be reached
// does not block the shopper; the local busy flag still holds.
func (o *Orchestrator) claim(ctx context.Context, sess session.Session) (func(), error) {
	if o.guard == nil {
		return func() {}, nil
	}

	key := submissionKeyPrefix + sess.Key
	token, err := o.guard.Claim(ctx, key, o.cfg.SubmissionTTL)
	if err != nil {
		o.log(ctx, sess).Warn("submission guard unavailable", zap.Error(err))
		return func() {}, nil
	}
	if token == "" {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSubmissionInProgress)
	}
	return func() {
		if err := o.guard.Release(context.WithoutCancel(ctx), key, token); err != nil {
			o.log(ctx, sess).Warn("failed to release submission guard", zap.Error(err))
		}
	}, nil
}

// place calls the order backend for the chosen payment method
func (o *Orchestrator) place(ctx context.Context, sess session.Session, addr storefront.Address, payment storefront.PaymentSelection) storefront.OrderResult {
	switch payment {
	case storefront.PaymentCash:
		confirmed, err := o.orders.CreateCashOrder(ctx, sess.Credential, addr.Shipping())
		if err != nil {
			return storefront.ToFailure(err)
		}
		if confirmed == nil {
			return storefront.NewFailure(storefront.ReasonNetworkOrParse, storefront.MsgOrderCreateFailed)
		}
		return confirmed
	default:
		redirect, err := o.orders.CreateGatewayOrder(ctx, sess.Credential, addr.Shipping(), o.cfg.ReturnURL)
		if err != nil {
			return storefront.ToFailure(err)
		}
		if redirect == nil || redirect.URL == "" {
			return storefront.NewFailure(storefront.ReasonNetworkOrParse, storefront.MsgCheckoutSessionFail)
		}
		return redirect
	}
}

// settle moves the flow to the state the result dictates and announces
// the outcome. The caller holds f.mu.
func (o *Orchestrator) settle(
	ctx context.Context,
	sess session.Session,
	f *flow,
	payment storefront.PaymentSelection,
	result storefront.OrderResult,
) (*View, error) {
	log := o.log(ctx, sess).With(zap.String("attempt_id", f.attemptID))

	switch r := result.(type) {
	case *storefront.ConfirmedOrder:
		_ = f.moveTo(storefront.CheckoutConfirmed)
		f.result = r
		o.carts.ClearLocal(ctx, sess.Key)
		o.announce(ctx, sess, r.OrderID, payment)
		o.metrics.RecordSubmission(ctx, payment.String(), "")
		o.metrics.RecordOrderAmount(ctx, payment.String(), r.TotalPrice)
		log.Info("order confirmed", zap.String("order_id", r.OrderID))
		return o.view(f, nil), nil

	case *storefront.GatewayRedirect:
		_ = f.moveTo(storefront.CheckoutRedirecting)
		f.result = r
		o.announce(ctx, sess, "", payment)
		o.metrics.RecordSubmission(ctx, payment.String(), "")
		log.Info("payment session opened")
		return o.view(f, o.heldCart(sess)), nil

	case *storefront.Failure:
		if r.Reason == storefront.ReasonNoCartForAccount {
			_ = f.moveTo(storefront.CheckoutEmptyCartDetected)
		} else {
			_ = f.moveTo(storefront.CheckoutFailed)
		}
		f.failure = r
		o.metrics.RecordSubmission(ctx, payment.String(), r.Reason.String())
		log.Warn("order submission failed",
			zap.String("reason", r.Reason.String()),
			zap.Error(r),
		)
		return o.view(f, o.heldCart(sess)), r
	}

	return o.view(f, o.heldCart(sess)), nil
}

func (o *Orchestrator) announce(ctx context.Context, sess session.Session, orderID string, payment storefront.PaymentSelection) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, storefront.NewOrderPlaced(sess.Key, orderID, payment)); err != nil {
		o.log(ctx, sess).Warn("failed to publish order placed", zap.Error(err))
	}
}

// paymentLabel reads the payment method for metrics without racing the
// submission that holds the flow
func (f *flow) paymentLabel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.label()
}

func (f *flow) label() string {
	if f.payment == "" {
		return "none"
	}
	return f.payment.String()
}
