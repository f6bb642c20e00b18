package checkout

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/storefront"
)

// Recover leaves EMPTY_CART_DETECTED by re-reading the cart or by
// fabricating a one-item sample cart. Either way the flow returns to
// address selection when the cart has items again, and stays put
// otherwise.
func (o *Orchestrator) Recover(ctx context.Context, sess session.Session, action storefront.RecoveryAction) (*View, error) {
	f, err := o.require(sess)
	if err != nil {
		return nil, err
	}
	if !action.IsValid() {
		return nil, stateError("INVALID_RECOVERY_ACTION",
			fmt.Sprintf("unknown recovery action %q", action))
	}
	if action == storefront.RecoverySampleCart && !o.cfg.AllowSampleCart {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgSampleCartDisabled)
	}

	target := storefront.CheckoutRefreshingCart
	if action == storefront.RecoverySampleCart {
		target = storefront.CheckoutFabricatingSampleCart
	}

	f.mu.Lock()
	if err := f.moveTo(target); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	var snap *storefront.CartSnapshot
	if action == storefront.RecoverySampleCart {
		snap, err = o.fabricateSampleCart(ctx, sess)
	} else {
		snap, err = o.carts.Refresh(ctx, sess)
	}
	o.metrics.RecordRecovery(ctx, string(action), err)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil && snap.IsEmpty() {
		err = storefront.NewFailure(storefront.ReasonNoCartForAccount, storefront.MsgEmptyCart)
	}
	if err != nil {
		_ = f.moveTo(storefront.CheckoutEmptyCartDetected)
		f.failure = storefront.ToFailure(err)
		o.log(ctx, sess).Warn("empty cart recovery failed",
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return o.view(f, nil), f.failure
	}

	_ = f.moveTo(storefront.CheckoutSelectingAddress)
	f.failure = nil
	f.sampleCart = action == storefront.RecoverySampleCart
	if err := o.preselectAddress(ctx, sess, f); err != nil {
		o.log(ctx, sess).Warn("address preselection failed", zap.Error(err))
	}
	return o.view(f, snap), nil
}

// fabricateSampleCart puts one unit of the first listed product into the
// cart. The quantity update is tried first; a backend that refuses it for
// a product not yet in the cart gets a plain add instead.
func (o *Orchestrator) fabricateSampleCart(ctx context.Context, sess session.Session) (*storefront.CartSnapshot, error) {
	products, err := o.catalog.ListProducts(ctx, sess.Credential)
	if err != nil {
		return nil, err
	}

	productID := ""
	for _, p := range products {
		if id := strings.TrimSpace(p.ID); id != "" {
			productID = id
			break
		}
	}
	if productID == "" {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgNoSampleProduct)
	}

	snap, err := o.carts.SetQuantity(ctx, sess, productID, 1)
	if err == nil && !snap.IsEmpty() {
		return snap, nil
	}
	if err != nil {
		fail := storefront.ToFailure(err)
		if fail.Reason == storefront.ReasonNotAuthenticated {
			return nil, fail
		}
		o.log(ctx, sess).Debug("sample quantity update refused, adding instead",
			zap.String("product_id", productID),
			zap.Error(err),
		)
	}
	return o.carts.AddItem(ctx, sess, productID)
}
