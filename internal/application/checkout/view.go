package checkout

import "github.com/storefront/backend/internal/domain/storefront"

// View is the checkout as presented to the shopper
type View struct {
	State           storefront.CheckoutState    `json:"state"`
	Cart            *storefront.CartSnapshot    `json:"cart"`
	SelectedAddress *storefront.Address         `json:"selectedAddress,omitempty"`
	Payment         storefront.PaymentSelection `json:"payment,omitempty"`
	Redirect        *storefront.GatewayRedirect `json:"redirect,omitempty"`
	Order           *storefront.ConfirmedOrder  `json:"order,omitempty"`
	SampleCart      bool                        `json:"sampleCart"`
	Submitting      bool                        `json:"submitting"`
	AttemptID       string                      `json:"attemptId,omitempty"`
	RecoveryActions []storefront.RecoveryAction `json:"recoveryActions,omitempty"`
	Failure         *storefront.Failure         `json:"-"`
}

// Result returns the outcome of the last submission, nil before one
func (v *View) Result() storefront.OrderResult {
	switch {
	case v.Redirect != nil:
		return v.Redirect
	case v.Order != nil:
		return v.Order
	case v.Failure != nil && v.State == storefront.CheckoutFailed:
		return v.Failure
	}
	return nil
}

// view snapshots f. The caller holds f.mu.
func (o *Orchestrator) view(f *flow, snap *storefront.CartSnapshot) *View {
	v := &View{
		State:      f.state,
		Cart:       snap,
		Payment:    f.payment,
		SampleCart: f.sampleCart,
		Submitting: f.busy.Load(),
		AttemptID:  f.attemptID,
		Failure:    f.failure,
	}
	if f.address != nil {
		addr := *f.address
		v.SelectedAddress = &addr
	}
	switch r := f.result.(type) {
	case *storefront.GatewayRedirect:
		v.Redirect = r
	case *storefront.ConfirmedOrder:
		v.Order = r
	}
	if f.state == storefront.CheckoutEmptyCartDetected {
		v.RecoveryActions = []storefront.RecoveryAction{storefront.RecoveryRefresh}
		if o.cfg.AllowSampleCart {
			v.RecoveryActions = append(v.RecoveryActions, storefront.RecoverySampleCart)
		}
	}
	return v
}
