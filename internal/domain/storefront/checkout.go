package storefront

// CheckoutState is a state of the checkout orchestrator
type CheckoutState string

const (
	CheckoutSelectingAddress      CheckoutState = "SELECTING_ADDRESS"
	CheckoutSelectingPayment      CheckoutState = "SELECTING_PAYMENT"
	CheckoutSubmitting            CheckoutState = "SUBMITTING"
	CheckoutRedirecting           CheckoutState = "REDIRECTING"
	CheckoutConfirmed             CheckoutState = "CONFIRMED"
	CheckoutFailed                CheckoutState = "FAILED"
	CheckoutEmptyCartDetected     CheckoutState = "EMPTY_CART_DETECTED"
	CheckoutRefreshingCart        CheckoutState = "REFRESHING_CART"
	CheckoutFabricatingSampleCart CheckoutState = "FABRICATING_SAMPLE_CART"
)

// IsValid checks if the state is known
func (s CheckoutState) IsValid() bool {
	switch s {
	case CheckoutSelectingAddress, CheckoutSelectingPayment, CheckoutSubmitting,
		CheckoutRedirecting, CheckoutConfirmed, CheckoutFailed,
		CheckoutEmptyCartDetected, CheckoutRefreshingCart, CheckoutFabricatingSampleCart:
		return true
	}
	return false
}

// String returns the string representation of CheckoutState
func (s CheckoutState) String() string {
	return string(s)
}

// IsTerminal reports whether the checkout is finished
func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutRedirecting || s == CheckoutConfirmed
}

// CanTransitionTo checks if the state can transition to the target state
func (s CheckoutState) CanTransitionTo(target CheckoutState) bool {
	switch s {
	case CheckoutSelectingAddress:
		return target == CheckoutSelectingPayment || target == CheckoutEmptyCartDetected
	case CheckoutSelectingPayment:
		return target == CheckoutSelectingAddress || target == CheckoutSubmitting || target == CheckoutEmptyCartDetected
	case CheckoutSubmitting:
		return target == CheckoutRedirecting || target == CheckoutConfirmed ||
			target == CheckoutFailed || target == CheckoutEmptyCartDetected
	case CheckoutFailed:
		return target == CheckoutSelectingAddress || target == CheckoutSelectingPayment || target == CheckoutEmptyCartDetected
	case CheckoutEmptyCartDetected:
		return target == CheckoutRefreshingCart || target == CheckoutFabricatingSampleCart
	case CheckoutRefreshingCart, CheckoutFabricatingSampleCart:
		return target == CheckoutSelectingAddress || target == CheckoutEmptyCartDetected
	case CheckoutRedirecting, CheckoutConfirmed:
		return false // Terminal states
	}
	return false
}

// RecoveryAction is an explicit way out of EmptyCartDetected
type RecoveryAction string

const (
	RecoveryRefresh    RecoveryAction = "refresh"
	RecoverySampleCart RecoveryAction = "sample"
)

// IsValid checks if the action is known
func (a RecoveryAction) IsValid() bool {
	return a == RecoveryRefresh || a == RecoverySampleCart
}
