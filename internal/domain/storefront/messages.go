package storefront

// MessageKey identifies a user-facing message. The text registered here is
// the English default; other languages are provided by the localizer.
type MessageKey string

const (
	MsgNotAuthenticated     MessageKey = "not_authenticated"
	MsgNoCartForAccount     MessageKey = "no_cart_for_account"
	MsgGenericRetry         MessageKey = "generic_retry"
	MsgOrderCreateFailed    MessageKey = "order_create_failed"
	MsgCheckoutSessionFail  MessageKey = "checkout_session_failed"
	MsgSelectAddress        MessageKey = "select_address"
	MsgSelectPayment        MessageKey = "select_payment"
	MsgEmptyCart            MessageKey = "empty_cart"
	MsgQuantityBelowOne     MessageKey = "quantity_below_one"
	MsgQuantityExceedsStock MessageKey = "quantity_exceeds_stock"
	MsgLineBusy             MessageKey = "line_busy"
	MsgSubmissionInProgress MessageKey = "submission_in_progress"
	MsgNoSampleProduct      MessageKey = "no_sample_product"
	MsgSampleCartDisabled   MessageKey = "sample_cart_disabled"
	MsgInvalidAddress       MessageKey = "invalid_address"
	MsgUnknownAddress       MessageKey = "unknown_address"
	MsgMissingProduct       MessageKey = "missing_product"
	MsgOrderNotFound        MessageKey = "order_not_found"
)

var defaultMessages = map[MessageKey]string{
	MsgNotAuthenticated:     "Please sign in to continue.",
	MsgNoCartForAccount:     "There is no cart linked to your account. Add products to your cart and try again.",
	MsgGenericRetry:         "Something went wrong while processing your request. Please try again later.",
	MsgOrderCreateFailed:    "The order could not be created.",
	MsgCheckoutSessionFail:  "The payment session could not be created.",
	MsgSelectAddress:        "Please select a delivery address.",
	MsgSelectPayment:        "Please select a payment method.",
	MsgEmptyCart:            "Your cart has no products for this account. Refresh and try again.",
	MsgQuantityBelowOne:     "Quantity must be at least 1.",
	MsgQuantityExceedsStock: "The requested quantity is more than the available stock.",
	MsgLineBusy:             "This item is still being updated.",
	MsgSubmissionInProgress: "Your order is already being submitted.",
	MsgNoSampleProduct:      "No products are available to create a sample cart.",
	MsgSampleCartDisabled:   "Sample carts are not available.",
	MsgInvalidAddress:       "The address is incomplete.",
	MsgUnknownAddress:       "The selected address no longer exists.",
	MsgMissingProduct:       "A product id is required.",
	MsgOrderNotFound:        "The order could not be found.",
}

// String returns the key itself
func (k MessageKey) String() string {
	return string(k)
}

// Default returns the English text for the key
func (k MessageKey) Default() string {
	return defaultMessages[k]
}

// MessageKeys lists every known key, for catalog registration
func MessageKeys() []MessageKey {
	keys := make([]MessageKey, 0, len(defaultMessages))
	for k := range defaultMessages {
		keys = append(keys, k)
	}
	return keys
}
