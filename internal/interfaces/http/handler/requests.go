package handler

// AddItemRequest adds one unit of a product to the cart
type AddItemRequest struct {
	ProductID string `json:"productId" binding:"required,max=64"`
}

// SetQuantityRequest sets the quantity of a cart line
type SetQuantityRequest struct {
	Count *int `json:"count" binding:"required"`
}

// SelectAddressRequest chooses the delivery address of the checkout
type SelectAddressRequest struct {
	AddressID string `json:"addressId" binding:"required,max=64"`
}

// SelectPaymentRequest chooses how the order is paid
type SelectPaymentRequest struct {
	Method string `json:"method" binding:"required,max=16"`
}

// RetryRequest leaves a failed checkout for address or payment selection
type RetryRequest struct {
	To string `json:"to" binding:"required,max=32"`
}

// RecoverRequest picks a way out of an empty cart
type RecoverRequest struct {
	Action string `json:"action" binding:"required,max=16"`
}

// WishlistRequest adds a product to the wishlist
type WishlistRequest struct {
	ProductID string `json:"productId" binding:"required,max=64"`
}
