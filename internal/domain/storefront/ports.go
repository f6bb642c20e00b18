package storefront

import "context"

// CartGateway reads and mutates the remote cart. Every call returns the
// full snapshot the backend answered with; nil means the account has no
// cart. Implementations never publish change events.
type CartGateway interface {
	FetchCart(ctx context.Context, cred Credential) (*CartSnapshot, error)
	AddItem(ctx context.Context, cred Credential, productID string) (*CartSnapshot, error)
	SetItemQuantity(ctx context.Context, cred Credential, productID string, quantity int) (*CartSnapshot, error)
	RemoveItem(ctx context.Context, cred Credential, productID string) (*CartSnapshot, error)
	ClearCart(ctx context.Context, cred Credential) (*CartSnapshot, error)
}

// OrderGateway creates and reads orders. Creation resolves the cart id
// itself and never retries.
type OrderGateway interface {
	CreateCashOrder(ctx context.Context, cred Credential, address ShippingAddress) (*ConfirmedOrder, error)
	CreateGatewayOrder(ctx context.Context, cred Credential, address ShippingAddress, returnURL string) (*GatewayRedirect, error)
	ListOrders(ctx context.Context, cred Credential) ([]Order, error)
	GetOrder(ctx context.Context, cred Credential, orderID string) (*Order, error)
}

// AddressGateway manages the account's delivery addresses
type AddressGateway interface {
	ListAddresses(ctx context.Context, cred Credential) ([]Address, error)
	AddAddress(ctx context.Context, cred Credential, input AddressInput) error
	UpdateAddress(ctx context.Context, cred Credential, addressID string, input AddressInput) error
	DeleteAddress(ctx context.Context, cred Credential, addressID string) error
	SetDefaultAddress(ctx context.Context, cred Credential, addressID string) error
}

// CatalogGateway lists products
type CatalogGateway interface {
	ListProducts(ctx context.Context, cred Credential) ([]ProductSummary, error)
}

// WishlistGateway manages the account's wishlist
type WishlistGateway interface {
	ListWishlist(ctx context.Context, cred Credential) ([]ProductSummary, error)
	AddToWishlist(ctx context.Context, cred Credential, productID string) ([]string, error)
	RemoveFromWishlist(ctx context.Context, cred Credential, productID string) ([]string, error)
}

// DiagnosticsGateway exposes raw backend responses for troubleshooting
type DiagnosticsGateway interface {
	RawCart(ctx context.Context, cred Credential) (*Diagnostic, error)
	RawOrders(ctx context.Context, cred Credential) ([]Diagnostic, error)
}

// OrderCache holds order lists per session
type OrderCache interface {
	Get(ctx context.Context, sessionKey string) ([]Order, bool, error)
	Set(ctx context.Context, sessionKey string, orders []Order) error
	Invalidate(ctx context.Context, sessionKey string) error
}
