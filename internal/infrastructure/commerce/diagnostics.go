package commerce

import (
	"context"
	"net/http"

	"github.com/storefront/backend/internal/domain/storefront"
)

// RawCart returns the cart endpoint's answer untouched
func (c *Client) RawCart(ctx context.Context, cred storefront.Credential) (*storefront.Diagnostic, error) {
	resp, err := c.do(ctx, cred, request{operation: "debug_cart", method: http.MethodGet, path: "/cart"})
	if err != nil {
		return nil, err
	}
	return resp.diagnostic(), nil
}

// RawOrders returns the generic order listing and, when a user id is
// known, the user-scoped one
func (c *Client) RawOrders(ctx context.Context, cred storefront.Credential) ([]storefront.Diagnostic, error) {
	paths := []string{"/orders"}
	if p := ordersPath(cred); p != "/orders" {
		paths = append(paths, p)
	}

	out := make([]storefront.Diagnostic, 0, len(paths))
	for _, p := range paths {
		resp, err := c.do(ctx, cred, request{operation: "debug_orders", method: http.MethodGet, path: p})
		if err != nil {
			return nil, err
		}
		d := resp.diagnostic()
		d.Detail = p
		out = append(out, *d)
	}
	return out, nil
}
