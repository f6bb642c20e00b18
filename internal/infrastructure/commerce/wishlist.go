package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/storefront/backend/internal/domain/storefront"
)

// ListWishlist returns the wishlisted products
func (c *Client) ListWishlist(ctx context.Context, cred storefront.Credential) ([]storefront.ProductSummary, error) {
	resp, err := c.do(ctx, cred, request{operation: "list_wishlist", method: http.MethodGet, path: "/wishlist"})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.rejection(resp, storefront.MsgGenericRetry)
	}
	raw, ok := listRaw(resp.body, "data")
	if !ok {
		return nil, parseFailure(resp, "unrecognized wishlist shape")
	}
	return decodeProducts(resp, raw)
}

// AddToWishlist adds productID and returns the wishlisted ids
func (c *Client) AddToWishlist(ctx context.Context, cred storefront.Credential, productID string) ([]string, error) {
	if err := requireProduct(productID); err != nil {
		return nil, err
	}
	return c.wishlistIDs(ctx, cred, request{
		operation: "add_to_wishlist",
		method:    http.MethodPost,
		path:      "/wishlist",
		payload:   map[string]string{"productId": productID},
	})
}

// RemoveFromWishlist removes productID and returns the remaining ids
func (c *Client) RemoveFromWishlist(ctx context.Context, cred storefront.Credential, productID string) ([]string, error) {
	if err := requireProduct(productID); err != nil {
		return nil, err
	}
	return c.wishlistIDs(ctx, cred, request{
		operation: "remove_from_wishlist",
		method:    http.MethodDelete,
		path:      "/wishlist/" + url.PathEscape(productID),
	})
}

func (c *Client) wishlistIDs(ctx context.Context, cred storefront.Credential, r request) ([]string, error) {
	resp, err := c.do(ctx, cred, r)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.rejection(resp, storefront.MsgGenericRetry)
	}
	raw, ok := listRaw(resp.body, "data")
	if !ok {
		return []string{}, nil
	}
	var refs []ref
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, parseFailure(resp, "wishlist ids: "+err.Error())
	}
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}
