package commerce

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/storefront/backend/internal/domain/storefront"
)

// ListProducts returns the catalog's first page. The list may be a bare
// array or sit under data or products.
func (c *Client) ListProducts(ctx context.Context, cred storefront.Credential) ([]storefront.ProductSummary, error) {
	resp, err := c.do(ctx, cred, request{operation: "list_products", method: http.MethodGet, path: "/products"})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.rejection(resp, storefront.MsgGenericRetry)
	}
	raw, ok := listRaw(resp.body, "data", "products")
	if !ok {
		return nil, parseFailure(resp, "unrecognized product list shape")
	}
	return decodeProducts(resp, raw)
}

func decodeProducts(resp *response, raw json.RawMessage) ([]storefront.ProductSummary, error) {
	var refs []ref
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, parseFailure(resp, "product list: "+err.Error())
	}
	products := make([]storefront.ProductSummary, 0, len(refs))
	for _, r := range refs {
		if r.ID == "" {
			continue
		}
		products = append(products, storefront.ProductSummary{
			ID:             r.ID,
			Title:          r.Title,
			ImageCover:     r.ImageCover,
			Price:          r.Price,
			AvailableStock: r.Quantity,
			StockKnown:     r.HasStock,
		})
	}
	return products, nil
}
