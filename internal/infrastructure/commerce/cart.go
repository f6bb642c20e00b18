package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/storefront"
)

type cartDocument struct {
	UnderscoreID   string          `json:"_id"`
	ID             string          `json:"id"`
	Products       []cartProduct   `json:"products"`
	TotalCartPrice decimal.Decimal `json:"totalCartPrice"`
}

type cartProduct struct {
	ID      string          `json:"_id"`
	Count   int             `json:"count"`
	Price   decimal.Decimal `json:"price"`
	Product ref             `json:"product"`
}

// FetchCart reads the account's cart. A nil snapshot means there is none.
func (c *Client) FetchCart(ctx context.Context, cred storefront.Credential) (*storefront.CartSnapshot, error) {
	resp, err := c.do(ctx, cred, request{operation: "fetch_cart", method: http.MethodGet, path: "/cart"})
	if err != nil {
		return nil, err
	}
	return c.cartResult(resp)
}

// AddItem adds one unit of productID
func (c *Client) AddItem(ctx context.Context, cred storefront.Credential, productID string) (*storefront.CartSnapshot, error) {
	if err := requireProduct(productID); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, cred, request{
		operation: "add_item",
		method:    http.MethodPost,
		path:      "/cart",
		payload:   map[string]string{"productId": productID},
	})
	if err != nil {
		return nil, err
	}
	snapshot, err := c.cartResult(resp)
	if err != nil {
		return nil, err
	}
	// the add endpoint answers with unpopulated product references
	if snapshot != nil && !populated(snapshot) {
		return c.FetchCart(ctx, cred)
	}
	return snapshot, nil
}

// SetItemQuantity replaces the quantity of productID. Quantities below one
// are rejected without contacting the backend; use RemoveItem instead.
func (c *Client) SetItemQuantity(ctx context.Context, cred storefront.Credential, productID string, quantity int) (*storefront.CartSnapshot, error) {
	if err := requireProduct(productID); err != nil {
		return nil, err
	}
	if err := storefront.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, cred, request{
		operation: "set_item_quantity",
		method:    http.MethodPut,
		path:      "/cart/" + url.PathEscape(productID),
		payload:   map[string]int{"count": quantity},
	})
	if err != nil {
		return nil, err
	}
	return c.cartResult(resp)
}

// RemoveItem drops productID from the cart
func (c *Client) RemoveItem(ctx context.Context, cred storefront.Credential, productID string) (*storefront.CartSnapshot, error) {
	if err := requireProduct(productID); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, cred, request{
		operation: "remove_item",
		method:    http.MethodDelete,
		path:      "/cart/" + url.PathEscape(productID),
	})
	if err != nil {
		return nil, err
	}
	return c.cartResult(resp)
}

// ClearCart empties the cart. A successful clear always yields no cart.
func (c *Client) ClearCart(ctx context.Context, cred storefront.Credential) (*storefront.CartSnapshot, error) {
	resp, err := c.do(ctx, cred, request{operation: "clear_cart", method: http.MethodDelete, path: "/cart"})
	if err != nil {
		return nil, err
	}
	if resp.ok() || c.translator.IsNoCart(backendMessage(resp.body)) {
		return nil, nil
	}
	return nil, c.rejection(resp, storefront.MsgGenericRetry)
}

func (c *Client) cartResult(resp *response) (*storefront.CartSnapshot, error) {
	if !resp.ok() {
		if c.translator.IsNoCart(backendMessage(resp.body)) {
			return nil, nil
		}
		return nil, c.rejection(resp, storefront.MsgGenericRetry)
	}
	return c.normalizeCart(resp)
}

// normalizeCart is the single boundary for cart shapes. The document may
// sit under data or at the root; numOfCartItems == 0 always means no cart.
func (c *Client) normalizeCart(resp *response) (*storefront.CartSnapshot, error) {
	root, ok := decodeObject(resp.body)
	if !ok {
		return nil, parseFailure(resp, "cart body is not a JSON object")
	}

	if raw, ok := field(root, "numOfCartItems"); ok {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, parseFailure(resp, "numOfCartItems is not a number")
		}
		if n == 0 {
			return nil, nil
		}
	}

	docRaw := json.RawMessage(resp.body)
	if raw, present := root["data"]; present {
		if isNull(raw) {
			return nil, nil
		}
		if !isObject(raw) {
			return nil, parseFailure(resp, "cart data is not an object")
		}
		docRaw = raw
	} else if !hasAny(root, "products", "_id", "totalCartPrice") {
		return nil, parseFailure(resp, "unrecognized cart shape")
	}

	var doc cartDocument
	if err := json.Unmarshal(docRaw, &doc); err != nil {
		return nil, parseFailure(resp, "cart document: "+err.Error())
	}

	cartID, _ := stringField(root, "cartId")
	cartID = firstNonEmpty(doc.UnderscoreID, doc.ID, cartID)

	items := make([]storefront.CartLine, 0, len(doc.Products))
	for _, p := range doc.Products {
		if p.Count <= 0 || strings.TrimSpace(p.Product.ID) == "" {
			continue
		}
		unit := p.Price
		if unit.IsZero() {
			unit = p.Product.Price
		}
		items = append(items, storefront.CartLine{
			LineID:    p.ID,
			ProductID: p.Product.ID,
			Product: storefront.ProductSummary{
				ID:             p.Product.ID,
				Title:          p.Product.Title,
				ImageCover:     p.Product.ImageCover,
				Price:          p.Product.Price,
				AvailableStock: p.Product.Quantity,
				StockKnown:     p.Product.HasStock,
			},
			Quantity:  p.Count,
			UnitPrice: unit,
		})
	}

	if cartID == "" && len(items) == 0 {
		return nil, nil
	}
	return storefront.NewCartSnapshot(cartID, items, doc.TotalCartPrice, c.now()), nil
}

func hasAny(root map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := root[k]; ok {
			return true
		}
	}
	return false
}

func populated(s *storefront.CartSnapshot) bool {
	for _, line := range s.Items {
		if line.Product.Title == "" {
			return false
		}
	}
	return true
}

func requireProduct(productID string) error {
	if strings.TrimSpace(productID) == "" {
		return storefront.NewFailure(storefront.ReasonValidation, storefront.MsgMissingProduct)
	}
	return nil
}
