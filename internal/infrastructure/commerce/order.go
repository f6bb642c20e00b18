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

type orderDocument struct {
	UnderscoreID      string                      `json:"_id"`
	ID                string                      `json:"id"`
	User              ref                         `json:"user"`
	CartItems         []orderItemDocument         `json:"cartItems"`
	TotalOrderPrice   decimal.Decimal             `json:"totalOrderPrice"`
	PaymentMethodType string                      `json:"paymentMethodType"`
	IsPaid            bool                        `json:"isPaid"`
	IsDelivered       bool                        `json:"isDelivered"`
	ShippingAddress   *storefront.ShippingAddress `json:"shippingAddress"`
	CreatedAt         string                      `json:"createdAt"`
	UpdatedAt         string                      `json:"updatedAt"`
}

type orderItemDocument struct {
	Product  ref             `json:"product"`
	Count    *int            `json:"count"`
	Quantity *int            `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (d orderDocument) toOrder() storefront.Order {
	o := storefront.Order{
		ID:            firstNonEmpty(d.UnderscoreID, d.ID),
		UserID:        d.User.ID,
		Items:         make([]storefront.OrderItem, 0, len(d.CartItems)),
		TotalPrice:    d.TotalOrderPrice,
		PaymentMethod: d.PaymentMethodType,
		IsPaid:        d.IsPaid,
		IsDelivered:   d.IsDelivered,
		CreatedAt:     parseTime(d.CreatedAt),
		UpdatedAt:     parseTime(d.UpdatedAt),
	}
	if d.ShippingAddress != nil {
		o.ShippingAddress = *d.ShippingAddress
	}
	for _, item := range d.CartItems {
		qty := 0
		switch {
		case item.Count != nil:
			qty = *item.Count
		case item.Quantity != nil:
			qty = *item.Quantity
		}
		o.Items = append(o.Items, storefront.OrderItem{
			ProductID: item.Product.ID,
			Title:     item.Product.Title,
			Quantity:  qty,
			Price:     item.Price,
		})
	}
	return o
}

type orderPayload struct {
	ShippingAddress storefront.ShippingAddress `json:"shippingAddress"`
}

// CreateCashOrder places a cash-on-delivery order for the current cart.
// The cart id is resolved first; without one no order call is made.
func (c *Client) CreateCashOrder(ctx context.Context, cred storefront.Credential, address storefront.ShippingAddress) (*storefront.ConfirmedOrder, error) {
	cartID, err := c.resolveCartID(ctx, cred)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, cred, request{
		operation: "create_cash_order",
		method:    http.MethodPost,
		path:      "/orders/" + url.PathEscape(cartID),
		payload:   orderPayload{ShippingAddress: address},
	})
	if err != nil {
		return nil, err
	}

	if root, ok := decodeObject(resp.body); ok && resp.ok() {
		if raw, found := orderRaw(root, resp.body); found {
			var doc orderDocument
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, parseFailure(resp, "order document: "+err.Error())
			}
			order := doc.toOrder()
			return &storefront.ConfirmedOrder{
				OrderID:     order.ID,
				TotalPrice:  order.TotalPrice,
				IsPaid:      order.IsPaid,
				IsDelivered: order.IsDelivered,
				Order:       &order,
			}, nil
		}
	}
	return nil, c.rejection(resp, storefront.MsgOrderCreateFailed)
}

// CreateGatewayOrder opens a hosted payment session for the current cart.
// returnURL is where the gateway sends the shopper afterwards.
func (c *Client) CreateGatewayOrder(ctx context.Context, cred storefront.Credential, address storefront.ShippingAddress, returnURL string) (*storefront.GatewayRedirect, error) {
	cartID, err := c.resolveCartID(ctx, cred)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, cred, request{
		operation: "create_gateway_order",
		method:    http.MethodPost,
		path:      "/orders/checkout-session/" + url.PathEscape(cartID),
		query:     url.Values{"url": {returnURL}},
		payload:   orderPayload{ShippingAddress: address},
	})
	if err != nil {
		return nil, err
	}

	// a session URL is success whatever the status says
	if root, ok := decodeObject(resp.body); ok {
		if u := sessionURL(root); u != "" {
			return &storefront.GatewayRedirect{URL: u}, nil
		}
	}
	return nil, c.rejection(resp, storefront.MsgCheckoutSessionFail)
}

// resolveCartID reads the cart only to learn its id
func (c *Client) resolveCartID(ctx context.Context, cred storefront.Credential) (string, error) {
	resp, err := c.do(ctx, cred, request{operation: "resolve_cart", method: http.MethodGet, path: "/cart"})
	if err != nil {
		return "", err
	}
	if resp.status == http.StatusUnauthorized {
		return "", c.rejection(resp, storefront.MsgNotAuthenticated)
	}
	if !resp.ok() && !c.translator.IsNoCart(backendMessage(resp.body)) {
		return "", c.rejection(resp, storefront.MsgGenericRetry)
	}

	root, ok := decodeObject(resp.body)
	if !ok {
		return "", parseFailure(resp, "cart body is not a JSON object")
	}
	if id := cartIDOf(root); id != "" {
		return id, nil
	}

	f := storefront.NewFailure(storefront.ReasonNoCartForAccount, storefront.MsgNoCartForAccount).
		WithDiagnostic(resp.diagnostic())
	if msg := backendMessage(resp.body); msg != "" {
		f.WithBackendMessage(msg)
	}
	return "", f
}

// cartIDOf finds the cart id in data._id, data.id, _id, id or cartId.
// An envelope reporting zero items has no usable cart.
func cartIDOf(root map[string]json.RawMessage) string {
	if raw, ok := field(root, "numOfCartItems"); ok {
		var n int
		if json.Unmarshal(raw, &n) == nil && n == 0 {
			return ""
		}
	}
	doc := root
	if raw, ok := field(root, "data"); ok && isObject(raw) {
		var data map[string]json.RawMessage
		if json.Unmarshal(raw, &data) == nil {
			doc = data
		}
	}
	id, _ := stringField(doc, "_id")
	alt, _ := stringField(doc, "id")
	cartID, _ := stringField(root, "cartId")
	return strings.TrimSpace(firstNonEmpty(id, alt, cartID))
}

// orderRaw finds the order document under data, under order, or at the
// root when the root carries an _id
func orderRaw(root map[string]json.RawMessage, body []byte) (json.RawMessage, bool) {
	for _, key := range []string{"data", "order"} {
		if raw, ok := field(root, key); ok && isObject(raw) {
			return raw, true
		}
	}
	if id, ok := stringField(root, "_id"); ok && id != "" {
		return json.RawMessage(body), true
	}
	return nil, false
}

// sessionURL finds the checkout session url under data.session, session,
// or a bare url under data or the root
func sessionURL(root map[string]json.RawMessage) string {
	var candidates []map[string]json.RawMessage
	var data map[string]json.RawMessage
	if raw, ok := field(root, "data"); ok && isObject(raw) {
		if json.Unmarshal(raw, &data) == nil {
			if s, ok := field(data, "session"); ok {
				candidates = append(candidates, objectOf(s))
			}
		}
	}
	if s, ok := field(root, "session"); ok {
		candidates = append(candidates, objectOf(s))
	}
	if data != nil {
		candidates = append(candidates, data)
	}
	candidates = append(candidates, root)

	for _, obj := range candidates {
		if obj == nil {
			continue
		}
		if u, ok := stringField(obj, "url"); ok && strings.TrimSpace(u) != "" {
			return u
		}
	}
	return ""
}

func objectOf(raw json.RawMessage) map[string]json.RawMessage {
	if !isObject(raw) {
		return nil
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return nil
	}
	return obj
}

// ListOrders returns the account's orders, preferring the user-scoped
// endpoint when a user id is known
func (c *Client) ListOrders(ctx context.Context, cred storefront.Credential) ([]storefront.Order, error) {
	resp, err := c.do(ctx, cred, request{operation: "list_orders", method: http.MethodGet, path: ordersPath(cred)})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.rejection(resp, storefront.MsgGenericRetry)
	}

	raw, ok := listRaw(resp.body, "data")
	if !ok {
		return nil, parseFailure(resp, "unrecognized order list shape")
	}
	var docs []orderDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, parseFailure(resp, "order list: "+err.Error())
	}
	orders := make([]storefront.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, d.toOrder())
	}
	return orders, nil
}

// GetOrder reads a single order
func (c *Client) GetOrder(ctx context.Context, cred storefront.Credential, orderID string) (*storefront.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgOrderNotFound)
	}
	resp, err := c.do(ctx, cred, request{
		operation: "get_order",
		method:    http.MethodGet,
		path:      "/orders/" + url.PathEscape(orderID),
	})
	if err != nil {
		return nil, err
	}
	if root, ok := decodeObject(resp.body); ok && resp.ok() {
		if raw, found := orderRaw(root, resp.body); found {
			var doc orderDocument
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, parseFailure(resp, "order document: "+err.Error())
			}
			order := doc.toOrder()
			return &order, nil
		}
	}
	return nil, c.rejection(resp, storefront.MsgOrderNotFound)
}

func ordersPath(cred storefront.Credential) string {
	if userID := ResolveUserID(cred); userID != "" {
		return "/orders/user/" + url.PathEscape(userID)
	}
	return "/orders"
}

// listRaw finds a JSON array at the root or under one of keys
func listRaw(body []byte, keys ...string) (json.RawMessage, bool) {
	if isArray(body) {
		return json.RawMessage(body), true
	}
	root, ok := decodeObject(body)
	if !ok {
		return nil, false
	}
	for _, key := range keys {
		if raw, ok := field(root, key); ok && isArray(raw) {
			return raw, true
		}
	}
	return nil, false
}
