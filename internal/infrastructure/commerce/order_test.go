package commerce

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/storefront"
)

var testAddress = storefront.ShippingAddress{
	Details:    "12 Nile St",
	Phone:      "01012345678",
	City:       "Cairo",
	PostalCode: "11511",
}

const cartWithID = `{"status":"success","numOfCartItems":1,"data":{"_id":"cart-7","products":[{"count":1,"price":30,"product":{"_id":"B","title":"Beta"}}],"totalCartPrice":30}}`

func TestCreateGatewayOrder_SessionShapes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "under data.session", status: 200, body: `{"status":"success","data":{"session":{"url":"https://pay.example/x"}}}`},
		{name: "session at root", status: 200, body: `{"status":"success","session":{"url":"https://pay.example/x"}}`},
		{name: "url under data", status: 201, body: `{"data":{"url":"https://pay.example/x"}}`},
		{name: "session despite error status", status: 400, body: `{"session":{"url":"https://pay.example/x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.on(http.MethodGet, "/api/v1/cart", http.StatusOK, cartWithID)
			fb.on(http.MethodPost, "/api/v1/orders/checkout-session/cart-7", tt.status, tt.body)
			client := newTestClient(t, fb)

			redirect, err := client.CreateGatewayOrder(context.Background(), testCred, testAddress, "https://shop.example/orders")
			require.NoError(t, err)
			assert.Equal(t, &storefront.GatewayRedirect{URL: "https://pay.example/x"}, redirect)
			assert.Equal(t, storefront.ResultGatewayRedirect, redirect.Kind())
		})
	}
}

func TestCreateGatewayOrder_Request(t *testing.T) {
	fb := newFakeBackend(t)
	fb.on(http.MethodGet, "/api/v1/cart", http.StatusOK, cartWithID)
	fb.on(http.MethodPost, "/api/v1/orders/checkout-session/cart-7", http.StatusOK, `{"session":{"url":"https://pay.example/x"}}`)
	client := newTestClient(t, fb)

	_, err := client.CreateGatewayOrder(context.Background(), testCred, testAddress, "https://shop.example/orders")
	require.NoError(t, err)

	require.Equal(t, 2, fb.callCount())
	call := fb.call(1)
	q, err := url.ParseQuery(call.Query)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/orders", q.Get("url"))
	assert.JSONEq(t, `{"shippingAddress":{"details":"12 Nile St","phone":"01012345678","city":"Cairo","postalCode":"11511"}}`, call.Body)
	assert.Equal(t, testCred.Token, call.Token)
}

func TestCreateOrder_NoResolvableCartID(t *testing.T) {
	bodies := map[string]string{
		"zero items":      `{"status":"success","numOfCartItems":0,"data":{"_id":"cart-7","products":[]}}`,
		"no cart message": `{"status":"fail","message":"There is no cart for this id : 6651"}`,
		"empty data":      `{"status":"success","data":{}}`,
		"null data":       `{"data":null}`,
		"id-less root":    `{"products":[]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			for _, create := range []func(*Client) error{
				func(c *Client) error {
					_, err := c.CreateCashOrder(context.Background(), testCred, testAddress)
					return err
				},
				func(c *Client) error {
					_, err := c.CreateGatewayOrder(context.Background(), testCred, testAddress, "https://shop.example/orders")
					return err
				},
			} {
				fb := newFakeBackend(t)
				fb.on(http.MethodGet, "/api/v1/cart", http.StatusOK, body)
				client := newTestClient(t, fb)

				err := create(client)
				f := requireReason(t, err, storefront.ReasonNoCartForAccount)
				assert.ErrorIs(t, err, storefront.ErrNoCartForAccount)
				assert.Equal(t, storefront.MsgNoCartForAccount, f.Key)
				assert.Equal(t, 1, fb.callCount(), "order creation must not be attempted")
			}
		})
	}
}

func TestCreateOrder_CartReadFailure(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		reason  storefront.FailureReason
		message string
	}{
		{name: "unknown error passes through", status: 500, body: `{"status":"error","message":"database timeout"}`, reason: storefront.ReasonBackendRejected, message: "database timeout"},
		{name: "no cart message on 404", status: 404, body: `{"status":"fail","message":"There is no cart for this id : 6651"}`, reason: storefront.ReasonNoCartForAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.on(http.MethodGet, "/api/v1/cart", tt.status, tt.body)
			client := newTestClient(t, fb)

			_, err := client.CreateCashOrder(context.Background(), testCred, testAddress)
			f := requireReason(t, err, tt.reason)
			if tt.message != "" {
				assert.Equal(t, tt.message, f.Message)
				assert.NotErrorIs(t, err, storefront.ErrNoCartForAccount)
			}
			require.NotNil(t, f.Diagnostic)
			assert.Equal(t, tt.status, f.Diagnostic.StatusCode)
			assert.Equal(t, 1, fb.callCount(), "order creation must not be attempted")
		})
	}
}

func TestCreateGatewayOrder_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		reason  storefront.FailureReason
		key     storefront.MessageKey
		message string
	}{
		{
			name:   "translated no cart message",
			status: 404,
			body:   `{"status":"fail","message":"There is no cart for this id : cart-7"}`,
			reason: storefront.ReasonNoCartForAccount,
			key:    storefront.MsgNoCartForAccount,
		},
		{
			name:    "unknown message passes through",
			status:  400,
			body:    `{"status":"fail","message":"Coupon expired"}`,
			reason:  storefront.ReasonBackendRejected,
			message: "Coupon expired",
		},
		{
			name:    "error field",
			status:  400,
			body:    `{"error":"Stripe unavailable"}`,
			reason:  storefront.ReasonBackendRejected,
			message: "Stripe unavailable",
		},
		{
			name:   "no message",
			status: 500,
			body:   `{}`,
			reason: storefront.ReasonBackendRejected,
			key:    storefront.MsgCheckoutSessionFail,
		},
		{
			name:   "success without session",
			status: 200,
			body:   `{"status":"success"}`,
			reason: storefront.ReasonNetworkOrParse,
			key:    storefront.MsgGenericRetry,
		},
		{
			name:   "not json",
			status: 200,
			body:   `<html></html>`,
			reason: storefront.ReasonNetworkOrParse,
			key:    storefront.MsgGenericRetry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.on(http.MethodGet, "/api/v1/cart", http.StatusOK, cartWithID)
			fb.on(http.MethodPost, "/api/v1/orders/checkout-session/cart-7", tt.status, tt.body)
			client := newTestClient(t, fb)

			redirect, err := client.CreateGatewayOrder(context.Background(), testCred, testAddress, "https://shop.example/orders")
			assert.Nil(t, redirect)
			f := requireReason(t, err, tt.reason)
			if tt.key != "" {
				assert.Equal(t, tt.key, f.Key)
			}
			if tt.message != "" {
				assert.Equal(t, tt.message, f.Message)
				assert.Empty(t, f.Key)
			}
			require.NotNil(t, f.Diagnostic)
			assert.Equal(t, tt.status, f.Diagnostic.StatusCode)
			assert.Equal(t, "create_gateway_order", f.Diagnostic.Operation)
		})
	}
}

func TestCreateCashOrder_Shapes(t *testing.T) {
	order := `{"_id":"order-1","user":"user-1","cartItems":[{"count":1,"price":30,"product":"B"}],"totalOrderPrice":30,"paymentMethodType":"cash","isPaid":false,"isDelivered":false,"createdAt":"2026-01-02T03:04:05.000Z"}`
	tests := map[string]string{
		"under data":  `{"status":"success","data":` + order + `}`,
		"under order": `{"status":"success","order":` + order + `}`,
		"at root":     order,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.on(http.MethodGet, "/api/v1/cart", http.StatusOK, cartWithID)
			fb.on(http.MethodPost, "/api/v1/orders/cart-7", http.StatusCreated, body)
			client := newTestClient(t, fb)

			confirmed, err := client.CreateCashOrder(context.Background(), testCred, testAddress)
			require.NoError(t, err)
			assert.Equal(t, "order-1", confirmed.OrderID)
			assert.True(t, decimal.NewFromInt(30).Equal(confirmed.TotalPrice))
			assert.False(t, confirmed.IsPaid)
			assert.False(t, confirmed.IsDelivered)
			require.NotNil(t, confirmed.Order)
			assert.Equal(t, "user-1", confirmed.Order.UserID)
			require.Len(t, confirmed.Order.Items, 1)
			assert.Equal(t, "B", confirmed.Order.Items[0].ProductID)
			assert.Equal(t, 2026, confirmed.Order.CreatedAt.Year())
		})
	}
}

func TestCreateCashOrder_RequiresSuccessStatus(t *testing.T) {
	fb := newFakeBackend(t)
	fb.on(http.MethodGet, "/api/v1/cart", http.StatusOK, cartWithID)
	fb.on(http.MethodPost, "/api/v1/orders/cart-7", http.StatusBadRequest, `{"data":{"_id":"order-1"},"message":"shipping address required"}`)
	client := newTestClient(t, fb)

	_, err := client.CreateCashOrder(context.Background(), testCred, testAddress)
	f := requireReason(t, err, storefront.ReasonBackendRejected)
	assert.Equal(t, "shipping address required", f.Message)
}

func TestCreateCashOrder_NoMessageFallback(t *testing.T) {
	fb := newFakeBackend(t)
	fb.on(http.MethodGet, "/api/v1/cart", http.StatusOK, cartWithID)
	fb.on(http.MethodPost, "/api/v1/orders/cart-7", http.StatusInternalServerError, ``)
	client := newTestClient(t, fb)

	_, err := client.CreateCashOrder(context.Background(), testCred, testAddress)
	f := requireReason(t, err, storefront.ReasonBackendRejected)
	assert.Equal(t, storefront.MsgOrderCreateFailed, f.Key)
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestListOrders(t *testing.T) {
	list := `[{"_id":"o1","totalOrderPrice":10,"paymentMethodType":"card","isPaid":true,"cartItems":[{"count":1,"price":10,"product":{"_id":"A","title":"Alpha"}}]}]`

	t.Run("user scoped from session", func(t *testing.T) {
		fb := newFakeBackend(t)
		fb.on(http.MethodGet, "/api/v1/orders/user/user-1", http.StatusOK, list)
		client := newTestClient(t, fb)

		orders, err := client.ListOrders(context.Background(), storefront.Credential{Token: "tok", UserID: "user-1"})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "o1", orders[0].ID)
		assert.True(t, orders[0].IsPaid)
		assert.Equal(t, "Alpha", orders[0].Items[0].Title)
	})

	t.Run("user scoped from token claims", func(t *testing.T) {
		fb := newFakeBackend(t)
		fb.on(http.MethodGet, "/api/v1/orders/user/u-42", http.StatusOK, `{"data":`+list+`}`)
		client := newTestClient(t, fb)

		orders, err := client.ListOrders(context.Background(), storefront.Credential{Token: signedToken(t, jwt.MapClaims{"id": "u-42"})})
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})

	t.Run("generic without user id", func(t *testing.T) {
		fb := newFakeBackend(t)
		fb.on(http.MethodGet, "/api/v1/orders", http.StatusOK, `{"data":[]}`)
		client := newTestClient(t, fb)

		orders, err := client.ListOrders(context.Background(), testCred)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("unrecognized shape", func(t *testing.T) {
		fb := newFakeBackend(t)
		fb.on(http.MethodGet, "/api/v1/orders", http.StatusOK, `{"data":{"_id":"o1"}}`)
		client := newTestClient(t, fb)

		_, err := client.ListOrders(context.Background(), testCred)
		requireReason(t, err, storefront.ReasonNetworkOrParse)
	})
}

func TestGetOrder(t *testing.T) {
	fb := newFakeBackend(t)
	fb.on(http.MethodGet, "/api/v1/orders/o1", http.StatusOK, `{"status":"success","data":{"_id":"o1","isDelivered":true}}`)
	fb.on(http.MethodGet, "/api/v1/orders/missing", http.StatusNotFound, ``)
	client := newTestClient(t, fb)
	ctx := context.Background()

	order, err := client.GetOrder(ctx, testCred, "o1")
	require.NoError(t, err)
	assert.True(t, order.IsDelivered)

	_, err = client.GetOrder(ctx, testCred, "missing")
	f := requireReason(t, err, storefront.ReasonBackendRejected)
	assert.Equal(t, storefront.MsgOrderNotFound, f.Key)

	_, err = client.GetOrder(ctx, testCred, "")
	requireReason(t, err, storefront.ReasonValidation)
}
