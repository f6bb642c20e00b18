package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/address"
	"github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/i18n"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

const testToken = "shopper-token"

// MockCommerce is a mock implementation of every storefront gateway
type MockCommerce struct {
	mock.Mock
}

func (m *MockCommerce) snapshot(args mock.Arguments) (*storefront.CartSnapshot, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.CartSnapshot), args.Error(1)
}

func (m *MockCommerce) FetchCart(ctx context.Context, cred storefront.Credential) (*storefront.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, cred))
}

func (m *MockCommerce) AddItem(ctx context.Context, cred storefront.Credential, productID string) (*storefront.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, cred, productID))
}

func (m *MockCommerce) SetItemQuantity(ctx context.Context, cred storefront.Credential, productID string, quantity int) (*storefront.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, cred, productID, quantity))
}

func (m *MockCommerce) RemoveItem(ctx context.Context, cred storefront.Credential, productID string) (*storefront.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, cred, productID))
}

func (m *MockCommerce) ClearCart(ctx context.Context, cred storefront.Credential) (*storefront.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, cred))
}

func (m *MockCommerce) CreateCashOrder(ctx context.Context, cred storefront.Credential, addr storefront.ShippingAddress) (*storefront.ConfirmedOrder, error) {
	args := m.Called(ctx, cred, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.ConfirmedOrder), args.Error(1)
}

func (m *MockCommerce) CreateGatewayOrder(ctx context.Context, cred storefront.Credential, addr storefront.ShippingAddress, returnURL string) (*storefront.GatewayRedirect, error) {
	args := m.Called(ctx, cred, addr, returnURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.GatewayRedirect), args.Error(1)
}

func (m *MockCommerce) ListOrders(ctx context.Context, cred storefront.Credential) ([]storefront.Order, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.Order), args.Error(1)
}

func (m *MockCommerce) GetOrder(ctx context.Context, cred storefront.Credential, orderID string) (*storefront.Order, error) {
	args := m.Called(ctx, cred, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.Order), args.Error(1)
}

func (m *MockCommerce) ListAddresses(ctx context.Context, cred storefront.Credential) ([]storefront.Address, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.Address), args.Error(1)
}

func (m *MockCommerce) AddAddress(ctx context.Context, cred storefront.Credential, input storefront.AddressInput) error {
	return m.Called(ctx, cred, input).Error(0)
}

func (m *MockCommerce) UpdateAddress(ctx context.Context, cred storefront.Credential, addressID string, input storefront.AddressInput) error {
	return m.Called(ctx, cred, addressID, input).Error(0)
}

func (m *MockCommerce) DeleteAddress(ctx context.Context, cred storefront.Credential, addressID string) error {
	return m.Called(ctx, cred, addressID).Error(0)
}

func (m *MockCommerce) SetDefaultAddress(ctx context.Context, cred storefront.Credential, addressID string) error {
	return m.Called(ctx, cred, addressID).Error(0)
}

func (m *MockCommerce) ListProducts(ctx context.Context, cred storefront.Credential) ([]storefront.ProductSummary, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.ProductSummary), args.Error(1)
}

func (m *MockCommerce) ListWishlist(ctx context.Context, cred storefront.Credential) ([]storefront.ProductSummary, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.ProductSummary), args.Error(1)
}

func (m *MockCommerce) AddToWishlist(ctx context.Context, cred storefront.Credential, productID string) ([]string, error) {
	args := m.Called(ctx, cred, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCommerce) RemoveFromWishlist(ctx context.Context, cred storefront.Credential, productID string) ([]string, error) {
	args := m.Called(ctx, cred, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCommerce) RawCart(ctx context.Context, cred storefront.Credential) (*storefront.Diagnostic, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.Diagnostic), args.Error(1)
}

func (m *MockCommerce) RawOrders(ctx context.Context, cred storefront.Credential) ([]storefront.Diagnostic, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.Diagnostic), args.Error(1)
}

func cartWith(lines ...storefront.CartLine) *storefront.CartSnapshot {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return storefront.NewCartSnapshot("cart-1", lines, total, time.Now())
}

func line(productID string, quantity int, price int64) storefront.CartLine {
	return storefront.CartLine{
		ProductID: productID,
		Product:   storefront.ProductSummary{ID: productID, Title: productID, Price: decimal.NewFromInt(price)},
		Quantity:  quantity,
		UnitPrice: decimal.NewFromInt(price),
	}
}

var homeAddress = storefront.Address{
	ID:        "addr-1",
	Label:     "Home",
	Details:   "12 Nile St",
	Phone:     "01012345678",
	City:      "Cairo",
	IsDefault: true,
}

// harness wires the storefront services to a mocked backend behind the
// same middleware the server uses
type harness struct {
	engine   *gin.Engine
	gateway  *MockCommerce
	registry *session.Registry
	bus      *event.InMemoryEventBus
	carts    *cart.Service
	checkout *checkout.Orchestrator
	stream   *CartStreamHandler
}

func newHarness(t *testing.T, opts ...CartStreamOption) *harness {
	t.Helper()

	gw := new(MockCommerce)
	registry := session.NewRegistry(time.Hour, zap.NewNop())
	bus := event.NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))

	carts := cart.NewService(gw, cart.NewStore(), bus)
	book := address.NewBook(gw, zap.NewNop())
	history := order.NewHistory(gw, cache.NewInMemoryOrderCache(time.Minute), zap.NewNop())
	orchestrator := checkout.NewOrchestrator(checkout.Deps{
		Carts:     carts,
		Addresses: book,
		Orders:    gw,
		Catalog:   gw,
		Publisher: bus,
	}, checkout.Config{
		ReturnURL:       "https://shop.example.test/allorders",
		AllowSampleCart: true,
	})

	stream := NewCartStreamHandler(carts, bus, opts...)
	require.NoError(t, stream.Start())

	registry.OnDrop(carts.Discard)
	registry.OnDrop(book.Discard)
	registry.OnDrop(history.Discard)
	registry.OnDrop(orchestrator.Discard)
	registry.OnDrop(stream.Disconnect)

	t.Cleanup(func() {
		stream.Stop()
		_ = bus.Stop(context.Background())
	})

	localizer, err := i18n.NewLocalizer("en")
	require.NoError(t, err)

	cartHandler := NewCartHandler(carts)
	checkoutHandler := NewCheckoutHandler(orchestrator)
	addressHandler := NewAddressHandler(book)
	orderHandler := NewOrderHandler(history)
	wishlistHandler := NewWishlistHandler(gw)
	sessionHandler := NewSessionHandler(registry)
	debugHandler := NewDebugHandler(gw)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Language(localizer), middleware.Session(registry))

	api := engine.Group("/api/v1", middleware.RequireSession())
	api.GET("/cart/stream", stream.Stream)
	api.GET("/cart", cartHandler.Get)
	api.DELETE("/cart", cartHandler.Clear)
	api.GET("/cart/count", cartHandler.Count)
	api.POST("/cart/items", cartHandler.AddItem)
	api.PUT("/cart/items/:productId", cartHandler.SetQuantity)
	api.DELETE("/cart/items/:productId", cartHandler.RemoveItem)

	api.GET("/checkout", checkoutHandler.Get)
	api.POST("/checkout/begin", checkoutHandler.Begin)
	api.PUT("/checkout/address", checkoutHandler.SelectAddress)
	api.PUT("/checkout/payment", checkoutHandler.SelectPayment)
	api.POST("/checkout/submit", checkoutHandler.Submit)
	api.POST("/checkout/retry", checkoutHandler.Retry)
	api.POST("/checkout/recover", checkoutHandler.Recover)

	api.GET("/addresses", addressHandler.List)
	api.POST("/addresses", addressHandler.Create)
	api.PUT("/addresses/:id", addressHandler.Update)
	api.DELETE("/addresses/:id", addressHandler.Delete)
	api.PUT("/addresses/:id/default", addressHandler.SetDefault)

	api.GET("/orders", orderHandler.List)
	api.GET("/orders/:id", orderHandler.Get)

	api.GET("/wishlist", wishlistHandler.List)
	api.POST("/wishlist", wishlistHandler.Add)
	api.DELETE("/wishlist/:productId", wishlistHandler.Remove)

	api.DELETE("/session", sessionHandler.Logout)

	api.GET("/debug/cart", debugHandler.Cart)
	api.GET("/debug/orders", debugHandler.Orders)

	return &harness{
		engine:   engine,
		gateway:  gw,
		registry: registry,
		bus:      bus,
		carts:    carts,
		checkout: orchestrator,
		stream:   stream,
	}
}

func (h *harness) session() session.Session {
	return session.New(storefront.Credential{Token: testToken})
}

// do sends an authenticated request; body is encoded as JSON unless it
// is already a string
func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	return h.send(method, path, body, testToken)
}

func (h *harness) send(method, path string, body any, token string) *httptest.ResponseRecorder {
	req := newRequest(method, path, body)
	if token != "" {
		req.Header.Set("token", token)
	}
	return h.serve(req)
}

func (h *harness) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

// newJSONRequest builds an authenticated request
func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	req := newRequest(method, path, body)
	req.Header.Set("token", testToken)
	return req
}

func newRequest(method, path string, body any) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// envelope is the decoded response with Data left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	env := decode(t, w)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

var anyCtx = mock.Anything

var shopperCred = storefront.Credential{Token: testToken}
