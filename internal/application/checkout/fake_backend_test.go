package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/storefront"
)

// fakeBackend is an in-memory commerce backend for one account
type fakeBackend struct {
	mu        sync.Mutex
	lines     []storefront.CartLine
	cartID    string
	addresses []storefront.Address
	products  []storefront.ProductSummary

	orderErr        error
	gatewayURL      string
	rejectSetQty    bool
	cashCalls       atomic.Int32
	gatewayCalls    atomic.Int32
	lastReturnURL   string
	orderGate       chan struct{}
	orderStarted    chan struct{}
	startedSignaled sync.Once
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		cartID:     "cart-1",
		gatewayURL: "https://pay.example.test/session/abc",
	}
}

func (b *fakeBackend) snapshotLocked() *storefront.CartSnapshot {
	if len(b.lines) == 0 {
		return nil
	}
	total := decimal.Zero
	lines := make([]storefront.CartLine, len(b.lines))
	copy(lines, b.lines)
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return storefront.NewCartSnapshot(b.cartID, lines, total, time.Now())
}

func (b *fakeBackend) product(id string) storefront.ProductSummary {
	for _, p := range b.products {
		if p.ID == id {
			return p
		}
	}
	return storefront.ProductSummary{ID: id, Title: id, Price: decimal.NewFromInt(10)}
}

func (b *fakeBackend) putLine(productID string, quantity int) {
	p := b.product(productID)
	for i := range b.lines {
		if b.lines[i].ProductID == productID {
			b.lines[i].Quantity = quantity
			return
		}
	}
	b.lines = append(b.lines, storefront.CartLine{
		ProductID: productID,
		Product:   p,
		Quantity:  quantity,
		UnitPrice: p.Price,
	})
}

func (b *fakeBackend) FetchCart(_ context.Context, _ storefront.Credential) (*storefront.CartSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked(), nil
}

func (b *fakeBackend) AddItem(_ context.Context, _ storefront.Credential, productID string) (*storefront.CartSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	quantity := 1
	for _, l := range b.lines {
		if l.ProductID == productID {
			quantity = l.Quantity + 1
		}
	}
	b.putLine(productID, quantity)
	return b.snapshotLocked(), nil
}

func (b *fakeBackend) SetItemQuantity(_ context.Context, _ storefront.Credential, productID string, quantity int) (*storefront.CartSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejectSetQty {
		return nil, storefront.NewBackendFailure("No product in cart with this id")
	}
	b.putLine(productID, quantity)
	return b.snapshotLocked(), nil
}

func (b *fakeBackend) RemoveItem(_ context.Context, _ storefront.Credential, productID string) (*storefront.CartSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.lines[:0]
	for _, l := range b.lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	b.lines = kept
	return b.snapshotLocked(), nil
}

func (b *fakeBackend) ClearCart(_ context.Context, _ storefront.Credential) (*storefront.CartSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
	return nil, nil
}

func (b *fakeBackend) awaitOrderGate() {
	if b.orderStarted != nil {
		b.startedSignaled.Do(func() { close(b.orderStarted) })
	}
	if b.orderGate != nil {
		<-b.orderGate
	}
}

func (b *fakeBackend) hasCart() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines) > 0
}

func (b *fakeBackend) CreateCashOrder(_ context.Context, _ storefront.Credential, _ storefront.ShippingAddress) (*storefront.ConfirmedOrder, error) {
	b.cashCalls.Add(1)
	b.awaitOrderGate()
	if b.orderErr != nil {
		return nil, b.orderErr
	}
	if !b.hasCart() {
		return nil, storefront.NewFailure(storefront.ReasonNoCartForAccount, storefront.MsgNoCartForAccount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	total := b.snapshotLocked().TotalPrice
	b.lines = nil
	return &storefront.ConfirmedOrder{OrderID: "order-1", TotalPrice: total}, nil
}

func (b *fakeBackend) CreateGatewayOrder(_ context.Context, _ storefront.Credential, _ storefront.ShippingAddress, returnURL string) (*storefront.GatewayRedirect, error) {
	b.gatewayCalls.Add(1)
	b.awaitOrderGate()
	if b.orderErr != nil {
		return nil, b.orderErr
	}
	if !b.hasCart() {
		return nil, storefront.NewFailure(storefront.ReasonNoCartForAccount, storefront.MsgNoCartForAccount)
	}
	b.mu.Lock()
	b.lastReturnURL = returnURL
	b.mu.Unlock()
	return &storefront.GatewayRedirect{URL: b.gatewayURL}, nil
}

func (b *fakeBackend) ListOrders(context.Context, storefront.Credential) ([]storefront.Order, error) {
	return []storefront.Order{}, nil
}

func (b *fakeBackend) GetOrder(_ context.Context, _ storefront.Credential, _ string) (*storefront.Order, error) {
	return nil, storefront.NewFailure(storefront.ReasonBackendRejected, storefront.MsgOrderNotFound)
}

func (b *fakeBackend) ListAddresses(context.Context, storefront.Credential) ([]storefront.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]storefront.Address{}, b.addresses...), nil
}

func (b *fakeBackend) AddAddress(_ context.Context, _ storefront.Credential, in storefront.AddressInput) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses = append(b.addresses, storefront.Address{
		ID: in.Label, Label: in.Label, Details: in.Details, Phone: in.Phone, City: in.City,
	})
	return nil
}

func (b *fakeBackend) UpdateAddress(context.Context, storefront.Credential, string, storefront.AddressInput) error {
	return nil
}

func (b *fakeBackend) DeleteAddress(context.Context, storefront.Credential, string) error {
	return nil
}

func (b *fakeBackend) SetDefaultAddress(context.Context, storefront.Credential, string) error {
	return nil
}

func (b *fakeBackend) ListProducts(context.Context, storefront.Credential) ([]storefront.ProductSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]storefront.ProductSummary{}, b.products...), nil
}

func (b *fakeBackend) orderCalls() int {
	return int(b.cashCalls.Load() + b.gatewayCalls.Load())
}
