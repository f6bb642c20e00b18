package cart

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/storefront"
)

// MockCartGateway is a mock implementation of storefront.CartGateway
type MockCartGateway struct {
	mock.Mock
}

func (m *MockCartGateway) snapshot(args mock.Arguments) (*storefront.CartSnapshot, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefront.CartSnapshot), args.Error(1)
}

func (m *MockCartGateway) FetchCart(ctx context.Context, cred storefront.Credential) (*storefront.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, cred))
}

func (m *MockCartGateway) AddItem(ctx context.Context, cred storefront.Credential, productID string) (*storefront.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, cred, productID))
}

func (m *MockCartGateway) SetItemQuantity(ctx context.Context, cred storefront.Credential, productID string, quantity int) (*storefront.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, cred, productID, quantity))
}

func (m *MockCartGateway) RemoveItem(ctx context.Context, cred storefront.Credential, productID string) (*storefront.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, cred, productID))
}

func (m *MockCartGateway) ClearCart(ctx context.Context, cred storefront.Credential) (*storefront.CartSnapshot, error) {
	return m.snapshot(m.Called(ctx, cred))
}

// recordingPublisher captures published events in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) counts() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []int
	for _, e := range p.events {
		if changed, ok := e.(*storefront.CartCountChanged); ok {
			out = append(out, changed.NewItemCount)
		}
	}
	return out
}

var testSession = session.New(storefront.Credential{Token: "shopper-token"})

func line(productID string, quantity int, price int64) storefront.CartLine {
	return storefront.CartLine{
		ProductID: productID,
		Product:   storefront.ProductSummary{ID: productID, Title: productID, Price: decimal.NewFromInt(price)},
		Quantity:  quantity,
		UnitPrice: decimal.NewFromInt(price),
	}
}

func snapshot(lines ...storefront.CartLine) *storefront.CartSnapshot {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return storefront.NewCartSnapshot("cart-1", lines, total, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
}
