package storefront

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductSummary is the product data embedded in a cart line or listing
type ProductSummary struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	ImageCover     string          `json:"imageCover,omitempty"`
	Price          decimal.Decimal `json:"price"`
	AvailableStock int             `json:"availableStock"`
	StockKnown     bool            `json:"stockKnown"`
}

// CartLine is one product in the cart
type CartLine struct {
	LineID    string          `json:"lineId,omitempty"`
	ProductID string          `json:"productId"`
	Product   ProductSummary  `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// CartSnapshot is the cart exactly as the backend last reported it. It is
// replaced wholesale after every successful response and never merged.
// A nil *CartSnapshot means the account has no cart.
type CartSnapshot struct {
	CartID        string          `json:"cartId"`
	Items         []CartLine      `json:"items"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	ItemCount     int             `json:"itemCount"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// NewCartSnapshot builds a snapshot and derives ItemCount as the sum of
// line quantities
func NewCartSnapshot(cartID string, items []CartLine, total decimal.Decimal, at time.Time) *CartSnapshot {
	count := 0
	for i := range items {
		count += items[i].Quantity
		if items[i].LineTotal.IsZero() && !items[i].UnitPrice.IsZero() {
			items[i].LineTotal = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		}
	}
	if items == nil {
		items = []CartLine{}
	}
	return &CartSnapshot{
		CartID:        cartID,
		Items:         items,
		TotalPrice:    total,
		ItemCount:     count,
		LastUpdatedAt: at,
	}
}

// IsEmpty reports whether there is nothing to check out
func (s *CartSnapshot) IsEmpty() bool {
	return s == nil || len(s.Items) == 0
}

// Count returns the item count, zero for an absent cart
func (s *CartSnapshot) Count() int {
	if s == nil {
		return 0
	}
	return s.ItemCount
}

// Line returns the line holding productID
func (s *CartSnapshot) Line(productID string) (CartLine, bool) {
	if s == nil {
		return CartLine{}, false
	}
	for _, line := range s.Items {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

// ValidateQuantity checks the lower bound every quantity update must meet
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return NewFailure(ReasonValidation, MsgQuantityBelowOne)
	}
	return nil
}

// CheckQuantity validates quantity against the line's known stock
func (l CartLine) CheckQuantity(quantity int) error {
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}
	if l.Product.StockKnown && quantity > l.Product.AvailableStock {
		return NewFailure(ReasonValidation, MsgQuantityExceedsStock)
	}
	return nil
}
