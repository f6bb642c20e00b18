package storefront

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSelection is how the shopper pays
type PaymentSelection string

const (
	PaymentCash    PaymentSelection = "cash"
	PaymentGateway PaymentSelection = "gateway"
)

// IsValid checks if the selection is known
func (p PaymentSelection) IsValid() bool {
	switch p {
	case PaymentCash, PaymentGateway:
		return true
	}
	return false
}

// String returns the string representation of PaymentSelection
func (p PaymentSelection) String() string {
	return string(p)
}

// ParsePaymentSelection accepts the names the UI and backend use for the
// two payment paths
func ParsePaymentSelection(s string) (PaymentSelection, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash", "cod":
		return PaymentCash, true
	case "gateway", "card", "online", "visa":
		return PaymentGateway, true
	}
	return "", false
}

// OrderRequest is the transient input to order creation
type OrderRequest struct {
	CartID          string
	ShippingAddress ShippingAddress
	Payment         PaymentSelection
	ReturnURL       string
}

// OrderItem is a line of a placed order
type OrderItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order is an order as the backend reports it
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId,omitempty"`
	Items           []OrderItem     `json:"items"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	PaymentMethod   string          `json:"paymentMethod"`
	IsPaid          bool            `json:"isPaid"`
	IsDelivered     bool            `json:"isDelivered"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ResultKind discriminates OrderResult variants
type ResultKind string

const (
	ResultGatewayRedirect ResultKind = "gateway_redirect"
	ResultConfirmedOrder  ResultKind = "confirmed_order"
	ResultFailure         ResultKind = "failure"
)

// OrderResult is the outcome of a submission: *GatewayRedirect,
// *ConfirmedOrder or *Failure
type OrderResult interface {
	Kind() ResultKind
	isOrderResult()
}

// GatewayRedirect carries the hosted payment page the shopper must visit
type GatewayRedirect struct {
	URL string `json:"url"`
}

// Kind implements OrderResult
func (*GatewayRedirect) Kind() ResultKind { return ResultGatewayRedirect }

func (*GatewayRedirect) isOrderResult() {}

// ConfirmedOrder is a cash order the backend accepted
type ConfirmedOrder struct {
	OrderID     string          `json:"orderId"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	IsPaid      bool            `json:"isPaid"`
	IsDelivered bool            `json:"isDelivered"`
	Order       *Order          `json:"order,omitempty"`
}

// Kind implements OrderResult
func (*ConfirmedOrder) Kind() ResultKind { return ResultConfirmedOrder }

func (*ConfirmedOrder) isOrderResult() {}
