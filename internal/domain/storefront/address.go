package storefront

// Address is a delivery address stored by the backend
type Address struct {
	ID         string `json:"id"`
	Label      string `json:"alias"`
	Details    string `json:"details"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	IsDefault  bool   `json:"isDefault"`
}

// AddressInput is the shopper-editable part of an address
type AddressInput struct {
	Label      string `json:"alias" binding:"required,max=50" validate:"required,max=50"`
	Details    string `json:"details" binding:"required,max=200" validate:"required,max=200"`
	Phone      string `json:"phone" binding:"required,min=7,max=20" validate:"required,min=7,max=20,phone"`
	City       string `json:"city" binding:"required,max=80" validate:"required,max=80"`
	PostalCode string `json:"postalCode" binding:"omitempty,max=12" validate:"omitempty,numeric,max=12"`
}

// ShippingAddress is the address shape order creation expects
type ShippingAddress struct {
	Details    string `json:"details"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
}

// Shipping returns the order-facing view of the address
func (a Address) Shipping() ShippingAddress {
	return ShippingAddress{
		Details:    a.Details,
		Phone:      a.Phone,
		City:       a.City,
		PostalCode: a.PostalCode,
	}
}

// DefaultAddress picks the address checkout preselects: the one flagged
// default, otherwise the first
func DefaultAddress(addresses []Address) (Address, bool) {
	if len(addresses) == 0 {
		return Address{}, false
	}
	for _, a := range addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return addresses[0], true
}

// FindAddress returns the address with the given id
func FindAddress(addresses []Address, id string) (Address, bool) {
	for _, a := range addresses {
		if a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}

// MarkDefault returns a copy of addresses where only id is flagged default.
// The second result is false when id is not in the list.
func MarkDefault(addresses []Address, id string) ([]Address, bool) {
	out := make([]Address, len(addresses))
	found := false
	for i, a := range addresses {
		a.IsDefault = a.ID == id
		if a.IsDefault {
			found = true
		}
		out[i] = a
	}
	return out, found
}
