package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/storefront/backend/internal/domain/storefront"
)

type addressDocument struct {
	UnderscoreID string `json:"_id"`
	ID           string `json:"id"`
	Alias        string `json:"alias"`
	Name         string `json:"name"`
	Details      string `json:"details"`
	Phone        string `json:"phone"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	IsDefault    bool   `json:"isDefault"`
}

func (d addressDocument) toAddress() storefront.Address {
	return storefront.Address{
		ID:         firstNonEmpty(d.UnderscoreID, d.ID),
		Label:      firstNonEmpty(d.Alias, d.Name),
		Details:    d.Details,
		Phone:      d.Phone,
		City:       d.City,
		PostalCode: d.PostalCode,
		IsDefault:  d.IsDefault,
	}
}

// ListAddresses returns the account's delivery addresses. The envelope's
// data may be an array, a single object or absent.
func (c *Client) ListAddresses(ctx context.Context, cred storefront.Credential) ([]storefront.Address, error) {
	resp, err := c.do(ctx, cred, request{operation: "list_addresses", method: http.MethodGet, path: "/addresses"})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.rejection(resp, storefront.MsgGenericRetry)
	}
	return c.normalizeAddresses(resp)
}

func (c *Client) normalizeAddresses(resp *response) ([]storefront.Address, error) {
	var docs []addressDocument
	if raw, ok := listRaw(resp.body, "data"); ok {
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, parseFailure(resp, "address list: "+err.Error())
		}
	} else {
		root, ok := decodeObject(resp.body)
		if !ok {
			return nil, parseFailure(resp, "address body is not a JSON object")
		}
		raw, present := field(root, "data")
		switch {
		case !present:
		case isObject(raw):
			var doc addressDocument
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, parseFailure(resp, "address: "+err.Error())
			}
			docs = append(docs, doc)
		default:
			return nil, parseFailure(resp, "unrecognized address shape")
		}
	}

	addresses := make([]storefront.Address, 0, len(docs))
	for _, d := range docs {
		a := d.toAddress()
		if a.ID == "" {
			continue
		}
		addresses = append(addresses, a)
	}
	return addresses, nil
}

// AddAddress creates an address
func (c *Client) AddAddress(ctx context.Context, cred storefront.Credential, input storefront.AddressInput) error {
	return c.mutateAddress(ctx, cred, request{
		operation: "add_address",
		method:    http.MethodPost,
		path:      "/addresses",
		payload:   input,
	})
}

// UpdateAddress replaces an address's fields
func (c *Client) UpdateAddress(ctx context.Context, cred storefront.Credential, addressID string, input storefront.AddressInput) error {
	if err := requireAddress(addressID); err != nil {
		return err
	}
	return c.mutateAddress(ctx, cred, request{
		operation: "update_address",
		method:    http.MethodPut,
		path:      "/addresses/" + url.PathEscape(addressID),
		payload:   input,
	})
}

// DeleteAddress removes an address
func (c *Client) DeleteAddress(ctx context.Context, cred storefront.Credential, addressID string) error {
	if err := requireAddress(addressID); err != nil {
		return err
	}
	return c.mutateAddress(ctx, cred, request{
		operation: "delete_address",
		method:    http.MethodDelete,
		path:      "/addresses/" + url.PathEscape(addressID),
	})
}

// SetDefaultAddress flags addressID as the default. The backend unsets the
// previous default itself.
func (c *Client) SetDefaultAddress(ctx context.Context, cred storefront.Credential, addressID string) error {
	if err := requireAddress(addressID); err != nil {
		return err
	}
	return c.mutateAddress(ctx, cred, request{
		operation: "set_default_address",
		method:    http.MethodPut,
		path:      "/addresses/" + url.PathEscape(addressID),
		payload:   map[string]bool{"isDefault": true},
	})
}

func (c *Client) mutateAddress(ctx context.Context, cred storefront.Credential, r request) error {
	resp, err := c.do(ctx, cred, r)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return c.rejection(resp, storefront.MsgGenericRetry)
	}
	return nil
}

func requireAddress(addressID string) error {
	if strings.TrimSpace(addressID) == "" {
		return storefront.NewFailure(storefront.ReasonValidation, storefront.MsgUnknownAddress)
	}
	return nil
}
