package commerce

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The backend nests payloads inconsistently. These helpers give every
// resource one place to probe the known shapes.

func decodeObject(body []byte) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return nil, false
	}
	return root, true
}

// field returns root[key] when it is present and not null
func field(root map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := root[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

func stringField(root map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := field(root, key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func isObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}

// ref is a reference the backend sends either as a bare id string or as
// a populated document
type ref struct {
	ID         string
	Title      string
	ImageCover string
	Price      decimal.Decimal
	Quantity   int
	HasStock   bool
	Email      string
}

func (r *ref) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if t := bytes.TrimSpace(b); t[0] == '"' {
		return json.Unmarshal(t, &r.ID)
	}
	var doc struct {
		UnderscoreID string          `json:"_id"`
		ID           string          `json:"id"`
		Title        string          `json:"title"`
		ImageCover   string          `json:"imageCover"`
		Price        decimal.Decimal `json:"price"`
		Quantity     *int            `json:"quantity"`
		Email        string          `json:"email"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	r.ID = firstNonEmpty(doc.UnderscoreID, doc.ID)
	r.Title = doc.Title
	r.ImageCover = doc.ImageCover
	r.Price = doc.Price
	r.Email = doc.Email
	if doc.Quantity != nil {
		r.Quantity = *doc.Quantity
		r.HasStock = true
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseTime accepts the backend's ISO timestamps and ignores anything else
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
