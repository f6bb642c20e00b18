package commerce

import (
	"strings"

	"github.com/storefront/backend/internal/domain/storefront"
)

// Rule maps a backend message containing Substring to a stable reason
// and message key
type Rule struct {
	Substring string
	Reason    storefront.FailureReason
	Key       storefront.MessageKey
}

// DefaultRules lists the backend messages the storefront knows how to
// explain. The backend appends ids to some of them, so matching is by
// case-insensitive substring.
func DefaultRules() []Rule {
	return []Rule{
		{Substring: "There is no cart for this id", Reason: storefront.ReasonNoCartForAccount, Key: storefront.MsgNoCartForAccount},
		{Substring: "No cart exist for this user", Reason: storefront.ReasonNoCartForAccount, Key: storefront.MsgNoCartForAccount},
		{Substring: "Invalid Token", Reason: storefront.ReasonNotAuthenticated, Key: storefront.MsgNotAuthenticated},
		{Substring: "expired token", Reason: storefront.ReasonNotAuthenticated, Key: storefront.MsgNotAuthenticated},
		{Substring: "You are not logged in", Reason: storefront.ReasonNotAuthenticated, Key: storefront.MsgNotAuthenticated},
	}
}

// Translator turns backend free text into failures. Unknown messages pass
// through verbatim as BackendRejected, an empty message becomes the
// generic retry text.
type Translator struct {
	rules []Rule
}

// NewTranslator creates a translator. Rules are tried in order.
func NewTranslator(rules ...Rule) *Translator {
	return &Translator{rules: rules}
}

// Translate classifies msg
func (t *Translator) Translate(msg string) *storefront.Failure {
	text := strings.TrimSpace(msg)
	if text == "" {
		return storefront.NewFailure(storefront.ReasonBackendRejected, storefront.MsgGenericRetry)
	}
	if rule, ok := t.Match(text); ok {
		return storefront.NewFailure(rule.Reason, rule.Key).WithBackendMessage(text)
	}
	return storefront.NewBackendFailure(text)
}

// Match returns the first rule whose substring occurs in msg
func (t *Translator) Match(msg string) (Rule, bool) {
	lower := strings.ToLower(msg)
	for _, rule := range t.rules {
		if strings.Contains(lower, strings.ToLower(rule.Substring)) {
			return rule, true
		}
	}
	return Rule{}, false
}

// IsNoCart reports whether msg is one of the backend's "no cart" messages
func (t *Translator) IsNoCart(msg string) bool {
	rule, ok := t.Match(msg)
	return ok && rule.Reason == storefront.ReasonNoCartForAccount
}
