package storefront

import "strings"

// Credential is the bearer token issued by the identity provider together
// with the user identifier it was issued for.
type Credential struct {
	Token  string
	UserID string
}

// IsZero reports whether no usable token is present
func (c Credential) IsZero() bool {
	return strings.TrimSpace(c.Token) == ""
}

// Masked returns the last six characters of the token for log lines
func (c Credential) Masked() string {
	if c.IsZero() {
		return "(no-token)"
	}
	if len(c.Token) <= 6 {
		return "***"
	}
	return "..." + c.Token[len(c.Token)-6:]
}
