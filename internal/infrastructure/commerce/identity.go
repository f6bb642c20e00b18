package commerce

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storefront/backend/internal/domain/storefront"
)

// userIDClaims are the claim names the identity provider has used for the
// account id, in order of preference
var userIDClaims = []string{"id", "_id", "userId", "sub"}

// ResolveUserID returns the credential's user id, reading it from the
// token's claims when the session did not supply one. The signature is
// not verified; the commerce backend does that on every call.
func ResolveUserID(cred storefront.Credential) string {
	if id := strings.TrimSpace(cred.UserID); id != "" {
		return id
	}
	id, _ := UserIDFromToken(cred.Token)
	return id
}

// UserIDFromToken extracts the account id claim from a JWT
func UserIDFromToken(token string) (string, bool) {
	if strings.Count(token, ".") != 2 {
		return "", false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	for _, name := range userIDClaims {
		v, ok := claims[name]
		if !ok || v == nil {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(v))
		if id != "" {
			return id, true
		}
	}
	return "", false
}
