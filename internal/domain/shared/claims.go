package shared

import (
	"context"
	"time"
)

// DefaultClaimTTL bounds how long an abandoned claim blocks a new one
const DefaultClaimTTL = 2 * time.Minute

// ClaimStore hands out exclusive, expiring claims on keys. Each claim
// carries a token so that only its holder can release it, even after the
// claim expired and was taken by someone else.
type ClaimStore interface {
	// Claim takes key for ttl. An empty token means another holder has it.
	Claim(ctx context.Context, key string, ttl time.Duration) (token string, err error)

	// Held reports whether anyone currently holds key
	Held(ctx context.Context, key string) (bool, error)

	// Release frees key if token still owns it
	Release(ctx context.Context, key, token string) error

	// Close releases resources owned by the store
	Close() error
}
