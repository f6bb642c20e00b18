package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/storefront/backend/internal/domain/shared"
)

// DefaultSubmissionPrefix namespaces checkout submission claims
const DefaultSubmissionPrefix = "storefront:submission:"

// releaseScript deletes a key only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaims keeps submission claims in Redis so every instance behind
// the load balancer sees them
type RedisClaims struct {
	client redis.UniversalClient
	prefix string
}

var _ shared.ClaimStore = (*RedisClaims)(nil)

// NewRedisClaims creates a store on a shared client, which it never closes
func NewRedisClaims(client redis.UniversalClient, prefix string) *RedisClaims {
	if prefix == "" {
		prefix = DefaultSubmissionPrefix
	}
	return &RedisClaims{client: client, prefix: prefix}
}

// Claim takes key with SET NX PX
func (r *RedisClaims) Claim(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("claim %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Held reports whether key exists
func (r *RedisClaims) Held(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check claim %s: %w", key, err)
	}
	return n > 0, nil
}

// Release deletes key when token still owns it
func (r *RedisClaims) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("release claim %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client belongs to the Factory
func (r *RedisClaims) Close() error {
	return nil
}
