package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront/backend/internal/domain/storefront"
)

// RedisOrderCache keeps order lists per session in Redis as JSON
type RedisOrderCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisOrderCache creates a Redis-backed order cache
func NewRedisOrderCache(client redis.UniversalClient, ttl time.Duration) *RedisOrderCache {
	return &RedisOrderCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached orders of a session
func (r *RedisOrderCache) Get(ctx context.Context, sessionKey string) ([]storefront.Order, bool, error) {
	data, err := r.client.Get(ctx, orderCacheKey(sessionKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var orders []storefront.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, false, fmt.Errorf("unmarshal orders failed: %w", err)
	}
	return orders, true, nil
}

// Set stores the orders of a session
func (r *RedisOrderCache) Set(ctx context.Context, sessionKey string, orders []storefront.Order) error {
	if orders == nil {
		orders = []storefront.Order{}
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("marshal orders failed: %w", err)
	}
	if err := r.client.Set(ctx, orderCacheKey(sessionKey), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate drops the cached orders of a session
func (r *RedisOrderCache) Invalidate(ctx context.Context, sessionKey string) error {
	if err := r.client.Del(ctx, orderCacheKey(sessionKey)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func orderCacheKey(sessionKey string) string {
	return fmt.Sprintf("storefront:orders:%s", sessionKey)
}

var _ storefront.OrderCache = (*RedisOrderCache)(nil)
