package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// Factory builds the submission guard and order cache, backed by Redis
// when it is enabled and reachable, in memory otherwise
type Factory struct {
	redisConfig           config.RedisConfig
	orderTTL              time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, orderTTL time.Duration, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		orderTTL:              orderTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect dials Redis when enabled. With fallback allowed a failed ping
// is logged and the factory serves in-memory stores.
func (f *Factory) Connect(ctx context.Context) error {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory submission guard and order cache")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !f.allowInMemoryFallback {
			return fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Submission guards are then per instance.",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err),
		)
		return nil
	}

	f.client = client
	f.logger.Info("connected to redis", zap.String("addr", f.redisConfig.Addr()))
	return nil
}

// UsesRedis reports whether stores are Redis-backed
func (f *Factory) UsesRedis() bool {
	return f.client != nil
}

// Ping checks the Redis connection. In-memory stores are always healthy.
func (f *Factory) Ping(ctx context.Context) error {
	if f.client == nil {
		return nil
	}
	return f.client.Ping(ctx).Err()
}

// SubmissionGuard returns the store that claims checkout submissions
func (f *Factory) SubmissionGuard() shared.ClaimStore {
	if f.client != nil {
		return NewRedisClaims(f.client, DefaultSubmissionPrefix)
	}
	return NewMemoryClaims()
}

// OrderCache returns the per-session order list cache
func (f *Factory) OrderCache() storefront.OrderCache {
	if f.client != nil {
		return NewRedisOrderCache(f.client, f.orderTTL)
	}
	return NewInMemoryOrderCache(f.orderTTL, WithOrderCacheLogger(f.logger))
}

// Close closes the Redis client if one was opened
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
