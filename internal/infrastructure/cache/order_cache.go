package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/storefront"
)

const defaultCleanupInterval = 30 * time.Second

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// InMemoryOrderCache keeps order lists per session for a fixed TTL
type InMemoryOrderCache struct {
	entries sync.Map // sessionKey -> *cacheEntry[[]storefront.Order]
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
}

// InMemoryOrderCacheOption is a functional option for configuring the cache
type InMemoryOrderCacheOption func(*InMemoryOrderCache)

// WithOrderCacheLogger sets the logger for the cache
func WithOrderCacheLogger(logger *zap.Logger) InMemoryOrderCacheOption {
	return func(c *InMemoryOrderCache) {
		c.logger = logger
	}
}

// WithOrderCacheClock overrides the time source
func WithOrderCacheClock(now func() time.Time) InMemoryOrderCacheOption {
	return func(c *InMemoryOrderCache) {
		c.now = now
	}
}

// NewInMemoryOrderCache creates an order cache and starts its cleanup loop
func NewInMemoryOrderCache(ttl time.Duration, opts ...InMemoryOrderCacheOption) *InMemoryOrderCache {
	c := &InMemoryOrderCache{
		ttl:    ttl,
		now:    time.Now,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupLoop()
	return c
}

// Get returns the cached orders of a session
func (c *InMemoryOrderCache) Get(ctx context.Context, sessionKey string) ([]storefront.Order, bool, error) {
	v, ok := c.entries.Load(sessionKey)
	if !ok {
		c.misses.Add(1)
		return nil, false, nil
	}
	e := v.(*cacheEntry[[]storefront.Order])
	if e.isExpired(c.now()) {
		c.entries.CompareAndDelete(sessionKey, e)
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	return append([]storefront.Order(nil), e.value...), true, nil
}

// Set stores the orders of a session
func (c *InMemoryOrderCache) Set(ctx context.Context, sessionKey string, orders []storefront.Order) error {
	c.entries.Store(sessionKey, &cacheEntry[[]storefront.Order]{
		value:     append([]storefront.Order(nil), orders...),
		expiresAt: c.now().Add(c.ttl),
	})
	return nil
}

// Invalidate drops the cached orders of a session
func (c *InMemoryOrderCache) Invalidate(ctx context.Context, sessionKey string) error {
	c.entries.Delete(sessionKey)
	return nil
}

// Stats returns hit/miss counters
func (c *InMemoryOrderCache) Stats() CacheStats {
	entries := 0
	c.entries.Range(func(_, _ any) bool {
		entries++
		return true
	})
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: entries,
	}
}

// Close stops the cleanup loop. Safe to call multiple times.
func (c *InMemoryOrderCache) Close() error {
	if c.stopped.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	return nil
}

func (c *InMemoryOrderCache) cleanupLoop() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryOrderCache) cleanup() {
	now := c.now()
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry[[]storefront.Order]).isExpired(now) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("order cache cleanup", zap.Int("removed", removed))
	}
}

var _ storefront.OrderCache = (*InMemoryOrderCache)(nil)
