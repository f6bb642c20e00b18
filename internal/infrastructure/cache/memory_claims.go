package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/shared"
)

type claim struct {
	token   string
	expires time.Time
}

// MemoryClaims keeps submission claims in process memory. It only
// protects a single instance.
type MemoryClaims struct {
	mu     sync.Mutex
	claims map[string]claim
	now    func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ shared.ClaimStore = (*MemoryClaims)(nil)

// NewMemoryClaims creates the store and starts its sweeper
func NewMemoryClaims() *MemoryClaims {
	m := &MemoryClaims{
		claims: make(map[string]claim),
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go m.sweep(time.Minute)
	return m
}

// Claim takes key unless a live claim exists
func (m *MemoryClaims) Claim(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if c, ok := m.claims[key]; ok && now.Before(c.expires) {
		return "", nil
	}
	token := uuid.NewString()
	m.claims[key] = claim{token: token, expires: now.Add(ttl)}
	return token, nil
}

// Held reports whether key has a live claim
func (m *MemoryClaims) Held(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.claims[key]
	return ok && m.now().Before(c.expires), nil
}

// Release drops key when token matches the current claim
func (m *MemoryClaims) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.claims[key]; ok && c.token == token {
		delete(m.claims, key)
	}
	return nil
}

// Close stops the sweeper. It may be called more than once.
func (m *MemoryClaims) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
	return nil
}

func (m *MemoryClaims) sweep(every time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.expire()
		}
	}
}

func (m *MemoryClaims) expire() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, c := range m.claims {
		if !now.Before(c.expires) {
			delete(m.claims, key)
		}
	}
}

func (m *MemoryClaims) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.claims)
}
