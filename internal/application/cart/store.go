// Package cart holds the per-session cart state and the service that keeps
// it in step with the commerce backend.
package cart

import (
	"sync"

	"github.com/storefront/backend/internal/domain/storefront"
)

// Store holds the last cart snapshot the backend reported for each
// session. A session that has been fetched but has no cart maps to nil.
// Snapshots are only ever replaced whole; callers must not mutate them.
type Store struct {
	mu    sync.RWMutex
	carts map[string]*storefront.CartSnapshot
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{carts: make(map[string]*storefront.CartSnapshot)}
}

// Get returns the snapshot of a session. The second result is false when
// the session has never been fetched.
func (s *Store) Get(sessionKey string) (*storefront.CartSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.carts[sessionKey]
	return snap, ok
}

// Count returns the item count held for a session
func (s *Store) Count(sessionKey string) int {
	snap, _ := s.Get(sessionKey)
	return snap.Count()
}

// Replace assigns the full result of a backend call. A nil or item-less
// snapshot records the cart as empty.
func (s *Store) Replace(sessionKey string, snap *storefront.CartSnapshot) {
	if snap.IsEmpty() {
		snap = nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[sessionKey] = snap
}

// Clear records the cart of a session as empty
func (s *Store) Clear(sessionKey string) {
	s.Replace(sessionKey, nil)
}

// Drop forgets a session entirely
func (s *Store) Drop(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionKey)
}

// Len returns the number of sessions held
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts)
}
