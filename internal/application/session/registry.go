// Package session tracks the shopper sessions the storefront serves. A
// session is identified by a fingerprint of its credential so the token
// itself is never used as a map key, Redis key or log field.
package session

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/storefront/backend/internal/domain/storefront"
)

// Session is one authenticated shopper
type Session struct {
	Key        string
	Credential storefront.Credential
}

// IsZero reports whether the session carries no credential
func (s Session) IsZero() bool {
	return s.Credential.IsZero()
}

// Fingerprint derives the session key of a credential
func Fingerprint(cred storefront.Credential) string {
	sum := blake2b.Sum256([]byte(cred.Token))
	return hex.EncodeToString(sum[:])
}

// New builds the session of a credential
func New(cred storefront.Credential) Session {
	if cred.IsZero() {
		return Session{Credential: cred}
	}
	return Session{Key: Fingerprint(cred), Credential: cred}
}

// DropFunc discards per-session state held elsewhere
type DropFunc func(ctx context.Context, sessionKey string)

type entry struct {
	session  Session
	lastSeen time.Time
}

// Registry remembers live sessions and tells subscribed services when one
// ends, by logout or by idling out
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	onDrop   []DropFunc
	idle     time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewRegistry creates a registry. Sessions unseen for idle are dropped by
// Sweep; zero disables idling out.
func NewRegistry(idle time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*entry),
		idle:     idle,
		now:      time.Now,
		logger:   logger,
	}
}

// OnDrop registers fn to run whenever a session ends
func (r *Registry) OnDrop(fn DropFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDrop = append(r.onDrop, fn)
}

// Touch returns the session of cred, registering it on first sight. A
// later credential with the same token refreshes the known user id.
func (r *Registry) Touch(cred storefront.Credential) Session {
	s := New(cred)
	if s.IsZero() {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[s.Key]
	if !ok {
		e = &entry{session: s}
		r.sessions[s.Key] = e
		r.logger.Debug("session registered", zap.String("session", s.Key[:12]))
	} else if cred.UserID != "" {
		e.session.Credential.UserID = cred.UserID
	}
	e.lastSeen = r.now()
	return e.session
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Drop ends a session and discards its state everywhere
func (r *Registry) Drop(ctx context.Context, sessionKey string) {
	r.mu.Lock()
	delete(r.sessions, sessionKey)
	hooks := append([]DropFunc(nil), r.onDrop...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx, sessionKey)
	}
}

// Sweep drops sessions idle for longer than the configured lifetime and
// returns how many ended
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idle <= 0 {
		return 0
	}

	cutoff := r.now().Add(-r.idle)
	r.mu.Lock()
	var expired []string
	for key, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, key)
		}
	}
	r.mu.Unlock()

	for _, key := range expired {
		r.Drop(ctx, key)
	}
	if len(expired) > 0 {
		r.logger.Info("idle sessions dropped", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx ends
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}
