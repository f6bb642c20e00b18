// Package address manages the shopper's delivery addresses.
package address

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// Book is a read-through cache of each session's address list. Every
// successful mutation re-reads the full list from the backend.
type Book struct {
	gateway  storefront.AddressGateway
	validate *validator.Validate
	logger   *zap.Logger

	mu    sync.RWMutex
	lists map[string][]storefront.Address
}

// NewBook creates a new address Book
func NewBook(gateway storefront.AddressGateway, log *zap.Logger) *Book {
	if log == nil {
		log = zap.NewNop()
	}
	return &Book{
		gateway:  gateway,
		validate: NewValidator(),
		logger:   log,
		lists:    make(map[string][]storefront.Address),
	}
}

// List returns the session's addresses, fetching them on first use
func (b *Book) List(ctx context.Context, sess session.Session) ([]storefront.Address, error) {
	if sess.IsZero() {
		return nil, notAuthenticated()
	}
	if list, ok := b.cached(sess.Key); ok {
		return list, nil
	}
	return b.Refresh(ctx, sess)
}

// Refresh re-reads the address list from the backend
func (b *Book) Refresh(ctx context.Context, sess session.Session) ([]storefront.Address, error) {
	if sess.IsZero() {
		return nil, notAuthenticated()
	}
	list, err := b.gateway.ListAddresses(ctx, sess.Credential)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []storefront.Address{}
	}
	b.store(sess.Key, list)
	return clone(list), nil
}

// Default returns the address checkout preselects
func (b *Book) Default(ctx context.Context, sess session.Session) (storefront.Address, bool, error) {
	list, err := b.List(ctx, sess)
	if err != nil {
		return storefront.Address{}, false, err
	}
	a, ok := storefront.DefaultAddress(list)
	return a, ok, nil
}

// Find returns the address with the given id
func (b *Book) Find(ctx context.Context, sess session.Session, id string) (storefront.Address, error) {
	list, err := b.List(ctx, sess)
	if err != nil {
		return storefront.Address{}, err
	}
	a, ok := storefront.FindAddress(list, id)
	if !ok {
		return storefront.Address{}, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgUnknownAddress)
	}
	return a, nil
}

// Add creates an address
func (b *Book) Add(ctx context.Context, sess session.Session, input storefront.AddressInput) ([]storefront.Address, error) {
	if sess.IsZero() {
		return nil, notAuthenticated()
	}
	input = normalizeInput(input)
	if err := validateInput(b.validate, input); err != nil {
		return nil, err
	}
	if err := b.gateway.AddAddress(ctx, sess.Credential, input); err != nil {
		return nil, err
	}
	return b.resync(ctx, sess, "address.add")
}

// Update replaces the editable fields of an address
func (b *Book) Update(ctx context.Context, sess session.Session, id string, input storefront.AddressInput) ([]storefront.Address, error) {
	if sess.IsZero() {
		return nil, notAuthenticated()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgUnknownAddress)
	}
	input = normalizeInput(input)
	if err := validateInput(b.validate, input); err != nil {
		return nil, err
	}
	if err := b.gateway.UpdateAddress(ctx, sess.Credential, id, input); err != nil {
		return nil, err
	}
	return b.resync(ctx, sess, "address.update")
}

// Delete removes an address
func (b *Book) Delete(ctx context.Context, sess session.Session, id string) ([]storefront.Address, error) {
	if sess.IsZero() {
		return nil, notAuthenticated()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgUnknownAddress)
	}
	if err := b.gateway.DeleteAddress(ctx, sess.Credential, id); err != nil {
		return nil, err
	}
	return b.resync(ctx, sess, "address.delete")
}

// SetDefault flags one address as the default. The flag is mirrored
// locally before the backend call and restored if the call fails.
func (b *Book) SetDefault(ctx context.Context, sess session.Session, id string) ([]storefront.Address, error) {
	list, err := b.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	marked, found := storefront.MarkDefault(list, id)
	if !found {
		return nil, storefront.NewFailure(storefront.ReasonValidation, storefront.MsgUnknownAddress)
	}

	b.store(sess.Key, marked)
	if err := b.gateway.SetDefaultAddress(ctx, sess.Credential, id); err != nil {
		b.store(sess.Key, list)
		return nil, err
	}
	return b.resync(ctx, sess, "address.set_default")
}

// Discard forgets the session's cached list
func (b *Book) Discard(_ context.Context, sessionKey string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.lists, sessionKey)
}

func (b *Book) resync(ctx context.Context, sess session.Session, op string) ([]storefront.Address, error) {
	list, err := b.Refresh(ctx, sess)
	if err != nil {
		b.Discard(ctx, sess.Key)
		logger.WithLogger(ctx, b.logger).Warn("address list resync failed",
			zap.String("operation", op),
			zap.String("session", logger.ShortSession(sess.Key)),
			zap.Error(err),
		)
		return nil, err
	}
	return list, nil
}

func (b *Book) cached(sessionKey string) ([]storefront.Address, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	list, ok := b.lists[sessionKey]
	if !ok {
		return nil, false
	}
	return clone(list), true
}

func (b *Book) store(sessionKey string, list []storefront.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[sessionKey] = clone(list)
}

func clone(list []storefront.Address) []storefront.Address {
	return append([]storefront.Address{}, list...)
}

func notAuthenticated() error {
	return storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
}
