package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/storefront"
)

func newTestService() (*Service, *MockCartGateway, *recordingPublisher) {
	gw := new(MockCartGateway)
	pub := &recordingPublisher{}
	return NewService(gw, NewStore(), pub), gw, pub
}

func TestService_GetFetchesOnce(t *testing.T) {
	svc, gw, pub := newTestService()
	ctx := context.Background()
	gw.On("FetchCart", mock.Anything, testSession.Credential).Return(snapshot(line("a", 2, 10)), nil).Once()

	snap, err := svc.Get(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ItemCount)

	again, err := svc.Get(ctx, testSession)
	require.NoError(t, err)
	assert.Same(t, snap, again)

	gw.AssertNumberOfCalls(t, "FetchCart", 1)
	assert.Equal(t, []int{2}, pub.counts())
}

func TestService_NoCartIsEmpty(t *testing.T) {
	svc, gw, pub := newTestService()
	gw.On("FetchCart", mock.Anything, mock.Anything).Return(nil, nil)

	snap, err := svc.Refresh(context.Background(), testSession)
	require.NoError(t, err)
	assert.Nil(t, snap)

	held, fetched := svc.Store().Get(testSession.Key)
	assert.True(t, fetched)
	assert.Nil(t, held)
	assert.Equal(t, []int{0}, pub.counts())
}

func TestService_MissingCredential(t *testing.T) {
	svc, gw, pub := newTestService()
	anon := session.New(storefront.Credential{})
	ctx := context.Background()

	_, err := svc.Get(ctx, anon)
	assert.ErrorIs(t, err, storefront.ErrNotAuthenticated)
	_, err = svc.AddItem(ctx, anon, "a")
	assert.ErrorIs(t, err, storefront.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.Clear(ctx, anon), storefront.ErrNotAuthenticated)

	gw.AssertNotCalled(t, "FetchCart", mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, pub.counts())
}

func TestService_AddItemPublishesOnce(t *testing.T) {
	svc, gw, pub := newTestService()
	gw.On("AddItem", mock.Anything, testSession.Credential, "a").
		Return(snapshot(line("a", 2, 10), line("b", 3, 5)), nil)

	snap, err := svc.AddItem(context.Background(), testSession, " a ")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.ItemCount)
	assert.Equal(t, []int{5}, pub.counts())
	assert.Equal(t, 5, svc.Store().Count(testSession.Key))
}

func TestService_RemoveItemLeavesOtherLine(t *testing.T) {
	svc, gw, pub := newTestService()
	ctx := context.Background()
	svc.Store().Replace(testSession.Key, snapshot(line("A", 1, 10), line("B", 1, 20)))
	gw.On("RemoveItem", mock.Anything, testSession.Credential, "A").Return(snapshot(line("B", 1, 20)), nil)

	snap, err := svc.RemoveItem(ctx, testSession, "A")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "B", snap.Items[0].ProductID)
	assert.Equal(t, []int{1}, pub.counts())
}

func TestService_SetQuantityValidatesBeforeNetwork(t *testing.T) {
	svc, gw, pub := newTestService()
	ctx := context.Background()
	limited := line("a", 1, 10)
	limited.Product.StockKnown = true
	limited.Product.AvailableStock = 3
	svc.Store().Replace(testSession.Key, snapshot(limited))

	tests := []struct {
		name     string
		quantity int
		sentinel error
		key      storefront.MessageKey
	}{
		{"zero", 0, storefront.ErrValidation, storefront.MsgQuantityBelowOne},
		{"negative", -2, storefront.ErrValidation, storefront.MsgQuantityBelowOne},
		{"over stock", 4, storefront.ErrValidation, storefront.MsgQuantityExceedsStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetQuantity(ctx, testSession, "a", tt.quantity)
			require.ErrorIs(t, err, tt.sentinel)
			f, ok := storefront.AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, tt.key, f.Key)
		})
	}

	gw.AssertNotCalled(t, "SetItemQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, pub.counts())
}

func TestService_AddItemAtStockLimit(t *testing.T) {
	svc, gw, pub := newTestService()
	full := line("a", 3, 10)
	full.Product.StockKnown = true
	full.Product.AvailableStock = 3
	svc.Store().Replace(testSession.Key, snapshot(full))

	_, err := svc.AddItem(context.Background(), testSession, "a")
	require.ErrorIs(t, err, storefront.ErrValidation)
	f, ok := storefront.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, storefront.MsgQuantityExceedsStock, f.Key)

	gw.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, pub.counts())
	assert.False(t, svc.LineBusy(testSession.Key, "a"))
}

func TestService_AddItemBelowStockLimit(t *testing.T) {
	svc, gw, pub := newTestService()
	held := line("a", 2, 10)
	held.Product.StockKnown = true
	held.Product.AvailableStock = 3
	svc.Store().Replace(testSession.Key, snapshot(held))
	gw.On("AddItem", mock.Anything, testSession.Credential, "a").Return(snapshot(line("a", 3, 10)), nil).Once()

	snap, err := svc.AddItem(context.Background(), testSession, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.ItemCount)
	assert.Equal(t, []int{3}, pub.counts())
}

func TestService_SetQuantity(t *testing.T) {
	svc, gw, pub := newTestService()
	gw.On("SetItemQuantity", mock.Anything, testSession.Credential, "a", 4).Return(snapshot(line("a", 4, 10)), nil)

	snap, err := svc.SetQuantity(context.Background(), testSession, "a", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.ItemCount)
	assert.Equal(t, "40", snap.Items[0].LineTotal.String())
	assert.Equal(t, []int{4}, pub.counts())
}

func TestService_FailedMutationKeepsStore(t *testing.T) {
	svc, gw, pub := newTestService()
	before := snapshot(line("a", 1, 10))
	svc.Store().Replace(testSession.Key, before)
	gw.On("AddItem", mock.Anything, mock.Anything, "b").
		Return(nil, storefront.NewBackendFailure("Product not found"))

	_, err := svc.AddItem(context.Background(), testSession, "b")
	require.ErrorIs(t, err, storefront.ErrBackendRejected)

	held, _ := svc.Store().Get(testSession.Key)
	assert.Same(t, before, held)
	assert.Empty(t, pub.counts())
	assert.False(t, svc.LineBusy(testSession.Key, "b"))
}

func TestService_LineBusyWhileInFlight(t *testing.T) {
	svc, gw, _ := newTestService()
	started := make(chan struct{})
	release := make(chan struct{})
	gw.On("AddItem", mock.Anything, mock.Anything, "a").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(snapshot(line("a", 1, 10)), nil).Once()
	gw.On("AddItem", mock.Anything, mock.Anything, "b").Return(snapshot(line("a", 1, 10), line("b", 1, 10)), nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.AddItem(context.Background(), testSession, "a")
		assert.NoError(t, err)
	}()
	<-started

	assert.True(t, svc.LineBusy(testSession.Key, "a"))
	_, err := svc.AddItem(context.Background(), testSession, "a")
	f, ok := storefront.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, storefront.MsgLineBusy, f.Key)

	_, err = svc.AddItem(context.Background(), testSession, "b")
	assert.NoError(t, err, "other lines are not blocked")

	close(release)
	wg.Wait()
	assert.False(t, svc.LineBusy(testSession.Key, "a"))
	gw.AssertNumberOfCalls(t, "AddItem", 2)
}

func TestService_MissingProduct(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.RemoveItem(context.Background(), testSession, "   ")
	f, ok := storefront.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, storefront.MsgMissingProduct, f.Key)
}

func TestService_ClearAndClearLocal(t *testing.T) {
	svc, gw, pub := newTestService()
	ctx := context.Background()
	svc.Store().Replace(testSession.Key, snapshot(line("a", 2, 10)))
	gw.On("ClearCart", mock.Anything, testSession.Credential).Return(nil, nil)

	require.NoError(t, svc.Clear(ctx, testSession))
	n, err := svc.Count(ctx, testSession)
	require.NoError(t, err)
	assert.Zero(t, n)

	svc.Store().Replace(testSession.Key, snapshot(line("a", 2, 10)))
	svc.ClearLocal(ctx, testSession.Key)
	assert.Zero(t, svc.Store().Count(testSession.Key))
	assert.Equal(t, []int{0, 0}, pub.counts())
}

func TestService_RefreshErrorPropagates(t *testing.T) {
	svc, gw, pub := newTestService()
	gw.On("FetchCart", mock.Anything, mock.Anything).
		Return(nil, storefront.NewFailure(storefront.ReasonNetworkOrParse, storefront.MsgGenericRetry).WithCause(errors.New("dial tcp")))

	_, err := svc.Get(context.Background(), testSession)
	assert.ErrorIs(t, err, storefront.ErrNetworkOrParse)
	_, fetched := svc.Store().Get(testSession.Key)
	assert.False(t, fetched)
	assert.Empty(t, pub.counts())
}

func TestService_RefreshCallerCancelDoesNotAbortFetch(t *testing.T) {
	svc, gw, _ := newTestService()
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchCtx context.Context
	gw.On("FetchCart", mock.Anything, testSession.Credential).
		Run(func(args mock.Arguments) {
			fetchCtx = args.Get(0).(context.Context)
			close(started)
			<-release
		}).
		Return(snapshot(line("a", 2, 10)), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(ctx, testSession)
		done <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.NoError(t, fetchCtx.Err())

	close(release)
	assert.Eventually(t, func() bool {
		return svc.Store().Count(testSession.Key) == 2
	}, time.Second, 10*time.Millisecond)
	gw.AssertNumberOfCalls(t, "FetchCart", 1)
}

func TestService_Discard(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Store().Replace(testSession.Key, snapshot(line("a", 2, 10)))

	svc.Discard(context.Background(), testSession.Key)
	_, fetched := svc.Store().Get(testSession.Key)
	assert.False(t, fetched)
}
