package address

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/storefront"
)

// MockAddressGateway is a mock implementation of storefront.AddressGateway
type MockAddressGateway struct {
	mock.Mock
}

func (m *MockAddressGateway) ListAddresses(ctx context.Context, cred storefront.Credential) ([]storefront.Address, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storefront.Address), args.Error(1)
}

func (m *MockAddressGateway) AddAddress(ctx context.Context, cred storefront.Credential, input storefront.AddressInput) error {
	return m.Called(ctx, cred, input).Error(0)
}

func (m *MockAddressGateway) UpdateAddress(ctx context.Context, cred storefront.Credential, addressID string, input storefront.AddressInput) error {
	return m.Called(ctx, cred, addressID, input).Error(0)
}

func (m *MockAddressGateway) DeleteAddress(ctx context.Context, cred storefront.Credential, addressID string) error {
	return m.Called(ctx, cred, addressID).Error(0)
}

func (m *MockAddressGateway) SetDefaultAddress(ctx context.Context, cred storefront.Credential, addressID string) error {
	return m.Called(ctx, cred, addressID).Error(0)
}

var testSession = session.New(storefront.Credential{Token: "shopper-token"})

func validInput() storefront.AddressInput {
	return storefront.AddressInput{
		Label:      "Home",
		Details:    "12 Nile St, apt 4",
		Phone:      "01012345678",
		City:       "Cairo",
		PostalCode: "11511",
	}
}

func homeAndWork() []storefront.Address {
	return []storefront.Address{
		{ID: "home", Label: "Home", Details: "12 Nile St", Phone: "01012345678", City: "Cairo"},
		{ID: "work", Label: "Work", Details: "5 Tahrir Sq", Phone: "01198765432", City: "Giza"},
	}
}

func TestBook_ListIsReadThrough(t *testing.T) {
	gw := new(MockAddressGateway)
	book := NewBook(gw, nil)
	ctx := context.Background()
	gw.On("ListAddresses", mock.Anything, testSession.Credential).Return(homeAndWork(), nil).Once()

	list, err := book.List(ctx, testSession)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list[0].City = "changed"
	again, err := book.List(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, "Cairo", again[0].City, "callers get copies")

	gw.AssertNumberOfCalls(t, "ListAddresses", 1)
}

func TestBook_EmptyList(t *testing.T) {
	gw := new(MockAddressGateway)
	book := NewBook(gw, nil)
	gw.On("ListAddresses", mock.Anything, mock.Anything).Return(nil, nil)

	list, err := book.List(context.Background(), testSession)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, ok, err := book.Default(context.Background(), testSession)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBook_NotAuthenticated(t *testing.T) {
	book := NewBook(new(MockAddressGateway), nil)
	anon := session.New(storefront.Credential{})

	_, err := book.List(context.Background(), anon)
	assert.ErrorIs(t, err, storefront.ErrNotAuthenticated)
	_, err = book.Add(context.Background(), anon, validInput())
	assert.ErrorIs(t, err, storefront.ErrNotAuthenticated)
}

func TestBook_AddValidates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*storefront.AddressInput)
		field  string
	}{
		{"missing details", func(in *storefront.AddressInput) { in.Details = "  " }, "details:required"},
		{"missing city", func(in *storefront.AddressInput) { in.City = "" }, "city:required"},
		{"bad phone", func(in *storefront.AddressInput) { in.Phone = "call-me" }, "phone:"},
		{"letters in postal code", func(in *storefront.AddressInput) { in.PostalCode = "AB12" }, "postalCode:numeric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockAddressGateway)
			book := NewBook(gw, nil)
			input := validInput()
			tt.mutate(&input)

			_, err := book.Add(context.Background(), testSession, input)
			require.ErrorIs(t, err, storefront.ErrValidation)
			f, _ := storefront.AsFailure(err)
			assert.Equal(t, storefront.MsgInvalidAddress, f.Key)
			require.NotNil(t, f.Diagnostic)
			assert.Contains(t, f.Diagnostic.Detail, tt.field)
			gw.AssertNotCalled(t, "AddAddress", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestBook_AddResyncs(t *testing.T) {
	gw := new(MockAddressGateway)
	book := NewBook(gw, nil)
	ctx := context.Background()

	input := validInput()
	input.City = "  Cairo "
	want := validInput()
	gw.On("AddAddress", mock.Anything, testSession.Credential, want).Return(nil)
	gw.On("ListAddresses", mock.Anything, mock.Anything).Return(homeAndWork(), nil)

	list, err := book.Add(ctx, testSession, input)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	gw.AssertExpectations(t)
}

func TestBook_UpdateAndDelete(t *testing.T) {
	gw := new(MockAddressGateway)
	book := NewBook(gw, nil)
	ctx := context.Background()
	gw.On("UpdateAddress", mock.Anything, mock.Anything, "home", validInput()).Return(nil)
	gw.On("DeleteAddress", mock.Anything, mock.Anything, "work").Return(nil)
	gw.On("ListAddresses", mock.Anything, mock.Anything).Return(homeAndWork()[:1], nil)

	_, err := book.Update(ctx, testSession, "home", validInput())
	require.NoError(t, err)
	list, err := book.Delete(ctx, testSession, "work")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = book.Delete(ctx, testSession, " ")
	assert.ErrorIs(t, err, storefront.ErrValidation)
}

func TestBook_SetDefault(t *testing.T) {
	gw := new(MockAddressGateway)
	book := NewBook(gw, nil)
	ctx := context.Background()

	after := homeAndWork()
	after[1].IsDefault = true
	gw.On("ListAddresses", mock.Anything, mock.Anything).Return(homeAndWork(), nil).Once()
	gw.On("SetDefaultAddress", mock.Anything, mock.Anything, "work").Return(nil)
	gw.On("ListAddresses", mock.Anything, mock.Anything).Return(after, nil).Once()

	list, err := book.SetDefault(ctx, testSession, "work")
	require.NoError(t, err)

	def, ok := storefront.DefaultAddress(list)
	require.True(t, ok)
	assert.Equal(t, "work", def.ID)
}

func TestBook_SetDefaultRestoresOnFailure(t *testing.T) {
	gw := new(MockAddressGateway)
	book := NewBook(gw, nil)
	ctx := context.Background()
	gw.On("ListAddresses", mock.Anything, mock.Anything).Return(homeAndWork(), nil).Once()
	gw.On("SetDefaultAddress", mock.Anything, mock.Anything, "work").Return(storefront.NewBackendFailure("Address not found"))

	_, err := book.SetDefault(ctx, testSession, "work")
	require.ErrorIs(t, err, storefront.ErrBackendRejected)

	def, ok, err := book.Default(ctx, testSession)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "home", def.ID)
	assert.False(t, def.IsDefault)
}

func TestBook_SetDefaultUnknown(t *testing.T) {
	gw := new(MockAddressGateway)
	book := NewBook(gw, nil)
	gw.On("ListAddresses", mock.Anything, mock.Anything).Return(homeAndWork(), nil)

	_, err := book.SetDefault(context.Background(), testSession, "cabin")
	f, ok := storefront.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, storefront.MsgUnknownAddress, f.Key)
	gw.AssertNotCalled(t, "SetDefaultAddress", mock.Anything, mock.Anything, mock.Anything)
}

func TestBook_FindAndDiscard(t *testing.T) {
	gw := new(MockAddressGateway)
	book := NewBook(gw, nil)
	ctx := context.Background()
	gw.On("ListAddresses", mock.Anything, mock.Anything).Return(homeAndWork(), nil).Twice()

	a, err := book.Find(ctx, testSession, "work")
	require.NoError(t, err)
	assert.Equal(t, "Giza", a.City)

	_, err = book.Find(ctx, testSession, "cabin")
	assert.ErrorIs(t, err, storefront.ErrValidation)

	book.Discard(ctx, testSession.Key)
	_, err = book.List(ctx, testSession)
	require.NoError(t, err)
	gw.AssertNumberOfCalls(t, "ListAddresses", 2)
}

func TestPhoneRule(t *testing.T) {
	v := NewValidator()
	for phone, ok := range map[string]bool{
		"01012345678":      true,
		"+20 101 234 5678": true,
		"020-1234-567":     true,
		"12345":            false,
		"phone":            false,
		"0101234567-":      false,
	} {
		in := validInput()
		in.Phone = phone
		err := v.Struct(in)
		if ok {
			assert.NoError(t, err, phone)
		} else {
			assert.Error(t, err, phone)
		}
	}
}
