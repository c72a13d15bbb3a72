package service

import (
	"context"
	"errors"
	"testing"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/features/orders/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderProvider struct {
	mock.Mock
}

func (m *MockOrderProvider) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(*domain.Order)
	return o, args.Error(1)
}

func (m *MockOrderProvider) SearchOrders(ctx context.Context, term string, limit int) ([]domain.Order, error) {
	args := m.Called(ctx, term, limit)
	o, _ := args.Get(0).([]domain.Order)
	return o, args.Error(1)
}

var (
	seller   = scope.Scope{CompanyID: "store", ActorID: "seller-1", Role: scope.RoleSeller}
	customer = scope.Scope{CompanyID: "store", CustomerID: "42", ActorID: "42", Role: scope.RoleCustomer}
)

func order() *domain.Order {
	return &domain.Order{ID: "123", CompanyID: "store", CustomerID: "42", Email: "test@example.com"}
}

func TestGetOrder(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		sc      scope.Scope
		mockErr error
		wantErr error
	}{
		{"customer with matching email", "TEST@example.com", customer, nil, nil},
		{"customer with wrong email", "wrong@example.com", customer, nil, domain.ErrEmailMismatch},
		{"seller of the store", "", seller, nil, nil},
		{"seller of another company", "", scope.Scope{CompanyID: "other", Role: scope.RoleSeller}, nil, apperror.ErrForbidden},
		{"admin", "", scope.Scope{Role: scope.RoleAdmin}, nil, nil},
		{"unknown order", "test@example.com", customer, domain.ErrOrderNotFound, domain.ErrOrderNotFound},
		{"store down", "test@example.com", customer, errors.New("connection refused"), apperror.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := new(MockOrderProvider)
			if tt.mockErr != nil {
				provider.On("GetOrder", mock.Anything, "123").Return(nil, tt.mockErr)
			} else {
				provider.On("GetOrder", mock.Anything, "123").Return(order(), nil)
			}

			got, err := NewOrderService(provider).GetOrder(context.Background(), "123", tt.email, tt.sc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "123", got.ID)
		})
	}
}

func TestGetOrder_CustomerNeedsEmail(t *testing.T) {
	provider := new(MockOrderProvider)
	_, err := NewOrderService(provider).GetOrder(context.Background(), "123", " ", customer)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	provider.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

func TestSearchIndex(t *testing.T) {
	provider := new(MockOrderProvider)
	provider.On("SearchOrders", mock.Anything, "juan", DefaultSearchLimit).Return([]domain.Order{
		{ID: "1", CompanyID: "store", Tracking: []domain.TrackingInfo{{TrackingNumber: "SHP-1"}, {TrackingNumber: "SHP-2"}}},
		{ID: "2", CompanyID: "store", Tracking: []domain.TrackingInfo{{TrackingNumber: "SHP-1"}, {TrackingProvider: "inter"}}},
		{ID: "3", CompanyID: "other", Tracking: []domain.TrackingInfo{{TrackingNumber: "SHP-9"}}},
	}, nil)
	svc := NewOrderService(provider)
	ctx := context.Background()

	ids, err := svc.FindOrdersMatching(ctx, "store", " juan ")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)

	ids, err = svc.FindOrdersMatching(ctx, "", "juan")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	shipments, err := svc.FindShipmentsMatching(ctx, "store", "juan")
	require.NoError(t, err)
	assert.Equal(t, []string{"SHP-1", "SHP-2"}, shipments)

	found, err := svc.Search(ctx, "juan", scope.Scope{CompanyID: "other", Role: scope.RoleSeller})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "3", found[0].ID)

	ids, err = svc.FindOrdersMatching(ctx, "store", "")
	require.NoError(t, err)
	assert.Empty(t, ids)
	provider.AssertNumberOfCalls(t, "SearchOrders", 4)
}

func TestSearch_UpstreamFailure(t *testing.T) {
	provider := new(MockOrderProvider)
	provider.On("SearchOrders", mock.Anything, "juan", DefaultSearchLimit).Return(nil, errors.New("timeout"))

	_, err := NewOrderService(provider).FindShipmentsMatching(context.Background(), "store", "juan")
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
}

func TestLookup_RequiresID(t *testing.T) {
	_, err := NewOrderService(new(MockOrderProvider)).Lookup(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
