package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/scope"
	ndr "reverse-logistics/internal/features/ndr/domain"
	orders "reverse-logistics/internal/features/orders/domain"
	rto "reverse-logistics/internal/features/rto/domain"
	"reverse-logistics/internal/features/tracking/domain"
	"reverse-logistics/internal/features/tracking/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	mock.Mock
	courier string
}

func (m *MockProvider) GetTrackingHistory(ctx context.Context, trackingNumber string) (*domain.History, error) {
	args := m.Called(ctx, trackingNumber)
	h, _ := args.Get(0).(*domain.History)
	return h, args.Error(1)
}

func (m *MockProvider) SupportsCourier(courierName string) bool {
	return courierName == m.courier
}

type MockNDR struct {
	mock.Mock
}

func (m *MockNDR) Ingest(ctx context.Context, u ndr.TrackingUpdate) (*ndr.Event, error) {
	args := m.Called(ctx, u)
	e, _ := args.Get(0).(*ndr.Event)
	return e, args.Error(1)
}

func (m *MockNDR) ResolveDelivered(ctx context.Context, u ndr.TrackingUpdate) (*ndr.Event, error) {
	args := m.Called(ctx, u)
	e, _ := args.Get(0).(*ndr.Event)
	return e, args.Error(1)
}

type MockRTO struct {
	mock.Mock
}

func (m *MockRTO) UpdateStatusByShipment(ctx context.Context, shipmentID string, to rto.Status, notes string) (*rto.Event, error) {
	args := m.Called(ctx, shipmentID, to, notes)
	e, _ := args.Get(0).(*rto.Event)
	return e, args.Error(1)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Lookup(ctx context.Context, orderID string) (*orders.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(*orders.Order)
	return o, args.Error(1)
}

var (
	at     = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	seller = scope.Scope{CompanyID: "company-1", ActorID: "seller-7", Role: scope.RoleSeller}
)

func setup(t *testing.T) (*Service, *MockProvider, *MockNDR, *MockRTO) {
	svc, p, n, r, _ := setupWithOrders(t)
	return svc, p, n, r
}

func setupWithOrders(t *testing.T) (*Service, *MockProvider, *MockNDR, *MockRTO, *MockOrders) {
	t.Helper()
	logger.Init("development", "error")
	p := &MockProvider{courier: "coordinadora_co"}
	n, r, o := new(MockNDR), new(MockRTO), new(MockOrders)
	return NewService([]ports.Provider{p}, n, r, o), p, n, r, o
}

func shipment() domain.Shipment {
	return domain.Shipment{TrackingNumber: "SHP-1", Courier: "coordinadora_co", OrderID: "1001", CompanyID: "company-1"}
}

func TestGetTrackingHistory(t *testing.T) {
	svc, p, _, _ := setup(t)
	want := domain.NewHistory()
	p.On("GetTrackingHistory", mock.Anything, "12345").Return(want, nil).Once()

	got, err := svc.GetTrackingHistory(context.Background(), "12345", "coordinadora_co")
	require.NoError(t, err)
	assert.Same(t, want, got)

	_, err = svc.GetTrackingHistory(context.Background(), "12345", "unknown")
	assert.ErrorIs(t, err, domain.ErrCourierNotSupported)

	p.On("GetTrackingHistory", mock.Anything, "999").Return(nil, errors.New("browser crashed")).Once()
	_, err = svc.GetTrackingHistory(context.Background(), "999", "coordinadora_co")
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
}

func TestSync_RoutesRelevantEvents(t *testing.T) {
	svc, p, n, _ := setup(t)

	h := domain.NewHistory()
	h.Add(domain.Event{Date: at, Code: "701", Text: "Visita no entrega", Status: domain.StatusDeliveryFailed})
	h.Add(domain.Event{Date: at.Add(24 * time.Hour), Code: "6", Text: "ENTREGADA", Status: domain.StatusDelivered})
	h.Add(domain.Event{Date: at.Add(25 * time.Hour), Code: "728", Text: "Destinatario no cancela", Status: domain.StatusDeliveryFailed})
	p.On("GetTrackingHistory", mock.Anything, "SHP-1").Return(h, nil)

	n.On("ResolveDelivered", mock.Anything, mock.MatchedBy(func(u ndr.TrackingUpdate) bool {
		return u.Code == "6" && u.CompanyID == "company-1"
	})).Return(nil, ndr.ErrNDRNotFound)
	n.On("Ingest", mock.Anything, mock.MatchedBy(func(u ndr.TrackingUpdate) bool {
		return u.Code == "728" && u.OccurredAt.Equal(at.Add(25*time.Hour)) && u.OrderID == "1001"
	})).Return(&ndr.Event{ID: "ndr-1"}, nil)

	res, err := svc.Sync(context.Background(), shipment(), seller)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDeliveryFailed, res.Status)
	assert.Equal(t, []domain.Outcome{
		{Code: "6", Status: domain.StatusDelivered, Action: domain.ActionIgnored},
		{Code: "728", Status: domain.StatusDeliveryFailed, Action: domain.ActionNDRRecorded, EntityID: "ndr-1"},
	}, res.Outcomes)
	n.AssertNumberOfCalls(t, "Ingest", 1)
}

func TestSync_ReturnScanMovesRTO(t *testing.T) {
	svc, p, n, r := setup(t)

	h := domain.NewHistory()
	h.Add(domain.Event{Date: at, Code: "701", Status: domain.StatusDeliveryFailed})
	h.Add(domain.Event{Date: at.Add(time.Hour), Code: "8", Text: "CERRADO POR INCIDENCIA", Status: domain.StatusRTO})
	p.On("GetTrackingHistory", mock.Anything, "SHP-1").Return(h, nil)
	r.On("UpdateStatusByShipment", mock.Anything, "SHP-1", rto.StatusInTransit, "CERRADO POR INCIDENCIA").
		Return(&rto.Event{ID: "rto-1"}, nil)

	res, err := svc.Sync(context.Background(), shipment(), seller)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, domain.ActionRTOUpdated, res.Outcomes[0].Action)
	assert.Equal(t, "rto-1", res.Outcomes[0].EntityID)
	n.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestSync_ReportsPerEventFailures(t *testing.T) {
	svc, p, n, _ := setup(t)

	h := domain.NewHistory()
	h.Add(domain.Event{Date: at, Code: "701", Status: domain.StatusDeliveryFailed})
	p.On("GetTrackingHistory", mock.Anything, "SHP-1").Return(h, nil)
	n.On("Ingest", mock.Anything, mock.Anything).Return(nil, apperror.ErrConcurrentUpdate)

	res, err := svc.Sync(context.Background(), shipment(), seller)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, domain.ActionFailed, res.Outcomes[0].Action)
	assert.NotEmpty(t, res.Outcomes[0].Error)
}

func TestSync_ValidationAndScope(t *testing.T) {
	svc, p, _, _ := setup(t)

	_, err := svc.Sync(context.Background(), domain.Shipment{}, seller)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	other := scope.Scope{CompanyID: "company-2", Role: scope.RoleSeller}
	_, err = svc.Sync(context.Background(), shipment(), other)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	p.AssertNotCalled(t, "GetTrackingHistory", mock.Anything, mock.Anything)
}

func TestApplyUpdate(t *testing.T) {
	svc, _, n, r := setup(t)
	ctx := context.Background()

	u := ndr.TrackingUpdate{ShipmentID: "SHP-1", CompanyID: "company-1", Courier: "coordinadora_co", Status: ndr.TrackingDelivered, OccurredAt: at}
	n.On("ResolveDelivered", mock.Anything, u).Return(&ndr.Event{ID: "ndr-1"}, nil)
	out, err := svc.ApplyUpdate(ctx, u, seller)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNDRResolved, out.Action)

	u.Status = ndr.TrackingRTO
	r.On("UpdateStatusByShipment", mock.Anything, "SHP-1", rto.StatusInTransit, "").Return(nil, rto.ErrRTONotFound).Once()
	out, err = svc.ApplyUpdate(ctx, u, seller)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionIgnored, out.Action)

	u.Status = ndr.TrackingInTransit
	out, err = svc.ApplyUpdate(ctx, u, seller)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionIgnored, out.Action)

	u.Status = ndr.TrackingRTO
	r.On("UpdateStatusByShipment", mock.Anything, "SHP-1", rto.StatusInTransit, "").Return(nil, rto.ErrAWBMissing)
	_, err = svc.ApplyUpdate(ctx, u, seller)
	assert.ErrorIs(t, err, rto.ErrAWBMissing)

	_, err = svc.ApplyUpdate(ctx, ndr.TrackingUpdate{}, seller)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.ApplyUpdate(ctx, u, scope.Scope{CompanyID: "company-2", Role: scope.RoleSeller})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestApplyUpdate_StatusIsCaseInsensitive(t *testing.T) {
	svc, _, n, _ := setup(t)

	u := ndr.TrackingUpdate{ShipmentID: "SHP-1", CompanyID: "company-1", Courier: "coordinadora_co", Status: "Delivery_Failed ", Code: "701", OccurredAt: at}
	n.On("Ingest", mock.Anything, mock.MatchedBy(func(got ndr.TrackingUpdate) bool {
		return got.Status == ndr.TrackingDeliveryFailed && got.Code == "701"
	})).Return(&ndr.Event{ID: "ndr-1"}, nil).Once()

	out, err := svc.ApplyUpdate(context.Background(), u, seller)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNDRRecorded, out.Action)
	assert.Equal(t, "ndr-1", out.EntityID)
	n.AssertExpectations(t)
}

func TestSyncOrder(t *testing.T) {
	svc, p, n, _, o := setupWithOrders(t)
	ctx := context.Background()

	o.On("Lookup", mock.Anything, "1001").Return(&orders.Order{
		ID:        "1001",
		CompanyID: "company-1",
		Phone:     "+573001112233",
		Tracking:  []orders.TrackingInfo{{TrackingProvider: "coordinadora_co", TrackingNumber: "SHP-7"}},
	}, nil)
	o.On("Lookup", mock.Anything, "1002").Return(&orders.Order{ID: "1002", CompanyID: "company-1"}, nil)
	o.On("Lookup", mock.Anything, "404").Return(nil, orders.ErrOrderNotFound)

	h := domain.NewHistory()
	h.Add(domain.Event{Date: at, Code: "701", Status: domain.StatusDeliveryFailed})
	p.On("GetTrackingHistory", mock.Anything, "SHP-7").Return(h, nil)
	n.On("Ingest", mock.Anything, mock.MatchedBy(func(u ndr.TrackingUpdate) bool {
		return u.ShipmentID == "SHP-7" && u.OrderID == "1001" && u.CustomerContact == "+573001112233"
	})).Return(&ndr.Event{ID: "ndr-7"}, nil)

	res, err := svc.SyncOrder(ctx, "1001", seller)
	require.NoError(t, err)
	assert.Equal(t, "SHP-7", res.TrackingNumber)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, "ndr-7", res.Outcomes[0].EntityID)

	_, err = svc.SyncOrder(ctx, "1002", seller)
	assert.ErrorIs(t, err, domain.ErrOrderNotShipped)

	_, err = svc.SyncOrder(ctx, "404", seller)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	_, err = svc.SyncOrder(ctx, "1001", scope.Scope{CompanyID: "company-2", Role: scope.RoleSeller})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
