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
	returns "reverse-logistics/internal/features/returns/domain"
	rto "reverse-logistics/internal/features/rto/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNDR struct {
	mock.Mock
}

func (m *MockNDR) FindOverdue(ctx context.Context, limit int) ([]ndr.Event, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]ndr.Event), args.Error(1)
}

func (m *MockNDR) EscalateOverdue(ctx context.Context, id string) (*ndr.Event, bool, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*ndr.Event)
	return e, args.Bool(1), args.Error(2)
}

func (m *MockNDR) FindEscalatedWithoutRTO(ctx context.Context, limit int) ([]ndr.Event, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]ndr.Event), args.Error(1)
}

func (m *MockNDR) LinkRTO(ctx context.Context, shipmentID, rtoID, actor string) error {
	args := m.Called(ctx, shipmentID, rtoID, actor)
	return args.Error(0)
}

func (m *MockNDR) FindActionsDue(ctx context.Context, limit int) ([]ndr.Event, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]ndr.Event), args.Error(1)
}

func (m *MockNDR) ExecuteDueActions(ctx context.Context, id string) (*ndr.Event, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*ndr.Event)
	return e, args.Error(1)
}

type MockRTO struct {
	mock.Mock
}

func (m *MockRTO) TriggerRTO(ctx context.Context, req rto.TriggerRequest, sc scope.Scope) (*rto.Event, error) {
	args := m.Called(ctx, req, sc)
	e, _ := args.Get(0).(*rto.Event)
	return e, args.Error(1)
}

func (m *MockRTO) FindActiveByShipment(ctx context.Context, shipmentID string) (*rto.Event, error) {
	args := m.Called(ctx, shipmentID)
	e, _ := args.Get(0).(*rto.Event)
	return e, args.Error(1)
}

func (m *MockRTO) FindAwaitingAWB(ctx context.Context, limit int) ([]rto.Event, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]rto.Event), args.Error(1)
}

func (m *MockRTO) RetryReverseAWB(ctx context.Context, id string, sc scope.Scope) (*rto.Event, error) {
	args := m.Called(ctx, id, sc)
	e, _ := args.Get(0).(*rto.Event)
	return e, args.Error(1)
}

type MockReturns struct {
	mock.Mock
}

func (m *MockReturns) FindPickupBreaches(ctx context.Context, limit int) ([]returns.ReturnOrder, error) {
	args := m.Called(ctx, limit)
	o, _ := args.Get(0).([]returns.ReturnOrder)
	return o, args.Error(1)
}

func (m *MockReturns) EscalatePickupBreach(ctx context.Context, id string) (*returns.ReturnOrder, bool, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*returns.ReturnOrder)
	return o, args.Bool(1), args.Error(2)
}

func newMocked(t *testing.T) (*Monitor, *MockNDR, *MockRTO, *MockReturns) {
	t.Helper()
	logger.Init("development", "error")

	n, r, ret := new(MockNDR), new(MockRTO), new(MockReturns)
	m, err := New(n, r, ret, Options{Interval: time.Hour, BatchSize: 10, Workers: 4})
	require.NoError(t, err)
	t.Cleanup(func() { m.Stop() })
	return m, n, r, ret
}

func ndrEvent(id, shipment string) ndr.Event {
	typ := ndr.TypeRefused
	return ndr.Event{ID: id, ShipmentID: shipment, OrderID: "order-" + shipment, CompanyID: "company-1", Courier: "coordinadora_co", Type: &typ}
}

func TestSweep_IsolatesFailures(t *testing.T) {
	m, n, r, ret := newMocked(t)

	first, second := ndrEvent("ndr-1", "SHP-1"), ndrEvent("ndr-2", "SHP-2")
	n.On("FindOverdue", mock.Anything, 10).Return([]ndr.Event{first, second}, nil)
	n.On("EscalateOverdue", mock.Anything, "ndr-1").Return(nil, false, errors.New("db down"))
	n.On("EscalateOverdue", mock.Anything, "ndr-2").Return(&second, true, nil)
	r.On("TriggerRTO", mock.Anything, mock.MatchedBy(func(req rto.TriggerRequest) bool {
		return req.ShipmentID == "SHP-2" && req.Trigger == rto.TriggerAuto && req.NDREventID == "ndr-2" &&
			req.Reason == "NDR resolution window expired (refused)"
	}), scope.System()).Return(nil, rto.ErrRTOAlreadyActive)
	r.On("FindActiveByShipment", mock.Anything, "SHP-2").Return(&rto.Event{ID: "rto-9"}, nil)
	n.On("LinkRTO", mock.Anything, "SHP-2", "rto-9", "system").Return(nil)

	n.On("FindEscalatedWithoutRTO", mock.Anything, 10).Return([]ndr.Event{}, nil)
	ret.On("FindPickupBreaches", mock.Anything, 10).Return(nil, errors.New("query failed"))
	n.On("FindActionsDue", mock.Anything, 10).Return([]ndr.Event{ndrEvent("ndr-3", "SHP-3")}, nil)
	n.On("ExecuteDueActions", mock.Anything, "ndr-3").Return(&ndr.Event{}, nil)
	r.On("FindAwaitingAWB", mock.Anything, 10).Return([]rto.Event{{ID: "rto-1"}, {ID: "rto-2"}}, nil)
	r.On("RetryReverseAWB", mock.Anything, "rto-1", scope.System()).Return(&rto.Event{}, nil)
	r.On("RetryReverseAWB", mock.Anything, "rto-2", scope.System()).Return(nil, apperror.Upstream("courier", errors.New("timeout")))

	report, err := m.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{
		Escalated:   1,
		Linked:      1,
		ActionsRun:  1,
		AWBsRetried: 1,
		Failures:    3,
	}, report)
	n.AssertExpectations(t)
	r.AssertExpectations(t)
}

func TestSweep_AWBFailureStillCountsTheRTO(t *testing.T) {
	m, n, r, ret := newMocked(t)

	e := ndrEvent("ndr-1", "SHP-1")
	n.On("FindOverdue", mock.Anything, 10).Return([]ndr.Event{}, nil)
	n.On("FindEscalatedWithoutRTO", mock.Anything, 10).Return([]ndr.Event{e}, nil)
	r.On("TriggerRTO", mock.Anything, mock.Anything, scope.System()).
		Return(&rto.Event{ID: "rto-1"}, apperror.Upstream("courier", errors.New("timeout")))
	ret.On("FindPickupBreaches", mock.Anything, 10).Return([]returns.ReturnOrder{}, nil)
	n.On("FindActionsDue", mock.Anything, 10).Return([]ndr.Event{}, nil)
	r.On("FindAwaitingAWB", mock.Anything, 10).Return([]rto.Event{}, nil)

	report, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.AutoRTOs)
	assert.Zero(t, report.Failures)
}

func TestSweep_RateLimitedAutoRTOIsDeferred(t *testing.T) {
	m, n, r, ret := newMocked(t)

	e := ndrEvent("ndr-1", "SHP-1")
	n.On("FindOverdue", mock.Anything, 10).Return([]ndr.Event{}, nil)
	n.On("FindEscalatedWithoutRTO", mock.Anything, 10).Return([]ndr.Event{e}, nil)
	r.On("TriggerRTO", mock.Anything, mock.Anything, scope.System()).
		Return(nil, apperror.RateLimited("too many RTO triggers, retry later", time.Minute))
	ret.On("FindPickupBreaches", mock.Anything, 10).Return([]returns.ReturnOrder{}, nil)
	n.On("FindActionsDue", mock.Anything, 10).Return([]ndr.Event{}, nil)
	r.On("FindAwaitingAWB", mock.Anything, 10).Return([]rto.Event{}, nil)

	report, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Deferred: 1}, report)
	r.AssertNotCalled(t, "FindActiveByShipment", mock.Anything, mock.Anything)
}

func TestSweep_StopsWhenCancelled(t *testing.T) {
	m, n, _, _ := newMocked(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	n.AssertNotCalled(t, "FindOverdue", mock.Anything, mock.Anything)
}

func TestMonitor_StartRunsImmediately(t *testing.T) {
	logger.Init("development", "error")
	n, r, ret := new(MockNDR), new(MockRTO), new(MockReturns)

	swept := make(chan struct{}, 1)
	n.On("FindOverdue", mock.Anything, 100).Return([]ndr.Event{}, nil).Maybe()
	n.On("FindEscalatedWithoutRTO", mock.Anything, 100).Return([]ndr.Event{}, nil).Maybe()
	ret.On("FindPickupBreaches", mock.Anything, 100).Return([]returns.ReturnOrder{}, nil).Maybe()
	n.On("FindActionsDue", mock.Anything, 100).Return([]ndr.Event{}, nil).Maybe()
	r.On("FindAwaitingAWB", mock.Anything, 100).Return([]rto.Event{}, nil).Maybe().
		Run(func(mock.Arguments) {
			select {
			case swept <- struct{}{}:
			default:
			}
		})

	m, err := New(n, r, ret, Options{Interval: time.Hour})
	require.NoError(t, err)
	require.NoError(t, m.Start())

	select {
	case <-swept:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not run on start")
	}
	assert.NoError(t, m.Stop())
}
