package adapters

import (
	"context"
	"testing"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/database"
	"reverse-logistics/internal/core/pagination"
	"reverse-logistics/internal/features/ndr/domain"
	"reverse-logistics/internal/features/ndr/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	db, err := database.OpenInMemory(&NDRRow{})
	require.NoError(t, err)
	return NewGormRepository(db)
}

func newEvent(id, shipment string) *domain.Event {
	return domain.NewEvent(id, domain.TrackingUpdate{
		ShipmentID: shipment,
		OrderID:    "order-" + shipment,
		CompanyID:  "company-1",
		Courier:    "coordinadora_co",
		Status:     domain.TrackingDeliveryFailed,
		Code:       "CNA",
		Remark:     "customer not available",
		OccurredAt: base,
	}, base)
}

func classify(t *testing.T, e *domain.Event, typ domain.Type, now time.Time) {
	t.Helper()
	require.NoError(t, e.Transition(domain.StatusClassifying, "system", "classification_started", "", now))
	e.ApplyClassification(typ, domain.DefaultWorkflows()[typ], "system", now)
	require.NoError(t, e.Transition(domain.StatusInResolution, "system", "classified", "", now))
}

func TestGormRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := newEvent("ndr-1", "SHP-1")
	require.NoError(t, repo.Create(ctx, e))
	assert.Equal(t, 1, e.Version)

	got, err := repo.Get(ctx, "ndr-1")
	require.NoError(t, err)
	assert.Equal(t, "SHP-1", got.ShipmentID)
	assert.Equal(t, domain.StatusDetected, got.Status)
	assert.Nil(t, got.Type)
	require.Len(t, got.Attempts, 1)
	require.Len(t, got.Timeline, 1)
	assert.Equal(t, "ndr_detected", got.Timeline[0].Action)
}

func TestGormRepository_GetNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNDRNotFound)
}

func TestGormRepository_OneOpenEventPerShipment(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newEvent("ndr-1", "SHP-1")))
	err := repo.Create(ctx, newEvent("ndr-2", "SHP-1"))
	assert.ErrorIs(t, err, ports.ErrOpenEventExists)

	// Another shipment is unaffected.
	require.NoError(t, repo.Create(ctx, newEvent("ndr-3", "SHP-2")))
}

func TestGormRepository_ClosedEventFreesShipment(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := newEvent("ndr-1", "SHP-1")
	require.NoError(t, repo.Create(ctx, e))
	classify(t, e, domain.TypeCustomerUnavailable, base)
	require.NoError(t, e.Transition(domain.StatusResolved, "courier", "delivered", "", base.Add(time.Hour)))
	require.NoError(t, repo.Update(ctx, e))

	_, err := repo.FindOpenByShipment(ctx, "SHP-1")
	assert.ErrorIs(t, err, domain.ErrNDRNotFound)

	require.NoError(t, repo.Create(ctx, newEvent("ndr-2", "SHP-1")))
	open, err := repo.FindOpenByShipment(ctx, "SHP-1")
	require.NoError(t, err)
	assert.Equal(t, "ndr-2", open.ID)
}

func TestGormRepository_UpdateCompareAndSwap(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newEvent("ndr-1", "SHP-1")))

	first, err := repo.Get(ctx, "ndr-1")
	require.NoError(t, err)
	second, err := repo.Get(ctx, "ndr-1")
	require.NoError(t, err)

	first.AppendAttempt("CNA", "second try", base.Add(24*time.Hour), base.Add(24*time.Hour))
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.AppendAttempt("CNA", "stale writer", base.Add(25*time.Hour), base.Add(25*time.Hour))
	err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, apperror.ErrConcurrentUpdate)

	got, err := repo.Get(ctx, "ndr-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.AttemptCount)
	assert.Equal(t, "second try", got.Reason)
}

func TestGormRepository_UpdateMissing(t *testing.T) {
	repo := newTestRepo(t)

	e := newEvent("ghost", "SHP-9")
	e.Version = 1
	err := repo.Update(context.Background(), e)
	assert.ErrorIs(t, err, domain.ErrNDRNotFound)
}

func TestGormRepository_FindOverdueAndDue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	address := newEvent("ndr-1", "SHP-1")
	classify(t, address, domain.TypeAddressIssue, base)
	require.NoError(t, repo.Create(ctx, address))

	refused := newEvent("ndr-2", "SHP-2")
	classify(t, refused, domain.TypeRefused, base.Add(40*time.Hour))
	require.NoError(t, repo.Create(ctx, refused))

	require.NoError(t, repo.Create(ctx, newEvent("ndr-3", "SHP-3")))

	overdue, err := repo.FindOverdue(ctx, base.Add(49*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "ndr-1", overdue[0].ID)

	due, err := repo.FindActionsDue(ctx, base, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "ndr-1", due[0].ID)
}

func TestGormRepository_FindEscalatedWithoutRTO(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	pending := newEvent("ndr-1", "SHP-1")
	require.NoError(t, pending.Transition(domain.StatusEscalated, "system", "deadline_exceeded", "", base))
	require.NoError(t, repo.Create(ctx, pending))

	linked := newEvent("ndr-2", "SHP-2")
	require.NoError(t, linked.Transition(domain.StatusEscalated, "system", "deadline_exceeded", "", base))
	linked.RTOEventID = "rto-1"
	require.NoError(t, repo.Create(ctx, linked))

	got, err := repo.FindEscalatedWithoutRTO(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ndr-1", got[0].ID)
}

func TestGormRepository_ListAndStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := newEvent("ndr-1", "SHP-1")
	classify(t, a, domain.TypeAddressIssue, base)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, newEvent("ndr-2", "SHP-2")))

	other := newEvent("ndr-3", "SHP-3")
	other.CompanyID = "company-2"
	require.NoError(t, repo.Create(ctx, other))

	items, total, err := repo.List(ctx, ports.Filter{CompanyID: "company-1"}, pagination.Params{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 1)

	items, total, err = repo.List(ctx, ports.Filter{Type: domain.TypeAddressIssue}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "ndr-1", items[0].ID)

	items, _, err = repo.List(ctx, ports.Filter{ShipmentIDs: []string{"SHP-2"}, OrderIDs: []string{"order-SHP-3"}}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, total, err = repo.List(ctx, ports.Filter{ShipmentIDs: []string{}}, pagination.Params{})
	require.NoError(t, err)
	assert.Zero(t, total)

	stats, err := repo.Stats(ctx, "company-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus["in_resolution"])
	assert.Equal(t, int64(1), stats.ByStatus["detected"])
	assert.Equal(t, int64(1), stats.ByType["address_issue"])
	assert.Equal(t, int64(1), stats.ByType["unclassified"])
}
