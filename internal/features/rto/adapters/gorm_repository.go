package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/database"
	"reverse-logistics/internal/core/pagination"
	"reverse-logistics/internal/features/rto/domain"
	"reverse-logistics/internal/features/rto/ports"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RTORow is the persisted shape of an RTO event. ActiveKey carries the
// shipment id until the event is disposed.
type RTORow struct {
	ID                 string    `gorm:"primaryKey;size:36"`
	ShipmentID         string    `gorm:"size:64;not null;index"`
	OrderID            string    `gorm:"size:64;index"`
	CompanyID          string    `gorm:"size:64;not null;index"`
	Courier            string    `gorm:"size:64"`
	NDREventID         string    `gorm:"column:ndr_event_id;size:36"`
	Reason             string    `gorm:"column:rto_reason;type:text"`
	Trigger            string    `gorm:"column:rto_trigger;size:10;not null;index"`
	Status             string    `gorm:"column:return_status;size:20;not null;index"`
	ExpectedReturnDate time.Time `gorm:"index"`
	TriggeredAt        time.Time
	TriggeredBy        string `gorm:"size:64"`
	ReverseAWB         string `gorm:"column:reverse_awb;size:64"`
	AWBAttempts        int    `gorm:"column:awb_attempts"`
	LastAWBError       string `gorm:"column:last_awb_error;type:text"`
	DispositionAction  string `gorm:"size:32;index"`
	Items              datatypes.JSON
	QC                 datatypes.JSON `gorm:"column:qc"`
	Disposition        datatypes.JSON
	Timeline           datatypes.JSON
	ActiveKey          *string `gorm:"size:64;uniqueIndex"`
	Version            int     `gorm:"not null;default:1"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName overrides the gorm default.
func (RTORow) TableName() string {
	return "rto_events"
}

// GormRepository implements ports.Repository on gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository over db.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Create inserts a new event at version 1.
func (r *GormRepository) Create(ctx context.Context, e *domain.Event) error {
	e.Version = 1
	row, err := toRow(e)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ports.ErrActiveEventExists
		}
		return fmt.Errorf("failed to create rto event: %w", err)
	}
	return nil
}

// Get loads an event by id.
func (r *GormRepository) Get(ctx context.Context, id string) (*domain.Event, error) {
	var row RTORow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRTONotFound
		}
		return nil, fmt.Errorf("failed to get rto event: %w", err)
	}
	return fromRow(&row)
}

// FindActiveByShipment loads the non-disposed event of a shipment.
func (r *GormRepository) FindActiveByShipment(ctx context.Context, shipmentID string) (*domain.Event, error) {
	var row RTORow
	if err := r.db.WithContext(ctx).First(&row, "active_key = ?", shipmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRTONotFound
		}
		return nil, fmt.Errorf("failed to find active rto event: %w", err)
	}
	return fromRow(&row)
}

// Update performs a compare-and-swap on the event version.
func (r *GormRepository) Update(ctx context.Context, e *domain.Event) error {
	expected := e.Version
	next := *e
	next.Version = expected + 1
	row, err := toRow(&next)
	if err != nil {
		return err
	}

	won, err := database.UpdateVersioned(ctx, r.db, row, e.ID, expected)
	if err != nil {
		return fmt.Errorf("failed to update rto event: %w", err)
	}
	if !won {
		exists, err := database.Exists(ctx, r.db, &RTORow{}, e.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrRTONotFound
		}
		return apperror.ErrConcurrentUpdate
	}

	e.Version = next.Version
	e.UpdatedAt = row.UpdatedAt
	return nil
}

// List returns a page of events matching f, newest first.
func (r *GormRepository) List(ctx context.Context, f ports.Filter, p pagination.Params) ([]domain.Event, int64, error) {
	q := r.db.WithContext(ctx).Model(&RTORow{})
	if f.CompanyID != "" {
		q = q.Where("company_id = ?", f.CompanyID)
	}
	if f.Status != "" {
		q = q.Where("return_status = ?", string(f.Status))
	}
	if f.Trigger != "" {
		q = q.Where("rto_trigger = ?", string(f.Trigger))
	}
	if f.ShipmentIDs != nil || f.OrderIDs != nil {
		q = q.Where(r.db.Where("shipment_id IN ?", nonEmpty(f.ShipmentIDs)).Or("order_id IN ?", nonEmpty(f.OrderIDs)))
	}
	return r.page(q, "created_at DESC", p)
}

// ListPending returns events still on their way back or awaiting a decision.
func (r *GormRepository) ListPending(ctx context.Context, companyID string, p pagination.Params) ([]domain.Event, int64, error) {
	q := r.db.WithContext(ctx).Model(&RTORow{}).Where("return_status <> ?", string(domain.StatusDisposed))
	if companyID != "" {
		q = q.Where("company_id = ?", companyID)
	}
	return r.page(q, "expected_return_date ASC", p)
}

func (r *GormRepository) page(q *gorm.DB, order string, p pagination.Params) ([]domain.Event, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count rto events: %w", err)
	}

	var rows []RTORow
	p = p.Normalize()
	if err := q.Order(order).Offset(p.Offset()).Limit(p.Limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list rto events: %w", err)
	}

	events, err := fromRows(rows)
	return events, total, err
}

// FindAwaitingAWB returns initiated events whose reverse AWB is missing.
func (r *GormRepository) FindAwaitingAWB(ctx context.Context, limit int) ([]domain.Event, error) {
	var rows []RTORow
	err := r.db.WithContext(ctx).
		Where("return_status = ? AND reverse_awb = ?", string(domain.StatusInitiated), "").
		Order("triggered_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find rto events awaiting awb: %w", err)
	}
	return fromRows(rows)
}

type countRow struct {
	GroupKey *string
	Count    int64
}

// Stats counts events by status, trigger and disposition.
func (r *GormRepository) Stats(ctx context.Context, companyID string) (ports.Stats, error) {
	stats := ports.Stats{ByStatus: map[string]int64{}, ByTrigger: map[string]int64{}, ByAction: map[string]int64{}}

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&RTORow{})
		if companyID != "" {
			q = q.Where("company_id = ?", companyID)
		}
		return q
	}

	group := func(column string, into map[string]int64) error {
		var rows []countRow
		err := base().Select(column + " AS group_key, COUNT(*) AS count").Group(column).Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to aggregate rto %s: %w", column, err)
		}
		for _, c := range rows {
			if c.GroupKey != nil && *c.GroupKey != "" {
				into[*c.GroupKey] = c.Count
			}
		}
		return nil
	}

	if err := group("return_status", stats.ByStatus); err != nil {
		return stats, err
	}
	for _, n := range stats.ByStatus {
		stats.Total += n
	}
	if err := group("rto_trigger", stats.ByTrigger); err != nil {
		return stats, err
	}
	if err := group("disposition_action", stats.ByAction); err != nil {
		return stats, err
	}

	err := base().Where("return_status = ? AND reverse_awb = ?", string(domain.StatusInitiated), "").Count(&stats.AwaitingAWB).Error
	if err != nil {
		return stats, fmt.Errorf("failed to count rto events awaiting awb: %w", err)
	}
	return stats, nil
}

// nonEmpty keeps "IN ?" valid for an empty match set.
func nonEmpty(ids []string) []string {
	if len(ids) == 0 {
		return []string{""}
	}
	return ids
}

func toRow(e *domain.Event) (*RTORow, error) {
	items, err := database.ToJSON(e.Items)
	if err != nil {
		return nil, err
	}
	qcRecord, err := database.ToJSON(e.QC)
	if err != nil {
		return nil, err
	}
	disposition, err := database.ToJSON(e.Disposition)
	if err != nil {
		return nil, err
	}
	timeline, err := database.ToJSON(e.Timeline)
	if err != nil {
		return nil, err
	}

	row := &RTORow{
		ID:                 e.ID,
		ShipmentID:         e.ShipmentID,
		OrderID:            e.OrderID,
		CompanyID:          e.CompanyID,
		Courier:            e.Courier,
		NDREventID:         e.NDREventID,
		Reason:             e.Reason,
		Trigger:            string(e.Trigger),
		Status:             string(e.Status),
		ExpectedReturnDate: e.ExpectedReturnDate,
		TriggeredAt:        e.TriggeredAt,
		TriggeredBy:        e.TriggeredBy,
		ReverseAWB:         e.ReverseAWB,
		AWBAttempts:        e.AWBAttempts,
		LastAWBError:       e.LastAWBError,
		Items:              items,
		QC:                 qcRecord,
		Disposition:        disposition,
		Timeline:           timeline,
		Version:            e.Version,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
	if e.Disposition != nil {
		row.DispositionAction = string(e.Disposition.Action)
	}
	if e.Active() {
		key := e.ShipmentID
		row.ActiveKey = &key
	}
	return row, nil
}

func fromRow(row *RTORow) (*domain.Event, error) {
	e := &domain.Event{
		ID:                 row.ID,
		ShipmentID:         row.ShipmentID,
		OrderID:            row.OrderID,
		CompanyID:          row.CompanyID,
		Courier:            row.Courier,
		NDREventID:         row.NDREventID,
		Reason:             row.Reason,
		Trigger:            domain.Trigger(row.Trigger),
		Status:             domain.Status(row.Status),
		ExpectedReturnDate: row.ExpectedReturnDate.UTC(),
		TriggeredAt:        row.TriggeredAt.UTC(),
		TriggeredBy:        row.TriggeredBy,
		ReverseAWB:         row.ReverseAWB,
		AWBAttempts:        row.AWBAttempts,
		LastAWBError:       row.LastAWBError,
		Version:            row.Version,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
	if err := database.FromJSON(row.Items, &e.Items); err != nil {
		return nil, err
	}
	if err := database.FromJSON(row.QC, &e.QC); err != nil {
		return nil, err
	}
	if err := database.FromJSON(row.Disposition, &e.Disposition); err != nil {
		return nil, err
	}
	if err := database.FromJSON(row.Timeline, &e.Timeline); err != nil {
		return nil, err
	}
	return e, nil
}

func fromRows(rows []RTORow) ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(rows))
	for i := range rows {
		e, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}
