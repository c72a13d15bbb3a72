package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/database"
	"reverse-logistics/internal/core/pagination"
	"reverse-logistics/internal/features/ndr/domain"
	"reverse-logistics/internal/features/ndr/ports"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NDRRow is the persisted shape of an NDR event. ActiveKey holds the
// shipment id while the event is open; the unique index on it keeps one
// open event per shipment across workers.
type NDRRow struct {
	ID                 string  `gorm:"primaryKey;size:36"`
	ShipmentID         string  `gorm:"size:64;not null;index"`
	OrderID            string  `gorm:"size:64;index"`
	CompanyID          string  `gorm:"size:64;not null;index"`
	Courier            string  `gorm:"size:64"`
	CustomerContact    string  `gorm:"size:128"`
	ReasonCode         string  `gorm:"size:64"`
	Reason             string  `gorm:"type:text"`
	NDRType            *string `gorm:"column:ndr_type;size:32;index"`
	Status             string  `gorm:"size:20;not null;index"`
	ClassifiedAt       *time.Time
	ResolutionDeadline *time.Time `gorm:"index"`
	AttemptCount       int
	Attempts           datatypes.JSON
	Actions            datatypes.JSON
	Timeline           datatypes.JSON
	NextActionAt       *time.Time `gorm:"index"`
	RTOEventID         string     `gorm:"column:rto_event_id;size:36;index"`
	ResolvedAt         *time.Time
	EscalatedAt        *time.Time
	ActiveKey          *string `gorm:"size:64;uniqueIndex"`
	Version            int     `gorm:"not null;default:1"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName overrides the gorm default.
func (NDRRow) TableName() string {
	return "ndr_events"
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
			return ports.ErrOpenEventExists
		}
		return fmt.Errorf("failed to create ndr event: %w", err)
	}
	return nil
}

// Get loads an event by id.
func (r *GormRepository) Get(ctx context.Context, id string) (*domain.Event, error) {
	var row NDRRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNDRNotFound
		}
		return nil, fmt.Errorf("failed to get ndr event: %w", err)
	}
	return fromRow(&row)
}

// FindOpenByShipment loads the open event of a shipment.
func (r *GormRepository) FindOpenByShipment(ctx context.Context, shipmentID string) (*domain.Event, error) {
	var row NDRRow
	err := r.db.WithContext(ctx).First(&row, "active_key = ?", shipmentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNDRNotFound
		}
		return nil, fmt.Errorf("failed to find open ndr event: %w", err)
	}
	return fromRow(&row)
}

// FindByShipment loads all events of a shipment, oldest first.
func (r *GormRepository) FindByShipment(ctx context.Context, shipmentID string) ([]domain.Event, error) {
	var rows []NDRRow
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find ndr events by shipment: %w", err)
	}
	return fromRows(rows)
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
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ports.ErrOpenEventExists
		}
		return fmt.Errorf("failed to update ndr event: %w", err)
	}
	if !won {
		exists, err := database.Exists(ctx, r.db, &NDRRow{}, e.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNDRNotFound
		}
		return apperror.ErrConcurrentUpdate
	}

	e.Version = next.Version
	e.UpdatedAt = row.UpdatedAt
	return nil
}

// List returns a page of events matching f, newest first.
func (r *GormRepository) List(ctx context.Context, f ports.Filter, p pagination.Params) ([]domain.Event, int64, error) {
	q := r.db.WithContext(ctx).Model(&NDRRow{})
	if f.CompanyID != "" {
		q = q.Where("company_id = ?", f.CompanyID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Type != "" {
		q = q.Where("ndr_type = ?", string(f.Type))
	}
	if f.ShipmentIDs != nil || f.OrderIDs != nil {
		q = q.Where(r.db.Where("shipment_id IN ?", nonEmpty(f.ShipmentIDs)).Or("order_id IN ?", nonEmpty(f.OrderIDs)))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ndr events: %w", err)
	}

	var rows []NDRRow
	err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.Normalize().Limit).Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ndr events: %w", err)
	}

	events, err := fromRows(rows)
	return events, total, err
}

// FindOverdue returns in-resolution events past their deadline.
func (r *GormRepository) FindOverdue(ctx context.Context, now time.Time, limit int) ([]domain.Event, error) {
	var rows []NDRRow
	err := r.db.WithContext(ctx).
		Where("status = ? AND resolution_deadline < ?", string(domain.StatusInResolution), now).
		Order("resolution_deadline ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find overdue ndr events: %w", err)
	}
	return fromRows(rows)
}

// FindEscalatedWithoutRTO returns escalated events whose RTO trigger has
// not succeeded yet.
func (r *GormRepository) FindEscalatedWithoutRTO(ctx context.Context, limit int) ([]domain.Event, error) {
	var rows []NDRRow
	err := r.db.WithContext(ctx).
		Where("status = ? AND rto_event_id = ?", string(domain.StatusEscalated), "").
		Order("escalated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find escalated ndr events: %w", err)
	}
	return fromRows(rows)
}

// FindActionsDue returns in-resolution events with an automatic step due.
func (r *GormRepository) FindActionsDue(ctx context.Context, now time.Time, limit int) ([]domain.Event, error) {
	var rows []NDRRow
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_action_at <= ?", string(domain.StatusInResolution), now).
		Order("next_action_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find ndr events with due actions: %w", err)
	}
	return fromRows(rows)
}

type countRow struct {
	GroupKey *string
	Count    int64
}

// Stats counts events by status and type.
func (r *GormRepository) Stats(ctx context.Context, companyID string) (ports.Stats, error) {
	stats := ports.Stats{ByStatus: map[string]int64{}, ByType: map[string]int64{}}

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&NDRRow{})
		if companyID != "" {
			q = q.Where("company_id = ?", companyID)
		}
		return q
	}

	var byStatus []countRow
	if err := base().Select("status AS group_key, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return stats, fmt.Errorf("failed to aggregate ndr status: %w", err)
	}
	for _, c := range byStatus {
		if c.GroupKey != nil {
			stats.ByStatus[*c.GroupKey] = c.Count
			stats.Total += c.Count
		}
	}

	var byType []countRow
	if err := base().Select("ndr_type AS group_key, COUNT(*) AS count").Group("ndr_type").Scan(&byType).Error; err != nil {
		return stats, fmt.Errorf("failed to aggregate ndr types: %w", err)
	}
	for _, c := range byType {
		key := "unclassified"
		if c.GroupKey != nil {
			key = *c.GroupKey
		}
		stats.ByType[key] = c.Count
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

func toRow(e *domain.Event) (*NDRRow, error) {
	attempts, err := database.ToJSON(e.Attempts)
	if err != nil {
		return nil, err
	}
	actions, err := database.ToJSON(e.Actions)
	if err != nil {
		return nil, err
	}
	timeline, err := database.ToJSON(e.Timeline)
	if err != nil {
		return nil, err
	}

	row := &NDRRow{
		ID:                 e.ID,
		ShipmentID:         e.ShipmentID,
		OrderID:            e.OrderID,
		CompanyID:          e.CompanyID,
		Courier:            e.Courier,
		CustomerContact:    e.CustomerContact,
		ReasonCode:         e.ReasonCode,
		Reason:             e.Reason,
		Status:             string(e.Status),
		ClassifiedAt:       e.ClassifiedAt,
		ResolutionDeadline: e.ResolutionDeadline,
		AttemptCount:       e.AttemptCount,
		Attempts:           attempts,
		Actions:            actions,
		Timeline:           timeline,
		NextActionAt:       e.NextActionAt,
		RTOEventID:         e.RTOEventID,
		ResolvedAt:         e.ResolvedAt,
		EscalatedAt:        e.EscalatedAt,
		Version:            e.Version,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
	if e.Type != nil {
		t := string(*e.Type)
		row.NDRType = &t
	}
	if e.IsOpen() {
		key := e.ShipmentID
		row.ActiveKey = &key
	}
	return row, nil
}

func fromRow(row *NDRRow) (*domain.Event, error) {
	e := &domain.Event{
		ID:                 row.ID,
		ShipmentID:         row.ShipmentID,
		OrderID:            row.OrderID,
		CompanyID:          row.CompanyID,
		Courier:            row.Courier,
		CustomerContact:    row.CustomerContact,
		ReasonCode:         row.ReasonCode,
		Reason:             row.Reason,
		Status:             domain.Status(row.Status),
		ClassifiedAt:       utc(row.ClassifiedAt),
		ResolutionDeadline: utc(row.ResolutionDeadline),
		AttemptCount:       row.AttemptCount,
		NextActionAt:       utc(row.NextActionAt),
		RTOEventID:         row.RTOEventID,
		ResolvedAt:         utc(row.ResolvedAt),
		EscalatedAt:        utc(row.EscalatedAt),
		Version:            row.Version,
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
	if row.NDRType != nil {
		t := domain.Type(*row.NDRType)
		e.Type = &t
	}
	if err := database.FromJSON(row.Attempts, &e.Attempts); err != nil {
		return nil, err
	}
	if err := database.FromJSON(row.Actions, &e.Actions); err != nil {
		return nil, err
	}
	if err := database.FromJSON(row.Timeline, &e.Timeline); err != nil {
		return nil, err
	}
	return e, nil
}

func fromRows(rows []NDRRow) ([]domain.Event, error) {
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

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
