package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/database"
	"reverse-logistics/internal/core/pagination"
	"reverse-logistics/internal/features/returns/domain"
	"reverse-logistics/internal/features/returns/ports"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReturnOrderRow is the persisted shape of a return order. SLA fields are
// columns so the monitor can query them.
type ReturnOrderRow struct {
	ID              string          `gorm:"primaryKey;size:36"`
	ReturnID        string          `gorm:"size:32;not null;uniqueIndex"`
	OrderID         string          `gorm:"size:64;not null;index"`
	ShipmentID      string          `gorm:"size:64;index"`
	CompanyID       string          `gorm:"size:64;not null;index"`
	CustomerID      string          `gorm:"size:64;index"`
	Status          string          `gorm:"size:20;not null;index"`
	Reason          string          `gorm:"column:return_reason;size:32;index"`
	Description     string          `gorm:"type:text"`
	RefundMethod    string          `gorm:"size:32"`
	RequestedAmount decimal.Decimal `gorm:"type:decimal(14,2)"`
	RefundAmount    decimal.Decimal `gorm:"type:decimal(14,2)"`
	CancelReason    string          `gorm:"type:text"`
	SellerReview    datatypes.JSON
	Items           datatypes.JSON
	Pickup          datatypes.JSON
	QC              datatypes.JSON `gorm:"column:qc"`
	Refund          datatypes.JSON
	Timeline        datatypes.JSON
	PickupDeadline  time.Time `gorm:"index"`
	IsBreached      bool      `gorm:"index"`
	BreachedAt      *time.Time
	EscalatedAt     *time.Time
	IsDeleted       bool `gorm:"not null;default:false;index"`
	Version         int  `gorm:"not null;default:1"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the gorm default.
func (ReturnOrderRow) TableName() string {
	return "return_orders"
}

// GormRepository implements ports.Repository on gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository over db.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// live scopes a query to orders that are not soft deleted.
func (r *GormRepository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&ReturnOrderRow{}).Where("is_deleted = ?", false)
}

// Create inserts a new order at version 1.
func (r *GormRepository) Create(ctx context.Context, o *domain.ReturnOrder) error {
	o.Version = 1
	row, err := toRow(o)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ports.ErrDuplicateReturnID
		}
		return fmt.Errorf("failed to create return order: %w", err)
	}
	return nil
}

// Get loads a live order by id.
func (r *GormRepository) Get(ctx context.Context, id string) (*domain.ReturnOrder, error) {
	var row ReturnOrderRow
	if err := r.live(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to get return order: %w", err)
	}
	return fromRow(&row)
}

// Update performs a compare-and-swap on the order version.
func (r *GormRepository) Update(ctx context.Context, o *domain.ReturnOrder) error {
	expected := o.Version
	next := *o
	next.Version = expected + 1
	row, err := toRow(&next)
	if err != nil {
		return err
	}

	won, err := database.UpdateVersioned(ctx, r.db, row, o.ID, expected)
	if err != nil {
		return fmt.Errorf("failed to update return order: %w", err)
	}
	if !won {
		exists, err := database.Exists(ctx, r.db, &ReturnOrderRow{}, o.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrReturnNotFound
		}
		return apperror.ErrConcurrentUpdate
	}

	o.Version = next.Version
	o.UpdatedAt = row.UpdatedAt
	return nil
}

// List returns a page of orders matching f, newest first.
func (r *GormRepository) List(ctx context.Context, f ports.Filter, p pagination.Params) ([]domain.ReturnOrder, int64, error) {
	q := r.live(ctx)
	if f.CompanyID != "" {
		q = q.Where("company_id = ?", f.CompanyID)
	}
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Reason != "" {
		q = q.Where("return_reason = ?", string(f.Reason))
	}
	if f.Breached != nil {
		q = q.Where("is_breached = ?", *f.Breached)
	}
	if f.ShipmentIDs != nil || f.OrderIDs != nil || f.ReturnIDs != nil {
		q = q.Where(r.db.Where("shipment_id IN ?", nonEmpty(f.ShipmentIDs)).
			Or("order_id IN ?", nonEmpty(f.OrderIDs)).
			Or("return_id IN ?", nonEmpty(f.ReturnIDs)))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count return orders: %w", err)
	}

	var rows []ReturnOrderRow
	p = p.Normalize()
	if err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list return orders: %w", err)
	}

	orders, err := fromRows(rows)
	return orders, total, err
}

// FindPickupBreaches returns orders still waiting for pickup past their
// deadline that nobody has escalated yet, oldest deadline first.
func (r *GormRepository) FindPickupBreaches(ctx context.Context, now time.Time, limit int) ([]domain.ReturnOrder, error) {
	var rows []ReturnOrderRow
	err := r.live(ctx).
		Where("status IN ?", []string{string(domain.StatusRequested), string(domain.StatusApproved)}).
		Where("pickup_deadline < ? AND escalated_at IS NULL", now).
		Order("pickup_deadline ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pickup breaches: %w", err)
	}
	return fromRows(rows)
}

// ReturnedQuantities sums quantities per item key over the order's returns
// that are neither cancelled nor rejected.
func (r *GormRepository) ReturnedQuantities(ctx context.Context, orderID string) (map[string]int, error) {
	var rows []ReturnOrderRow
	err := r.live(ctx).
		Select("items").
		Where("order_id = ? AND status NOT IN ?", orderID, []string{string(domain.StatusCancelled), string(domain.StatusRejected)}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load returned quantities: %w", err)
	}

	out := map[string]int{}
	for _, row := range rows {
		var items []domain.Item
		if err := database.FromJSON(row.Items, &items); err != nil {
			return nil, err
		}
		for _, it := range items {
			out[it.Key()] += it.Quantity
		}
	}
	return out, nil
}

type countRow struct {
	GroupKey *string
	Count    int64
}

// Stats counts live orders by status and reason, breached orders and the
// total refunded.
func (r *GormRepository) Stats(ctx context.Context, companyID, customerID string) (ports.Stats, error) {
	stats := ports.Stats{ByStatus: map[string]int64{}, ByReason: map[string]int64{}, RefundedAmount: decimal.Zero}

	base := func() *gorm.DB {
		q := r.live(ctx)
		if companyID != "" {
			q = q.Where("company_id = ?", companyID)
		}
		if customerID != "" {
			q = q.Where("customer_id = ?", customerID)
		}
		return q
	}

	group := func(column string, into map[string]int64) error {
		var rows []countRow
		err := base().Select(column + " AS group_key, COUNT(*) AS count").Group(column).Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to aggregate return %s: %w", column, err)
		}
		for _, c := range rows {
			if c.GroupKey != nil && *c.GroupKey != "" {
				into[*c.GroupKey] = c.Count
			}
		}
		return nil
	}

	if err := group("status", stats.ByStatus); err != nil {
		return stats, err
	}
	for _, n := range stats.ByStatus {
		stats.Total += n
	}
	if err := group("return_reason", stats.ByReason); err != nil {
		return stats, err
	}
	if err := base().Where("is_breached = ?", true).Count(&stats.Breached).Error; err != nil {
		return stats, fmt.Errorf("failed to count breached returns: %w", err)
	}

	var refunded []decimal.Decimal
	if err := base().Where("status = ?", string(domain.StatusRefunded)).Pluck("refund_amount", &refunded).Error; err != nil {
		return stats, fmt.Errorf("failed to sum refunded returns: %w", err)
	}
	for _, amount := range refunded {
		stats.RefundedAmount = stats.RefundedAmount.Add(amount)
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

func toRow(o *domain.ReturnOrder) (*ReturnOrderRow, error) {
	row := &ReturnOrderRow{
		ID:              o.ID,
		ReturnID:        o.ReturnID,
		OrderID:         o.OrderID,
		ShipmentID:      o.ShipmentID,
		CompanyID:       o.CompanyID,
		CustomerID:      o.CustomerID,
		Status:          string(o.Status),
		Reason:          string(o.Reason),
		Description:     o.Description,
		RefundMethod:    string(o.RefundMethod),
		RequestedAmount: o.RequestedAmount,
		RefundAmount:    o.RefundAmount,
		CancelReason:    o.CancelReason,
		PickupDeadline:  o.SLA.PickupDeadline,
		IsBreached:      o.SLA.IsBreached,
		BreachedAt:      o.SLA.BreachedAt,
		EscalatedAt:     o.SLA.EscalatedAt,
		IsDeleted:       o.IsDeleted,
		Version:         o.Version,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	var err error
	if row.SellerReview, err = database.ToJSON(o.SellerReview); err != nil {
		return nil, err
	}
	if row.Items, err = database.ToJSON(o.Items); err != nil {
		return nil, err
	}
	if row.Pickup, err = database.ToJSON(o.Pickup); err != nil {
		return nil, err
	}
	if row.QC, err = database.ToJSON(o.QC); err != nil {
		return nil, err
	}
	if row.Refund, err = database.ToJSON(o.Refund); err != nil {
		return nil, err
	}
	if row.Timeline, err = database.ToJSON(o.Timeline); err != nil {
		return nil, err
	}
	return row, nil
}

func fromRow(row *ReturnOrderRow) (*domain.ReturnOrder, error) {
	o := &domain.ReturnOrder{
		ID:              row.ID,
		ReturnID:        row.ReturnID,
		OrderID:         row.OrderID,
		ShipmentID:      row.ShipmentID,
		CompanyID:       row.CompanyID,
		CustomerID:      row.CustomerID,
		Status:          domain.Status(row.Status),
		Reason:          domain.Reason(row.Reason),
		Description:     row.Description,
		RefundMethod:    domain.RefundMethod(row.RefundMethod),
		RequestedAmount: row.RequestedAmount,
		RefundAmount:    row.RefundAmount,
		CancelReason:    row.CancelReason,
		SLA: domain.SLA{
			PickupDeadline: row.PickupDeadline.UTC(),
			IsBreached:     row.IsBreached,
			BreachedAt:     utc(row.BreachedAt),
			EscalatedAt:    utc(row.EscalatedAt),
		},
		IsDeleted: row.IsDeleted,
		Version:   row.Version,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if err := database.FromJSON(row.SellerReview, &o.SellerReview); err != nil {
		return nil, err
	}
	if err := database.FromJSON(row.Items, &o.Items); err != nil {
		return nil, err
	}
	if err := database.FromJSON(row.Pickup, &o.Pickup); err != nil {
		return nil, err
	}
	if err := database.FromJSON(row.QC, &o.QC); err != nil {
		return nil, err
	}
	if err := database.FromJSON(row.Refund, &o.Refund); err != nil {
		return nil, err
	}
	if err := database.FromJSON(row.Timeline, &o.Timeline); err != nil {
		return nil, err
	}
	return o, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func fromRows(rows []ReturnOrderRow) ([]domain.ReturnOrder, error) {
	out := make([]domain.ReturnOrder, 0, len(rows))
	for i := range rows {
		o, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}
