package domain

import (
	"time"

	"reverse-logistics/internal/core/apperror"
	qc "reverse-logistics/internal/features/qc/domain"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a return order.
type Status string

const (
	StatusRequested       Status = "requested"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusPickupScheduled Status = "pickup_scheduled"
	StatusInTransit       Status = "in_transit"
	StatusQCPending       Status = "qc_pending"
	StatusQCCompleted     Status = "qc_completed"
	StatusRefunded        Status = "refunded"
	StatusCancelled       Status = "cancelled"
)

// transitions lists every allowed move. rejected -> refunded exists only
// for an admin refund override after a failed QC.
var transitions = map[Status][]Status{
	StatusRequested:       {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:        {StatusPickupScheduled, StatusCancelled},
	StatusPickupScheduled: {StatusInTransit, StatusCancelled},
	StatusInTransit:       {StatusQCPending, StatusCancelled},
	StatusQCPending:       {StatusQCCompleted, StatusCancelled},
	StatusQCCompleted:     {StatusRefunded, StatusRejected, StatusCancelled},
	StatusRejected:        {StatusRefunded},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusApproved, StatusRejected, StatusPickupScheduled, StatusInTransit,
		StatusQCPending, StatusQCCompleted, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no regular operation can move the order on.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusRefunded || s == StatusCancelled
}

// AwaitingPickup reports whether the pickup SLA still applies.
func (s Status) AwaitingPickup() bool {
	return s == StatusRequested || s == StatusApproved
}

// Reason is why the customer returns the goods.
type Reason string

const (
	ReasonDamaged        Reason = "damaged"
	ReasonDefective      Reason = "defective"
	ReasonWrongItem      Reason = "wrong_item"
	ReasonNotAsDescribed Reason = "not_as_described"
	ReasonSizeFit        Reason = "size_fit"
	ReasonChangedMind    Reason = "changed_mind"
	ReasonOther          Reason = "other"
)

// Valid reports whether r is a known reason.
func (r Reason) Valid() bool {
	switch r {
	case ReasonDamaged, ReasonDefective, ReasonWrongItem, ReasonNotAsDescribed,
		ReasonSizeFit, ReasonChangedMind, ReasonOther:
		return true
	}
	return false
}

// RefundMethod is how the customer gets the money back.
type RefundMethod string

const (
	RefundOriginalPayment RefundMethod = "original_payment"
	RefundWallet          RefundMethod = "wallet"
	RefundBankTransfer    RefundMethod = "bank_transfer"
	RefundStoreCredit     RefundMethod = "store_credit"
)

// Valid reports whether m is a known method.
func (m RefundMethod) Valid() bool {
	switch m {
	case RefundOriginalPayment, RefundWallet, RefundBankTransfer, RefundStoreCredit:
		return true
	}
	return false
}

// ReviewStatus is the seller's triage decision.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// RefundStatus tracks the two-phase refund write.
type RefundStatus string

const (
	RefundPending    RefundStatus = "pending"
	RefundProcessing RefundStatus = "processing"
	RefundCompleted  RefundStatus = "completed"
)

var (
	ErrReturnNotFound = apperror.NotFound("RETURN_NOT_FOUND", "return order not found")
	// ErrRefundNotEligible is returned when QC does not allow a refund.
	ErrRefundNotEligible = apperror.Conflict("REFUND_NOT_ELIGIBLE", "return order is not eligible for a refund")
	// ErrCancelNotAllowed is returned when cancelling a refunded or refunding order.
	ErrCancelNotAllowed = apperror.Conflict("CANCEL_NOT_ALLOWED", "return order can no longer be cancelled")
	// ErrQCNotRecordable is returned when QC is attempted before arrival.
	ErrQCNotRecordable = apperror.Conflict("QC_NOT_ALLOWED", "quality check is only allowed once the parcel is awaiting QC")
	// ErrDeleteNotAllowed is returned when deleting an order that is still open.
	ErrDeleteNotAllowed = apperror.Conflict("DELETE_NOT_ALLOWED", "only closed return orders can be deleted")
)

// Item is a returned line with the price paid.
type Item struct {
	ProductID string          `json:"product_id,omitempty"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name,omitempty"`
	Category  string          `json:"category,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Key identifies the item across order, return and QC records.
func (i Item) Key() string {
	if i.SKU != "" {
		return i.SKU
	}
	return i.ProductID
}

// QCLines lists the returned lines a quality check is checked against.
func (o *ReturnOrder) QCLines() []qc.Line {
	lines := make([]qc.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = qc.Line{SKU: it.SKU, ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines
}

// LineTotal is quantity times unit price.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SellerReview is the seller's triage record.
type SellerReview struct {
	Status     ReviewStatus `json:"status"`
	Reason     string       `json:"reason,omitempty"`
	Actor      string       `json:"actor,omitempty"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty"`
}

// Pickup is the courier booking for the return leg.
type Pickup struct {
	Courier       string     `json:"courier,omitempty"`
	AWB           string     `json:"awb,omitempty"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	PickedUpAt    *time.Time `json:"picked_up_at,omitempty"`
}

// Refund is the payment sub-record. Reference is the payment collaborator's
// idempotency key.
type Refund struct {
	Status        RefundStatus    `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// SLA tracks the pickup deadline.
type SLA struct {
	PickupDeadline time.Time  `json:"pickup_deadline"`
	IsBreached     bool       `json:"is_breached"`
	BreachedAt     *time.Time `json:"breached_at,omitempty"`
	// EscalatedAt is set once the breach notification has been claimed.
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`
}

// TimelineEntry is one append-only audit record.
type TimelineEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Notes     string    `json:"notes,omitempty"`
}

// ReturnOrder is a customer-initiated return.
type ReturnOrder struct {
	ID              string          `json:"id"`
	ReturnID        string          `json:"return_id"`
	OrderID         string          `json:"order_id"`
	ShipmentID      string          `json:"shipment_id,omitempty"`
	CompanyID       string          `json:"company_id"`
	CustomerID      string          `json:"customer_id"`
	Status          Status          `json:"status"`
	SellerReview    SellerReview    `json:"seller_review"`
	Reason          Reason          `json:"return_reason"`
	Description     string          `json:"description,omitempty"`
	Items           []Item          `json:"items"`
	RefundMethod    RefundMethod    `json:"refund_method"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
	Pickup          Pickup          `json:"pickup"`
	QC              qc.Record       `json:"qc"`
	Refund          Refund          `json:"refund"`
	SLA             SLA             `json:"sla"`
	CancelReason    string          `json:"cancel_reason,omitempty"`
	Timeline        []TimelineEntry `json:"timeline"`
	IsDeleted       bool            `json:"is_deleted"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Transition moves the order and logs the move.
func (o *ReturnOrder) Transition(to Status, actor, action, notes string, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return apperror.InvalidTransition(string(o.Status), string(to))
	}
	if o.Status == StatusRejected && !o.HasRefundOverride() {
		return apperror.InvalidTransition(string(o.Status), string(to))
	}
	o.Status = to
	o.Log(actor, action, notes, now)
	return nil
}

// Log appends a timeline entry at the current status.
func (o *ReturnOrder) Log(actor, action, notes string, now time.Time) {
	o.Timeline = append(o.Timeline, TimelineEntry{
		Status:    o.Status,
		Timestamp: now,
		Actor:     actor,
		Action:    action,
		Notes:     notes,
	})
}

// ActionRefundOverride marks an admin decision to refund despite QC.
const ActionRefundOverride = "refund_override"

// HasRefundOverride reports whether an admin override is on the timeline.
func (o *ReturnOrder) HasRefundOverride() bool {
	for _, e := range o.Timeline {
		if e.Action == ActionRefundOverride {
			return true
		}
	}
	return false
}
