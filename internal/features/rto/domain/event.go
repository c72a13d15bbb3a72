package domain

import (
	"fmt"
	"strings"
	"time"

	"reverse-logistics/internal/core/apperror"
	qc "reverse-logistics/internal/features/qc/domain"

	"github.com/shopspring/decimal"
)

// Status is the RTO return status.
type Status string

const (
	StatusInitiated   Status = "initiated"
	StatusInTransit   Status = "in_transit"
	StatusQCPending   Status = "qc_pending"
	StatusQCCompleted Status = "qc_completed"
	StatusDisposed    Status = "disposed"
)

// transitions lists every allowed move. A parcel scanned in at the
// warehouse without a transit scan may skip in_transit.
var transitions = map[Status][]Status{
	StatusInitiated:   {StatusInTransit, StatusQCPending},
	StatusInTransit:   {StatusQCPending},
	StatusQCPending:   {StatusQCCompleted},
	StatusQCCompleted: {StatusDisposed},
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

var rank = map[Status]int{
	StatusInitiated:   0,
	StatusInTransit:   1,
	StatusQCPending:   2,
	StatusQCCompleted: 3,
	StatusDisposed:    4,
}

// Reached reports whether s is at or past target in the lifecycle.
func (s Status) Reached(target Status) bool {
	return rank[s] >= rank[target]
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInitiated, StatusInTransit, StatusQCPending, StatusQCCompleted, StatusDisposed:
		return true
	}
	return false
}

// Trigger tells who started the return.
type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	return t == TriggerAuto || t == TriggerManual
}

var (
	ErrRTONotFound = apperror.NotFound("RTO_NOT_FOUND", "RTO event not found")
	// ErrRTOAlreadyActive is returned when the shipment already has a live RTO.
	ErrRTOAlreadyActive = apperror.Conflict("RTO_ALREADY_ACTIVE", "shipment already has an active RTO event")
	// ErrAWBMissing blocks leaving initiated before a reverse AWB exists.
	ErrAWBMissing = apperror.Conflict("REVERSE_AWB_MISSING", "reverse AWB has not been generated yet")
	// ErrAWBAlreadyGenerated is returned when retrying an AWB that exists.
	ErrAWBAlreadyGenerated = apperror.Conflict("REVERSE_AWB_EXISTS", "reverse AWB already generated")
	// ErrQCNotRecordable is returned when QC is attempted before arrival.
	ErrQCNotRecordable = apperror.Conflict("QC_NOT_ALLOWED", "quality check is only allowed once the parcel is awaiting QC")
)

// LineItem is a product in the returning parcel.
type LineItem struct {
	ProductID string          `json:"product_id,omitempty"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// TimelineEntry is one append-only audit record.
type TimelineEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Notes     string    `json:"notes,omitempty"`
}

// Event is a shipment travelling back to origin.
type Event struct {
	ID                 string          `json:"id"`
	ShipmentID         string          `json:"shipment_id"`
	OrderID            string          `json:"order_id"`
	CompanyID          string          `json:"company_id"`
	Courier            string          `json:"courier,omitempty"`
	NDREventID         string          `json:"ndr_event_id,omitempty"`
	Reason             string          `json:"rto_reason"`
	Trigger            Trigger         `json:"trigger"`
	Status             Status          `json:"return_status"`
	ExpectedReturnDate time.Time       `json:"expected_return_date"`
	TriggeredAt        time.Time       `json:"triggered_at"`
	TriggeredBy        string          `json:"triggered_by"`
	ReverseAWB         string          `json:"reverse_awb,omitempty"`
	AWBAttempts        int             `json:"awb_attempts"`
	LastAWBError       string          `json:"last_awb_error,omitempty"`
	Items              []LineItem      `json:"items,omitempty"`
	QC                 qc.Record       `json:"qc"`
	Disposition        *Disposition    `json:"disposition,omitempty"`
	Timeline           []TimelineEntry `json:"timeline"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TriggerRequest starts an RTO for a shipment.
type TriggerRequest struct {
	ShipmentID string     `json:"shipment_id"`
	OrderID    string     `json:"order_id"`
	CompanyID  string     `json:"company_id"`
	Courier    string     `json:"courier"`
	Reason     string     `json:"reason"`
	NDREventID string     `json:"ndr_event_id,omitempty"`
	Trigger    Trigger    `json:"trigger"`
	Items      []LineItem `json:"items,omitempty"`
}

// Validate rejects malformed trigger requests.
func (r TriggerRequest) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(r.ShipmentID) == "" {
		fields["shipment_id"] = "is required"
	}
	if strings.TrimSpace(r.CompanyID) == "" {
		fields["company_id"] = "is required"
	}
	if strings.TrimSpace(r.Reason) == "" {
		fields["reason"] = "is required"
	}
	if !r.Trigger.Valid() {
		fields["trigger"] = "must be auto or manual"
	}
	for i, it := range r.Items {
		if it.SKU == "" || it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			fields[fmt.Sprintf("items[%d]", i)] = "needs sku, positive quantity and non-negative price"
		}
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid RTO trigger", fields)
	}
	return nil
}

// NewEvent builds an initiated event. The reverse AWB is requested after
// the event is stored.
func NewEvent(id string, r TriggerRequest, actor string, transitDays int, now time.Time) *Event {
	e := &Event{
		ID:                 id,
		ShipmentID:         r.ShipmentID,
		OrderID:            r.OrderID,
		CompanyID:          r.CompanyID,
		Courier:            r.Courier,
		NDREventID:         r.NDREventID,
		Reason:             r.Reason,
		Trigger:            r.Trigger,
		Status:             StatusInitiated,
		ExpectedReturnDate: now.AddDate(0, 0, transitDays),
		TriggeredAt:        now,
		TriggeredBy:        actor,
		Items:              r.Items,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	e.Log(actor, "rto_triggered", string(r.Trigger)+": "+r.Reason, now)
	return e
}

// QCLines lists the parcel's lines a quality check is checked against.
func (e *Event) QCLines() []qc.Line {
	lines := make([]qc.Line, len(e.Items))
	for i, it := range e.Items {
		lines[i] = qc.Line{SKU: it.SKU, ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines
}

// Active reports whether the event still blocks a new RTO for the shipment.
func (e *Event) Active() bool {
	return e.Status != StatusDisposed
}

// AwaitingAWB reports whether the reverse AWB still has to be generated.
func (e *Event) AwaitingAWB() bool {
	return e.Status == StatusInitiated && e.ReverseAWB == ""
}

// Transition moves the event and logs the move.
func (e *Event) Transition(to Status, actor, action, notes string, now time.Time) error {
	if !CanTransition(e.Status, to) {
		return apperror.InvalidTransition(string(e.Status), string(to))
	}
	if e.Status == StatusInitiated && e.ReverseAWB == "" {
		return ErrAWBMissing
	}
	e.Status = to
	e.Log(actor, action, notes, now)
	return nil
}

// Log appends a timeline entry at the current status.
func (e *Event) Log(actor, action, notes string, now time.Time) {
	e.Timeline = append(e.Timeline, TimelineEntry{
		Status:    e.Status,
		Timestamp: now,
		Actor:     actor,
		Action:    action,
		Notes:     notes,
	})
}
