package domain

import (
	"strings"
	"time"

	"reverse-logistics/internal/core/apperror"
	ndr "reverse-logistics/internal/features/ndr/domain"
)

// Status is a courier event normalized across providers.
type Status string

const (
	StatusProcessing     Status = ndr.TrackingProcessing
	StatusInTransit      Status = ndr.TrackingInTransit
	StatusDeliveryFailed Status = ndr.TrackingDeliveryFailed
	StatusDelivered      Status = ndr.TrackingDelivered
	// StatusRTO means the courier is sending the parcel back to origin.
	StatusRTO Status = ndr.TrackingRTO
)

var (
	// ErrCourierNotSupported is returned when no provider handles a courier.
	ErrCourierNotSupported = apperror.NotFound("COURIER_NOT_SUPPORTED", "courier not supported")
	// ErrOrderNotShipped is returned when syncing an order with no tracking number.
	ErrOrderNotShipped = apperror.Conflict("ORDER_NOT_SHIPPED", "order has no tracking number yet")
)

// Event is a single entry in a shipment's tracking history.
type Event struct {
	// Date is the timestamp when the event occurred.
	Date time.Time `json:"date"`
	// Text is the courier's description of the event.
	Text string `json:"text"`
	// City is the location where the event occurred.
	City string `json:"city"`
	// Code is the courier-specific status code.
	Code string `json:"code"`
	// Status is Code mapped onto the shared vocabulary.
	Status Status `json:"status"`
}

// History is the chronological tracking record of a shipment.
type History struct {
	// Status is the latest meaningful status; processing until one is seen.
	Status Status  `json:"status"`
	Events []Event `json:"events"`
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{Status: StatusProcessing, Events: []Event{}}
}

// Add appends e and moves the overall status along.
func (h *History) Add(e Event) {
	h.Events = append(h.Events, e)
	if e.Status != StatusProcessing {
		h.Status = e.Status
	}
}

// Relevant returns the events worth applying to the workflows: the last
// delivery or return scan and any failed attempt after it. Failures before
// that scan are already settled by it.
func (h *History) Relevant() []Event {
	cut := -1
	for i, e := range h.Events {
		if e.Status == StatusDelivered || e.Status == StatusRTO {
			cut = i
		}
	}

	var out []Event
	if cut >= 0 {
		out = append(out, h.Events[cut])
	}
	for _, e := range h.Events[cut+1:] {
		if e.Status == StatusDeliveryFailed {
			out = append(out, e)
		}
	}
	return out
}

// Shipment identifies a parcel to sync against the workflows.
type Shipment struct {
	TrackingNumber  string `json:"tracking_number"`
	Courier         string `json:"courier"`
	OrderID         string `json:"order_id"`
	CompanyID       string `json:"company_id"`
	CustomerContact string `json:"customer_contact,omitempty"`
}

// Validate rejects shipments that cannot be attributed.
func (s Shipment) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(s.TrackingNumber) == "" {
		fields["tracking_number"] = "is required"
	}
	if strings.TrimSpace(s.Courier) == "" {
		fields["courier"] = "is required"
	}
	if strings.TrimSpace(s.CompanyID) == "" {
		fields["company_id"] = "is required"
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid shipment", fields)
	}
	return nil
}

// Update turns a history event into the normalized update the NDR and RTO
// pipelines consume.
func (s Shipment) Update(e Event) ndr.TrackingUpdate {
	return ndr.TrackingUpdate{
		ShipmentID:      s.TrackingNumber,
		OrderID:         s.OrderID,
		CompanyID:       s.CompanyID,
		Courier:         s.Courier,
		CustomerContact: s.CustomerContact,
		Status:          string(e.Status),
		Code:            e.Code,
		Remark:          e.Text,
		OccurredAt:      e.Date,
	}
}

// Action says what an update did.
type Action string

const (
	ActionNDRRecorded Action = "ndr_recorded"
	ActionNDRResolved Action = "ndr_resolved"
	ActionRTOUpdated  Action = "rto_updated"
	ActionIgnored     Action = "ignored"
	ActionFailed      Action = "failed"
)

// Outcome reports how one update was applied.
type Outcome struct {
	Code     string `json:"code,omitempty"`
	Status   Status `json:"status"`
	Action   Action `json:"action"`
	EntityID string `json:"entity_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SyncResult is the outcome of syncing one shipment.
type SyncResult struct {
	TrackingNumber string    `json:"tracking_number"`
	Courier        string    `json:"courier"`
	Status         Status    `json:"status"`
	Outcomes       []Outcome `json:"outcomes"`
}
