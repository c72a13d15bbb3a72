package domain

import (
	"strings"
	"time"

	"reverse-logistics/internal/core/apperror"
)

// Normalized tracking statuses produced by the courier integrations.
const (
	TrackingDelivered      = "delivered"
	TrackingDeliveryFailed = "delivery_failed"
	TrackingRTO            = "rto"
	TrackingInTransit      = "in_transit"
	TrackingProcessing     = "processing"
)

// TrackingUpdate is a normalized courier event for one shipment.
type TrackingUpdate struct {
	ShipmentID      string    `json:"shipment_id"`
	OrderID         string    `json:"order_id"`
	CompanyID       string    `json:"company_id"`
	Courier         string    `json:"courier"`
	CustomerContact string    `json:"customer_contact,omitempty"`
	Status          string    `json:"status"`
	Code            string    `json:"code"`
	Remark          string    `json:"remark"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// IsFailedDelivery reports whether the update describes a failed attempt.
func (u TrackingUpdate) IsFailedDelivery() bool {
	return strings.EqualFold(u.Status, TrackingDeliveryFailed)
}

// IsDelivered reports whether the shipment reached the customer.
func (u TrackingUpdate) IsDelivered() bool {
	return strings.EqualFold(u.Status, TrackingDelivered)
}

// Validate rejects updates that cannot be attributed to a shipment.
func (u TrackingUpdate) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(u.ShipmentID) == "" {
		fields["shipment_id"] = "is required"
	}
	if strings.TrimSpace(u.CompanyID) == "" {
		fields["company_id"] = "is required"
	}
	if strings.TrimSpace(u.Status) == "" {
		fields["status"] = "is required"
	}
	if u.OccurredAt.IsZero() {
		fields["occurred_at"] = "is required"
	}
	if len(fields) > 0 {
		return apperror.Validation("malformed tracking update", fields)
	}
	return nil
}
