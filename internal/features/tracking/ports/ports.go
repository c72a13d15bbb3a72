package ports

import (
	"context"

	ndr "reverse-logistics/internal/features/ndr/domain"
	orders "reverse-logistics/internal/features/orders/domain"
	rto "reverse-logistics/internal/features/rto/domain"
	"reverse-logistics/internal/features/tracking/domain"
)

// Provider fetches tracking history from one courier.
type Provider interface {
	// GetTrackingHistory retrieves the complete history of a tracking number.
	GetTrackingHistory(ctx context.Context, trackingNumber string) (*domain.History, error)
	// SupportsCourier returns true if this provider handles courierName.
	SupportsCourier(courierName string) bool
}

// NDRPipeline receives failed and completed deliveries.
type NDRPipeline interface {
	Ingest(ctx context.Context, u ndr.TrackingUpdate) (*ndr.Event, error)
	ResolveDelivered(ctx context.Context, u ndr.TrackingUpdate) (*ndr.Event, error)
}

// RTOTracker receives return-to-origin scans.
type RTOTracker interface {
	UpdateStatusByShipment(ctx context.Context, shipmentID string, to rto.Status, notes string) (*rto.Event, error)
}

// OrderSource resolves the store order a shipment belongs to.
type OrderSource interface {
	Lookup(ctx context.Context, orderID string) (*orders.Order, error)
}
