package ports

import (
	"context"
	"errors"

	"reverse-logistics/internal/core/pagination"
	qcservice "reverse-logistics/internal/features/qc/service"
	"reverse-logistics/internal/features/rto/domain"
)

// ErrActiveEventExists is returned by Create when the shipment already has
// an RTO that is not disposed.
var ErrActiveEventExists = errors.New("shipment already has an active RTO event")

// Filter narrows an RTO listing.
type Filter struct {
	CompanyID   string
	Status      domain.Status
	Trigger     domain.Trigger
	ShipmentIDs []string
	OrderIDs    []string
}

// Stats aggregates RTO events for reporting.
type Stats struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"by_status"`
	ByTrigger   map[string]int64 `json:"by_trigger"`
	ByAction    map[string]int64 `json:"by_disposition"`
	AwaitingAWB int64            `json:"awaiting_awb"`
}

// Repository persists RTO events with optimistic concurrency.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
	Get(ctx context.Context, id string) (*domain.Event, error)
	// FindActiveByShipment returns domain.ErrRTONotFound when none is active.
	FindActiveByShipment(ctx context.Context, shipmentID string) (*domain.Event, error)
	// Update writes e if its Version is still current and bumps it.
	Update(ctx context.Context, e *domain.Event) error
	List(ctx context.Context, f Filter, p pagination.Params) ([]domain.Event, int64, error)
	// ListPending returns events that are not yet disposed, soonest expected first.
	ListPending(ctx context.Context, companyID string, p pagination.Params) ([]domain.Event, int64, error)
	FindAwaitingAWB(ctx context.Context, limit int) ([]domain.Event, error)
	Stats(ctx context.Context, companyID string) (Stats, error)
}

// ReverseAWBRequest carries what the courier needs to book the return leg.
type ReverseAWBRequest struct {
	RTOID      string `json:"rto_id"`
	ShipmentID string `json:"shipment_id"`
	OrderID    string `json:"order_id"`
	CompanyID  string `json:"company_id"`
	Courier    string `json:"courier"`
}

// Courier books reverse shipments.
type Courier interface {
	CreateReverseAWB(ctx context.Context, req ReverseAWBRequest) (string, error)
}

// Inventory applies stock movements. reference makes the call idempotent.
type Inventory interface {
	AdjustStock(ctx context.Context, sku string, delta int, reason, reference string) error
}

// NDRLinker closes the source NDR once an RTO supersedes it.
type NDRLinker interface {
	LinkRTO(ctx context.Context, shipmentID, rtoID, actor string) error
}

// PhotoUploader stores QC evidence and returns public URLs.
type PhotoUploader interface {
	Upload(ctx context.Context, folder string, photos []qcservice.Photo) ([]string, error)
}

// SearchIndex resolves free-text search to order and shipment references.
type SearchIndex interface {
	FindOrdersMatching(ctx context.Context, companyID, term string) ([]string, error)
	FindShipmentsMatching(ctx context.Context, companyID, term string) ([]string, error)
}
