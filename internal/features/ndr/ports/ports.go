package ports

import (
	"context"
	"errors"
	"time"

	"reverse-logistics/internal/core/pagination"
	"reverse-logistics/internal/features/ndr/domain"
)

// ErrOpenEventExists is returned by Create when the shipment already has an
// open NDR event.
var ErrOpenEventExists = errors.New("shipment already has an open NDR event")

// Filter narrows an NDR listing.
type Filter struct {
	CompanyID   string
	Status      domain.Status
	Type        domain.Type
	ShipmentIDs []string
	OrderIDs    []string
}

// Stats aggregates NDR events for reporting.
type Stats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	ByType   map[string]int64 `json:"by_type"`
}

// Repository persists NDR events with optimistic concurrency.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
	Get(ctx context.Context, id string) (*domain.Event, error)
	// FindOpenByShipment returns domain.ErrNDRNotFound when none is open.
	FindOpenByShipment(ctx context.Context, shipmentID string) (*domain.Event, error)
	// FindByShipment returns every event of a shipment, open or closed.
	FindByShipment(ctx context.Context, shipmentID string) ([]domain.Event, error)
	// Update writes e if its Version is still current and bumps it.
	Update(ctx context.Context, e *domain.Event) error
	List(ctx context.Context, f Filter, p pagination.Params) ([]domain.Event, int64, error)
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]domain.Event, error)
	FindEscalatedWithoutRTO(ctx context.Context, limit int) ([]domain.Event, error)
	FindActionsDue(ctx context.Context, now time.Time, limit int) ([]domain.Event, error)
	Stats(ctx context.Context, companyID string) (Stats, error)
}

// WorkflowStore holds the configured workflow per NDR type.
type WorkflowStore interface {
	// Get returns nil when the type has no stored definition.
	Get(ctx context.Context, t domain.Type) (*domain.Workflow, error)
	Save(ctx context.Context, wf domain.Workflow) error
	Delete(ctx context.Context, t domain.Type) error
}

// Notifier delivers customer and seller messages.
type Notifier interface {
	Notify(ctx context.Context, channel, recipient, template string, data map[string]string) error
}

// Reattempter asks the courier for another delivery attempt.
type Reattempter interface {
	RequestReattempt(ctx context.Context, shipmentID, courier string) error
}

// SearchIndex resolves free-text search to order and shipment references.
type SearchIndex interface {
	FindOrdersMatching(ctx context.Context, companyID, term string) ([]string, error)
	FindShipmentsMatching(ctx context.Context, companyID, term string) ([]string, error)
}
