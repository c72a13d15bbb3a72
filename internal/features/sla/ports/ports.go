package ports

import (
	"context"

	"reverse-logistics/internal/core/scope"
	ndr "reverse-logistics/internal/features/ndr/domain"
	returns "reverse-logistics/internal/features/returns/domain"
	rto "reverse-logistics/internal/features/rto/domain"
)

// NDRService is the slice of the NDR pipeline the monitor drives.
type NDRService interface {
	FindOverdue(ctx context.Context, limit int) ([]ndr.Event, error)
	EscalateOverdue(ctx context.Context, id string) (*ndr.Event, bool, error)
	FindEscalatedWithoutRTO(ctx context.Context, limit int) ([]ndr.Event, error)
	LinkRTO(ctx context.Context, shipmentID, rtoID, actor string) error
	FindActionsDue(ctx context.Context, limit int) ([]ndr.Event, error)
	ExecuteDueActions(ctx context.Context, id string) (*ndr.Event, error)
}

// RTOService is the slice of the RTO engine the monitor drives.
type RTOService interface {
	TriggerRTO(ctx context.Context, req rto.TriggerRequest, sc scope.Scope) (*rto.Event, error)
	FindActiveByShipment(ctx context.Context, shipmentID string) (*rto.Event, error)
	FindAwaitingAWB(ctx context.Context, limit int) ([]rto.Event, error)
	RetryReverseAWB(ctx context.Context, id string, sc scope.Scope) (*rto.Event, error)
}

// ReturnService is the slice of the return order engine the monitor drives.
type ReturnService interface {
	FindPickupBreaches(ctx context.Context, limit int) ([]returns.ReturnOrder, error)
	EscalatePickupBreach(ctx context.Context, id string) (*returns.ReturnOrder, bool, error)
}
