package adapters

import (
	"context"

	orders "reverse-logistics/internal/features/orders/domain"
	"reverse-logistics/internal/features/returns/domain"
	"reverse-logistics/internal/features/returns/ports"
)

// OrderSource reads store orders.
type OrderSource interface {
	Lookup(ctx context.Context, orderID string) (*orders.Order, error)
}

// OrderLookup serves the returns workflow from the store orders. Fee lines
// carry no SKU and cannot be returned, so they are left out.
type OrderLookup struct {
	src OrderSource
}

// NewOrderLookup creates an OrderLookup over src.
func NewOrderLookup(src OrderSource) *OrderLookup {
	return &OrderLookup{src: src}
}

// GetOrder implements ports.OrderLookup.
func (l *OrderLookup) GetOrder(ctx context.Context, orderID string) (*ports.Order, error) {
	o, err := l.src.Lookup(ctx, orderID)
	if err != nil {
		return nil, err
	}

	out := &ports.Order{
		ID:         o.ID,
		CompanyID:  o.CompanyID,
		CustomerID: o.CustomerID,
		Lines:      make([]domain.OrderLine, 0, len(o.Items)),
	}
	if sh, ok := o.Shipment(); ok {
		out.ShipmentID = sh.TrackingNumber
	}
	for _, it := range o.Items {
		if it.SKU == "" {
			continue
		}
		out.Lines = append(out.Lines, domain.OrderLine{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return out, nil
}
