package ports

import (
	"context"

	"reverse-logistics/internal/features/orders/domain"
)

// OrderProvider defines the interface for retrieving external order information.
// This is a Secondary Port (Driven Port).
type OrderProvider interface {
	// GetOrder returns domain.ErrOrderNotFound for unknown orders.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	// SearchOrders runs the store's free-text order search.
	SearchOrders(ctx context.Context, term string, limit int) ([]domain.Order, error)
}
