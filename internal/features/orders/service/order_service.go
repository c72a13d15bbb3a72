package service

import (
	"context"
	"strings"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/features/orders/domain"
	"reverse-logistics/internal/features/orders/ports"
)

// DefaultSearchLimit caps how many store orders one search reads.
const DefaultSearchLimit = 20

// OrderService handles the business logic for retrieving and validating orders.
type OrderService struct {
	provider    ports.OrderProvider
	searchLimit int
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(provider ports.OrderProvider) *OrderService {
	return &OrderService{
		provider:    provider,
		searchLimit: DefaultSearchLimit,
	}
}

// Lookup returns an order without any caller check. It is used by the
// workflows that already carry their own scope.
func (s *OrderService) Lookup(ctx context.Context, orderID string) (*domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, apperror.Validation("invalid order lookup", map[string]string{"order_id": "is required"})
	}
	order, err := s.provider.GetOrder(ctx, orderID)
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Upstream("woocommerce", err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// GetOrder retrieves an order for a caller. Customers prove ownership with
// the order email; other roles are checked against the order's company.
func (s *OrderService) GetOrder(ctx context.Context, orderID, email string, sc scope.Scope) (*domain.Order, error) {
	if sc.Role == scope.RoleCustomer && strings.TrimSpace(email) == "" {
		return nil, apperror.Validation("invalid order lookup", map[string]string{"email": "is required"})
	}

	order, err := s.Lookup(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if sc.Role == scope.RoleCustomer {
		if !order.Matches(email) {
			return nil, domain.ErrEmailMismatch
		}
		return order, nil
	}
	if err := sc.CanAccess(order.CompanyID, order.CustomerID); err != nil {
		return nil, err
	}
	return order, nil
}

// Search returns the store orders matching term that the caller may see.
func (s *OrderService) Search(ctx context.Context, term string, sc scope.Scope) ([]domain.Order, error) {
	companyID := sc.CompanyID
	if sc.Unrestricted() {
		companyID = ""
	}
	return s.search(ctx, companyID, term)
}

// FindOrdersMatching resolves a free-text term to order IDs of companyID.
// An empty companyID matches every company.
func (s *OrderService) FindOrdersMatching(ctx context.Context, companyID, term string) ([]string, error) {
	orders, err := s.search(ctx, companyID, term)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids, nil
}

// FindShipmentsMatching resolves a free-text term to the tracking numbers
// of the matching orders.
func (s *OrderService) FindShipmentsMatching(ctx context.Context, companyID, term string) ([]string, error) {
	orders, err := s.search(ctx, companyID, term)
	if err != nil {
		return nil, err
	}
	var out []string
	seen := map[string]bool{}
	for _, o := range orders {
		for _, t := range o.Tracking {
			if t.TrackingNumber != "" && !seen[t.TrackingNumber] {
				seen[t.TrackingNumber] = true
				out = append(out, t.TrackingNumber)
			}
		}
	}
	return out, nil
}

func (s *OrderService) search(ctx context.Context, companyID, term string) ([]domain.Order, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	found, err := s.provider.SearchOrders(ctx, term, s.searchLimit)
	if err != nil {
		return nil, apperror.Upstream("woocommerce", err)
	}

	out := make([]domain.Order, 0, len(found))
	for _, o := range found {
		if companyID == "" || o.CompanyID == companyID {
			out = append(out, o)
		}
	}
	return out, nil
}
