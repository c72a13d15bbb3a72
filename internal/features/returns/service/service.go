package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/clock"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/pagination"
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/features/returns/domain"
	"reverse-logistics/internal/features/returns/ports"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// maxWriteAttempts bounds the optimistic retry loop for a single mutation.
const maxWriteAttempts = 3

// errNoChange aborts a mutation without writing.
var errNoChange = errors.New("no change")

// Options tunes the return order engine.
type Options struct {
	// PickupSLA is the time allowed between request and pickup.
	PickupSLA time.Duration
	// CallTimeout bounds every collaborator call.
	CallTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PickupSLA <= 0 {
		o.PickupSLA = 48 * time.Hour
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
	return o
}

// Service runs the return order lifecycle.
type Service struct {
	repo     ports.Repository
	orders   ports.OrderLookup
	policy   ports.RefundPolicy
	courier  ports.Courier
	payment  ports.Payment
	notifier ports.Notifier
	photos   ports.PhotoUploader
	search   ports.SearchIndex
	ids      *snowflake.Node
	clock    clock.Clock
	opts     Options
	log      *zap.Logger
}

// Deps groups the collaborators of the return order engine.
type Deps struct {
	Repo     ports.Repository
	Orders   ports.OrderLookup
	Policy   ports.RefundPolicy
	Courier  ports.Courier
	Payment  ports.Payment
	Notifier ports.Notifier
	Photos   ports.PhotoUploader
	Search   ports.SearchIndex
	// IDs generates the human readable return ids.
	IDs   *snowflake.Node
	Clock clock.Clock
}

// NewService creates a new return order Service.
func NewService(d Deps, opts Options) *Service {
	return &Service{
		repo:     d.Repo,
		orders:   d.Orders,
		policy:   d.Policy,
		courier:  d.Courier,
		payment:  d.Payment,
		notifier: d.Notifier,
		photos:   d.Photos,
		search:   d.Search,
		ids:      d.IDs,
		clock:    d.Clock,
		opts:     opts.withDefaults(),
		log:      logger.Named("returns"),
	}
}

// mutate loads the order, applies fn and writes it back with a version
// check, retrying on lost races. fn returning errNoChange skips the write.
func (s *Service) mutate(ctx context.Context, id string, fn func(o *domain.ReturnOrder) error) (*domain.ReturnOrder, error) {
	for i := 0; i < maxWriteAttempts; i++ {
		o, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(o); err != nil {
			if errors.Is(err, errNoChange) {
				return o, nil
			}
			return nil, err
		}
		if err := s.repo.Update(ctx, o); err != nil {
			if errors.Is(err, apperror.ErrConcurrentUpdate) {
				continue
			}
			return nil, err
		}
		return o, nil
	}
	return nil, apperror.ErrConcurrentUpdate
}

// Get returns an order visible to sc.
func (s *Service) Get(ctx context.Context, id string, sc scope.Scope) (*domain.ReturnOrder, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sc.CanAccess(o.CompanyID, o.CustomerID); err != nil {
		return nil, err
	}
	return o, nil
}

// ownerFilter returns the company and customer a read is restricted to.
func ownerFilter(sc scope.Scope) (string, string, error) {
	switch {
	case sc.Unrestricted():
		return "", "", nil
	case sc.Role == scope.RoleCustomer:
		if sc.CustomerID == "" {
			return "", "", apperror.Forbidden("caller has no customer scope")
		}
		return sc.CompanyID, sc.CustomerID, nil
	case sc.CompanyID == "":
		return "", "", apperror.Forbidden("caller has no company scope")
	}
	return sc.CompanyID, "", nil
}

// ListQuery filters a return order listing.
type ListQuery struct {
	Status   domain.Status
	Reason   domain.Reason
	Breached *bool
	Search   string
}

// List returns a page of orders visible to sc, newest first. Search matches
// the return id, the order and the shipment.
func (s *Service) List(ctx context.Context, q ListQuery, p pagination.Params, sc scope.Scope) (*pagination.Result[domain.ReturnOrder], error) {
	companyID, customerID, err := ownerFilter(sc)
	if err != nil {
		return nil, err
	}
	f := ports.Filter{
		CompanyID:  companyID,
		CustomerID: customerID,
		Status:     q.Status,
		Reason:     q.Reason,
		Breached:   q.Breached,
	}

	if q.Search != "" {
		orders, err := s.search.FindOrdersMatching(ctx, companyID, q.Search)
		if err != nil {
			return nil, apperror.Upstream("search", err)
		}
		shipments, err := s.search.FindShipmentsMatching(ctx, companyID, q.Search)
		if err != nil {
			return nil, apperror.Upstream("search", err)
		}
		f.ReturnIDs = []string{q.Search}
		f.OrderIDs = append([]string{q.Search}, orders...)
		f.ShipmentIDs = append([]string{q.Search}, shipments...)
	}

	p = p.Normalize()
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list return orders: %w", err)
	}
	return &pagination.Result[domain.ReturnOrder]{Items: items, Pagination: pagination.NewMeta(p, total)}, nil
}

// Stats aggregates orders visible to sc.
func (s *Service) Stats(ctx context.Context, sc scope.Scope) (ports.Stats, error) {
	companyID, customerID, err := ownerFilter(sc)
	if err != nil {
		return ports.Stats{}, err
	}
	return s.repo.Stats(ctx, companyID, customerID)
}

// Delete soft deletes a closed order. Only admins may delete.
func (s *Service) Delete(ctx context.Context, id string, sc scope.Scope) error {
	if sc.Role != scope.RoleAdmin {
		return apperror.Forbidden("only admins can delete return orders")
	}
	_, err := s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
		if !o.Status.Terminal() {
			return domain.ErrDeleteNotAllowed
		}
		o.IsDeleted = true
		o.Log(sc.Actor(), "return_deleted", "", s.clock.Now())
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("return order deleted", zap.String("return_order_id", id), zap.String("actor", sc.Actor()))
	return nil
}
