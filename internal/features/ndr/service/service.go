package service

import (
	"context"
	"errors"
	"fmt"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/clock"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/pagination"
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/features/ndr/domain"
	"reverse-logistics/internal/features/ndr/ports"

	"go.uber.org/zap"
)

// maxWriteAttempts bounds the optimistic retry loop for a single mutation.
const maxWriteAttempts = 3

// errNoChange aborts a mutation without writing.
var errNoChange = errors.New("no change")

// Service runs the NDR pipeline: detection, classification and resolution.
type Service struct {
	repo        ports.Repository
	workflows   ports.WorkflowStore
	classifier  *domain.Classifier
	notifier    ports.Notifier
	reattempter ports.Reattempter
	search      ports.SearchIndex
	clock       clock.Clock
	log         *zap.Logger
}

// NewService creates a new NDR Service.
func NewService(
	repo ports.Repository,
	workflows ports.WorkflowStore,
	notifier ports.Notifier,
	reattempter ports.Reattempter,
	search ports.SearchIndex,
	clk clock.Clock,
) *Service {
	return &Service{
		repo:        repo,
		workflows:   workflows,
		classifier:  domain.NewClassifier(nil),
		notifier:    notifier,
		reattempter: reattempter,
		search:      search,
		clock:       clk,
		log:         logger.Named("ndr"),
	}
}

// mutate loads the event, applies fn and writes it back with a version
// check, retrying on lost races. fn returning errNoChange skips the write.
func (s *Service) mutate(ctx context.Context, id string, fn func(e *domain.Event) error) (*domain.Event, error) {
	for i := 0; i < maxWriteAttempts; i++ {
		e, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(e); err != nil {
			if errors.Is(err, errNoChange) {
				return e, nil
			}
			return nil, err
		}
		if err := s.repo.Update(ctx, e); err != nil {
			if errors.Is(err, apperror.ErrConcurrentUpdate) {
				continue
			}
			return nil, err
		}
		return e, nil
	}
	return nil, apperror.ErrConcurrentUpdate
}

// Get returns an event visible to sc.
func (s *Service) Get(ctx context.Context, id string, sc scope.Scope) (*domain.Event, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sc.CanAccess(e.CompanyID, ""); err != nil {
		return nil, err
	}
	return e, nil
}

// ListQuery filters an NDR listing.
type ListQuery struct {
	Status domain.Status
	Type   domain.Type
	Search string
}

// List returns a page of events visible to sc. A search term is resolved
// to order and shipment references through the search index.
func (s *Service) List(ctx context.Context, q ListQuery, p pagination.Params, sc scope.Scope) (*pagination.Result[domain.Event], error) {
	f := ports.Filter{Status: q.Status, Type: q.Type}
	if !sc.Unrestricted() {
		if sc.CompanyID == "" {
			return nil, apperror.Forbidden("caller has no company scope")
		}
		f.CompanyID = sc.CompanyID
	}

	if q.Search != "" {
		orders, err := s.search.FindOrdersMatching(ctx, f.CompanyID, q.Search)
		if err != nil {
			return nil, apperror.Upstream("search", err)
		}
		shipments, err := s.search.FindShipmentsMatching(ctx, f.CompanyID, q.Search)
		if err != nil {
			return nil, apperror.Upstream("search", err)
		}
		f.OrderIDs = append([]string{}, orders...)
		f.ShipmentIDs = append([]string{q.Search}, shipments...)
	}

	p = p.Normalize()
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list ndr events: %w", err)
	}
	return &pagination.Result[domain.Event]{Items: items, Pagination: pagination.NewMeta(p, total)}, nil
}

// Stats aggregates events visible to sc.
func (s *Service) Stats(ctx context.Context, sc scope.Scope) (ports.Stats, error) {
	companyID := ""
	if !sc.Unrestricted() {
		if sc.CompanyID == "" {
			return ports.Stats{}, apperror.Forbidden("caller has no company scope")
		}
		companyID = sc.CompanyID
	}
	return s.repo.Stats(ctx, companyID)
}
