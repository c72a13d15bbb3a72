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
	"reverse-logistics/internal/core/ratelimit"
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/features/rto/domain"
	"reverse-logistics/internal/features/rto/ports"

	"go.uber.org/zap"
)

// maxWriteAttempts bounds the optimistic retry loop for a single mutation.
const maxWriteAttempts = 3

// errNoChange aborts a mutation without writing.
var errNoChange = errors.New("no change")

// Options tunes the RTO engine.
type Options struct {
	// TransitDays sets the expected return date after triggering.
	TransitDays int
	// NonRestockable lists product categories that never go back to stock.
	NonRestockable []string
	// CallTimeout bounds every collaborator call.
	CallTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.TransitDays <= 0 {
		o.TransitDays = 7
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
	return o
}

// Service runs the RTO lifecycle and the disposition engine.
type Service struct {
	repo      ports.Repository
	courier   ports.Courier
	inventory ports.Inventory
	linker    ports.NDRLinker
	photos    ports.PhotoUploader
	search    ports.SearchIndex
	limiter   *ratelimit.Limiter
	clock     clock.Clock
	opts      Options
	log       *zap.Logger
}

// NewService creates a new RTO Service. linker may be nil when RTOs are
// never sourced from NDRs.
func NewService(
	repo ports.Repository,
	courier ports.Courier,
	inventory ports.Inventory,
	linker ports.NDRLinker,
	photos ports.PhotoUploader,
	search ports.SearchIndex,
	limiter *ratelimit.Limiter,
	clk clock.Clock,
	opts Options,
) *Service {
	return &Service{
		repo:      repo,
		courier:   courier,
		inventory: inventory,
		linker:    linker,
		photos:    photos,
		search:    search,
		limiter:   limiter,
		clock:     clk,
		opts:      opts.withDefaults(),
		log:       logger.Named("rto"),
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

// companyFilter returns the company a listing is restricted to.
func companyFilter(sc scope.Scope) (string, error) {
	if sc.Unrestricted() {
		return "", nil
	}
	if sc.CompanyID == "" {
		return "", apperror.Forbidden("caller has no company scope")
	}
	return sc.CompanyID, nil
}

// ListQuery filters an RTO listing.
type ListQuery struct {
	Status  domain.Status
	Trigger domain.Trigger
	Search  string
}

// List returns a page of events visible to sc, newest first.
func (s *Service) List(ctx context.Context, q ListQuery, p pagination.Params, sc scope.Scope) (*pagination.Result[domain.Event], error) {
	companyID, err := companyFilter(sc)
	if err != nil {
		return nil, err
	}
	f := ports.Filter{CompanyID: companyID, Status: q.Status, Trigger: q.Trigger}

	if q.Search != "" {
		orders, err := s.search.FindOrdersMatching(ctx, companyID, q.Search)
		if err != nil {
			return nil, apperror.Upstream("search", err)
		}
		shipments, err := s.search.FindShipmentsMatching(ctx, companyID, q.Search)
		if err != nil {
			return nil, apperror.Upstream("search", err)
		}
		f.OrderIDs = append([]string{}, orders...)
		f.ShipmentIDs = append([]string{q.Search}, shipments...)
	}

	p = p.Normalize()
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list rto events: %w", err)
	}
	return &pagination.Result[domain.Event]{Items: items, Pagination: pagination.NewMeta(p, total)}, nil
}

// GetPendingRTOs returns events not yet disposed, soonest expected first.
func (s *Service) GetPendingRTOs(ctx context.Context, p pagination.Params, sc scope.Scope) (*pagination.Result[domain.Event], error) {
	companyID, err := companyFilter(sc)
	if err != nil {
		return nil, err
	}

	p = p.Normalize()
	items, total, err := s.repo.ListPending(ctx, companyID, p)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list pending rto events: %w", err)
	}
	return &pagination.Result[domain.Event]{Items: items, Pagination: pagination.NewMeta(p, total)}, nil
}

// Stats aggregates events visible to sc.
func (s *Service) Stats(ctx context.Context, sc scope.Scope) (ports.Stats, error) {
	companyID, err := companyFilter(sc)
	if err != nil {
		return ports.Stats{}, err
	}
	return s.repo.Stats(ctx, companyID)
}
