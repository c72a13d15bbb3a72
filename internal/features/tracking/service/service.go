package service

import (
	"context"
	"errors"
	"strings"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/scope"
	ndr "reverse-logistics/internal/features/ndr/domain"
	rto "reverse-logistics/internal/features/rto/domain"
	"reverse-logistics/internal/features/tracking/domain"
	"reverse-logistics/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// Service reads courier tracking and feeds it to the NDR and RTO
// workflows.
type Service struct {
	providers []ports.Provider
	ndr       ports.NDRPipeline
	rto       ports.RTOTracker
	orders    ports.OrderSource
	log       *zap.Logger
}

// NewService creates a new tracking Service.
func NewService(providers []ports.Provider, ndrPipeline ports.NDRPipeline, rtoTracker ports.RTOTracker, orders ports.OrderSource) *Service {
	return &Service{
		providers: providers,
		ndr:       ndrPipeline,
		rto:       rtoTracker,
		orders:    orders,
		log:       logger.Named("tracking"),
	}
}

// GetTrackingHistory retrieves the history of a tracking number from the
// provider of courier.
func (s *Service) GetTrackingHistory(ctx context.Context, trackingNumber, courier string) (*domain.History, error) {
	for _, p := range s.providers {
		if !p.SupportsCourier(courier) {
			continue
		}
		history, err := p.GetTrackingHistory(ctx, trackingNumber)
		if err != nil {
			return nil, apperror.Upstream("courier tracking", err)
		}
		return history, nil
	}
	return nil, domain.ErrCourierNotSupported
}

// Sync pulls a shipment's history and applies the events that still
// matter. Replaying a history is safe: attempts are deduplicated by the NDR
// detector and status updates never move backwards. A failure on one event
// is reported in its outcome without stopping the others.
func (s *Service) Sync(ctx context.Context, sh domain.Shipment, sc scope.Scope) (*domain.SyncResult, error) {
	if err := sh.Validate(); err != nil {
		return nil, err
	}
	if err := sc.CanAccess(sh.CompanyID, ""); err != nil {
		return nil, err
	}

	history, err := s.GetTrackingHistory(ctx, sh.TrackingNumber, sh.Courier)
	if err != nil {
		return nil, err
	}

	res := &domain.SyncResult{
		TrackingNumber: sh.TrackingNumber,
		Courier:        sh.Courier,
		Status:         history.Status,
		Outcomes:       []domain.Outcome{},
	}
	for _, e := range history.Relevant() {
		out, err := s.apply(ctx, sh.Update(e))
		if err != nil {
			s.log.Warn("Tracking event not applied",
				zap.String("shipment_id", sh.TrackingNumber),
				zap.String("code", e.Code),
				zap.Error(err))
			out = domain.Outcome{Code: e.Code, Status: e.Status, Action: domain.ActionFailed, Error: err.Error()}
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	s.log.Info("Shipment synced",
		zap.String("shipment_id", sh.TrackingNumber),
		zap.String("courier", sh.Courier),
		zap.String("status", string(history.Status)),
		zap.Int("applied", len(res.Outcomes)))
	return res, nil
}

// SyncOrder syncs the latest shipment of a store order. The order supplies
// the courier and the customer contact used for NDR outreach.
func (s *Service) SyncOrder(ctx context.Context, orderID string, sc scope.Scope) (*domain.SyncResult, error) {
	order, err := s.orders.Lookup(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := sc.CanAccess(order.CompanyID, ""); err != nil {
		return nil, err
	}

	shipment, ok := order.Shipment()
	if !ok || shipment.TrackingProvider == "" {
		return nil, domain.ErrOrderNotShipped
	}
	return s.Sync(ctx, domain.Shipment{
		TrackingNumber:  shipment.TrackingNumber,
		Courier:         shipment.TrackingProvider,
		OrderID:         order.ID,
		CompanyID:       order.CompanyID,
		CustomerContact: order.Contact(),
	}, sc)
}

// ApplyUpdate applies one pushed, already normalized update.
func (s *Service) ApplyUpdate(ctx context.Context, u ndr.TrackingUpdate, sc scope.Scope) (domain.Outcome, error) {
	if err := u.Validate(); err != nil {
		return domain.Outcome{}, err
	}
	if err := sc.CanAccess(u.CompanyID, ""); err != nil {
		return domain.Outcome{}, err
	}
	return s.apply(ctx, u)
}

// apply routes an update: failed attempts to the NDR detector, deliveries
// to the resolver and return scans to the shipment's RTO. Deliveries and
// return scans for shipments without a matching event are ignored.
func (s *Service) apply(ctx context.Context, u ndr.TrackingUpdate) (domain.Outcome, error) {
	u.Status = strings.ToLower(strings.TrimSpace(u.Status))
	out := domain.Outcome{Code: u.Code, Status: domain.Status(u.Status), Action: domain.ActionIgnored}

	switch domain.Status(u.Status) {
	case domain.StatusDeliveryFailed:
		e, err := s.ndr.Ingest(ctx, u)
		if err != nil {
			return out, err
		}
		out.Action, out.EntityID = domain.ActionNDRRecorded, e.ID

	case domain.StatusDelivered:
		e, err := s.ndr.ResolveDelivered(ctx, u)
		if errors.Is(err, ndr.ErrNDRNotFound) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out.Action, out.EntityID = domain.ActionNDRResolved, e.ID

	case domain.StatusRTO:
		e, err := s.rto.UpdateStatusByShipment(ctx, u.ShipmentID, rto.StatusInTransit, u.Remark)
		if errors.Is(err, rto.ErrRTONotFound) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out.Action, out.EntityID = domain.ActionRTOUpdated, e.ID
	}
	return out, nil
}
