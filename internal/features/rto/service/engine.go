package service

import (
	"context"
	"errors"
	"fmt"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/metrics"
	"reverse-logistics/internal/core/scope"
	qc "reverse-logistics/internal/features/qc/domain"
	qcservice "reverse-logistics/internal/features/qc/service"
	"reverse-logistics/internal/features/rto/domain"
	"reverse-logistics/internal/features/rto/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TriggerRTO starts a return to origin for a shipment and books the reverse
// AWB. A shipment with an active RTO is a conflict, except an RTO still
// waiting for its AWB, which is resumed.
//
// When the event is stored but the AWB call fails, both the event and an
// upstream error are returned; the event stays initiated and retryable.
func (s *Service) TriggerRTO(ctx context.Context, req domain.TriggerRequest, sc scope.Scope) (*domain.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := sc.CanAccess(req.CompanyID, ""); err != nil {
		return nil, err
	}
	actor := sc.Actor()

	active, err := s.repo.FindActiveByShipment(ctx, req.ShipmentID)
	switch {
	case err == nil:
		if active.AwaitingAWB() {
			return s.requestAWB(ctx, active.ID, actor)
		}
		return nil, domain.ErrRTOAlreadyActive
	case !errors.Is(err, domain.ErrRTONotFound):
		return nil, err
	}

	if err := s.checkRate(ctx, req); err != nil {
		return nil, err
	}

	e := domain.NewEvent(uuid.NewString(), req, actor, s.opts.TransitDays, s.clock.Now())
	if err := s.repo.Create(ctx, e); err != nil {
		if errors.Is(err, ports.ErrActiveEventExists) {
			return nil, domain.ErrRTOAlreadyActive
		}
		return nil, err
	}
	metrics.RTOTriggeredTotal.WithLabelValues(string(e.Trigger)).Inc()
	s.log.Info("RTO triggered",
		zap.String("rto_id", e.ID),
		zap.String("shipment_id", e.ShipmentID),
		zap.String("trigger", string(e.Trigger)),
		zap.String("actor", actor))

	if s.linker != nil {
		if err := s.linker.LinkRTO(ctx, e.ShipmentID, e.ID, actor); err != nil {
			s.log.Warn("failed to link NDR to RTO", zap.String("rto_id", e.ID), zap.Error(err))
		}
	}

	return s.requestAWB(ctx, e.ID, actor)
}

// checkRate applies the per-company and per-shipment trigger limits. A
// limiter outage lets the trigger through.
func (s *Service) checkRate(ctx context.Context, req domain.TriggerRequest) error {
	if s.limiter == nil {
		return nil
	}
	d, err := s.limiter.AllowAll(ctx, "company:"+req.CompanyID, "shipment:"+req.ShipmentID)
	if err != nil {
		s.log.Warn("rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !d.Allowed {
		metrics.RTORateLimitedTotal.Inc()
		return apperror.RateLimited("too many RTO triggers, retry later", d.RetryAfter)
	}
	return nil
}

// requestAWB books the reverse AWB for an initiated event. The RTO id is
// sent as the courier's idempotency reference.
func (s *Service) requestAWB(ctx context.Context, id, actor string) (*domain.Event, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.AwaitingAWB() {
		return e, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	awb, callErr := s.courier.CreateReverseAWB(callCtx, ports.ReverseAWBRequest{
		RTOID:      e.ID,
		ShipmentID: e.ShipmentID,
		OrderID:    e.OrderID,
		CompanyID:  e.CompanyID,
		Courier:    e.Courier,
	})
	cancel()
	if callErr == nil && awb == "" {
		callErr = errors.New("courier returned an empty AWB")
	}

	if callErr != nil {
		s.log.Warn("reverse AWB generation failed", zap.String("rto_id", id), zap.Error(callErr))
		failed, err := s.mutate(ctx, id, func(e *domain.Event) error {
			if !e.AwaitingAWB() {
				return errNoChange
			}
			e.AWBAttempts++
			e.LastAWBError = callErr.Error()
			e.Log(actor, "awb_failed", callErr.Error(), s.clock.Now())
			return nil
		})
		if err != nil {
			s.log.Error("failed to record AWB failure", zap.String("rto_id", id), zap.Error(err))
			failed = e
		}
		return failed, apperror.Upstream("courier", callErr)
	}

	return s.mutate(ctx, id, func(e *domain.Event) error {
		if !e.AwaitingAWB() {
			return errNoChange
		}
		e.ReverseAWB = awb
		e.AWBAttempts++
		e.LastAWBError = ""
		e.Log(actor, "awb_generated", awb, s.clock.Now())
		return nil
	})
}

// RetryReverseAWB retries the AWB booking of an initiated event.
func (s *Service) RetryReverseAWB(ctx context.Context, id string, sc scope.Scope) (*domain.Event, error) {
	e, err := s.Get(ctx, id, sc)
	if err != nil {
		return nil, err
	}
	if e.ReverseAWB != "" {
		return nil, domain.ErrAWBAlreadyGenerated
	}
	return s.requestAWB(ctx, id, sc.Actor())
}

// FindAwaitingAWB lists initiated events still missing their reverse AWB.
func (s *Service) FindAwaitingAWB(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.repo.FindAwaitingAWB(ctx, limit)
}

// FindActiveByShipment returns the shipment's live RTO, or
// domain.ErrRTONotFound.
func (s *Service) FindActiveByShipment(ctx context.Context, shipmentID string) (*domain.Event, error) {
	return s.repo.FindActiveByShipment(ctx, shipmentID)
}

// UpdateStatus records a courier confirmation. Only in_transit and
// qc_pending can be set this way; repeating the current status is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, id string, to domain.Status, notes string, sc scope.Scope) (*domain.Event, error) {
	if to != domain.StatusInTransit && to != domain.StatusQCPending {
		return nil, apperror.Validation("invalid status update", map[string]string{"status": "must be in_transit or qc_pending"})
	}
	if _, err := s.Get(ctx, id, sc); err != nil {
		return nil, err
	}
	return s.advance(ctx, id, to, notes, sc.Actor(), false)
}

// UpdateStatusByShipment applies a tracking update to the shipment's active
// RTO. Updates that arrive after the event has moved further are ignored.
func (s *Service) UpdateStatusByShipment(ctx context.Context, shipmentID string, to domain.Status, notes string) (*domain.Event, error) {
	e, err := s.repo.FindActiveByShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, e.ID, to, notes, "system", true)
}

func (s *Service) advance(ctx context.Context, id string, to domain.Status, notes, actor string, lenient bool) (*domain.Event, error) {
	e, err := s.mutate(ctx, id, func(e *domain.Event) error {
		if e.Status == to || (lenient && e.Status.Reached(to)) {
			return errNoChange
		}
		if err := e.Transition(to, actor, "status_"+string(to), notes, s.clock.Now()); err != nil {
			return err
		}
		if to == domain.StatusQCPending {
			e.QC.Status = qc.StatusPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("RTO status updated", zap.String("rto_id", id), zap.String("status", string(e.Status)))
	return e, nil
}

// UploadQCPhotos stores evidence photos for an event awaiting QC.
func (s *Service) UploadQCPhotos(ctx context.Context, id string, photos []qcservice.Photo, sc scope.Scope) (*domain.Event, error) {
	e, err := s.Get(ctx, id, sc)
	if err != nil {
		return nil, err
	}
	if e.QC.Completed() {
		return nil, qc.ErrQCAlreadyRecorded
	}
	if e.Status != domain.StatusQCPending {
		return nil, domain.ErrQCNotRecordable
	}

	urls, err := s.photos.Upload(ctx, "qc/rto/"+id, photos)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(e *domain.Event) error {
		if e.Status != domain.StatusQCPending {
			return domain.ErrQCNotRecordable
		}
		rec, err := qc.AttachPhotos(e.QC, urls)
		if err != nil {
			return err
		}
		e.QC = rec
		e.Log(sc.Actor(), "qc_photos_uploaded", fmt.Sprintf("%d photos", len(urls)), s.clock.Now())
		return nil
	})
}

// RecordQCResult writes the one-time QC record and moves the event to
// qc_completed in the same write.
func (s *Service) RecordQCResult(ctx context.Context, id string, sub qc.Submission, sc scope.Scope) (*domain.Event, error) {
	if _, err := s.Get(ctx, id, sc); err != nil {
		return nil, err
	}
	if sub.Inspector == "" {
		sub.Inspector = sc.Actor()
	}

	e, err := s.mutate(ctx, id, func(e *domain.Event) error {
		if e.QC.Completed() {
			return qc.ErrQCAlreadyRecorded
		}
		if e.Status != domain.StatusQCPending {
			return domain.ErrQCNotRecordable
		}
		now := s.clock.Now()
		rec, err := qc.Complete(e.QC, sub, now)
		if err != nil {
			return err
		}
		// Events triggered without a manifest cannot be checked.
		if len(e.Items) > 0 {
			if err := sub.CheckAgainst(e.QCLines()); err != nil {
				return err
			}
		}
		e.QC = rec
		return e.Transition(domain.StatusQCCompleted, sc.Actor(), "qc_recorded", string(rec.Result), now)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("RTO QC recorded", zap.String("rto_id", id), zap.String("result", string(e.QC.Result)))
	return e, nil
}
