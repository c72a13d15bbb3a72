package service

import (
	"context"
	"errors"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/metrics"
	"reverse-logistics/internal/features/ndr/domain"
	"reverse-logistics/internal/features/ndr/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Detect turns a failed delivery update into an NDR event. When the shipment
// already has an open event the attempt is appended to it instead. Replaying
// an attempt any event of the shipment already holds, open or closed, returns
// that event unchanged.
func (s *Service) Detect(ctx context.Context, u domain.TrackingUpdate) (*domain.Event, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if !u.IsFailedDelivery() {
		return nil, domain.ErrNotFailedDelivery
	}

	for i := 0; i < maxWriteAttempts; i++ {
		now := s.clock.Now()

		seen, err := s.findAttempt(ctx, u)
		if err != nil {
			return nil, err
		}
		if seen != nil {
			return seen, nil
		}

		open, err := s.repo.FindOpenByShipment(ctx, u.ShipmentID)
		if errors.Is(err, domain.ErrNDRNotFound) {
			e := domain.NewEvent(uuid.NewString(), u, now)
			if err := s.repo.Create(ctx, e); err != nil {
				if errors.Is(err, ports.ErrOpenEventExists) {
					// Another worker created it first; append to theirs.
					continue
				}
				return nil, err
			}
			metrics.NDREventsTotal.WithLabelValues("detected").Inc()
			s.log.Info("NDR detected",
				zap.String("ndr_id", e.ID),
				zap.String("shipment_id", e.ShipmentID),
				zap.String("reason_code", e.ReasonCode))
			return e, nil
		}
		if err != nil {
			return nil, err
		}

		if !open.AppendAttempt(u.Code, u.Remark, u.OccurredAt, now) {
			return open, nil
		}
		if err := s.repo.Update(ctx, open); err != nil {
			if errors.Is(err, apperror.ErrConcurrentUpdate) {
				continue
			}
			return nil, err
		}
		metrics.NDREventsTotal.WithLabelValues("attempt").Inc()
		s.log.Info("NDR attempt recorded",
			zap.String("ndr_id", open.ID),
			zap.Int("attempt_count", open.AttemptCount))
		return open, nil
	}
	return nil, apperror.ErrConcurrentUpdate
}

// findAttempt returns the shipment's event that already recorded u, or nil.
func (s *Service) findAttempt(ctx context.Context, u domain.TrackingUpdate) (*domain.Event, error) {
	events, err := s.repo.FindByShipment(ctx, u.ShipmentID)
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].HasAttempt(u.Code, u.OccurredAt) {
			return &events[i], nil
		}
	}
	return nil, nil
}

// Ingest detects and immediately classifies a failed delivery update.
func (s *Service) Ingest(ctx context.Context, u domain.TrackingUpdate) (*domain.Event, error) {
	e, err := s.Detect(ctx, u)
	if err != nil {
		return nil, err
	}
	if e.Status == domain.StatusEscalated || !e.IsOpen() {
		return e, nil
	}
	return s.Classify(ctx, e.ID, "system")
}
