package service

import (
	"context"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/features/returns/domain"

	"go.uber.org/zap"
)

const breachTemplate = "return_pickup_sla_breached"

// FindPickupBreaches lists orders past their pickup deadline that still
// need an escalation.
func (s *Service) FindPickupBreaches(ctx context.Context, limit int) ([]domain.ReturnOrder, error) {
	return s.repo.FindPickupBreaches(ctx, s.clock.Now(), limit)
}

// EscalatePickupBreach flags an order whose pickup deadline passed and
// notifies the seller once. Only the caller whose claim wins notifies; a
// failed notification releases the claim so the next sweep retries it. The
// order is never cancelled.
func (s *Service) EscalatePickupBreach(ctx context.Context, id string) (*domain.ReturnOrder, bool, error) {
	claimed := false
	o, err := s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
		claimed = false
		now := s.clock.Now()
		if !o.Status.AwaitingPickup() || !now.After(o.SLA.PickupDeadline) || o.SLA.EscalatedAt != nil {
			return errNoChange
		}
		if !o.SLA.IsBreached {
			o.SLA.IsBreached = true
			o.SLA.BreachedAt = &now
			o.Log("system", "pickup_sla_breached", o.SLA.PickupDeadline.Format(time.RFC3339), now)
		}
		o.SLA.EscalatedAt = &now
		claimed = true
		return nil
	})
	if err != nil || !claimed {
		return o, false, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	err = s.notifier.Notify(callCtx, "email", "company:"+o.CompanyID, breachTemplate, map[string]string{
		"return_id":       o.ReturnID,
		"order_id":        o.OrderID,
		"customer_id":     o.CustomerID,
		"pickup_deadline": o.SLA.PickupDeadline.Format(time.RFC3339),
	})
	cancel()
	if err != nil {
		s.log.Warn("pickup breach notification failed", zap.String("return_id", o.ReturnID), zap.Error(err))
		if _, rerr := s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
			if o.SLA.EscalatedAt == nil {
				return errNoChange
			}
			o.SLA.EscalatedAt = nil
			return nil
		}); rerr != nil {
			s.log.Error("failed to release breach claim", zap.String("return_id", o.ReturnID), zap.Error(rerr))
		}
		return nil, false, apperror.Upstream("notification", err)
	}

	s.log.Info("return pickup SLA breached",
		zap.String("return_id", o.ReturnID),
		zap.Time("pickup_deadline", o.SLA.PickupDeadline))
	return o, true, nil
}
