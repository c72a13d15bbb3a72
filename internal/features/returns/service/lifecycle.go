package service

import (
	"context"
	"fmt"
	"strings"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/metrics"
	"reverse-logistics/internal/core/scope"
	qc "reverse-logistics/internal/features/qc/domain"
	qcservice "reverse-logistics/internal/features/qc/service"
	"reverse-logistics/internal/features/returns/domain"
	"reverse-logistics/internal/features/returns/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateReturnRequest opens a return for items of a delivered order. Items
// are priced from the order; quantities already claimed by other live
// returns of the order cannot be returned twice.
func (s *Service) CreateReturnRequest(ctx context.Context, req domain.CreateRequest, sc scope.Scope) (*domain.ReturnOrder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if err := sc.CanAccess(order.CompanyID, order.CustomerID); err != nil {
		return nil, err
	}
	customerID := order.CustomerID
	if customerID == "" {
		customerID = req.CustomerID
	}
	if customerID == "" {
		return nil, apperror.Validation("invalid return request", map[string]string{"customer_id": "is required"})
	}

	returned, err := s.repo.ReturnedQuantities(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	items, err := domain.PriceItems(req.Items, order.Lines, returned)
	if err != nil {
		return nil, err
	}
	refund, err := s.policy.Apply(ctx, order.CompanyID, domain.Total(items), items)
	if err != nil {
		return nil, fmt.Errorf("service: failed to apply refund policy: %w", err)
	}

	returnID := "RET-" + strings.ToUpper(s.ids.Generate().Base36())
	o := domain.NewReturnOrder(uuid.NewString(), returnID, req, order.CompanyID, customerID, order.ShipmentID,
		items, refund, s.opts.PickupSLA, sc.Actor(), s.clock.Now())
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	metrics.ReturnTransitionsTotal.WithLabelValues(string(o.Status)).Inc()
	s.log.Info("return requested",
		zap.String("return_id", o.ReturnID),
		zap.String("order_id", o.OrderID),
		zap.String("refund_amount", o.RefundAmount.StringFixed(2)))
	return o, nil
}

// ReviewReturnRequest records the seller's decision on a requested return.
func (s *Service) ReviewReturnRequest(ctx context.Context, id string, d domain.Decision, sc scope.Scope) (*domain.ReturnOrder, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id, sc); err != nil {
		return nil, err
	}

	to := domain.StatusApproved
	if d.Decision == domain.ReviewRejected {
		to = domain.StatusRejected
	}

	o, err := s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
		if o.Status != domain.StatusRequested {
			return apperror.InvalidTransition(string(o.Status), string(to))
		}
		now := s.clock.Now()
		if err := o.Transition(to, sc.Actor(), "review_"+string(d.Decision), d.Reason, now); err != nil {
			return err
		}
		o.SellerReview = domain.SellerReview{Status: d.Decision, Reason: d.Reason, Actor: sc.Actor(), ReviewedAt: &now}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ReturnTransitionsTotal.WithLabelValues(string(o.Status)).Inc()
	s.log.Info("return reviewed", zap.String("return_id", o.ReturnID), zap.String("decision", string(d.Decision)))
	return o, nil
}

// SchedulePickup books the courier for an approved return. A booking whose
// write is lost is cancelled with the courier.
func (s *Service) SchedulePickup(ctx context.Context, id string, req domain.PickupRequest, sc scope.Scope) (*domain.ReturnOrder, error) {
	if err := req.Validate(s.clock.Now()); err != nil {
		return nil, err
	}
	o, err := s.Get(ctx, id, sc)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.StatusApproved {
		return nil, apperror.InvalidTransition(string(o.Status), string(domain.StatusPickupScheduled))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	booked, err := s.courier.SchedulePickup(callCtx, ports.PickupBooking{
		ReturnID:      o.ReturnID,
		OrderID:       o.OrderID,
		CompanyID:     o.CompanyID,
		Courier:       req.Courier,
		ScheduledDate: req.ScheduledDate,
	})
	cancel()
	if err != nil {
		s.log.Warn("pickup booking failed", zap.String("return_id", o.ReturnID), zap.Error(err))
		return nil, apperror.Upstream("courier", err)
	}
	if booked.ScheduledDate.IsZero() {
		booked.ScheduledDate = req.ScheduledDate
	}

	o, err = s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
		now := s.clock.Now()
		if err := o.Transition(domain.StatusPickupScheduled, sc.Actor(), "pickup_scheduled", booked.AWB, now); err != nil {
			return err
		}
		date := booked.ScheduledDate
		o.Pickup = domain.Pickup{Courier: req.Courier, AWB: booked.AWB, ScheduledDate: &date, ScheduledAt: &now}
		return nil
	})
	if err != nil {
		s.cancelPickup(ctx, id, req.Courier, booked.AWB)
		return nil, err
	}

	metrics.ReturnTransitionsTotal.WithLabelValues(string(o.Status)).Inc()
	s.log.Info("return pickup scheduled", zap.String("return_id", o.ReturnID), zap.String("awb", booked.AWB))
	return o, nil
}

func (s *Service) cancelPickup(ctx context.Context, id, courier, awb string) {
	if awb == "" {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	if err := s.courier.CancelPickup(callCtx, courier, awb); err != nil {
		s.log.Warn("failed to cancel pickup", zap.String("return_order_id", id), zap.String("awb", awb), zap.Error(err))
	}
}

// UpdateStatus records a courier confirmation. Only in_transit and
// qc_pending can be set this way; repeating the current status is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, id string, to domain.Status, notes string, sc scope.Scope) (*domain.ReturnOrder, error) {
	if to != domain.StatusInTransit && to != domain.StatusQCPending {
		return nil, apperror.Validation("invalid status update", map[string]string{"status": "must be in_transit or qc_pending"})
	}
	if _, err := s.Get(ctx, id, sc); err != nil {
		return nil, err
	}

	changed := false
	o, err := s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
		changed = false
		if o.Status == to {
			return errNoChange
		}
		now := s.clock.Now()
		if err := o.Transition(to, sc.Actor(), "status_"+string(to), notes, now); err != nil {
			return err
		}
		switch to {
		case domain.StatusInTransit:
			o.Pickup.PickedUpAt = &now
		case domain.StatusQCPending:
			o.QC.Status = qc.StatusPending
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.ReturnTransitionsTotal.WithLabelValues(string(o.Status)).Inc()
		s.log.Info("return status updated", zap.String("return_id", o.ReturnID), zap.String("status", string(o.Status)))
	}
	return o, nil
}

// UploadQCPhotos stores evidence photos for an order awaiting QC.
func (s *Service) UploadQCPhotos(ctx context.Context, id string, photos []qcservice.Photo, sc scope.Scope) (*domain.ReturnOrder, error) {
	o, err := s.Get(ctx, id, sc)
	if err != nil {
		return nil, err
	}
	if o.QC.Completed() {
		return nil, qc.ErrQCAlreadyRecorded
	}
	if o.Status != domain.StatusQCPending {
		return nil, domain.ErrQCNotRecordable
	}

	urls, err := s.photos.Upload(ctx, "qc/returns/"+id, photos)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
		if o.Status != domain.StatusQCPending {
			return domain.ErrQCNotRecordable
		}
		rec, err := qc.AttachPhotos(o.QC, urls)
		if err != nil {
			return err
		}
		o.QC = rec
		o.Log(sc.Actor(), "qc_photos_uploaded", fmt.Sprintf("%d photos", len(urls)), s.clock.Now())
		return nil
	})
}

// RecordQCResult writes the one-time QC record, recalculates the refund and
// moves the order to qc_completed in the same write. A rejected result
// zeroes the refund and closes the order as rejected.
func (s *Service) RecordQCResult(ctx context.Context, id string, sub qc.Submission, sc scope.Scope) (*domain.ReturnOrder, error) {
	if _, err := s.Get(ctx, id, sc); err != nil {
		return nil, err
	}
	if sub.Inspector == "" {
		sub.Inspector = sc.Actor()
	}

	o, err := s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
		if o.QC.Completed() {
			return qc.ErrQCAlreadyRecorded
		}
		if o.Status != domain.StatusQCPending {
			return domain.ErrQCNotRecordable
		}
		now := s.clock.Now()
		rec, err := qc.Complete(o.QC, sub, now)
		if err != nil {
			return err
		}
		if err := sub.CheckAgainst(o.QCLines()); err != nil {
			return err
		}
		o.QC = rec
		o.RefundAmount = domain.CalculateActualRefund(o.Snapshot())
		o.Refund.Amount = o.RefundAmount
		notes := string(rec.Result) + ", refund " + o.RefundAmount.StringFixed(2)
		if err := o.Transition(domain.StatusQCCompleted, sc.Actor(), "qc_recorded", notes, now); err != nil {
			return err
		}
		if rec.Result == qc.ResultRejected {
			return o.Transition(domain.StatusRejected, sc.Actor(), "qc_rejected", rec.Notes, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ReturnTransitionsTotal.WithLabelValues(string(o.Status)).Inc()
	s.log.Info("return QC recorded",
		zap.String("return_id", o.ReturnID),
		zap.String("result", string(o.QC.Result)),
		zap.String("refund_amount", o.RefundAmount.StringFixed(2)))
	return o, nil
}

// CancelReturn cancels an open order. Customers may cancel their own orders
// and admins any order; a refunded or refunding order cannot be cancelled.
// A booked pickup is cancelled with the courier on a best-effort basis.
func (s *Service) CancelReturn(ctx context.Context, id, reason string, sc scope.Scope) (*domain.ReturnOrder, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperror.Validation("invalid cancellation", map[string]string{"reason": "is required"})
	}
	if sc.Role != scope.RoleCustomer && sc.Role != scope.RoleAdmin {
		return nil, apperror.Forbidden("only the customer or an admin can cancel a return")
	}
	if _, err := s.Get(ctx, id, sc); err != nil {
		return nil, err
	}

	o, err := s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
		if o.Status == domain.StatusRefunded || o.Refund.Status == domain.RefundProcessing || o.Refund.Status == domain.RefundCompleted {
			return domain.ErrCancelNotAllowed
		}
		o.CancelReason = reason
		return o.Transition(domain.StatusCancelled, sc.Actor(), "return_cancelled", reason, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.cancelPickup(ctx, id, o.Pickup.Courier, o.Pickup.AWB)
	metrics.ReturnTransitionsTotal.WithLabelValues(string(o.Status)).Inc()
	s.log.Info("return cancelled", zap.String("return_id", o.ReturnID), zap.String("actor", sc.Actor()))
	return o, nil
}

