package service

import (
	"context"
	"errors"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/metrics"
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/features/returns/domain"
	"reverse-logistics/internal/features/returns/ports"

	"go.uber.org/zap"
)

// ProcessRefund pays out the refund of a QC-completed order exactly once.
//
// The processing marker and the payment reference are stored before the
// payment call; a retry after a failure or crash reuses the reference, so
// the payment collaborator never pays twice. Calling it on a refunded order
// returns the order with the original transaction id.
//
// An admin override refunds an amount of their choosing regardless of the
// QC result and is recorded on the timeline.
func (s *Service) ProcessRefund(ctx context.Context, id string, req domain.RefundRequest, sc scope.Scope) (*domain.ReturnOrder, error) {
	if req.Override && sc.Role != scope.RoleAdmin {
		return nil, apperror.Forbidden("only admins can override a refund")
	}
	if _, err := s.Get(ctx, id, sc); err != nil {
		return nil, err
	}
	actor := sc.Actor()

	replayed := false
	claimed, err := s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
		replayed = false
		switch o.Refund.Status {
		case domain.RefundCompleted:
			replayed = true
			return errNoChange
		case domain.RefundProcessing:
			return errNoChange
		}
		if err := req.Validate(o.RequestedAmount); err != nil {
			return err
		}

		now := s.clock.Now()
		if req.Override {
			o.Log(actor, domain.ActionRefundOverride, req.Reason, now)
			o.RefundAmount = *req.Amount
		}
		if !domain.IsEligibleForRefund(o.Snapshot(), o.HasRefundOverride()) {
			return domain.ErrRefundNotEligible
		}
		if !domain.CanTransition(o.Status, domain.StatusRefunded) {
			return apperror.InvalidTransition(string(o.Status), string(domain.StatusRefunded))
		}

		o.Refund.Status = domain.RefundProcessing
		o.Refund.Amount = o.RefundAmount
		o.Refund.Reference = "refund-" + o.ReturnID
		o.Refund.StartedAt = &now
		o.Log(actor, "refund_started", o.RefundAmount.StringFixed(2), now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		metrics.RefundsTotal.WithLabelValues("replayed").Inc()
		return claimed, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	txnID, callErr := s.payment.Refund(callCtx, ports.RefundInstruction{
		CompanyID:  claimed.CompanyID,
		CustomerID: claimed.CustomerID,
		Amount:     claimed.Refund.Amount,
		Method:     string(claimed.RefundMethod),
		Reference:  claimed.Refund.Reference,
	})
	cancel()
	if callErr == nil && txnID == "" {
		callErr = errors.New("payment returned an empty transaction id")
	}

	if callErr != nil {
		metrics.RefundsTotal.WithLabelValues("failed").Inc()
		s.log.Warn("refund failed", zap.String("return_id", claimed.ReturnID), zap.Error(callErr))
		_, err := s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
			if o.Refund.Status != domain.RefundProcessing {
				return errNoChange
			}
			o.Refund.Attempts++
			o.Refund.LastError = callErr.Error()
			o.Log(actor, "refund_failed", callErr.Error(), s.clock.Now())
			return nil
		})
		if err != nil {
			s.log.Error("failed to record refund failure", zap.String("return_id", claimed.ReturnID), zap.Error(err))
		}
		return nil, apperror.Upstream("payment", callErr)
	}

	o, err := s.mutate(ctx, id, func(o *domain.ReturnOrder) error {
		if o.Refund.Status == domain.RefundCompleted {
			return errNoChange
		}
		now := s.clock.Now()
		if err := o.Transition(domain.StatusRefunded, actor, "refund_completed", txnID, now); err != nil {
			return err
		}
		o.Refund.Status = domain.RefundCompleted
		o.Refund.TransactionID = txnID
		o.Refund.Attempts++
		o.Refund.LastError = ""
		o.Refund.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RefundsTotal.WithLabelValues("completed").Inc()
	metrics.ReturnTransitionsTotal.WithLabelValues(string(o.Status)).Inc()
	s.log.Info("refund completed",
		zap.String("return_id", o.ReturnID),
		zap.String("transaction_id", txnID),
		zap.String("amount", o.Refund.Amount.StringFixed(2)))
	return o, nil
}
