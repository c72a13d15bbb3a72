package service

import (
	"context"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/metrics"
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/features/rto/domain"

	"go.uber.org/zap"
)

// DispositionRequest is the operator's post-QC decision.
type DispositionRequest struct {
	Action   domain.Action `json:"action"`
	Notes    string        `json:"notes,omitempty"`
	Override bool          `json:"override,omitempty"`
}

// SuggestDisposition proposes an action from the QC record. It never writes.
func (s *Service) SuggestDisposition(ctx context.Context, id string, sc scope.Scope) (domain.Suggestion, error) {
	e, err := s.Get(ctx, id, sc)
	if err != nil {
		return domain.Suggestion{}, err
	}
	if e.Status == domain.StatusDisposed {
		return domain.Suggestion{}, domain.ErrAlreadyDisposed
	}
	return domain.Suggest(e.QC, s.opts.NonRestockable)
}

// ExecuteDisposition applies a disposition once. hold_for_review only logs
// the hold and leaves the event in qc_completed. Restocks are written in two
// phases: the processing marker is stored before inventory is touched, so a
// retry after a crash resumes with the same references.
func (s *Service) ExecuteDisposition(ctx context.Context, id string, req DispositionRequest, sc scope.Scope) (*domain.Event, error) {
	if _, err := s.Get(ctx, id, sc); err != nil {
		return nil, err
	}
	actor := sc.Actor()

	claimed, err := s.mutate(ctx, id, func(e *domain.Event) error {
		if e.Status == domain.StatusDisposed {
			return domain.ErrAlreadyDisposed
		}
		if d := e.Disposition; d != nil && d.Status == domain.ExecutionProcessing {
			if d.Action != req.Action {
				return domain.ErrDispositionInProgress
			}
			return errNoChange
		}
		if err := domain.CheckConsistency(e.QC, req.Action, req.Override); err != nil {
			return err
		}
		if e.Status != domain.StatusQCCompleted {
			return apperror.InvalidTransition(string(e.Status), string(domain.StatusDisposed))
		}

		now := s.clock.Now()
		if req.Action == domain.ActionHoldForReview {
			e.Log(actor, "held_for_review", req.Notes, now)
			return nil
		}

		suggestion, err := domain.Suggest(e.QC, s.opts.NonRestockable)
		if err != nil {
			return err
		}
		e.Disposition = &domain.Disposition{
			Action:           req.Action,
			Status:           domain.ExecutionProcessing,
			Reference:        "rto-" + e.ID + "-" + string(req.Action),
			Suggested:        suggestion.Action,
			Override:         req.Override,
			Actor:            actor,
			Notes:            req.Notes,
			StockAdjustments: domain.PlanStock(e.QC, req.Action, req.Override),
			CreditAmount:     domain.CreditAmount(e.Items, e.QC, req.Action),
			StartedAt:        now,
		}
		e.Log(actor, "disposition_started", string(req.Action), now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if req.Action == domain.ActionHoldForReview {
		metrics.DispositionsTotal.WithLabelValues(string(req.Action)).Inc()
		return claimed, nil
	}

	d := claimed.Disposition
	for _, adj := range d.StockAdjustments {
		callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
		err := s.inventory.AdjustStock(callCtx, adj.SKU, adj.Delta, adj.Reason, d.Reference+":"+adj.SKU)
		cancel()
		if err != nil {
			s.log.Warn("stock adjustment failed",
				zap.String("rto_id", id),
				zap.String("sku", adj.SKU),
				zap.Error(err))
			return nil, apperror.Upstream("inventory", err)
		}
	}

	e, err := s.mutate(ctx, id, func(e *domain.Event) error {
		if e.Status == domain.StatusDisposed {
			return errNoChange
		}
		if e.Disposition == nil || e.Disposition.Status != domain.ExecutionProcessing {
			return domain.ErrDispositionInProgress
		}
		now := s.clock.Now()
		e.Disposition.Status = domain.ExecutionCompleted
		e.Disposition.CompletedAt = &now
		notes := string(e.Disposition.Action)
		if e.Disposition.Notes != "" {
			notes += ": " + e.Disposition.Notes
		}
		return e.Transition(domain.StatusDisposed, actor, "disposition_executed", notes, now)
	})
	if err != nil {
		return nil, err
	}

	metrics.DispositionsTotal.WithLabelValues(string(d.Action)).Inc()
	s.log.Info("RTO disposed",
		zap.String("rto_id", id),
		zap.String("action", string(d.Action)),
		zap.String("credit", e.Disposition.CreditAmount.StringFixed(2)))
	return e, nil
}
