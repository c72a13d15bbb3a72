package service

import (
	"context"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/metrics"
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/features/ndr/domain"

	"go.uber.org/zap"
)

const (
	// retryBackoff delays an automatic step after a failed attempt, scaled
	// by the attempt number.
	retryBackoff = 15 * time.Minute
	// maxActionsPerRun bounds how many steps one ExecuteDueActions call runs.
	maxActionsPerRun = 10
)

// picker selects the action to claim, or -1.
type picker func(e *domain.Event, now time.Time) int

func dueAutomatic(e *domain.Event, now time.Time) int {
	i := e.NextPending()
	if i == -1 || !e.Actions[i].AutoExecute || e.Actions[i].DueAt.After(now) {
		return -1
	}
	return i
}

func pendingOf(t domain.ActionType) picker {
	return func(e *domain.Event, _ time.Time) int {
		return e.FindPending(t)
	}
}

func manualOf(t domain.ActionType) picker {
	return func(e *domain.Event, _ time.Time) int {
		i := e.FindPending(t)
		if i == -1 || e.Actions[i].AutoExecute {
			return -1
		}
		return i
	}
}

// ExecuteDueActions runs every automatic step that is due, in sequence
// order. Each step is claimed before its side effect, so concurrent callers
// never run the same step twice. On a failed step the returned event
// reflects the persisted retry state alongside the error.
func (s *Service) ExecuteDueActions(ctx context.Context, id string) (*domain.Event, error) {
	var latest *domain.Event
	for i := 0; i < maxActionsPerRun; i++ {
		e, ran, err := s.runAction(ctx, id, dueAutomatic, "system")
		if e != nil {
			latest = e
		}
		if err != nil || !ran {
			return latest, err
		}
	}
	return latest, nil
}

// runAction claims the picked step, performs it and records the outcome.
func (s *Service) runAction(ctx context.Context, id string, pick picker, actor string) (*domain.Event, bool, error) {
	var claimed domain.Action
	var ok bool

	e, err := s.mutate(ctx, id, func(e *domain.Event) error {
		ok = false
		if e.Status != domain.StatusInResolution {
			return errNoChange
		}
		i := pick(e, s.clock.Now())
		if i == -1 {
			return errNoChange
		}
		e.Actions[i].Status = domain.ActionInProgress
		e.Actions[i].Attempts++
		e.NextActionAt = nil
		claimed = e.Actions[i]
		ok = true
		return nil
	})
	if err != nil || !ok {
		return e, false, err
	}

	runErr := s.perform(ctx, e, claimed)

	updated, err := s.mutate(ctx, id, func(e *domain.Event) error {
		i := e.ActionIndex(claimed.Sequence)
		if i == -1 || e.Actions[i].Status != domain.ActionInProgress {
			return errNoChange
		}
		now := s.clock.Now()
		a := &e.Actions[i]
		switch {
		case runErr == nil:
			e.CompleteAction(i, actor, now)
			e.Log(actor, "action_executed", string(a.Type), now)
		case a.Attempts >= domain.MaxActionAttempts:
			a.Status = domain.ActionFailed
			a.LastError = runErr.Error()
			e.Log(actor, "action_failed", string(a.Type)+": "+runErr.Error(), now)
		default:
			a.Status = domain.ActionPending
			a.LastError = runErr.Error()
			a.DueAt = now.Add(time.Duration(a.Attempts) * retryBackoff)
		}
		e.RefreshNextAction()
		return nil
	})
	if err != nil {
		return nil, true, err
	}

	if runErr != nil {
		s.log.Warn("NDR action failed",
			zap.String("ndr_id", id),
			zap.String("action", string(claimed.Type)),
			zap.Int("attempt", claimed.Attempts),
			zap.Error(runErr))
		return updated, true, runErr
	}
	s.log.Info("NDR action executed",
		zap.String("ndr_id", id),
		zap.String("action", string(claimed.Type)))
	return updated, true, nil
}

// perform calls the collaborator behind a step.
func (s *Service) perform(ctx context.Context, e *domain.Event, a domain.Action) error {
	switch a.Type {
	case domain.ActionRequestReattempt:
		if err := s.reattempter.RequestReattempt(ctx, e.ShipmentID, e.Courier); err != nil {
			return apperror.Upstream("courier", err)
		}
		return nil
	case domain.ActionSellerReview:
		err := s.notifier.Notify(ctx, orDefault(a.Channel, "email"), sellerRecipient(e), orDefault(a.Template, "ndr_seller_review"), actionData(e))
		if err != nil {
			return apperror.Upstream("notification", err)
		}
		return nil
	default:
		recipient := e.CustomerContact
		if recipient == "" {
			recipient = sellerRecipient(e)
		}
		err := s.notifier.Notify(ctx, orDefault(a.Channel, "whatsapp"), recipient, orDefault(a.Template, "ndr_"+string(a.Type)), actionData(e))
		if err != nil {
			return apperror.Upstream("notification", err)
		}
		return nil
	}
}

func sellerRecipient(e *domain.Event) string {
	return "company:" + e.CompanyID
}

func actionData(e *domain.Event) map[string]string {
	data := map[string]string{
		"ndr_id":      e.ID,
		"shipment_id": e.ShipmentID,
		"order_id":    e.OrderID,
		"reason":      e.Reason,
	}
	if e.Type != nil {
		data["ndr_type"] = string(*e.Type)
	}
	if e.ResolutionDeadline != nil {
		data["deadline"] = e.ResolutionDeadline.Format(time.RFC3339)
	}
	return data
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// HandleInput applies an external signal to an event in resolution and
// runs the manual step it unblocks.
func (s *Service) HandleInput(ctx context.Context, id string, in domain.Input, sc scope.Scope) (*domain.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id, sc); err != nil {
		return nil, err
	}
	actor := sc.Actor()

	e, err := s.mutate(ctx, id, func(e *domain.Event) error {
		if e.Status != domain.StatusInResolution {
			return domain.ErrNotInResolution
		}
		now := s.clock.Now()

		switch in.Kind {
		case domain.InputAddressUpdated:
			if i := e.FindPending(domain.ActionRequestAddressUpdate); i != -1 {
				e.CompleteAction(i, actor, now)
			}
			e.Log(actor, "address_updated", in.Notes, now)
			e.RefreshNextAction()
		case domain.InputReattemptRequested:
			if e.FindPending(domain.ActionRequestReattempt) == -1 {
				e.AddAction(domain.ActionRequestReattempt, now)
			}
			e.Log(actor, "reattempt_requested", in.Notes, now)
		case domain.InputSellerReviewed:
			if i := e.FindPending(domain.ActionSellerReview); i != -1 {
				e.CompleteAction(i, actor, now)
			}
			e.Log(actor, "seller_reviewed", in.Notes, now)
			e.RefreshNextAction()
		case domain.InputResolved:
			return e.Transition(domain.StatusResolved, actor, "resolved_manually", in.Notes, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var pick picker
	switch in.Kind {
	case domain.InputAddressUpdated:
		// A reattempt that waited on the new address goes out now.
		pick = manualOf(domain.ActionRequestReattempt)
	case domain.InputReattemptRequested:
		pick = pendingOf(domain.ActionRequestReattempt)
	case domain.InputResolved:
		metrics.NDREventsTotal.WithLabelValues("resolved").Inc()
		s.log.Info("NDR resolved manually", zap.String("ndr_id", id), zap.String("actor", actor))
		return e, nil
	default:
		return e, nil
	}

	updated, _, err := s.runAction(ctx, id, pick, actor)
	if err != nil {
		return nil, err
	}
	if updated != nil {
		return updated, nil
	}
	return e, nil
}

// ResolveDelivered closes the shipment's open event once the courier
// confirms delivery.
func (s *Service) ResolveDelivered(ctx context.Context, u domain.TrackingUpdate) (*domain.Event, error) {
	open, err := s.repo.FindOpenByShipment(ctx, u.ShipmentID)
	if err != nil {
		return nil, err
	}

	var resolved bool
	e, err := s.mutate(ctx, open.ID, func(e *domain.Event) error {
		resolved = false
		if e.Status == domain.StatusResolved {
			return errNoChange
		}
		resolved = true
		return e.Transition(domain.StatusResolved, "courier", "delivered", u.Remark, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	if resolved {
		metrics.NDREventsTotal.WithLabelValues("resolved").Inc()
		s.log.Info("NDR resolved by delivery", zap.String("ndr_id", e.ID), zap.String("shipment_id", e.ShipmentID))
	}
	return e, nil
}

// EscalateOverdue moves an event past its deadline to escalated. Only the
// caller whose write wins gets claimed=true and should trigger the RTO.
func (s *Service) EscalateOverdue(ctx context.Context, id string) (*domain.Event, bool, error) {
	var claimed bool
	e, err := s.mutate(ctx, id, func(e *domain.Event) error {
		claimed = false
		now := s.clock.Now()
		if !e.Overdue(now) {
			return errNoChange
		}
		claimed = true
		return e.Transition(domain.StatusEscalated, "system", "deadline_exceeded", "", now)
	})
	if err != nil {
		return nil, false, err
	}
	if claimed {
		metrics.NDREventsTotal.WithLabelValues("escalated").Inc()
		s.log.Info("NDR escalated", zap.String("ndr_id", e.ID), zap.String("shipment_id", e.ShipmentID))
	}
	return e, claimed, nil
}

// LinkRTO marks the shipment's open event as superseded by an RTO. Events
// not yet escalated are escalated on the way. It is a no-op when the
// shipment has no open event.
func (s *Service) LinkRTO(ctx context.Context, shipmentID, rtoID, actor string) error {
	open, err := s.repo.FindOpenByShipment(ctx, shipmentID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return nil
		}
		return err
	}

	_, err = s.mutate(ctx, open.ID, func(e *domain.Event) error {
		if e.RTOEventID != "" || e.Status == domain.StatusResolved {
			return errNoChange
		}
		now := s.clock.Now()
		if e.Status != domain.StatusEscalated {
			if err := e.Transition(domain.StatusEscalated, actor, "superseded_by_rto", rtoID, now); err != nil {
				return err
			}
		}
		e.RTOEventID = rtoID
		e.Log(actor, "rto_linked", rtoID, now)
		return nil
	})
	return err
}

// FindOverdue lists unresolved events past their resolution deadline.
func (s *Service) FindOverdue(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.repo.FindOverdue(ctx, s.clock.Now(), limit)
}

// FindEscalatedWithoutRTO lists escalated events still waiting for their RTO.
func (s *Service) FindEscalatedWithoutRTO(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.repo.FindEscalatedWithoutRTO(ctx, limit)
}

// FindActionsDue lists events with an automatic step due now.
func (s *Service) FindActionsDue(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.repo.FindActionsDue(ctx, s.clock.Now(), limit)
}
