package service

import (
	"context"
	"fmt"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/metrics"
	"reverse-logistics/internal/features/ndr/domain"

	"go.uber.org/zap"
)

// Classify derives the NDR type from the stored reason, attaches the
// workflow deadline and moves the event into resolution. Calling it again
// re-evaluates the latest reason; nothing is written unless the type changed.
// Due automatic steps run right after.
func (s *Service) Classify(ctx context.Context, id, actor string) (*domain.Event, error) {
	var classified bool

	e, err := s.mutate(ctx, id, func(e *domain.Event) error {
		classified = false
		now := s.clock.Now()

		t := s.classifier.Classify(e.ReasonCode, e.Reason)
		wf, err := s.workflowFor(ctx, t)
		if err != nil {
			return err
		}

		switch e.Status {
		case domain.StatusDetected:
			if err := e.Transition(domain.StatusClassifying, actor, "classification_started", "", now); err != nil {
				return err
			}
			fallthrough
		case domain.StatusClassifying:
			e.ApplyClassification(t, wf, actor, now)
			classified = true
			return e.Transition(domain.StatusInResolution, actor, "classified", string(t), now)
		case domain.StatusInResolution:
			if !e.ApplyClassification(t, wf, actor, now) {
				return errNoChange
			}
			classified = true
			return nil
		default:
			return apperror.InvalidTransition(string(e.Status), string(domain.StatusClassifying))
		}
	})
	if err != nil {
		return nil, err
	}

	if classified {
		metrics.NDREventsTotal.WithLabelValues("classified").Inc()
		s.log.Info("NDR classified",
			zap.String("ndr_id", e.ID),
			zap.String("ndr_type", string(*e.Type)),
			zap.Timep("resolution_deadline", e.ResolutionDeadline))
	}

	latest, err := s.ExecuteDueActions(ctx, e.ID)
	if err != nil {
		s.log.Warn("NDR action failed after classification", zap.String("ndr_id", e.ID), zap.Error(err))
	}
	if latest != nil {
		return latest, nil
	}
	return e, nil
}

// workflowFor returns the stored workflow for t, or the built-in default.
func (s *Service) workflowFor(ctx context.Context, t domain.Type) (domain.Workflow, error) {
	wf, err := s.workflows.Get(ctx, t)
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("service: failed to load workflow: %w", err)
	}
	if wf != nil {
		return *wf, nil
	}
	return domain.DefaultWorkflows()[t], nil
}
