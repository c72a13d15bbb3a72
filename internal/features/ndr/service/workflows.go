package service

import (
	"context"
	"fmt"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/features/ndr/domain"

	"go.uber.org/zap"
)

// WorkflowView is a workflow together with where it came from.
type WorkflowView struct {
	domain.Workflow
	Custom bool `json:"custom"`
}

func invalidType(t domain.Type) error {
	return apperror.Validation("invalid NDR type", map[string]string{"type": fmt.Sprintf("unknown NDR type %q", t)})
}

// GetWorkflow returns the effective workflow for t.
func (s *Service) GetWorkflow(ctx context.Context, t domain.Type) (*WorkflowView, error) {
	if !t.Valid() {
		return nil, invalidType(t)
	}
	stored, err := s.workflows.Get(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get workflow: %w", err)
	}
	if stored != nil {
		return &WorkflowView{Workflow: *stored, Custom: true}, nil
	}
	return &WorkflowView{Workflow: domain.DefaultWorkflows()[t]}, nil
}

// ListWorkflows returns the effective workflow of every type.
func (s *Service) ListWorkflows(ctx context.Context) ([]WorkflowView, error) {
	out := make([]WorkflowView, 0, len(domain.Types))
	for _, t := range domain.Types {
		wf, err := s.GetWorkflow(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, *wf)
	}
	return out, nil
}

// SaveWorkflow validates and stores a workflow. It applies to events
// classified from now on.
func (s *Service) SaveWorkflow(ctx context.Context, wf domain.Workflow) (*WorkflowView, error) {
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	if err := s.workflows.Save(ctx, wf); err != nil {
		return nil, fmt.Errorf("service: failed to save workflow: %w", err)
	}
	s.log.Info("NDR workflow saved",
		zap.String("ndr_type", string(wf.Type)),
		zap.Int("max_resolution_hours", wf.MaxResolutionHours),
		zap.Int("steps", len(wf.Steps)))
	return &WorkflowView{Workflow: wf, Custom: true}, nil
}

// ResetWorkflow drops the stored workflow so the default applies again.
func (s *Service) ResetWorkflow(ctx context.Context, t domain.Type) (*WorkflowView, error) {
	if !t.Valid() {
		return nil, invalidType(t)
	}
	if err := s.workflows.Delete(ctx, t); err != nil {
		return nil, fmt.Errorf("service: failed to remove workflow: %w", err)
	}
	return &WorkflowView{Workflow: domain.DefaultWorkflows()[t]}, nil
}
