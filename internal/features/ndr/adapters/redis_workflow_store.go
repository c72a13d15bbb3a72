package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"reverse-logistics/internal/core/cache"
	"reverse-logistics/internal/features/ndr/domain"
)

const workflowKeyPrefix = "ndr:workflow:"

// RedisWorkflowStore implements ports.WorkflowStore on the cache.
type RedisWorkflowStore struct {
	cache cache.Cache
}

// NewRedisWorkflowStore creates a new RedisWorkflowStore.
func NewRedisWorkflowStore(c cache.Cache) *RedisWorkflowStore {
	return &RedisWorkflowStore{
		cache: c,
	}
}

func workflowKey(t domain.Type) string {
	return workflowKeyPrefix + string(t)
}

// Save stores the workflow without expiry.
func (s *RedisWorkflowStore) Save(ctx context.Context, wf domain.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	if err := s.cache.Set(ctx, workflowKey(wf.Type), data, 0); err != nil {
		return fmt.Errorf("failed to save workflow to cache: %w", err)
	}

	return nil
}

// Get retrieves the stored workflow for t.
func (s *RedisWorkflowStore) Get(ctx context.Context, t domain.Type) (*domain.Workflow, error) {
	data, err := s.cache.Get(ctx, workflowKey(t))
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workflow from cache: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var wf domain.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}

	return &wf, nil
}

// Delete removes the stored workflow for t.
func (s *RedisWorkflowStore) Delete(ctx context.Context, t domain.Type) error {
	if err := s.cache.Delete(ctx, workflowKey(t)); err != nil {
		return fmt.Errorf("failed to delete workflow from cache: %w", err)
	}
	return nil
}
