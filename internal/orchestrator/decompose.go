package orchestrator

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/decompose"
	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/manager"
	"github.com/gantrylabs/gantry/internal/taskerr"
)

// Decomposition is the applied outcome of a decomposition request:
// the engine's result plus the ids actually created under the source.
type Decomposition struct {
	*decompose.Result
	// CreatedIDs are the sub-task ids registered through the facade,
	// in creation order. Empty when the request was skipped.
	CreatedIDs []string
}

// Decompose runs the decomposition engine over a stored task and
// registers the generated sub-tasks through the facade, so every
// child passes the same validation and persistence path as a manual
// create. A gate skip returns the result with no children created.
// If any child fails to register, the ones already created are
// removed again and the error is returned.
func (s *Services) Decompose(ctx context.Context, taskID string, opts decompose.Options) (*Decomposition, error) {
	task, err := s.manager.Task(taskID)
	if err != nil {
		return nil, err
	}

	result, err := s.decomposer.Decompose(ctx, task, opts)
	if err != nil {
		return nil, err
	}
	if result.Skipped {
		return &Decomposition{Result: result}, nil
	}

	// Generators emit parents before their nested children and
	// dependency targets before their dependents, so creating in
	// slice order always satisfies facade validation.
	created := make([]string, 0, len(result.Subtasks))
	for _, sub := range result.Subtasks {
		req := manager.CreateRequest{
			ID:           sub.ID,
			Type:         sub.Type,
			Title:        sub.Title,
			Description:  sub.Description,
			Priority:     sub.Priority,
			Complexity:   sub.Complexity,
			ParentID:     sub.ParentID,
			Dependencies: sub.Dependencies,
			Assignee:     sub.Assignee,
			Metadata:     sub.Metadata,
		}
		if sub.EstimatedHours != nil {
			hours := *sub.EstimatedHours
			req.EstimatedHours = &hours
		}
		if sub.DueDate != nil {
			due := *sub.DueDate
			req.DueDate = &due
		}
		if _, err := s.manager.Create(req); err != nil {
			s.rollbackCreated(created)
			return nil, err
		}
		created = append(created, sub.ID)
	}

	s.manager.Bus().Publish(events.Event{
		Type:   events.EventTaskDecomposed,
		TaskID: task.ID,
		Before: task,
		Payload: map[string]any{
			"strategy":    string(result.Strategy),
			"subtasks":    len(created),
			"subtask_ids": created,
		},
		Timestamp: s.now(),
	})
	log.Info().
		Str("task_id", task.ID).
		Str("strategy", string(result.Strategy)).
		Int("subtasks", len(created)).
		Msg("decomposition applied")
	return &Decomposition{Result: result, CreatedIDs: created}, nil
}

// rollbackCreated removes sub-tasks registered before a failed
// creation, newest first so no child ever blocks its parent. An id
// already swept away by an earlier cascade is fine.
func (s *Services) rollbackCreated(ids []string) {
	for i := len(ids) - 1; i >= 0; i-- {
		if _, err := s.manager.Delete(ids[i], true); err != nil && !taskerr.IsNotFound(err) {
			log.Error().Str("task_id", ids[i]).Err(err).Msg("decomposition rollback failed")
		}
	}
}
