package hierarchy

import (
	"fmt"

	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

// ValidationResult reports the outcome of validating one task against
// the registry. Errors are fatal, warnings are advisory.
type ValidationResult struct {
	Valid    bool
	Errors   []*taskerr.Error
	Warnings []string
}

// ValidateTask runs every validation rule against the task without
// mutating the registry. Identity updates (a task revalidating
// itself) do not trip the uniqueness rule.
func (r *Registry) ValidateTask(task *models.Task) ValidationResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, identity := r.tasks[task.ID]
	result := ValidationResult{Valid: true}

	if err := r.checkIDUnique(task, identity); err != nil {
		result.Errors = append(result.Errors, err)
	}
	if err := r.checkParentExists(task); err != nil {
		result.Errors = append(result.Errors, err)
	}
	if err := r.checkDepth(task); err != nil {
		result.Errors = append(result.Errors, err)
	}
	if err := r.checkDependencies(task); err != nil {
		result.Errors = append(result.Errors, err)
	}
	result.Valid = len(result.Errors) == 0
	result.Warnings = r.warningsFor(task)
	return result
}

// checkIDUnique rejects an ID already held by a different task.
// Caller holds at least a read lock.
func (r *Registry) checkIDUnique(task *models.Task, allowIdentity bool) *taskerr.Error {
	if task.ID == "" {
		return taskerr.Validation("validate", "", fmt.Errorf("task id is required"))
	}
	if _, exists := r.tasks[task.ID]; exists && !allowIdentity {
		return taskerr.Validation("validate", task.ID, taskerr.ErrDuplicateID)
	}
	return nil
}

// checkParentExists rejects a parent reference to an unknown task.
// Caller holds at least a read lock.
func (r *Registry) checkParentExists(task *models.Task) *taskerr.Error {
	if task.ParentID == "" {
		return nil
	}
	if task.ParentID == task.ID {
		return taskerr.Validation("validate", task.ID, fmt.Errorf("task cannot be its own parent"))
	}
	if _, exists := r.tasks[task.ParentID]; !exists {
		return taskerr.Validation("validate", task.ID, taskerr.ErrParentNotFound).
			WithMeta("parent_id", task.ParentID)
	}
	return nil
}

// checkDepth rejects placements past the configured depth limit.
// Caller holds at least a read lock.
func (r *Registry) checkDepth(task *models.Task) *taskerr.Error {
	if task.ParentID == "" {
		return nil
	}
	parent, exists := r.tasks[task.ParentID]
	if !exists {
		// The parent rule reports this case.
		return nil
	}
	if parent.Level+1 > r.maxDepth {
		return taskerr.Validation("validate", task.ID, taskerr.ErrMaxDepthExceeded).
			WithMeta("parent_level", fmt.Sprint(parent.Level)).
			WithMeta("max_depth", fmt.Sprint(r.maxDepth))
	}
	return nil
}

// checkDependencies rejects unknown dependency IDs and circular
// dependency chains. The cycle check is a depth-first walk from each
// declared dependency with a per-check visited set; reaching the task
// itself means the new edges would close a loop.
// Caller holds at least a read lock.
func (r *Registry) checkDependencies(task *models.Task) *taskerr.Error {
	for _, depID := range task.Dependencies {
		if depID == task.ID {
			return taskerr.Validation("validate", task.ID, taskerr.ErrCycleDetected).
				WithMeta("dependency", depID)
		}
		if _, exists := r.tasks[depID]; !exists {
			return taskerr.Validation("validate", task.ID,
				fmt.Errorf("dependency references unknown task %s", depID))
		}
	}

	visited := make(map[string]bool)
	var reaches func(fromID string) bool
	reaches = func(fromID string) bool {
		if fromID == task.ID {
			return true
		}
		if visited[fromID] {
			return false
		}
		visited[fromID] = true
		from, exists := r.tasks[fromID]
		if !exists {
			return false
		}
		for _, depID := range from.Dependencies {
			if reaches(depID) {
				return true
			}
		}
		return false
	}

	for _, depID := range task.Dependencies {
		if reaches(depID) {
			return taskerr.Validation("validate", task.ID, taskerr.ErrCycleDetected).
				WithMeta("via", depID)
		}
	}
	return nil
}

// CheckReparent reports whether moving id under newParentID would
// violate a hierarchy rule, without performing the move. Callers that
// persist before committing use this to validate up front.
func (r *Registry) CheckReparent(id, newParentID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkReparent(id, newParentID); err != nil {
		return err
	}
	return nil
}

// checkReparent guards a parent change: the new parent must exist,
// must not be the task itself or one of its descendants, and the
// moved subtree must still fit under the depth limit.
// Caller holds the lock.
func (r *Registry) checkReparent(id, newParentID string) *taskerr.Error {
	if newParentID == "" {
		return nil
	}
	if newParentID == id {
		return taskerr.Validation("update_task", id, fmt.Errorf("task cannot be its own parent"))
	}
	parent, exists := r.tasks[newParentID]
	if !exists {
		return taskerr.Validation("update_task", id, taskerr.ErrParentNotFound).
			WithMeta("parent_id", newParentID)
	}

	// Walk up from the new parent; finding the task means the move
	// would fold the tree into a loop.
	cur := newParentID
	for cur != "" {
		if cur == id {
			return taskerr.Validation("update_task", id,
				fmt.Errorf("cannot move task under its own descendant %s", newParentID))
		}
		cur = r.parents[cur]
	}

	newLevel := parent.Level + 1
	if newLevel+r.subtreeHeight(id) > r.maxDepth {
		return taskerr.Validation("update_task", id, taskerr.ErrMaxDepthExceeded).
			WithMeta("new_level", fmt.Sprint(newLevel))
	}
	return nil
}

// warningsFor returns the advisory findings for a task. Caller holds
// at least a read lock.
func (r *Registry) warningsFor(task *models.Task) []string {
	var warnings []string

	level := task.Level
	if parent, exists := r.tasks[task.ParentID]; task.ParentID != "" && exists {
		level = parent.Level + 1
	}
	if float64(level) > float64(r.maxDepth)*depthWarnRatio {
		warnings = append(warnings,
			fmt.Sprintf("task depth %d is close to the maximum of %d", level, r.maxDepth))
	}
	if len(task.Dependencies) > dependencyWarnCount {
		warnings = append(warnings,
			fmt.Sprintf("task has %d dependencies; consider splitting it", len(task.Dependencies)))
	}
	return warnings
}
