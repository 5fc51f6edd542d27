package decompose

import (
	"fmt"

	"github.com/gantrylabs/gantry/pkg/models"
)

// Constraints bound the size of a generated decomposition.
type Constraints struct {
	// MinSubtasks pads a smaller result with generic filler.
	MinSubtasks int `mapstructure:"min_subtasks"`
	// MaxSubtasks trims a larger result.
	MaxSubtasks int `mapstructure:"max_subtasks"`
}

// DefaultConstraints returns the default size bounds.
func DefaultConstraints() Constraints {
	return Constraints{MinSubtasks: 2, MaxSubtasks: 8}
}

// apply enforces the bounds on a generated set: trim from the end
// past the maximum, then pad with filler up to the minimum. Trimming
// repairs references to removed tasks.
func (c Constraints) apply(g *generator, tasks []*models.Task) []*models.Task {
	if c.MaxSubtasks > 0 && len(tasks) > c.MaxSubtasks {
		tasks = tasks[:c.MaxSubtasks]
		repairReferences(g.source, tasks)
	}

	for i := len(tasks); i < c.MinSubtasks; i++ {
		filler := g.child(StrategyGeneric, "filler",
			fmt.Sprintf("Unscoped follow-up %d", i+1),
			"Reserved for scope discovered during the breakdown.", i)
		tasks = append(tasks, filler)
	}
	return tasks
}

// repairReferences re-parents tasks whose parent was trimmed away and
// scrubs dependencies on removed tasks.
func repairReferences(source *models.Task, kept []*models.Task) {
	ids := make(map[string]bool, len(kept)+1)
	ids[source.ID] = true
	for _, task := range kept {
		ids[task.ID] = true
	}

	for _, task := range kept {
		if !ids[task.ParentID] {
			task.ParentID = source.ID
			task.Level = source.Level + 1
		}
		if len(task.Dependencies) == 0 {
			continue
		}
		deps := task.Dependencies[:0]
		for _, dep := range task.Dependencies {
			if ids[dep] {
				deps = append(deps, dep)
			}
		}
		task.Dependencies = deps
	}
}
