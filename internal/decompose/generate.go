package decompose

import (
	"fmt"
	"strings"
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

// maxPhases caps how many phases any strategy derives from a
// description.
const maxPhases = 6

// genericPhases are the canonical fallback phases with their share of
// the parent estimate.
var genericPhases = []struct {
	title       string
	description string
	share       float64
}{
	{"Analyze requirements", "Clarify the requirements, constraints, and affected surfaces.", 0.20},
	{"Design the approach", "Decide the structure of the change and document the plan.", 0.25},
	{"Implement the changes", "Build the planned changes.", 0.40},
	{"Test and stabilize", "Cover the behavior with tests and fix the fallout.", 0.15},
}

// generator builds sub-tasks for one source task.
type generator struct {
	source *models.Task
	newID  func() string
	now    time.Time
}

// child constructs one generated sub-task with inherited defaults and
// provenance. Generated children sit one level below the source and
// one complexity step lower.
func (g *generator) child(strategy Strategy, component, title, description string, sequence int) *models.Task {
	task := &models.Task{
		ID:          g.newID(),
		Type:        g.source.Type.ChildType(),
		Level:       g.source.Level + 1,
		Title:       title,
		Description: description,
		Status:      models.TaskStatusPending,
		Priority:    g.source.Priority,
		Complexity:  g.source.Complexity.StepLower(),
		ParentID:    g.source.ID,
		Assignee:    g.source.Assignee,
		CreatedAt:   g.now,
		UpdatedAt:   g.now,
		Metadata: models.Metadata{
			Domain: g.source.Metadata.Domain,
			Generated: &models.Provenance{
				Strategy:     string(strategy),
				Component:    component,
				Sequence:     sequence,
				SourceTaskID: g.source.ID,
			},
		},
	}
	if g.source.DueDate != nil {
		due := *g.source.DueDate
		task.DueDate = &due
	}
	return task
}

// setEffort assigns a share of the source estimate to a child.
func (g *generator) setEffort(task *models.Task, share float64) {
	if g.source.EstimatedHours == nil || share <= 0 {
		return
	}
	hours := *g.source.EstimatedHours * share
	task.EstimatedHours = &hours
}

// generateGeneric emits the canonical phases scaled against the
// source estimate, chained in order.
func (g *generator) generateGeneric() []*models.Task {
	tasks := make([]*models.Task, 0, len(genericPhases))
	for i, phase := range genericPhases {
		task := g.child(StrategyGeneric, phase.title, phase.title, phase.description, i)
		g.setEffort(task, phase.share)
		if i > 0 {
			task.Dependencies = []string{tasks[i-1].ID}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// generateSequential derives ordered phases from the description's
// enumeration and chains them with forward dependencies. Without a
// usable enumeration it falls back to the canonical phases.
func (g *generator) generateSequential() []*models.Task {
	steps := extractSteps(g.source.Description)
	if len(steps) < 2 {
		return g.generateGeneric()
	}
	if len(steps) > maxPhases {
		steps = steps[:maxPhases]
	}

	share := 1.0 / float64(len(steps))
	tasks := make([]*models.Task, 0, len(steps))
	for i, step := range steps {
		task := g.child(StrategySequential, step, step,
			fmt.Sprintf("Phase %d of %s", i+1, g.source.Title), i)
		g.setEffort(task, share)
		if i > 0 {
			task.Dependencies = []string{tasks[i-1].ID}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// generateParallel derives independent workstreams: enumerated items
// when present, otherwise the strongest extracted keywords.
func (g *generator) generateParallel(analysis Analysis) []*models.Task {
	components := extractSteps(g.source.Description)
	if len(components) < 2 {
		components = componentTitles(analysis.Keywords, analysis.RecommendedSubtasks)
	}
	if len(components) < 2 {
		components = []string{"Core implementation", "Interface wiring", "Validation and tests"}
	}
	if len(components) > maxPhases {
		components = components[:maxPhases]
	}

	share := 1.0 / float64(len(components))
	tasks := make([]*models.Task, 0, len(components))
	for i, component := range components {
		task := g.child(StrategyParallel, component, component,
			fmt.Sprintf("Independent workstream of %s", g.source.Title), i)
		g.setEffort(task, share)
		tasks = append(tasks, task)
	}
	return tasks
}

// generateHierarchical emits grouping tasks under the source with
// leaf work nested under each group.
func (g *generator) generateHierarchical() []*models.Task {
	groups := extractSteps(g.source.Description)
	if len(groups) < 2 {
		groups = []string{"Foundations", "Build-out", "Hardening"}
	}
	if len(groups) > maxPhases {
		groups = groups[:maxPhases]
	}

	groupShare := 1.0 / float64(len(groups))
	var tasks []*models.Task
	sequence := 0
	for _, group := range groups {
		parent := g.child(StrategyHierarchical, group, group,
			fmt.Sprintf("Grouping for %s", g.source.Title), sequence)
		g.setEffort(parent, groupShare)
		tasks = append(tasks, parent)
		sequence++

		leaves := []struct {
			title string
			share float64
		}{
			{fmt.Sprintf("Design %s", strings.ToLower(group)), 0.4},
			{fmt.Sprintf("Implement %s", strings.ToLower(group)), 0.6},
		}
		for _, leaf := range leaves {
			child := &models.Task{
				ID:          g.newID(),
				Type:        parent.Type.ChildType(),
				Level:       parent.Level + 1,
				Title:       leaf.title,
				Description: fmt.Sprintf("Part of %s", group),
				Status:      models.TaskStatusPending,
				Priority:    g.source.Priority,
				Complexity:  parent.Complexity.StepLower(),
				ParentID:    parent.ID,
				CreatedAt:   g.now,
				UpdatedAt:   g.now,
				Metadata: models.Metadata{
					Domain: g.source.Metadata.Domain,
					Generated: &models.Provenance{
						Strategy:     string(StrategyHierarchical),
						Component:    group,
						Sequence:     sequence,
						SourceTaskID: g.source.ID,
					},
				},
			}
			if g.source.EstimatedHours != nil {
				hours := *g.source.EstimatedHours * groupShare * leaf.share
				child.EstimatedHours = &hours
			}
			tasks = append(tasks, child)
			sequence++
		}
	}
	return tasks
}

// generateTemplate instantiates a matched template's sub-tasks.
func (g *generator) generateTemplate(tpl *Template) []*models.Task {
	tasks := make([]*models.Task, 0, len(tpl.Subtasks))
	for i, sub := range tpl.Subtasks {
		task := g.child(StrategyTemplate, tpl.Name, sub.Title, sub.Description, i)
		g.setEffort(task, sub.EffortShare)
		if tpl.Ordered && i > 0 {
			task.Dependencies = []string{tasks[i-1].ID}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// componentTitles turns extracted keywords into workstream titles.
func componentTitles(keywords []string, limit int) []string {
	if limit < 2 {
		limit = 2
	}
	var titles []string
	for _, kw := range keywords {
		if len(titles) >= limit {
			break
		}
		if len(kw) >= 4 || technicalTerms[kw] {
			titles = append(titles, fmt.Sprintf("Build %s component", kw))
		}
	}
	return titles
}
