package manager

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/hierarchy"
	"github.com/gantrylabs/gantry/pkg/models"
)

const (
	// urgentWindow is how close a due date forces a task to urgent.
	urgentWindow = 72 * time.Hour
	// escalationWindow is how close a due date warrants attention.
	escalationWindow = 7 * 24 * time.Hour
	// heavyDependencyCount flags tasks whose dependency lists are
	// worth splitting.
	heavyDependencyCount = 5
	// dependentsForMedium and dependentsForHigh raise the priority
	// of tasks that block that many others.
	dependentsForMedium = 3
	dependentsForHigh   = 5
)

// RecommendationKind classifies a recommendation.
type RecommendationKind string

const (
	// RecommendPriorityEscalation flags under-prioritized tasks
	// with near deadlines.
	RecommendPriorityEscalation RecommendationKind = "priority-escalation"
	// RecommendDependencyOptimization flags tasks with heavy
	// dependency lists.
	RecommendDependencyOptimization RecommendationKind = "dependency-optimization"
	// RecommendTimelineAdjustment flags blocked tasks whose
	// dependencies are still open.
	RecommendTimelineAdjustment RecommendationKind = "timeline-adjustment"
)

// Recommendation is one suggested action on a task.
type Recommendation struct {
	// Kind classifies the suggestion.
	Kind RecommendationKind `json:"kind"`
	// TaskID is the task concerned.
	TaskID string `json:"taskId"`
	// Title is the task title, for display.
	Title string `json:"title"`
	// Detail explains the suggestion.
	Detail string `json:"detail"`
}

// Recommendations inspects the task set and suggests actions:
// escalation for near-due tasks still at low or medium priority,
// splitting for heavy dependency lists, and timeline review for
// blocked tasks with open dependencies. Terminal tasks are skipped.
func (m *Manager) Recommendations() []Recommendation {
	now := m.now()
	recs := []Recommendation{}
	for _, t := range m.registry.Snapshot() {
		if t.Status.Terminal() {
			continue
		}
		if t.DueDate != nil && t.DueDate.Sub(now) <= escalationWindow &&
			(t.Priority == models.PriorityLow || t.Priority == models.PriorityMedium) {
			recs = append(recs, Recommendation{
				Kind:   RecommendPriorityEscalation,
				TaskID: t.ID,
				Title:  t.Title,
				Detail: fmt.Sprintf("due %s at %s priority", humanDue(t.DueDate.Sub(now)), t.Priority),
			})
		}
		if len(t.Dependencies) > heavyDependencyCount {
			recs = append(recs, Recommendation{
				Kind:   RecommendDependencyOptimization,
				TaskID: t.ID,
				Title:  t.Title,
				Detail: fmt.Sprintf("%d dependencies, consider splitting the task", len(t.Dependencies)),
			})
		}
		if t.Status == models.TaskStatusBlocked {
			if open := m.openDependencies(t); len(open) > 0 {
				recs = append(recs, Recommendation{
					Kind:   RecommendTimelineAdjustment,
					TaskID: t.ID,
					Title:  t.Title,
					Detail: fmt.Sprintf("blocked on %s", strings.Join(open, ", ")),
				})
			}
		}
	}
	return recs
}

// openDependencies returns the ids of t's dependencies that are not
// completed yet.
func (m *Manager) openDependencies(t *models.Task) []string {
	var open []string
	for _, depID := range t.Dependencies {
		dep, ok := m.registry.Get(depID)
		if ok && dep.Status != models.TaskStatusCompleted {
			open = append(open, depID)
		}
	}
	return open
}

// humanDue renders a time-until-due in whole days.
func humanDue(until time.Duration) string {
	if until < 0 {
		return fmt.Sprintf("overdue by %dd", int((-until).Hours()/24))
	}
	return fmt.Sprintf("in %dd", int(until.Hours()/24))
}

// PriorityAdjustment records one automatic priority raise.
type PriorityAdjustment struct {
	// TaskID is the task adjusted.
	TaskID string `json:"taskId"`
	// From is the priority before the raise.
	From models.Priority `json:"from"`
	// To is the priority after the raise.
	To models.Priority `json:"to"`
	// Reason names the rule that fired.
	Reason string `json:"reason"`
}

// AutoAdjustPriorities raises priorities the deadline and dependency
// picture no longer justifies: due within three days forces urgent,
// due within a week lifts low to medium, and tasks blocking several
// others move up one band. Priorities are never lowered and terminal
// tasks are skipped. Each change publishes a priority-adjusted
// event; a final event carries the total count.
func (m *Manager) AutoAdjustPriorities() []PriorityAdjustment {
	now := m.now()
	var adjustments []PriorityAdjustment
	for _, t := range m.registry.Snapshot() {
		if t.Status.Terminal() {
			continue
		}
		target, reason := m.adjustmentFor(t, now)
		if target == "" || target.Ordinal() <= t.Priority.Ordinal() {
			continue
		}
		to := target
		updated, err := m.Update(t.ID, hierarchy.TaskUpdate{Priority: &to})
		if err != nil {
			log.Error().Err(err).Str("task_id", t.ID).Msg("priority adjustment failed")
			continue
		}
		adjustments = append(adjustments, PriorityAdjustment{
			TaskID: t.ID,
			From:   t.Priority,
			To:     to,
			Reason: reason,
		})
		m.publish(events.EventPriorityAdjusted, t.ID, t, updated, map[string]any{"reason": reason})
	}
	m.publish(events.EventAutomaticAdjustmentsCompleted, "", nil, nil, map[string]any{
		"adjustments": len(adjustments),
	})
	return adjustments
}

// adjustmentFor returns the strongest raise any rule produces for a
// task, or an empty priority when none fires.
func (m *Manager) adjustmentFor(t *models.Task, now time.Time) (models.Priority, string) {
	var target models.Priority
	var reason string
	raise := func(p models.Priority, why string) {
		if target == "" || p.Ordinal() > target.Ordinal() {
			target = p
			reason = why
		}
	}
	if t.DueDate != nil {
		until := t.DueDate.Sub(now)
		if until <= urgentWindow {
			raise(models.PriorityUrgent, "due within 3 days")
		} else if until <= escalationWindow && t.Priority == models.PriorityLow {
			raise(models.PriorityMedium, "due within 7 days")
		}
	}
	dependents := len(m.registry.Dependents(t.ID))
	if dependents >= dependentsForHigh && t.Priority == models.PriorityMedium {
		raise(models.PriorityHigh, fmt.Sprintf("blocks %d tasks", dependents))
	} else if dependents >= dependentsForMedium && t.Priority == models.PriorityLow {
		raise(models.PriorityMedium, fmt.Sprintf("blocks %d tasks", dependents))
	}
	return target, reason
}
