package manager

import (
	"github.com/gantrylabs/gantry/pkg/models"
)

// Stats summarizes the task set.
type Stats struct {
	// Total is the number of tasks.
	Total int `json:"total"`
	// ByStatus counts tasks per status.
	ByStatus map[models.TaskStatus]int `json:"byStatus"`
	// ByPriority counts tasks per priority.
	ByPriority map[models.Priority]int `json:"byPriority"`
	// ByType counts tasks per type.
	ByType map[models.TaskType]int `json:"byType"`
	// ByComplexity counts tasks per complexity bucket.
	ByComplexity map[models.Complexity]int `json:"byComplexity"`
	// AverageProgress is the mean progress percentage.
	AverageProgress float64 `json:"averageProgress"`
	// CompletionRate is the completed fraction, 0 to 1.
	CompletionRate float64 `json:"completionRate"`
	// GeneratedShare is the fraction carrying decomposition
	// provenance, 0 to 1.
	GeneratedShare float64 `json:"generatedShare"`
	// Overdue counts non-terminal tasks past their due date.
	Overdue int `json:"overdue"`
}

// Stats aggregates counts and rates over the current task set.
func (m *Manager) Stats() Stats {
	tasks := m.registry.Snapshot()
	s := Stats{
		Total:        len(tasks),
		ByStatus:     make(map[models.TaskStatus]int),
		ByPriority:   make(map[models.Priority]int),
		ByType:       make(map[models.TaskType]int),
		ByComplexity: make(map[models.Complexity]int),
	}
	if s.Total == 0 {
		return s
	}

	now := m.now()
	var progressSum, completed, generated int
	for _, t := range tasks {
		s.ByStatus[t.Status]++
		s.ByPriority[t.Priority]++
		s.ByType[t.Type]++
		s.ByComplexity[t.Complexity]++
		progressSum += t.Progress
		if t.Status == models.TaskStatusCompleted {
			completed++
		}
		if t.Metadata.Generated != nil {
			generated++
		}
		if t.DueDate != nil && t.DueDate.Before(now) && !t.Status.Terminal() {
			s.Overdue++
		}
	}
	s.AverageProgress = float64(progressSum) / float64(s.Total)
	s.CompletionRate = float64(completed) / float64(s.Total)
	s.GeneratedShare = float64(generated) / float64(s.Total)
	return s
}
