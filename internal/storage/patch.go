package storage

import (
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

// Patch is a partial task update. Nil fields are left alone; slices
// and metadata replace wholesale when non-nil. Clear flags unset
// optional fields that a pointer cannot distinguish from "untouched".
type Patch struct {
	Title          *string
	Description    *string
	Status         *models.TaskStatus
	Priority       *models.Priority
	Complexity     *models.Complexity
	Type           *models.TaskType
	EstimatedHours *float64
	ActualHours    *float64
	Progress       *int
	ParentID       *string
	Level          *int
	Dependencies   []string
	Tags           []string
	Assignee       *string
	DueDate        *time.Time
	CompletedAt    *time.Time
	Metadata       *models.Metadata

	// ClearDueDate removes the due date.
	ClearDueDate bool
	// ClearCompletedAt removes the completion timestamp.
	ClearCompletedAt bool
	// ClearEstimate removes the effort estimate.
	ClearEstimate bool
	// ClearActualHours removes the recorded actual effort.
	ClearActualHours bool
}

// Apply writes the populated fields onto the task and stamps
// UpdatedAt. The caller passes a copy it owns.
func (p Patch) Apply(task *models.Task, now time.Time) {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Status != nil {
		task.Status = *p.Status
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.Complexity != nil {
		task.Complexity = *p.Complexity
	}
	if p.Type != nil {
		task.Type = *p.Type
	}
	if p.EstimatedHours != nil {
		v := *p.EstimatedHours
		task.EstimatedHours = &v
	}
	if p.ActualHours != nil {
		v := *p.ActualHours
		task.ActualHours = &v
	}
	if p.Progress != nil {
		task.Progress = *p.Progress
	}
	if p.ParentID != nil {
		task.ParentID = *p.ParentID
	}
	if p.Level != nil {
		task.Level = *p.Level
	}
	if p.Dependencies != nil {
		task.Dependencies = append([]string(nil), p.Dependencies...)
	}
	if p.Tags != nil {
		task.Tags = append([]string(nil), p.Tags...)
	}
	if p.Assignee != nil {
		task.Assignee = *p.Assignee
	}
	if p.DueDate != nil {
		v := *p.DueDate
		task.DueDate = &v
	}
	if p.CompletedAt != nil {
		v := *p.CompletedAt
		task.CompletedAt = &v
	}
	if p.Metadata != nil {
		task.Metadata = p.Metadata.Clone()
	}

	if p.ClearDueDate {
		task.DueDate = nil
	}
	if p.ClearCompletedAt {
		task.CompletedAt = nil
	}
	if p.ClearEstimate {
		task.EstimatedHours = nil
	}
	if p.ClearActualHours {
		task.ActualHours = nil
	}

	task.UpdatedAt = now
}
