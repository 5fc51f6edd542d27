package hierarchy

import (
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

// TaskUpdate is a partial task mutation. Nil fields are left
// untouched; set fields replace the current value wholesale.
type TaskUpdate struct {
	// Title replaces the task title.
	Title *string
	// Description replaces the description.
	Description *string
	// Type replaces the task type.
	Type *models.TaskType
	// Status replaces the status. Transitions into completed stamp
	// CompletedAt and force progress to 100.
	Status *models.TaskStatus
	// Priority replaces the priority.
	Priority *models.Priority
	// Complexity replaces the complexity bucket.
	Complexity *models.Complexity
	// EstimatedHours replaces the effort estimate.
	EstimatedHours *float64
	// ActualHours replaces the recorded effort.
	ActualHours *float64
	// Progress replaces the completion percentage.
	Progress *int
	// Parent moves the task. Empty string makes it a root.
	Parent *string
	// Dependencies replaces the dependency list.
	Dependencies *[]string
	// Tags replaces the tag list.
	Tags *[]string
	// Assignee replaces the assignee.
	Assignee *string
	// DueDate replaces the deadline.
	DueDate *time.Time
	// ClearDueDate removes the deadline. Wins over DueDate.
	ClearDueDate bool
	// Metadata replaces the metadata bag.
	Metadata *models.Metadata
}

// IsZero returns true if the update changes nothing.
func (u TaskUpdate) IsZero() bool {
	return u.Title == nil && u.Description == nil && u.Type == nil && u.Status == nil &&
		u.Priority == nil && u.Complexity == nil && u.EstimatedHours == nil &&
		u.ActualHours == nil && u.Progress == nil && u.Parent == nil &&
		u.Dependencies == nil && u.Tags == nil && u.Assignee == nil &&
		u.DueDate == nil && !u.ClearDueDate && u.Metadata == nil
}

// Apply writes the set fields onto the task.
func (u TaskUpdate) Apply(t *models.Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Complexity != nil {
		t.Complexity = *u.Complexity
	}
	if u.EstimatedHours != nil {
		v := *u.EstimatedHours
		t.EstimatedHours = &v
	}
	if u.ActualHours != nil {
		v := *u.ActualHours
		t.ActualHours = &v
	}
	if u.Progress != nil {
		t.Progress = *u.Progress
	}
	if u.Parent != nil {
		t.ParentID = *u.Parent
	}
	if u.Dependencies != nil {
		deps := make([]string, len(*u.Dependencies))
		copy(deps, *u.Dependencies)
		t.Dependencies = deps
	}
	if u.Tags != nil {
		tags := make([]string, len(*u.Tags))
		copy(tags, *u.Tags)
		t.Tags = tags
	}
	if u.Assignee != nil {
		t.Assignee = *u.Assignee
	}
	if u.ClearDueDate {
		t.DueDate = nil
	} else if u.DueDate != nil {
		v := *u.DueDate
		t.DueDate = &v
	}
	if u.Metadata != nil {
		t.Metadata = u.Metadata.Clone()
	}
}
