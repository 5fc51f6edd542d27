// Package models defines the task data model shared across the system.
package models

import (
	"errors"
	"fmt"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusBlocked indicates the task cannot proceed.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusCancelled indicates the task was abandoned.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusBlocked, TaskStatusCompleted, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status marks work that will not resume.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// Task represents a unit of work in the system.
type Task struct {
	// ID is the unique identifier for this task. Immutable after creation.
	ID string `json:"id"`
	// Type classifies the task (epic, feature, story, task, subtask, bug, improvement, research).
	Type TaskType `json:"type"`
	// Level is the hierarchy depth: 0 for roots, parent level + 1 otherwise.
	Level int `json:"level"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Priority is the current priority level.
	Priority Priority `json:"priority"`
	// Complexity is the assessed complexity bucket.
	Complexity Complexity `json:"complexity"`
	// EstimatedHours is the predicted effort, if one has been made.
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	// ActualHours is the recorded effort after completion, if known.
	ActualHours *float64 `json:"actual_hours,omitempty"`
	// Progress is the completion percentage, 0 to 100.
	Progress int `json:"progress"`
	// ParentID is the ID of the parent task, empty for roots.
	ParentID string `json:"parent_id,omitempty"`
	// Dependencies lists task IDs this task waits on.
	Dependencies []string `json:"dependencies,omitempty"`
	// Tags are free-form labels for filtering.
	Tags []string `json:"tags,omitempty"`
	// Assignee is who the task is assigned to, if anyone.
	Assignee string `json:"assignee,omitempty"`
	// DueDate is the deadline, if one is set.
	DueDate *time.Time `json:"due_date,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`
	// CompletedAt is when the task was completed, if applicable.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Metadata holds the extensible attribute bag.
	Metadata Metadata `json:"metadata,omitempty"`
	// Children holds directly nested tasks when a read requested
	// them. Derived on read, never persisted.
	Children []*Task `json:"children,omitempty"`
}

// Clone returns a deep copy of the task. Mutating the copy never
// affects the original.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Dependencies != nil {
		c.Dependencies = make([]string, len(t.Dependencies))
		copy(c.Dependencies, t.Dependencies)
	}
	if t.Tags != nil {
		c.Tags = make([]string, len(t.Tags))
		copy(c.Tags, t.Tags)
	}
	if t.EstimatedHours != nil {
		v := *t.EstimatedHours
		c.EstimatedHours = &v
	}
	if t.ActualHours != nil {
		v := *t.ActualHours
		c.ActualHours = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		c.DueDate = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	c.Metadata = t.Metadata.Clone()
	if t.Children != nil {
		c.Children = make([]*Task, len(t.Children))
		for i, child := range t.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// DependsOn returns true if the task lists id as a dependency.
func (t *Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// ErrEmptyTitle is returned when a task has no title.
var ErrEmptyTitle = errors.New("task title is required")

// Validate checks field-level constraints that do not require
// knowledge of other tasks.
func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > 200 {
		return fmt.Errorf("task title exceeds 200 characters: %d", len(t.Title))
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status: %q", t.Status)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("invalid task type: %q", t.Type)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority: %q", t.Priority)
	}
	if !t.Complexity.Valid() {
		return fmt.Errorf("invalid complexity: %q", t.Complexity)
	}
	if t.Progress < 0 || t.Progress > 100 {
		return fmt.Errorf("progress out of range [0,100]: %d", t.Progress)
	}
	return nil
}
