// Package events delivers task lifecycle notifications to registered
// observers synchronously and in registration order.
package events

import (
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

// EventType represents the kind of lifecycle event.
type EventType string

const (
	// EventTaskCreated fires after a task is created.
	EventTaskCreated EventType = "taskCreated"
	// EventTaskUpdated fires after a task is modified.
	EventTaskUpdated EventType = "taskUpdated"
	// EventTaskDeleted fires after a task is removed.
	EventTaskDeleted EventType = "taskDeleted"
	// EventTaskDecomposed fires after a task is split into sub-tasks.
	EventTaskDecomposed EventType = "taskDecomposed"
	// EventPriorityAdjusted fires after a task's priority is changed
	// by the scorer.
	EventPriorityAdjusted EventType = "priorityAdjusted"
	// EventAutomaticAdjustmentsCompleted fires after a full
	// auto-adjustment pass over the task set.
	EventAutomaticAdjustmentsCompleted EventType = "automaticAdjustmentsCompleted"
	// EventLearningCycleCompleted fires after a full training pass.
	EventLearningCycleCompleted EventType = "learningCycleCompleted"
	// EventTaskCompletionRecorded fires after a completion is fed to
	// the learning engine.
	EventTaskCompletionRecorded EventType = "taskCompletionRecorded"
)

// Event is one lifecycle notification. Before and After carry task
// snapshots where the event has a meaningful transition; aggregate
// events use Payload instead.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the affected task, if the event concerns
	// a single task.
	TaskID string
	// Before is the task state prior to the change, if applicable.
	Before *models.Task
	// After is the task state following the change, if applicable.
	After *models.Task
	// Payload carries event-specific aggregate data.
	Payload map[string]any
	// Timestamp is when the event was emitted.
	Timestamp time.Time
}
