package models

// TaskType classifies what kind of work item a task is.
type TaskType string

const (
	// TaskTypeEpic is a large body of work spanning many tasks.
	TaskTypeEpic TaskType = "epic"
	// TaskTypeFeature is a shippable unit of functionality.
	TaskTypeFeature TaskType = "feature"
	// TaskTypeStory is a user-facing slice of a feature.
	TaskTypeStory TaskType = "story"
	// TaskTypeTask is a concrete unit of work.
	TaskTypeTask TaskType = "task"
	// TaskTypeSubtask is a fragment of a task.
	TaskTypeSubtask TaskType = "subtask"
	// TaskTypeBug is a defect to fix.
	TaskTypeBug TaskType = "bug"
	// TaskTypeImprovement is incremental polish on existing behavior.
	TaskTypeImprovement TaskType = "improvement"
	// TaskTypeResearch is an investigation with an open-ended outcome.
	TaskTypeResearch TaskType = "research"
)

// TaskTypes returns all task types.
func TaskTypes() []TaskType {
	return []TaskType{TaskTypeEpic, TaskTypeFeature, TaskTypeStory, TaskTypeTask, TaskTypeSubtask, TaskTypeBug, TaskTypeImprovement, TaskTypeResearch}
}

// Valid returns true if the type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeEpic, TaskTypeFeature, TaskTypeStory, TaskTypeTask, TaskTypeSubtask, TaskTypeBug, TaskTypeImprovement, TaskTypeResearch:
		return true
	default:
		return false
	}
}

// ChildType returns the natural type for children generated under a
// task of this type. Epics break into features, features and stories
// into tasks, everything else into subtasks.
func (t TaskType) ChildType() TaskType {
	switch t {
	case TaskTypeEpic:
		return TaskTypeFeature
	case TaskTypeFeature, TaskTypeStory:
		return TaskTypeTask
	default:
		return TaskTypeSubtask
	}
}
