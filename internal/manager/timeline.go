package manager

import (
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

// timelineCapacity bounds the retained action history.
const timelineCapacity = 1000

// TimelineEntry is one recorded mutation.
type TimelineEntry struct {
	// Action is what happened: created, updated, or deleted.
	Action string `json:"action"`
	// TaskID is the task acted on.
	TaskID string `json:"taskId"`
	// Title is the task title at the time of the action.
	Title string `json:"title"`
	// Timestamp is when the action committed.
	Timestamp time.Time `json:"timestamp"`
}

// record appends a timeline entry, dropping the oldest entries once
// the capacity is reached. Caller holds the mutation lock.
func (m *Manager) record(action string, task *models.Task) {
	m.timeline = append(m.timeline, TimelineEntry{
		Action:    action,
		TaskID:    task.ID,
		Title:     task.Title,
		Timestamp: m.now(),
	})
	if len(m.timeline) > timelineCapacity {
		m.timeline = m.timeline[len(m.timeline)-timelineCapacity:]
	}
}

// Timeline returns the most recent entries, newest first. A
// non-positive limit returns everything retained.
func (m *Manager) Timeline(limit int) []TimelineEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.timeline)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]TimelineEntry, limit)
	for i := 0; i < limit; i++ {
		out[i] = m.timeline[n-1-i]
	}
	return out
}
