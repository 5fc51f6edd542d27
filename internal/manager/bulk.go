package manager

import (
	"errors"

	"github.com/gantrylabs/gantry/internal/hierarchy"
	"github.com/gantrylabs/gantry/internal/taskerr"
)

// BulkOutcome pairs a task id with the result of one bulk step.
type BulkOutcome struct {
	// TaskID is the task the step targeted.
	TaskID string `json:"taskId"`
	// Result reports success or the structured failure.
	Result taskerr.Result `json:"result"`
}

// BulkUpdate applies the same update to each id, continuing past
// failures. The outcome slice parallels ids.
func (m *Manager) BulkUpdate(ids []string, upd hierarchy.TaskUpdate) []BulkOutcome {
	out := make([]BulkOutcome, 0, len(ids))
	for _, id := range ids {
		_, err := m.Update(id, upd)
		out = append(out, BulkOutcome{TaskID: id, Result: resultFor(err)})
	}
	return out
}

// BulkDelete removes each id, continuing past failures. An earlier
// cascade may already have taken a later id with it; that id then
// reports not found.
func (m *Manager) BulkDelete(ids []string, cascade bool) []BulkOutcome {
	out := make([]BulkOutcome, 0, len(ids))
	for _, id := range ids {
		_, err := m.Delete(id, cascade)
		out = append(out, BulkOutcome{TaskID: id, Result: resultFor(err)})
	}
	return out
}

// BulkMove reparents each id under newParentID, continuing past
// failures. An empty parent makes the tasks roots.
func (m *Manager) BulkMove(ids []string, newParentID string) []BulkOutcome {
	out := make([]BulkOutcome, 0, len(ids))
	for _, id := range ids {
		parent := newParentID
		_, err := m.Update(id, hierarchy.TaskUpdate{Parent: &parent})
		out = append(out, BulkOutcome{TaskID: id, Result: resultFor(err)})
	}
	return out
}

// resultFor wraps an operation error as a structured outcome.
func resultFor(err error) taskerr.Result {
	if err == nil {
		return taskerr.OK()
	}
	var te *taskerr.Error
	if errors.As(err, &te) {
		return taskerr.Fail(te)
	}
	return taskerr.Fail(taskerr.Storage("manager.bulk", err))
}
