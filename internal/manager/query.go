package manager

import (
	"github.com/gantrylabs/gantry/internal/storage"
	"github.com/gantrylabs/gantry/pkg/models"
)

// List filters, sorts, and paginates the in-memory task set with the
// same query semantics the storage adapters apply.
func (m *Manager) List(q storage.Query) *storage.Page {
	all := m.registry.Snapshot()
	matched := make([]*models.Task, 0, len(all))
	for _, t := range all {
		if q.Matches(t) {
			matched = append(matched, t)
		}
	}
	storage.SortTasks(matched, q)
	return storage.Paginate(matched, q)
}
