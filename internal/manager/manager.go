// Package manager is the task facade: the single entry point through
// which tasks are created, mutated, and removed. It keeps the
// in-memory hierarchy registry and the persistence adapter in step,
// records a bounded action timeline, and publishes an event for every
// committed mutation.
//
// Writes are serialized by one mutex and follow a persist-then-cache
// order: the adapter must confirm a mutation before the registry sees
// it, so a storage failure leaves the cache unchanged. When a
// mutation needs several adapter calls, a mid-flight failure undoes
// the calls that already landed.
package manager

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/hierarchy"
	"github.com/gantrylabs/gantry/internal/storage"
	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

// loadPageSize is the window used when reading the full task set out
// of storage at startup.
const loadPageSize = 500

// Manager coordinates the hierarchy registry, the storage adapter,
// and the event bus. All mutations go through it.
type Manager struct {
	mu       sync.Mutex
	registry *hierarchy.Registry
	store    storage.Adapter
	bus      *events.Bus
	timeline []TimelineEntry

	maxDepth int
	now      func() time.Time
	newID    func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides the id source for tasks created without
// one.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithBus substitutes a shared event bus.
func WithBus(bus *events.Bus) Option {
	return func(m *Manager) {
		if bus != nil {
			m.bus = bus
		}
	}
}

// WithMaxDepth overrides the hierarchy depth limit.
func WithMaxDepth(depth int) Option {
	return func(m *Manager) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

// New builds a manager over the adapter and loads the stored task
// set into the registry.
func New(store storage.Adapter, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, taskerr.Storage("manager.new", errors.New("nil storage adapter"))
	}
	m := &Manager{
		store:    store,
		bus:      events.NewBus(),
		maxDepth: hierarchy.DefaultMaxDepth,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.registry = m.newRegistry()

	tasks, err := allStoredTasks(store)
	if err != nil {
		return nil, err
	}
	if err := m.registry.Load(tasks); err != nil {
		return nil, err
	}
	if len(tasks) > 0 {
		log.Debug().Int("count", len(tasks)).Msg("loaded tasks from storage")
	}
	return m, nil
}

func (m *Manager) newRegistry() *hierarchy.Registry {
	return hierarchy.NewRegistry(
		hierarchy.WithMaxDepth(m.maxDepth),
		hierarchy.WithClock(m.now),
	)
}

// allStoredTasks pages through the adapter until it has everything.
func allStoredTasks(store storage.Adapter) ([]*models.Task, error) {
	var all []*models.Task
	for page := 1; ; page++ {
		p, err := store.GetTasks(storage.Query{Page: page, PageSize: loadPageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, p.Tasks...)
		if !p.HasMore {
			return all, nil
		}
	}
}

// Bus exposes the event bus for observer registration.
func (m *Manager) Bus() *events.Bus { return m.bus }

// Len returns the number of tasks.
func (m *Manager) Len() int { return m.registry.Len() }

// Close releases the storage adapter.
func (m *Manager) Close() error { return m.store.Close() }

// CreateRequest carries the caller-supplied fields for a new task.
// Zero values fall back to defaults: a generated id, type task, and
// medium priority and complexity.
type CreateRequest struct {
	ID             string
	Type           models.TaskType
	Title          string
	Description    string
	Priority       models.Priority
	Complexity     models.Complexity
	EstimatedHours *float64
	ParentID       string
	Dependencies   []string
	Tags           []string
	Assignee       string
	DueDate        *time.Time
	Metadata       models.Metadata
}

// Create validates, persists, and registers a new task, then
// publishes a task-created event. The task starts pending with zero
// progress; its level is derived from the parent.
func (m *Manager) Create(req CreateRequest) (*models.Task, error) {
	task, err := m.create(req)
	if err != nil {
		return nil, err
	}
	m.publish(events.EventTaskCreated, task.ID, nil, task.Clone(), nil)
	return task, nil
}

func (m *Manager) create(req CreateRequest) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	task := &models.Task{
		ID:           req.ID,
		Type:         req.Type,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Status:       models.TaskStatusPending,
		Priority:     req.Priority,
		Complexity:   req.Complexity,
		ParentID:     req.ParentID,
		Dependencies: append([]string(nil), req.Dependencies...),
		Tags:         append([]string(nil), req.Tags...),
		Assignee:     req.Assignee,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     req.Metadata.Clone(),
	}
	if req.EstimatedHours != nil {
		v := *req.EstimatedHours
		task.EstimatedHours = &v
	}
	if req.DueDate != nil {
		v := *req.DueDate
		task.DueDate = &v
	}
	if task.ID == "" {
		task.ID = m.newID()
	}
	if task.Type == "" {
		task.Type = models.TaskTypeTask
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Complexity == "" {
		task.Complexity = models.ComplexityMedium
	}
	task.Level = m.levelUnder(task.ParentID)

	if err := task.Validate(); err != nil {
		return nil, taskerr.Validation("manager.create", task.ID, err)
	}
	if _, exists := m.registry.Get(task.ID); exists {
		return nil, taskerr.Validation("manager.create", task.ID, taskerr.ErrDuplicateID)
	}
	vr := m.registry.ValidateTask(task)
	if !vr.Valid {
		return nil, vr.Errors[0]
	}
	for _, w := range vr.Warnings {
		log.Warn().Str("task_id", task.ID).Msg(w)
	}

	if _, err := m.store.CreateTask(task); err != nil {
		return nil, err
	}
	if err := m.registry.AddTask(task); err != nil {
		if _, derr := m.store.DeleteTask(task.ID); derr != nil {
			log.Error().Err(derr).Str("task_id", task.ID).Msg("orphaned row after failed registration")
		}
		return nil, err
	}
	m.record("created", task)
	log.Debug().Str("task_id", task.ID).Str("type", string(task.Type)).Msg("task created")
	return task, nil
}

// Update applies a partial update, persists it, commits it to the
// registry, and publishes a task-updated event carrying before and
// after snapshots. An empty update returns the current task
// untouched.
func (m *Manager) Update(id string, upd hierarchy.TaskUpdate) (*models.Task, error) {
	before, after, changed, err := m.update(id, upd)
	if err != nil {
		return nil, err
	}
	if changed {
		m.publish(events.EventTaskUpdated, id, before, after.Clone(), nil)
	}
	return after, nil
}

func (m *Manager) update(id string, upd hierarchy.TaskUpdate) (before, after *models.Task, changed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.registry.Get(id)
	if !ok {
		return nil, nil, false, taskerr.NotFound("manager.update", id)
	}
	if upd.IsZero() {
		return current, current, false, nil
	}
	if upd.Title != nil {
		trimmed := strings.TrimSpace(*upd.Title)
		upd.Title = &trimmed
	}

	candidate := current.Clone()
	upd.Apply(candidate)
	if err := candidate.Validate(); err != nil {
		return nil, nil, false, taskerr.Validation("manager.update", id, err)
	}
	reparent := upd.Parent != nil && *upd.Parent != current.ParentID
	if reparent {
		if err := m.registry.CheckReparent(id, *upd.Parent); err != nil {
			return nil, nil, false, err
		}
	}
	if upd.Dependencies != nil {
		if vr := m.registry.ValidateTask(candidate); !vr.Valid {
			return nil, nil, false, vr.Errors[0]
		}
	}

	patch := buildPatch(upd, current, m.now())
	if reparent {
		lvl := m.levelUnder(*upd.Parent)
		patch.Level = &lvl
	}
	if _, err := m.store.UpdateTask(id, patch); err != nil {
		return nil, nil, false, err
	}
	updated, err := m.registry.UpdateTask(id, upd)
	if err != nil {
		if _, rerr := m.store.UpdateTask(id, restorePatch(current)); rerr != nil {
			log.Error().Err(rerr).Str("task_id", id).Msg("row restore failed after rejected update")
		}
		return nil, nil, false, err
	}
	if reparent {
		m.persistSubtreeLevels(id)
	}
	m.record("updated", updated)
	return current, updated, true, nil
}

// Complete marks a task completed, optionally recording actual
// hours. Progress is forced to 100 and the completion time stamped.
func (m *Manager) Complete(id string, actualHours *float64) (*models.Task, error) {
	done := models.TaskStatusCompleted
	upd := hierarchy.TaskUpdate{Status: &done}
	if actualHours != nil {
		v := *actualHours
		upd.ActualHours = &v
	}
	return m.Update(id, upd)
}

// Delete removes a task. Without cascade a task that still has
// children is rejected; with cascade the whole subtree goes. Rows
// are deleted leaves first, and surviving tasks that depended on a
// removed id get their dependency lists rewritten. Returns the
// removed ids, parents before children.
func (m *Manager) Delete(id string, cascade bool) ([]string, error) {
	removed, err := m.delete(id, cascade)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(removed))
	for i, t := range removed {
		ids[i] = t.ID
		m.publish(events.EventTaskDeleted, t.ID, t, nil, nil)
	}
	return ids, nil
}

func (m *Manager) delete(id string, cascade bool) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	root, ok := m.registry.Get(id)
	if !ok {
		return nil, taskerr.NotFound("manager.delete", id)
	}
	if children := m.registry.ChildIDs(id); !cascade && len(children) > 0 {
		return nil, taskerr.Validation("manager.delete", id, taskerr.ErrHasChildren).
			WithMeta("child_count", strconv.Itoa(len(children)))
	}

	subtree := []*models.Task{root}
	if cascade {
		descendants, err := m.registry.AllDescendants(id)
		if err != nil {
			return nil, err
		}
		subtree = append(subtree, descendants...)
	}
	doomed := make(map[string]struct{}, len(subtree))
	for _, t := range subtree {
		doomed[t.ID] = struct{}{}
	}

	scrubbed, err := m.scrubStoredDependencies(subtree, doomed)
	if err != nil {
		return nil, err
	}

	var deleted []*models.Task
	undo := func() {
		for _, d := range deleted {
			if _, cerr := m.store.CreateTask(d); cerr != nil {
				log.Error().Err(cerr).Str("task_id", d.ID).Msg("row restore failed after aborted delete")
			}
		}
		m.revertScrubs(scrubbed)
	}
	for i := len(subtree) - 1; i >= 0; i-- {
		if _, err := m.store.DeleteTask(subtree[i].ID); err != nil {
			undo()
			return nil, err
		}
		deleted = append(deleted, subtree[i])
	}

	if _, err := m.registry.RemoveTask(id, cascade); err != nil {
		undo()
		return nil, err
	}
	for _, t := range subtree {
		m.record("deleted", t)
	}
	log.Debug().Str("task_id", id).Int("count", len(subtree)).Bool("cascade", cascade).Msg("task deleted")
	return subtree, nil
}

// depScrub remembers a survivor's dependency list before it was
// rewritten, so an aborted delete can put it back.
type depScrub struct {
	id      string
	oldDeps []string
}

// scrubStoredDependencies rewrites the stored dependency lists of
// tasks outside the doomed set that reference a task inside it. The
// registry applies the same rewrite when the removal commits.
func (m *Manager) scrubStoredDependencies(subtree []*models.Task, doomed map[string]struct{}) ([]depScrub, error) {
	var scrubbed []depScrub
	seen := make(map[string]struct{})
	for _, t := range subtree {
		for _, depID := range m.registry.Dependents(t.ID) {
			if _, gone := doomed[depID]; gone {
				continue
			}
			if _, done := seen[depID]; done {
				continue
			}
			seen[depID] = struct{}{}
			survivor, ok := m.registry.Get(depID)
			if !ok {
				continue
			}
			kept := []string{}
			for _, dep := range survivor.Dependencies {
				if _, gone := doomed[dep]; !gone {
					kept = append(kept, dep)
				}
			}
			if _, err := m.store.UpdateTask(depID, storage.Patch{Dependencies: kept}); err != nil {
				m.revertScrubs(scrubbed)
				return nil, err
			}
			scrubbed = append(scrubbed, depScrub{id: depID, oldDeps: survivor.Dependencies})
		}
	}
	return scrubbed, nil
}

func (m *Manager) revertScrubs(scrubbed []depScrub) {
	for _, s := range scrubbed {
		deps := append([]string{}, s.oldDeps...)
		if _, err := m.store.UpdateTask(s.id, storage.Patch{Dependencies: deps}); err != nil {
			log.Error().Err(err).Str("task_id", s.id).Msg("dependency restore failed")
		}
	}
}

// Task returns a copy of the task, or a not-found error.
func (m *Manager) Task(id string) (*models.Task, error) {
	task, ok := m.registry.Get(id)
	if !ok {
		return nil, taskerr.NotFound("manager.get", id)
	}
	return task, nil
}

// Children returns copies of the direct children, sorted by creation
// time.
func (m *Manager) Children(id string) ([]*models.Task, error) {
	if _, ok := m.registry.Get(id); !ok {
		return nil, taskerr.NotFound("manager.children", id)
	}
	children := make([]*models.Task, 0)
	for _, childID := range m.registry.ChildIDs(id) {
		if child, ok := m.registry.Get(childID); ok {
			children = append(children, child)
		}
	}
	storage.SortTasks(children, storage.Query{SortBy: storage.SortByCreatedAt})
	return children, nil
}

// Hierarchy returns the annotated subtree rooted at id.
func (m *Manager) Hierarchy(id string) (*hierarchy.TreeNode, error) {
	return m.registry.Hierarchy(id)
}

// Descendants returns every task below id, parents before children.
func (m *Manager) Descendants(id string) ([]*models.Task, error) {
	return m.registry.AllDescendants(id)
}

// Snapshot returns a copy of every task, ordered by creation time.
func (m *Manager) Snapshot() []*models.Task {
	return m.registry.Snapshot()
}

// Dependents returns the ids that list id as a dependency.
func (m *Manager) Dependents(id string) []string {
	return m.registry.Dependents(id)
}

// Graph builds the dependency graph over the current task set.
func (m *Manager) Graph() (*hierarchy.DependencyGraph, error) {
	return m.registry.Graph()
}

// publish emits one event on the bus. The bus isolates observer
// failures from the caller.
func (m *Manager) publish(t events.EventType, taskID string, before, after *models.Task, payload map[string]any) {
	m.bus.Publish(events.Event{
		Type:      t,
		TaskID:    taskID,
		Before:    before,
		After:     after,
		Payload:   payload,
		Timestamp: m.now(),
	})
}

// levelUnder derives the level a task takes beneath parentID.
func (m *Manager) levelUnder(parentID string) int {
	if parentID == "" {
		return 0
	}
	parent, ok := m.registry.Get(parentID)
	if !ok {
		return 0
	}
	return parent.Level + 1
}

// persistSubtreeLevels pushes re-derived descendant levels to the
// store after a reparent. Failures are logged, not fatal: levels are
// derived from the parent chain and rebuilt on every load.
func (m *Manager) persistSubtreeLevels(id string) {
	descendants, err := m.registry.AllDescendants(id)
	if err != nil {
		return
	}
	for _, d := range descendants {
		lvl := d.Level
		if _, err := m.store.UpdateTask(d.ID, storage.Patch{Level: &lvl}); err != nil {
			log.Error().Err(err).Str("task_id", d.ID).Msg("level sync failed")
		}
	}
}

// buildPatch translates a task update into the storage patch that
// produces the same row the registry will hold, including the
// completion stamps a status transition derives.
func buildPatch(upd hierarchy.TaskUpdate, current *models.Task, now time.Time) storage.Patch {
	p := storage.Patch{
		Title:          upd.Title,
		Description:    upd.Description,
		Status:         upd.Status,
		Priority:       upd.Priority,
		Complexity:     upd.Complexity,
		Type:           upd.Type,
		EstimatedHours: upd.EstimatedHours,
		ActualHours:    upd.ActualHours,
		Progress:       upd.Progress,
		ParentID:       upd.Parent,
		Assignee:       upd.Assignee,
		DueDate:        upd.DueDate,
		ClearDueDate:   upd.ClearDueDate,
		Metadata:       upd.Metadata,
	}
	if upd.Dependencies != nil {
		p.Dependencies = append([]string{}, (*upd.Dependencies)...)
	}
	if upd.Tags != nil {
		p.Tags = append([]string{}, (*upd.Tags)...)
	}
	if upd.Status != nil {
		switch {
		case *upd.Status == models.TaskStatusCompleted && current.Status != models.TaskStatusCompleted:
			done := now
			full := 100
			p.CompletedAt = &done
			p.Progress = &full
		case *upd.Status != models.TaskStatusCompleted && current.Status == models.TaskStatusCompleted:
			p.ClearCompletedAt = true
		}
	}
	return p
}

// restorePatch rebuilds the stored row from a snapshot, touching
// every column so a partially applied patch cannot survive.
func restorePatch(t *models.Task) storage.Patch {
	meta := t.Metadata.Clone()
	p := storage.Patch{
		Title:        &t.Title,
		Description:  &t.Description,
		Status:       &t.Status,
		Priority:     &t.Priority,
		Complexity:   &t.Complexity,
		Type:         &t.Type,
		Progress:     &t.Progress,
		ParentID:     &t.ParentID,
		Level:        &t.Level,
		Dependencies: append([]string{}, t.Dependencies...),
		Tags:         append([]string{}, t.Tags...),
		Assignee:     &t.Assignee,
		Metadata:     &meta,
	}
	if t.EstimatedHours != nil {
		p.EstimatedHours = t.EstimatedHours
	} else {
		p.ClearEstimate = true
	}
	if t.ActualHours != nil {
		p.ActualHours = t.ActualHours
	} else {
		p.ClearActualHours = true
	}
	if t.DueDate != nil {
		p.DueDate = t.DueDate
	} else {
		p.ClearDueDate = true
	}
	if t.CompletedAt != nil {
		p.CompletedAt = t.CompletedAt
	} else {
		p.ClearCompletedAt = true
	}
	return p
}
