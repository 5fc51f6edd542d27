package hierarchy

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

// DefaultMaxDepth bounds the parent/child hierarchy when no other
// limit is configured.
const DefaultMaxDepth = 10

// depthWarnRatio is the fraction of the depth limit past which
// validation raises a non-fatal warning.
const depthWarnRatio = 0.8

// dependencyWarnCount is the dependency count past which validation
// raises a non-fatal warning.
const dependencyWarnCount = 10

// Registry is the in-memory task table with its derived relationship
// indices. All getters return copies; callers never see the registry's
// own task structs. Mutating operations serialize on an internal lock,
// reads run concurrently.
type Registry struct {
	mu sync.RWMutex
	// tasks is the authoritative table, keyed by task ID.
	tasks map[string]*models.Task
	// children maps parent ID to the set of child IDs.
	children map[string]map[string]struct{}
	// parents maps child ID to parent ID.
	parents map[string]string

	maxDepth int
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxDepth overrides the hierarchy depth limit.
func WithMaxDepth(depth int) Option {
	return func(r *Registry) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tasks:    make(map[string]*models.Task),
		children: make(map[string]map[string]struct{}),
		parents:  make(map[string]string),
		maxDepth: DefaultMaxDepth,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxDepth returns the configured hierarchy depth limit.
func (r *Registry) MaxDepth() int {
	return r.maxDepth
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// AddTask validates and registers a task. The task's level is derived
// from its parent here; any caller-supplied level is overwritten.
func (r *Registry) AddTask(task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := task.Clone()
	if err := r.checkIDUnique(t, false); err != nil {
		return err
	}
	if err := r.checkParentExists(t); err != nil {
		return err
	}
	if err := r.checkDepth(t); err != nil {
		return err
	}
	if err := r.checkDependencies(t); err != nil {
		return err
	}

	t.Level = r.levelFor(t.ParentID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	r.tasks[t.ID] = t
	r.link(t.ParentID, t.ID)
	return nil
}

// RemoveTask deletes a task. Without cascade the call fails if the
// task has children. With cascade all descendants are removed
// depth-first before the task itself. Every removed ID is scrubbed
// from the dependency lists of the remaining tasks. Returns the IDs
// that were removed.
func (r *Registry) RemoveTask(id string, cascade bool) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[id]; !exists {
		return nil, taskerr.NotFound("remove_task", id)
	}
	if len(r.children[id]) > 0 && !cascade {
		return nil, taskerr.Validation("remove_task", id, taskerr.ErrHasChildren).
			WithMeta("child_count", strconv.Itoa(len(r.children[id])))
	}

	var removed []string
	var remove func(taskID string)
	remove = func(taskID string) {
		for _, childID := range r.childIDs(taskID) {
			remove(childID)
		}
		r.unlink(r.parents[taskID], taskID)
		delete(r.tasks, taskID)
		delete(r.parents, taskID)
		delete(r.children, taskID)
		removed = append(removed, taskID)
	}
	remove(id)

	r.scrubDependencies(removed)
	return removed, nil
}

// UpdateTask applies a partial update. A parent change moves the task
// between child sets atomically and recomputes levels for the whole
// moved subtree. Returns a copy of the updated task.
func (r *Registry) UpdateTask(id string, upd TaskUpdate) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.tasks[id]
	if !exists {
		return nil, taskerr.NotFound("update_task", id)
	}

	candidate := current.Clone()
	upd.Apply(candidate)

	parentChanged := upd.Parent != nil && *upd.Parent != current.ParentID
	if parentChanged {
		if err := r.checkReparent(id, candidate.ParentID); err != nil {
			return nil, err
		}
	}
	if upd.Dependencies != nil {
		if err := r.checkDependencies(candidate); err != nil {
			return nil, err
		}
	}

	now := r.now()
	candidate.UpdatedAt = now
	if upd.Status != nil {
		r.applyStatusTimestamps(current, candidate, now)
	}

	r.tasks[id] = candidate
	if parentChanged {
		r.unlink(current.ParentID, id)
		r.link(candidate.ParentID, id)
		r.relevel(id)
	}
	return candidate.Clone(), nil
}

// applyStatusTimestamps keeps CompletedAt consistent with status
// transitions into and out of the completed state.
func (r *Registry) applyStatusTimestamps(old, updated *models.Task, now time.Time) {
	switch {
	case updated.Status == models.TaskStatusCompleted && old.Status != models.TaskStatusCompleted:
		updated.CompletedAt = &now
		updated.Progress = 100
	case updated.Status != models.TaskStatusCompleted && old.Status == models.TaskStatusCompleted:
		updated.CompletedAt = nil
	}
}

// Get returns a copy of the task, or false if the ID is unknown.
func (r *Registry) Get(id string) (*models.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tasks[id]
	if !exists {
		return nil, false
	}
	return t.Clone(), true
}

// Snapshot returns copies of every task, ordered by creation time
// with ID as the tie-break.
func (r *Registry) Snapshot() []*models.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AllDescendants returns copies of every task below id, depth-first.
func (r *Registry) AllDescendants(id string) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.tasks[id]; !exists {
		return nil, taskerr.NotFound("all_descendants", id)
	}

	var out []*models.Task
	var walk func(taskID string)
	walk = func(taskID string) {
		for _, childID := range r.childIDs(taskID) {
			out = append(out, r.tasks[childID].Clone())
			walk(childID)
		}
	}
	walk(id)
	return out, nil
}

// ChildIDs returns the sorted child IDs of a task.
func (r *Registry) ChildIDs(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.childIDs(id)
}

// Dependents returns the IDs of tasks that list id as a dependency,
// computed on demand by scanning the dependency lists.
func (r *Registry) Dependents(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dependentsOf(id)
}

// Depth returns the hierarchy level of a task, or -1 if unknown.
func (r *Registry) Depth(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tasks[id]
	if !exists {
		return -1
	}
	return t.Level
}

// Graph builds a dependency graph over a snapshot of the registry.
func (r *Registry) Graph() (*DependencyGraph, error) {
	g := NewDependencyGraph()
	if err := g.Build(r.Snapshot()); err != nil {
		return nil, err
	}
	return g, nil
}

// Load replaces the registry contents wholesale, rebuilding all
// indices and validating the result. Used by import paths.
func (r *Registry) Load(tasks []*models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		if _, dup := staged[t.ID]; dup {
			return taskerr.Validation("load", t.ID, taskerr.ErrDuplicateID)
		}
		staged[t.ID] = t.Clone()
	}

	children := make(map[string]map[string]struct{})
	parents := make(map[string]string)
	for id, t := range staged {
		if t.ParentID == "" {
			continue
		}
		if _, exists := staged[t.ParentID]; !exists {
			return taskerr.Validation("load", id, taskerr.ErrParentNotFound).
				WithMeta("parent_id", t.ParentID)
		}
		parents[id] = t.ParentID
		set, ok := children[t.ParentID]
		if !ok {
			set = make(map[string]struct{})
			children[t.ParentID] = set
		}
		set[id] = struct{}{}
	}

	// Derive levels from the parent chains and reject depth overflow
	// or parent cycles.
	for id := range staged {
		level, ok := chainDepth(id, parents, len(staged))
		if !ok {
			return taskerr.Validation("load", id, taskerr.ErrCycleDetected).
				WithMeta("relation", "parent")
		}
		if level > r.maxDepth {
			return taskerr.Validation("load", id, taskerr.ErrMaxDepthExceeded).
				WithMeta("level", strconv.Itoa(level))
		}
		staged[id].Level = level
	}

	g := NewDependencyGraph()
	all := make([]*models.Task, 0, len(staged))
	for _, t := range staged {
		all = append(all, t)
	}
	if err := g.Build(all); err != nil {
		return taskerr.Validation("load", "", err)
	}

	r.tasks = staged
	r.children = children
	r.parents = parents
	return nil
}

// chainDepth walks the parent chain of id and returns its depth.
// Returns false if the chain does not terminate within limit hops,
// which means the parent relation has a cycle.
func chainDepth(id string, parents map[string]string, limit int) (int, bool) {
	depth := 0
	cur := id
	for {
		parent, ok := parents[cur]
		if !ok {
			return depth, true
		}
		depth++
		if depth > limit {
			return 0, false
		}
		cur = parent
	}
}

// levelFor returns the level a task would get under the given parent.
// Caller holds the lock.
func (r *Registry) levelFor(parentID string) int {
	if parentID == "" {
		return 0
	}
	if parent, exists := r.tasks[parentID]; exists {
		return parent.Level + 1
	}
	return 0
}

// link records the parent/child relation. Caller holds the lock.
func (r *Registry) link(parentID, childID string) {
	if parentID == "" {
		return
	}
	r.parents[childID] = parentID
	set, ok := r.children[parentID]
	if !ok {
		set = make(map[string]struct{})
		r.children[parentID] = set
	}
	set[childID] = struct{}{}
}

// unlink removes the parent/child relation. Caller holds the lock.
func (r *Registry) unlink(parentID, childID string) {
	delete(r.parents, childID)
	if parentID == "" {
		return
	}
	if set, ok := r.children[parentID]; ok {
		delete(set, childID)
		if len(set) == 0 {
			delete(r.children, parentID)
		}
	}
}

// childIDs returns sorted child IDs. Caller holds at least a read lock.
func (r *Registry) childIDs(id string) []string {
	set := r.children[id]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for childID := range set {
		out = append(out, childID)
	}
	sort.Strings(out)
	return out
}

// dependentsOf scans every dependency list for id. Caller holds at
// least a read lock.
func (r *Registry) dependentsOf(id string) []string {
	var out []string
	for taskID, t := range r.tasks {
		if t.DependsOn(id) {
			out = append(out, taskID)
		}
	}
	sort.Strings(out)
	return out
}

// scrubDependencies strips the removed IDs from every remaining
// task's dependency list. Caller holds the lock.
func (r *Registry) scrubDependencies(removed []string) {
	gone := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		gone[id] = struct{}{}
	}
	for _, t := range r.tasks {
		if len(t.Dependencies) == 0 {
			continue
		}
		kept := t.Dependencies[:0]
		for _, depID := range t.Dependencies {
			if _, dropped := gone[depID]; !dropped {
				kept = append(kept, depID)
			}
		}
		if len(kept) == 0 {
			t.Dependencies = nil
		} else {
			t.Dependencies = kept
		}
	}
}

// relevel recomputes levels for id's subtree after a reparent.
// Caller holds the lock.
func (r *Registry) relevel(id string) {
	t := r.tasks[id]
	t.Level = r.levelFor(t.ParentID)

	var walk func(taskID string)
	walk = func(taskID string) {
		parentLevel := r.tasks[taskID].Level
		for childID := range r.children[taskID] {
			r.tasks[childID].Level = parentLevel + 1
			walk(childID)
		}
	}
	walk(id)
}

// subtreeHeight returns the number of levels below id. Caller holds
// at least a read lock.
func (r *Registry) subtreeHeight(id string) int {
	height := 0
	for childID := range r.children[id] {
		if h := r.subtreeHeight(childID) + 1; h > height {
			height = h
		}
	}
	return height
}

