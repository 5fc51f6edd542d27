// Package jsonfile implements the persistence contract over a single
// JSON document. Every mutation rewrites the document through a temp
// file and rename, so the file on disk is always a complete snapshot.
package jsonfile

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/storage"
	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

func init() {
	storage.Register(storage.BackendJSONFile, func(path string) (storage.Adapter, error) {
		return Open(path)
	})
}

// Store holds all tasks in memory and mirrors every change to one
// JSON document. The in-memory map is replaced only after the write
// lands, so concurrent readers see pre- or post-state, never partial.
type Store struct {
	path  string
	mu    sync.RWMutex
	tasks map[string]*models.Task
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the document at path, or starts empty when the file
// does not exist yet.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:  path,
		tasks: make(map[string]*models.Task),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return taskerr.Storage("jsonfile.load", err)
	}

	tasks, err := storage.DecodeTasks(data)
	if err != nil {
		return taskerr.Storage("jsonfile.load", err)
	}
	for _, task := range tasks {
		s.tasks[task.ID] = task
	}
	log.Debug().Str("path", s.path).Int("tasks", len(s.tasks)).Msg("task document loaded")
	return nil
}

// persist writes the candidate state to disk. The caller swaps the
// in-memory map only on success.
func (s *Store) persist(candidate map[string]*models.Task) error {
	tasks := make([]*models.Task, 0, len(candidate))
	for _, task := range candidate {
		tasks = append(tasks, task)
	}
	data, err := storage.EncodeTasks(tasks, s.now())
	if err != nil {
		return err
	}
	return storage.AtomicWrite(s.path, data)
}

// withTask returns a copy of the live map with one task replaced.
func (s *Store) withTask(task *models.Task) map[string]*models.Task {
	candidate := make(map[string]*models.Task, len(s.tasks)+1)
	for id, t := range s.tasks {
		candidate[id] = t
	}
	candidate[task.ID] = task
	return candidate
}

// CreateTask persists a new task. Duplicate ids are rejected.
func (s *Store) CreateTask(task *models.Task) (*models.Task, error) {
	if task == nil || task.ID == "" {
		return nil, taskerr.Validation("jsonfile.create", "", storage.ErrMissingID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return nil, taskerr.Validation("jsonfile.create", task.ID, taskerr.ErrDuplicateID)
	}

	stored := task.Clone()
	stored.Children = nil
	candidate := s.withTask(stored)
	if err := s.persist(candidate); err != nil {
		return nil, taskerr.Storage("jsonfile.create", err)
	}
	s.tasks = candidate
	return stored.Clone(), nil
}

// UpdateTask applies a partial update and persists the result.
func (s *Store) UpdateTask(id string, patch storage.Patch) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[id]
	if !ok {
		return nil, taskerr.NotFound("jsonfile.update", id)
	}

	updated := existing.Clone()
	patch.Apply(updated, s.now())
	candidate := s.withTask(updated)
	if err := s.persist(candidate); err != nil {
		return nil, taskerr.Storage("jsonfile.update", err)
	}
	s.tasks = candidate
	return updated.Clone(), nil
}

// DeleteTask removes a task and reports whether it existed.
func (s *Store) DeleteTask(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}

	candidate := make(map[string]*models.Task, len(s.tasks))
	for tid, t := range s.tasks {
		if tid != id {
			candidate[tid] = t
		}
	}
	if err := s.persist(candidate); err != nil {
		return false, taskerr.Storage("jsonfile.delete", err)
	}
	s.tasks = candidate
	return true, nil
}

// GetTaskByID returns a copy of the task, or nil when absent.
func (s *Store) GetTaskByID(id string, includeChildren bool) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	out := task.Clone()
	if includeChildren {
		out.Children = s.childrenLocked(id)
	}
	return out, nil
}

// GetTasks returns the page of tasks matching the query.
func (s *Store) GetTasks(q storage.Query) (*storage.Page, error) {
	s.mu.RLock()
	matched := make([]*models.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if q.Matches(task) {
			matched = append(matched, task.Clone())
		}
	}
	s.mu.RUnlock()

	storage.SortTasks(matched, q)
	return storage.Paginate(matched, q), nil
}

// GetTaskChildren returns copies of the direct children of a task.
func (s *Store) GetTaskChildren(parentID string) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.childrenLocked(parentID), nil
}

func (s *Store) childrenLocked(parentID string) []*models.Task {
	var children []*models.Task
	for _, task := range s.tasks {
		if task.ParentID == parentID {
			children = append(children, task.Clone())
		}
	}
	storage.SortTasks(children, storage.Query{SortBy: storage.SortByCreatedAt})
	return children
}

// GetTaskTree returns the subtree rooted at rootID, descending at
// most depth child levels; depth < 0 means unlimited.
func (s *Store) GetTaskTree(rootID string, depth int) (*storage.TreeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root, ok := s.tasks[rootID]
	if !ok {
		return nil, taskerr.NotFound("jsonfile.tree", rootID)
	}

	byParent := make(map[string][]*models.Task)
	for _, task := range s.tasks {
		if task.ParentID != "" {
			byParent[task.ParentID] = append(byParent[task.ParentID], task)
		}
	}
	for _, kids := range byParent {
		storage.SortTasks(kids, storage.Query{SortBy: storage.SortByCreatedAt})
	}
	return storage.BuildTree(root, byParent, depth), nil
}

// ImportTasksFromJSON loads an export document into the store,
// overwriting tasks whose ids already exist. The whole import lands
// or none of it does.
func (s *Store) ImportTasksFromJSON(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, taskerr.Storage("jsonfile.import", err)
	}
	tasks, err := storage.DecodeTasks(data)
	if err != nil {
		return 0, taskerr.Validation("jsonfile.import", "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := make(map[string]*models.Task, len(s.tasks)+len(tasks))
	for id, t := range s.tasks {
		candidate[id] = t
	}
	for _, task := range tasks {
		if task.ID == "" {
			return 0, taskerr.Validation("jsonfile.import", "", storage.ErrMissingID)
		}
		stored := task.Clone()
		stored.Children = nil
		candidate[stored.ID] = stored
	}
	if err := s.persist(candidate); err != nil {
		return 0, taskerr.Storage("jsonfile.import", err)
	}
	s.tasks = candidate

	log.Info().Str("path", path).Int("tasks", len(tasks)).Msg("tasks imported")
	return len(tasks), nil
}

// ExportTasksToJSON writes tasks matching the scope to path.
func (s *Store) ExportTasksToJSON(path string, scope storage.Query) (int, error) {
	s.mu.RLock()
	var tasks []*models.Task
	for _, task := range s.tasks {
		if scope.Matches(task) {
			tasks = append(tasks, task.Clone())
		}
	}
	s.mu.RUnlock()

	data, err := storage.EncodeTasks(tasks, s.now())
	if err != nil {
		return 0, taskerr.Storage("jsonfile.export", err)
	}
	if err := storage.AtomicWrite(path, data); err != nil {
		return 0, taskerr.Storage("jsonfile.export", err)
	}

	log.Info().Str("path", path).Int("tasks", len(tasks)).Msg("tasks exported")
	return len(tasks), nil
}

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error {
	return nil
}

// Path returns the backing document path.
func (s *Store) Path() string {
	return s.path
}

var _ storage.Adapter = (*Store)(nil)

// String identifies the backend in diagnostics.
func (s *Store) String() string {
	return fmt.Sprintf("jsonfile(%s)", s.path)
}
