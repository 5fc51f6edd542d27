// Package storage defines the persistence adapter contract and the
// pieces shared by every backend: the query model, partial updates,
// the import/export codec, and the backend factory. Exactly one
// adapter is active per process; callers select it through Open and
// never import a backend package directly.
package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gantrylabs/gantry/pkg/models"
)

// Backend names understood by Open. Each backend package registers
// itself on import, the way database/sql drivers do.
const (
	// BackendJSONFile stores tasks in one JSON document rewritten
	// atomically on every mutation.
	BackendJSONFile = "jsonfile"
	// BackendSQLite stores tasks in a SQLite database.
	BackendSQLite = "sqlite"
)

// ErrMissingID rejects tasks without an id. Backends return it
// wrapped in a validation error.
var ErrMissingID = errors.New("task id is required")

// Config selects and locates a backend.
type Config struct {
	// Backend names the adapter implementation.
	Backend string `mapstructure:"backend"`
	// Path is the backing file for the chosen backend.
	Path string `mapstructure:"path"`
}

// Adapter is the persistence contract consumed by the task facade.
// Implementations are safe for concurrent use.
type Adapter interface {
	// CreateTask persists a fully populated task. The id must be
	// unique; a duplicate is a validation error.
	CreateTask(task *models.Task) (*models.Task, error)
	// UpdateTask applies a partial update and returns the stored
	// result. Absent ids are a not-found error.
	UpdateTask(id string, patch Patch) (*models.Task, error)
	// DeleteTask removes a task and reports whether it existed.
	DeleteTask(id string) (bool, error)
	// GetTaskByID returns the task, or nil without error when
	// absent. With includeChildren the direct children are attached.
	GetTaskByID(id string, includeChildren bool) (*models.Task, error)
	// GetTasks returns the page of tasks matching the query.
	GetTasks(q Query) (*Page, error)
	// GetTaskChildren returns the direct children of a task.
	GetTaskChildren(parentID string) ([]*models.Task, error)
	// GetTaskTree returns the subtree rooted at rootID, descending
	// at most depth child levels; depth < 0 means unlimited.
	GetTaskTree(rootID string, depth int) (*TreeNode, error)
	// ImportTasksFromJSON loads an export document, overwriting
	// tasks whose ids already exist, and returns the count read.
	ImportTasksFromJSON(path string) (int, error)
	// ExportTasksToJSON writes matching tasks as an export document
	// and returns the count written. An empty scope exports all.
	ExportTasksToJSON(path string, scope Query) (int, error)
	// Close releases the backend's resources.
	Close() error
}

// Page is one window of a task listing.
type Page struct {
	// Tasks are the tasks on this page, in query order.
	Tasks []*models.Task `json:"tasks"`
	// Total is the number of tasks matching the query overall.
	Total int `json:"total"`
	// Page is the 1-based page number.
	Page int `json:"page"`
	// PageSize is the window size used.
	PageSize int `json:"pageSize"`
	// HasMore reports whether pages remain after this one.
	HasMore bool `json:"hasMore"`
}

// TreeNode is one node of a recursive task tree.
type TreeNode struct {
	// Task is the node's task.
	Task *models.Task `json:"task"`
	// Children are the node's subtrees.
	Children []*TreeNode `json:"children,omitempty"`
}

// OpenFunc constructs an adapter for a path.
type OpenFunc func(path string) (Adapter, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]OpenFunc)
)

// Register makes a backend available to Open. Backend packages call
// it from init; registering the same name twice panics.
func Register(name string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if open == nil {
		panic("storage: Register with nil OpenFunc")
	}
	if _, dup := backends[name]; dup {
		panic("storage: Register called twice for backend " + name)
	}
	backends[name] = open
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open constructs the adapter selected by the config.
func Open(cfg Config) (Adapter, error) {
	backendsMu.RLock()
	open, ok := backends[cfg.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown storage backend %q (registered: %v)", cfg.Backend, Backends())
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage backend %q needs a path", cfg.Backend)
	}
	return open(cfg.Path)
}
