package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/storage"
	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

const taskColumns = `id, type, level, title, description, status, priority, complexity,
	estimated_hours, actual_hours, progress, parent_id, dependencies, tags,
	assignee, due_date, created_at, updated_at, completed_at, metadata`

const taskPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

// CreateTask persists a new task. Duplicate ids are rejected.
func (s *Store) CreateTask(task *models.Task) (*models.Task, error) {
	if task == nil || task.ID == "" {
		return nil, taskerr.Validation("sqlite.create", "", storage.ErrMissingID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := task.Clone()
	stored.Children = nil

	err := s.transaction(func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRow("SELECT COUNT(1) FROM tasks WHERE id = ?", stored.ID).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return taskerr.Validation("sqlite.create", stored.ID, taskerr.ErrDuplicateID)
		}
		_, err := tx.Exec("INSERT INTO tasks ("+taskColumns+") VALUES ("+taskPlaceholders+")", taskArgs(stored)...)
		return err
	})
	if err != nil {
		if taskerr.IsValidation(err) {
			return nil, err
		}
		return nil, taskerr.Storage("sqlite.create", err)
	}
	return stored, nil
}

// UpdateTask applies a partial update inside one transaction, so the
// read-modify-write cannot interleave with another writer.
func (s *Store) UpdateTask(id string, patch storage.Patch) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated *models.Task
	err := s.transaction(func(tx *sql.Tx) error {
		row := tx.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
		task, err := scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			return taskerr.NotFound("sqlite.update", id)
		}
		if err != nil {
			return err
		}

		patch.Apply(task, s.now())
		args := append(taskArgs(task)[1:], task.ID)
		if _, err := tx.Exec(`
			UPDATE tasks SET
				type = ?, level = ?, title = ?, description = ?, status = ?,
				priority = ?, complexity = ?, estimated_hours = ?, actual_hours = ?,
				progress = ?, parent_id = ?, dependencies = ?, tags = ?, assignee = ?,
				due_date = ?, created_at = ?, updated_at = ?, completed_at = ?, metadata = ?
			WHERE id = ?
		`, args...); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		if taskerr.IsNotFound(err) {
			return nil, err
		}
		return nil, taskerr.Storage("sqlite.update", err)
	}
	return updated, nil
}

// DeleteTask removes a task and reports whether it existed.
func (s *Store) DeleteTask(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return false, taskerr.Storage("sqlite.delete", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, taskerr.Storage("sqlite.delete", err)
	}
	return affected > 0, nil
}

// GetTaskByID returns the task, or nil when absent.
func (s *Store) GetTaskByID(id string, includeChildren bool) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, taskerr.Storage("sqlite.get", err)
	}
	if includeChildren {
		children, err := s.childrenLocked(id)
		if err != nil {
			return nil, taskerr.Storage("sqlite.get", err)
		}
		task.Children = children
	}
	return task, nil
}

// GetTasks returns the page of tasks matching the query. The WHERE
// clause narrows the scan on indexed columns; Matches then makes the
// final call on every row, so both backends filter identically.
func (s *Store) GetTasks(q storage.Query) (*storage.Page, error) {
	s.mu.RLock()
	matched, err := s.queryTasks(q)
	s.mu.RUnlock()
	if err != nil {
		return nil, taskerr.Storage("sqlite.list", err)
	}

	storage.SortTasks(matched, q)
	return storage.Paginate(matched, q), nil
}

func (s *Store) queryTasks(q storage.Query) ([]*models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks"
	where, args := prefilter(q)
	if where != "" {
		query += " WHERE " + where
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matched []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		if q.Matches(task) {
			matched = append(matched, task)
		}
	}
	return matched, rows.Err()
}

// prefilter builds a WHERE clause for the filters that map directly
// to columns. It may keep rows the query rejects, never the reverse.
// Time bounds stay out: trimmed fractional seconds break the
// lexicographic comparison SQLite would apply to the text column.
func prefilter(q storage.Query) (string, []any) {
	var clauses []string
	var args []any

	if len(q.Status) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(q.Status))+")")
		for _, v := range q.Status {
			args = append(args, string(v))
		}
	}
	if len(q.Priority) > 0 {
		clauses = append(clauses, "priority IN ("+placeholders(len(q.Priority))+")")
		for _, v := range q.Priority {
			args = append(args, string(v))
		}
	}
	if len(q.Complexity) > 0 {
		clauses = append(clauses, "complexity IN ("+placeholders(len(q.Complexity))+")")
		for _, v := range q.Complexity {
			args = append(args, string(v))
		}
	}
	if len(q.Type) > 0 {
		clauses = append(clauses, "type IN ("+placeholders(len(q.Type))+")")
		for _, v := range q.Type {
			args = append(args, string(v))
		}
	}
	if q.Assignee != "" {
		clauses = append(clauses, "assignee = ?")
		args = append(args, q.Assignee)
	}
	if q.RootsOnly {
		clauses = append(clauses, "parent_id = ''")
	} else if q.ParentID != "" {
		clauses = append(clauses, "parent_id = ?")
		args = append(args, q.ParentID)
	}
	if q.Level != nil {
		clauses = append(clauses, "level = ?")
		args = append(args, *q.Level)
	}
	if q.MinProgress != nil {
		clauses = append(clauses, "progress >= ?")
		args = append(args, *q.MinProgress)
	}
	if q.MaxProgress != nil {
		clauses = append(clauses, "progress <= ?")
		args = append(args, *q.MaxProgress)
	}
	return strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// GetTaskChildren returns the direct children of a task.
func (s *Store) GetTaskChildren(parentID string) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children, err := s.childrenLocked(parentID)
	if err != nil {
		return nil, taskerr.Storage("sqlite.children", err)
	}
	return children, nil
}

func (s *Store) childrenLocked(parentID string) ([]*models.Task, error) {
	rows, err := s.db.Query("SELECT "+taskColumns+" FROM tasks WHERE parent_id = ?", parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	storage.SortTasks(children, storage.Query{SortBy: storage.SortByCreatedAt})
	return children, nil
}

// GetTaskTree returns the subtree rooted at rootID, descending at
// most depth child levels; depth < 0 means unlimited.
func (s *Store) GetTaskTree(rootID string, depth int) (*storage.TreeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.allTasks()
	if err != nil {
		return nil, taskerr.Storage("sqlite.tree", err)
	}

	var root *models.Task
	byParent := make(map[string][]*models.Task)
	for _, task := range all {
		if task.ID == rootID {
			root = task
		}
		if task.ParentID != "" {
			byParent[task.ParentID] = append(byParent[task.ParentID], task)
		}
	}
	if root == nil {
		return nil, taskerr.NotFound("sqlite.tree", rootID)
	}
	for _, kids := range byParent {
		storage.SortTasks(kids, storage.Query{SortBy: storage.SortByCreatedAt})
	}
	return storage.BuildTree(root, byParent, depth), nil
}

func (s *Store) allTasks() ([]*models.Task, error) {
	rows, err := s.db.Query("SELECT " + taskColumns + " FROM tasks")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ImportTasksFromJSON loads an export document into the database,
// overwriting tasks whose ids already exist. The whole import lands
// in one transaction or none of it does.
func (s *Store) ImportTasksFromJSON(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, taskerr.Storage("sqlite.import", err)
	}
	tasks, err := storage.DecodeTasks(data)
	if err != nil {
		return 0, taskerr.Validation("sqlite.import", "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.transaction(func(tx *sql.Tx) error {
		for _, task := range tasks {
			if task.ID == "" {
				return taskerr.Validation("sqlite.import", "", storage.ErrMissingID)
			}
			stored := task.Clone()
			stored.Children = nil
			if _, err := tx.Exec("INSERT OR REPLACE INTO tasks ("+taskColumns+") VALUES ("+taskPlaceholders+")", taskArgs(stored)...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if taskerr.IsValidation(err) {
			return 0, err
		}
		return 0, taskerr.Storage("sqlite.import", err)
	}

	log.Info().Str("path", path).Int("tasks", len(tasks)).Msg("tasks imported")
	return len(tasks), nil
}

// ExportTasksToJSON writes tasks matching the scope to path.
func (s *Store) ExportTasksToJSON(path string, scope storage.Query) (int, error) {
	s.mu.RLock()
	all, err := s.allTasks()
	s.mu.RUnlock()
	if err != nil {
		return 0, taskerr.Storage("sqlite.export", err)
	}

	var tasks []*models.Task
	for _, task := range all {
		if scope.Matches(task) {
			tasks = append(tasks, task)
		}
	}

	data, err := storage.EncodeTasks(tasks, s.now())
	if err != nil {
		return 0, taskerr.Storage("sqlite.export", err)
	}
	if err := storage.AtomicWrite(path, data); err != nil {
		return 0, taskerr.Storage("sqlite.export", err)
	}

	log.Info().Str("path", path).Int("tasks", len(tasks)).Msg("tasks exported")
	return len(tasks), nil
}

var _ storage.Adapter = (*Store)(nil)

// String identifies the backend in diagnostics.
func (s *Store) String() string {
	return fmt.Sprintf("sqlite(%s)", s.path)
}

// taskArgs lays out a task's column values in taskColumns order.
func taskArgs(task *models.Task) []any {
	return []any{
		task.ID,
		string(task.Type),
		task.Level,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		string(task.Complexity),
		nullFloat(task.EstimatedHours),
		nullFloat(task.ActualHours),
		task.Progress,
		task.ParentID,
		encodeStrings(task.Dependencies),
		encodeStrings(task.Tags),
		task.Assignee,
		nullTimeArg(task.DueDate),
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
		nullTimeArg(task.CompletedAt),
		encodeMetadata(task.Metadata),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one row laid out in taskColumns order.
func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t                    models.Task
		taskType, status     string
		priority, complexity string
		estimated, actual    sql.NullFloat64
		deps, tags, meta     sql.NullString
		due, completed       sql.NullString
		createdAt, updatedAt string
	)

	err := row.Scan(
		&t.ID, &taskType, &t.Level, &t.Title, &t.Description,
		&status, &priority, &complexity,
		&estimated, &actual, &t.Progress, &t.ParentID,
		&deps, &tags, &t.Assignee, &due,
		&createdAt, &updatedAt, &completed, &meta,
	)
	if err != nil {
		return nil, err
	}

	t.Type = models.TaskType(taskType)
	t.Status = models.TaskStatus(status)
	t.Priority = models.Priority(priority)
	t.Complexity = models.Complexity(complexity)
	if estimated.Valid {
		v := estimated.Float64
		t.EstimatedHours = &v
	}
	if actual.Valid {
		v := actual.Float64
		t.ActualHours = &v
	}
	if t.Dependencies, err = decodeStrings(deps); err != nil {
		return nil, fmt.Errorf("decode dependencies: %w", err)
	}
	if t.Tags, err = decodeStrings(tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if due.Valid {
		d, err := parseTime(due.String)
		if err != nil {
			return nil, fmt.Errorf("parse due_date: %w", err)
		}
		t.DueDate = &d
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if completed.Valid {
		c, err := parseTime(completed.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		t.CompletedAt = &c
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &t, nil
}

// encodeStrings stores a slice as a JSON array, or NULL when empty.
func encodeStrings(values []string) any {
	if len(values) == 0 {
		return nil
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func decodeStrings(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeMetadata stores the attribute bag as JSON, or NULL when
// nothing is set.
func encodeMetadata(m models.Metadata) any {
	if m.IsEmpty() {
		return nil
	}
	data, _ := json.Marshal(m)
	return string(data)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
