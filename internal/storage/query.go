package storage

import (
	"sort"
	"strings"
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

// DefaultPageSize is used when a query names no page size.
const DefaultPageSize = 50

// SortField names a sortable task attribute.
type SortField string

// Sortable fields. Priority and complexity sort by their ordinal
// rank, not alphabetically.
const (
	SortByCreatedAt  SortField = "created_at"
	SortByUpdatedAt  SortField = "updated_at"
	SortByDueDate    SortField = "due_date"
	SortByTitle      SortField = "title"
	SortByStatus     SortField = "status"
	SortByPriority   SortField = "priority"
	SortByComplexity SortField = "complexity"
	SortByProgress   SortField = "progress"
	SortByLevel      SortField = "level"
)

// SortOrder is a sort direction.
type SortOrder string

// Sort directions.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Query filters, orders, and paginates a task listing. All populated
// criteria must match (AND logic). The zero Query matches everything.
type Query struct {
	// Status keeps tasks in any of the listed statuses.
	Status []models.TaskStatus
	// Priority keeps tasks at any of the listed priorities.
	Priority []models.Priority
	// Complexity keeps tasks in any of the listed buckets.
	Complexity []models.Complexity
	// Type keeps tasks of any of the listed types.
	Type []models.TaskType
	// Assignee keeps tasks assigned to exactly this assignee.
	Assignee string
	// Tags keeps tasks carrying every listed tag.
	Tags []string
	// RootsOnly keeps tasks without a parent.
	RootsOnly bool
	// ParentID keeps direct children of this task. Ignored when
	// RootsOnly is set.
	ParentID string
	// Level keeps tasks at exactly this hierarchy depth.
	Level *int
	// MinProgress and MaxProgress bound the progress percentage.
	MinProgress *int
	MaxProgress *int
	// CreatedAfter and CreatedBefore bound the creation time.
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	// DueAfter and DueBefore bound the due date. A task without a
	// due date fails any due bound.
	DueAfter  *time.Time
	DueBefore *time.Time

	// SortBy orders the listing; unset means creation time.
	SortBy SortField
	// SortOrder is the direction; unset means ascending.
	SortOrder SortOrder
	// ThenBy breaks ties between equal primary keys.
	ThenBy SortField

	// Page is the 1-based page to return; unset means the first.
	Page int
	// PageSize is the window size; unset means DefaultPageSize.
	PageSize int
}

// Matches reports whether the task passes every populated filter.
func (q Query) Matches(task *models.Task) bool {
	if len(q.Status) > 0 && !containsStatus(q.Status, task.Status) {
		return false
	}
	if len(q.Priority) > 0 && !containsPriority(q.Priority, task.Priority) {
		return false
	}
	if len(q.Complexity) > 0 && !containsComplexity(q.Complexity, task.Complexity) {
		return false
	}
	if len(q.Type) > 0 && !containsType(q.Type, task.Type) {
		return false
	}
	if q.Assignee != "" && task.Assignee != q.Assignee {
		return false
	}
	if len(q.Tags) > 0 && !hasAllTags(task.Tags, q.Tags) {
		return false
	}
	if q.RootsOnly {
		if task.ParentID != "" {
			return false
		}
	} else if q.ParentID != "" && task.ParentID != q.ParentID {
		return false
	}
	if q.Level != nil && task.Level != *q.Level {
		return false
	}
	if q.MinProgress != nil && task.Progress < *q.MinProgress {
		return false
	}
	if q.MaxProgress != nil && task.Progress > *q.MaxProgress {
		return false
	}
	if q.CreatedAfter != nil && task.CreatedAt.Before(*q.CreatedAfter) {
		return false
	}
	if q.CreatedBefore != nil && task.CreatedAt.After(*q.CreatedBefore) {
		return false
	}
	if q.DueAfter != nil && (task.DueDate == nil || task.DueDate.Before(*q.DueAfter)) {
		return false
	}
	if q.DueBefore != nil && (task.DueDate == nil || task.DueDate.After(*q.DueBefore)) {
		return false
	}
	return true
}

// SortTasks orders tasks in place by the query's sort spec: primary
// field, optional secondary field, then id so the order is total.
func SortTasks(tasks []*models.Task, q Query) {
	field := q.SortBy
	if field == "" {
		field = SortByCreatedAt
	}
	desc := q.SortOrder == SortDesc

	sort.SliceStable(tasks, func(i, j int) bool {
		c := compareTasks(tasks[i], tasks[j], field)
		if c == 0 && q.ThenBy != "" && q.ThenBy != field {
			c = compareTasks(tasks[i], tasks[j], q.ThenBy)
		}
		if c == 0 {
			c = strings.Compare(tasks[i].ID, tasks[j].ID)
			// The id tie-break keeps a fixed direction so pages
			// stay stable under either order.
			return c < 0
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// Paginate slices the sorted listing into the requested page.
func Paginate(tasks []*models.Task, q Query) *Page {
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = DefaultPageSize
	}

	total := len(tasks)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	window := make([]*models.Task, end-start)
	copy(window, tasks[start:end])
	return &Page{
		Tasks:    window,
		Total:    total,
		Page:     page,
		PageSize: size,
		HasMore:  end < total,
	}
}

// compareTasks orders a against b on one field: -1, 0, or 1.
func compareTasks(a, b *models.Task, field SortField) int {
	switch field {
	case SortByCreatedAt:
		return compareTime(a.CreatedAt, b.CreatedAt)
	case SortByUpdatedAt:
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	case SortByDueDate:
		// Tasks without a due date sort last.
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		default:
			return compareTime(*a.DueDate, *b.DueDate)
		}
	case SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case SortByPriority:
		return compareInt(a.Priority.Ordinal(), b.Priority.Ordinal())
	case SortByComplexity:
		return compareInt(a.Complexity.Ordinal(), b.Complexity.Ordinal())
	case SortByProgress:
		return compareInt(a.Progress, b.Progress)
	case SortByLevel:
		return compareInt(a.Level, b.Level)
	default:
		return compareTime(a.CreatedAt, b.CreatedAt)
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func containsStatus(list []models.TaskStatus, v models.TaskStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(list []models.Priority, v models.Priority) bool {
	for _, p := range list {
		if p == v {
			return true
		}
	}
	return false
}

func containsComplexity(list []models.Complexity, v models.Complexity) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}

func containsType(list []models.TaskType, v models.TaskType) bool {
	for _, t := range list {
		if t == v {
			return true
		}
	}
	return false
}

func hasAllTags(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
