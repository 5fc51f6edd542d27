package storage

import (
	"testing"
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

var testBase = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func testTask(id string, opts ...func(*models.Task)) *models.Task {
	task := &models.Task{
		ID:         id,
		Type:       models.TaskTypeTask,
		Title:      "Task " + id,
		Status:     models.TaskStatusPending,
		Priority:   models.PriorityMedium,
		Complexity: models.ComplexityMedium,
		CreatedAt:  testBase,
		UpdatedAt:  testBase,
	}
	for _, opt := range opts {
		opt(task)
	}
	return task
}

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestQueryMatches(t *testing.T) {
	due := testBase.AddDate(0, 1, 0)

	tests := []struct {
		name  string
		query Query
		task  *models.Task
		want  bool
	}{
		{
			name:  "zero query matches everything",
			query: Query{},
			task:  testTask("a"),
			want:  true,
		},
		{
			name:  "status in list",
			query: Query{Status: []models.TaskStatus{models.TaskStatusPending, models.TaskStatusBlocked}},
			task:  testTask("a"),
			want:  true,
		},
		{
			name:  "status not in list",
			query: Query{Status: []models.TaskStatus{models.TaskStatusCompleted}},
			task:  testTask("a"),
			want:  false,
		},
		{
			name:  "priority in list",
			query: Query{Priority: []models.Priority{models.PriorityHigh, models.PriorityUrgent}},
			task:  testTask("a", func(x *models.Task) { x.Priority = models.PriorityHigh }),
			want:  true,
		},
		{
			name:  "priority not in list",
			query: Query{Priority: []models.Priority{models.PriorityUrgent}},
			task:  testTask("a"),
			want:  false,
		},
		{
			name:  "complexity in list",
			query: Query{Complexity: []models.Complexity{models.ComplexityComplex}},
			task:  testTask("a", func(x *models.Task) { x.Complexity = models.ComplexityComplex }),
			want:  true,
		},
		{
			name:  "type in list",
			query: Query{Type: []models.TaskType{models.TaskTypeEpic, models.TaskTypeFeature}},
			task:  testTask("a", func(x *models.Task) { x.Type = models.TaskTypeFeature }),
			want:  true,
		},
		{
			name:  "type not in list",
			query: Query{Type: []models.TaskType{models.TaskTypeEpic}},
			task:  testTask("a"),
			want:  false,
		},
		{
			name:  "assignee match",
			query: Query{Assignee: "rivka"},
			task:  testTask("a", func(x *models.Task) { x.Assignee = "rivka" }),
			want:  true,
		},
		{
			name:  "assignee mismatch",
			query: Query{Assignee: "rivka"},
			task:  testTask("a", func(x *models.Task) { x.Assignee = "omar" }),
			want:  false,
		},
		{
			name:  "all tags present",
			query: Query{Tags: []string{"api", "backend"}},
			task:  testTask("a", func(x *models.Task) { x.Tags = []string{"backend", "api", "billing"} }),
			want:  true,
		},
		{
			name:  "one tag missing",
			query: Query{Tags: []string{"api", "frontend"}},
			task:  testTask("a", func(x *models.Task) { x.Tags = []string{"api"} }),
			want:  false,
		},
		{
			name:  "roots only excludes children",
			query: Query{RootsOnly: true},
			task:  testTask("a", func(x *models.Task) { x.ParentID = "p" }),
			want:  false,
		},
		{
			name:  "roots only keeps roots",
			query: Query{RootsOnly: true},
			task:  testTask("a"),
			want:  true,
		},
		{
			name:  "roots only ignores parent filter",
			query: Query{RootsOnly: true, ParentID: "p"},
			task:  testTask("a"),
			want:  true,
		},
		{
			name:  "parent id match",
			query: Query{ParentID: "p"},
			task:  testTask("a", func(x *models.Task) { x.ParentID = "p" }),
			want:  true,
		},
		{
			name:  "parent id mismatch",
			query: Query{ParentID: "p"},
			task:  testTask("a", func(x *models.Task) { x.ParentID = "q" }),
			want:  false,
		},
		{
			name:  "level match",
			query: Query{Level: intPtr(2)},
			task:  testTask("a", func(x *models.Task) { x.Level = 2 }),
			want:  true,
		},
		{
			name:  "level mismatch",
			query: Query{Level: intPtr(2)},
			task:  testTask("a"),
			want:  false,
		},
		{
			name:  "progress bounds are inclusive",
			query: Query{MinProgress: intPtr(25), MaxProgress: intPtr(75)},
			task:  testTask("a", func(x *models.Task) { x.Progress = 25 }),
			want:  true,
		},
		{
			name:  "progress above maximum",
			query: Query{MaxProgress: intPtr(75)},
			task:  testTask("a", func(x *models.Task) { x.Progress = 76 }),
			want:  false,
		},
		{
			name:  "progress below minimum",
			query: Query{MinProgress: intPtr(25)},
			task:  testTask("a", func(x *models.Task) { x.Progress = 24 }),
			want:  false,
		},
		{
			name:  "created bound is inclusive",
			query: Query{CreatedAfter: timePtr(testBase)},
			task:  testTask("a"),
			want:  true,
		},
		{
			name:  "created after excludes older",
			query: Query{CreatedAfter: timePtr(testBase.Add(time.Hour))},
			task:  testTask("a"),
			want:  false,
		},
		{
			name:  "created before excludes newer",
			query: Query{CreatedBefore: timePtr(testBase.Add(-time.Hour))},
			task:  testTask("a"),
			want:  false,
		},
		{
			name:  "due bound fails without due date",
			query: Query{DueAfter: timePtr(testBase)},
			task:  testTask("a"),
			want:  false,
		},
		{
			name:  "due inside window",
			query: Query{DueAfter: timePtr(testBase), DueBefore: timePtr(due.AddDate(0, 1, 0))},
			task:  testTask("a", func(x *models.Task) { x.DueDate = timePtr(due) }),
			want:  true,
		},
		{
			name:  "due outside window",
			query: Query{DueBefore: timePtr(testBase)},
			task:  testTask("a", func(x *models.Task) { x.DueDate = timePtr(due) }),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(tt.task); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortTasksPriorityUsesRankNotSpelling(t *testing.T) {
	tasks := []*models.Task{
		testTask("a", func(x *models.Task) { x.Priority = models.PriorityLow }),
		testTask("b", func(x *models.Task) { x.Priority = models.PriorityCritical }),
		testTask("c", func(x *models.Task) { x.Priority = models.PriorityHigh }),
	}

	SortTasks(tasks, Query{SortBy: SortByPriority, SortOrder: SortDesc})

	// Alphabetical descent would put low first; rank puts critical first.
	want := []string{"b", "c", "a"}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, tasks[i].ID, id)
		}
	}
}

func TestSortTasksNilDueDateSortsLast(t *testing.T) {
	tasks := []*models.Task{
		testTask("no-due"),
		testTask("late", func(x *models.Task) { x.DueDate = timePtr(testBase.AddDate(0, 2, 0)) }),
		testTask("soon", func(x *models.Task) { x.DueDate = timePtr(testBase.AddDate(0, 0, 3)) }),
	}

	SortTasks(tasks, Query{SortBy: SortByDueDate})

	want := []string{"soon", "late", "no-due"}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, tasks[i].ID, id)
		}
	}
}

func TestSortTasksSecondaryField(t *testing.T) {
	tasks := []*models.Task{
		testTask("a", func(x *models.Task) { x.Priority = models.PriorityHigh; x.Progress = 10 }),
		testTask("b", func(x *models.Task) { x.Priority = models.PriorityHigh; x.Progress = 90 }),
		testTask("c", func(x *models.Task) { x.Priority = models.PriorityLow; x.Progress = 50 }),
	}

	SortTasks(tasks, Query{SortBy: SortByPriority, SortOrder: SortDesc, ThenBy: SortByProgress})

	// The secondary field shares the direction, so progress descends
	// within the high group.
	want := []string{"b", "a", "c"}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, tasks[i].ID, id)
		}
	}
}

func TestSortTasksIDTieBreakIgnoresDirection(t *testing.T) {
	build := func() []*models.Task {
		return []*models.Task{testTask("c"), testTask("a"), testTask("b")}
	}

	for _, order := range []SortOrder{SortAsc, SortDesc} {
		tasks := build()
		SortTasks(tasks, Query{SortBy: SortByCreatedAt, SortOrder: order})
		want := []string{"a", "b", "c"}
		for i, id := range want {
			if tasks[i].ID != id {
				t.Fatalf("order %s: position %d = %s, want %s", order, i, tasks[i].ID, id)
			}
		}
	}
}

func TestPaginateWindows(t *testing.T) {
	tasks := []*models.Task{
		testTask("a"), testTask("b"), testTask("c"), testTask("d"), testTask("e"),
	}

	tests := []struct {
		name    string
		page    int
		size    int
		wantIDs []string
		hasMore bool
	}{
		{"first page", 1, 2, []string{"a", "b"}, true},
		{"middle page", 2, 2, []string{"c", "d"}, true},
		{"last partial page", 3, 2, []string{"e"}, false},
		{"page past the end", 4, 2, []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Paginate(tasks, Query{Page: tt.page, PageSize: tt.size})
			if page.Total != 5 {
				t.Errorf("Total = %d, want 5", page.Total)
			}
			if page.HasMore != tt.hasMore {
				t.Errorf("HasMore = %v, want %v", page.HasMore, tt.hasMore)
			}
			if len(page.Tasks) != len(tt.wantIDs) {
				t.Fatalf("len(Tasks) = %d, want %d", len(page.Tasks), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if page.Tasks[i].ID != id {
					t.Errorf("Tasks[%d] = %s, want %s", i, page.Tasks[i].ID, id)
				}
			}
		})
	}
}

func TestPaginateDefaults(t *testing.T) {
	tasks := []*models.Task{testTask("a")}

	page := Paginate(tasks, Query{})
	if page.Page != 1 {
		t.Errorf("Page = %d, want 1", page.Page)
	}
	if page.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", page.PageSize, DefaultPageSize)
	}
	if page.HasMore {
		t.Error("HasMore = true for a single short page")
	}
}
