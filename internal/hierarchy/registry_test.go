package hierarchy

import (
	"errors"
	"testing"
	"time"

	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

func testClock() func() time.Time {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(WithClock(testClock()))
}

func mustAdd(t *testing.T, r *Registry, task *models.Task) {
	t.Helper()
	if err := r.AddTask(task); err != nil {
		t.Fatalf("AddTask(%s): %v", task.ID, err)
	}
}

func TestRegistryAddDerivesLevels(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "epic-1", Title: "Epic"})
	mustAdd(t, r, &models.Task{ID: "task-1", Title: "Task", ParentID: "epic-1"})
	mustAdd(t, r, &models.Task{ID: "sub-1", Title: "Subtask", ParentID: "task-1", Level: 99})

	tests := []struct {
		id   string
		want int
	}{
		{"epic-1", 0},
		{"task-1", 1},
		{"sub-1", 2},
	}
	for _, tt := range tests {
		if got := r.Depth(tt.id); got != tt.want {
			t.Errorf("Depth(%s) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestRegistryAddRejectsDuplicateID(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "task-1", Title: "First"})

	err := r.AddTask(&models.Task{ID: "task-1", Title: "Second"})
	if !errors.Is(err, taskerr.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
	if !taskerr.IsValidation(err) {
		t.Errorf("duplicate id should classify as validation, got kind %q", taskerr.KindOf(err))
	}
}

func TestRegistryAddRejectsMissingParent(t *testing.T) {
	r := newTestRegistry(t)

	err := r.AddTask(&models.Task{ID: "task-1", Title: "Orphan", ParentID: "ghost"})
	if !errors.Is(err, taskerr.ErrParentNotFound) {
		t.Errorf("expected ErrParentNotFound, got %v", err)
	}
}

func TestRegistryAddRejectsDepthOverflow(t *testing.T) {
	r := NewRegistry(WithMaxDepth(2), WithClock(testClock()))
	mustAdd(t, r, &models.Task{ID: "l0", Title: "Root"})
	mustAdd(t, r, &models.Task{ID: "l1", Title: "Child", ParentID: "l0"})
	mustAdd(t, r, &models.Task{ID: "l2", Title: "Grandchild", ParentID: "l1"})

	err := r.AddTask(&models.Task{ID: "l3", Title: "Too deep", ParentID: "l2"})
	if !errors.Is(err, taskerr.ErrMaxDepthExceeded) {
		t.Errorf("expected ErrMaxDepthExceeded, got %v", err)
	}
}

func TestRegistryAddRejectsDependencyCycle(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "A", Title: "A"})
	mustAdd(t, r, &models.Task{ID: "B", Title: "B", Dependencies: []string{"A"}})

	// A -> B would close the loop B -> A.
	upd := TaskUpdate{Dependencies: &[]string{"B"}}
	if _, err := r.UpdateTask("A", upd); !errors.Is(err, taskerr.ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}
}

func TestRegistryAddRejectsUnknownDependency(t *testing.T) {
	r := newTestRegistry(t)

	err := r.AddTask(&models.Task{ID: "task-1", Title: "T", Dependencies: []string{"ghost"}})
	if err == nil {
		t.Fatal("expected error for unknown dependency")
	}
	if !taskerr.IsValidation(err) {
		t.Errorf("unknown dependency should classify as validation, got kind %q", taskerr.KindOf(err))
	}
}

func TestRegistryRemoveWithoutCascadeFailsOnChildren(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "parent", Title: "Parent"})
	mustAdd(t, r, &models.Task{ID: "child", Title: "Child", ParentID: "parent"})

	_, err := r.RemoveTask("parent", false)
	if !errors.Is(err, taskerr.ErrHasChildren) {
		t.Errorf("expected ErrHasChildren, got %v", err)
	}
	if _, exists := r.Get("parent"); !exists {
		t.Error("failed remove should leave the task in place")
	}
}

func TestRegistryRemoveCascadeScrubsDependencies(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "root", Title: "Root"})
	mustAdd(t, r, &models.Task{ID: "mid", Title: "Mid", ParentID: "root"})
	mustAdd(t, r, &models.Task{ID: "leaf", Title: "Leaf", ParentID: "mid"})
	mustAdd(t, r, &models.Task{ID: "outsider", Title: "Outside", Dependencies: []string{"mid", "leaf"}})

	removed, err := r.RemoveTask("root", true)
	if err != nil {
		t.Fatalf("cascade remove: %v", err)
	}
	if len(removed) != 3 {
		t.Errorf("expected 3 removed ids, got %v", removed)
	}
	for _, id := range []string{"root", "mid", "leaf"} {
		if _, exists := r.Get(id); exists {
			t.Errorf("task %s should be removed", id)
		}
	}

	outsider, _ := r.Get("outsider")
	if len(outsider.Dependencies) != 0 {
		t.Errorf("expected dangling dependencies scrubbed, got %v", outsider.Dependencies)
	}
}

func TestRegistryRemoveUnknownTask(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.RemoveTask("ghost", true)
	if !taskerr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRegistryUpdatePartialFields(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "task-1", Title: "Before", Status: models.TaskStatusPending, Priority: models.PriorityLow})

	title := "After"
	prio := models.PriorityHigh
	progress := 40
	updated, err := r.UpdateTask("task-1", TaskUpdate{Title: &title, Priority: &prio, Progress: &progress})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	if updated.Title != "After" {
		t.Errorf("Title = %q, want %q", updated.Title, "After")
	}
	if updated.Priority != models.PriorityHigh {
		t.Errorf("Priority = %q, want high", updated.Priority)
	}
	if updated.Progress != 40 {
		t.Errorf("Progress = %d, want 40", updated.Progress)
	}
	if updated.Status != models.TaskStatusPending {
		t.Errorf("Status changed unexpectedly to %q", updated.Status)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Error("UpdatedAt should advance past CreatedAt")
	}
}

func TestRegistryUpdateReparentMovesChildSets(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "old-parent", Title: "Old"})
	mustAdd(t, r, &models.Task{ID: "new-parent", Title: "New"})
	mustAdd(t, r, &models.Task{ID: "mover", Title: "Mover", ParentID: "old-parent"})
	mustAdd(t, r, &models.Task{ID: "mover-child", Title: "Below mover", ParentID: "mover"})

	newParent := "new-parent"
	if _, err := r.UpdateTask("mover", TaskUpdate{Parent: &newParent}); err != nil {
		t.Fatalf("reparent: %v", err)
	}

	if children := r.ChildIDs("old-parent"); len(children) != 0 {
		t.Errorf("old parent should have no children, got %v", children)
	}
	children := r.ChildIDs("new-parent")
	if len(children) != 1 || children[0] != "mover" {
		t.Errorf("new parent children = %v, want [mover]", children)
	}

	// Levels recompute through the moved subtree.
	if got := r.Depth("mover"); got != 1 {
		t.Errorf("Depth(mover) = %d, want 1", got)
	}
	if got := r.Depth("mover-child"); got != 2 {
		t.Errorf("Depth(mover-child) = %d, want 2", got)
	}
}

func TestRegistryUpdateReparentToRoot(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "parent", Title: "Parent"})
	mustAdd(t, r, &models.Task{ID: "child", Title: "Child", ParentID: "parent"})

	root := ""
	if _, err := r.UpdateTask("child", TaskUpdate{Parent: &root}); err != nil {
		t.Fatalf("reparent to root: %v", err)
	}
	if got := r.Depth("child"); got != 0 {
		t.Errorf("Depth(child) = %d, want 0", got)
	}
	if children := r.ChildIDs("parent"); len(children) != 0 {
		t.Errorf("parent should have no children, got %v", children)
	}
}

func TestRegistryUpdateReparentUnderDescendantFails(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "top", Title: "Top"})
	mustAdd(t, r, &models.Task{ID: "mid", Title: "Mid", ParentID: "top"})
	mustAdd(t, r, &models.Task{ID: "bottom", Title: "Bottom", ParentID: "mid"})

	under := "bottom"
	if _, err := r.UpdateTask("top", TaskUpdate{Parent: &under}); err == nil {
		t.Fatal("expected error moving a task under its own descendant")
	}
	// Indices untouched after the failed move.
	if got := r.Depth("top"); got != 0 {
		t.Errorf("Depth(top) = %d after failed move, want 0", got)
	}
}

func TestRegistryUpdateReparentDepthOverflow(t *testing.T) {
	r := NewRegistry(WithMaxDepth(2), WithClock(testClock()))
	mustAdd(t, r, &models.Task{ID: "a0", Title: "A root"})
	mustAdd(t, r, &models.Task{ID: "a1", Title: "A child", ParentID: "a0"})
	mustAdd(t, r, &models.Task{ID: "b0", Title: "B root"})
	mustAdd(t, r, &models.Task{ID: "b1", Title: "B child", ParentID: "b0"})

	// Moving b0 (with its child) under a1 would need level 3.
	target := "a1"
	if _, err := r.UpdateTask("b0", TaskUpdate{Parent: &target}); !errors.Is(err, taskerr.ErrMaxDepthExceeded) {
		t.Errorf("expected ErrMaxDepthExceeded, got %v", err)
	}
}

func TestRegistryUpdateCompletionStampsTimestamp(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "task-1", Title: "T", Status: models.TaskStatusInProgress, Progress: 60})

	done := models.TaskStatusCompleted
	updated, err := r.UpdateTask("task-1", TaskUpdate{Status: &done})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.CompletedAt == nil {
		t.Fatal("CompletedAt should be set on completion")
	}
	if updated.Progress != 100 {
		t.Errorf("Progress = %d on completion, want 100", updated.Progress)
	}

	reopened := models.TaskStatusInProgress
	updated, err = r.UpdateTask("task-1", TaskUpdate{Status: &reopened})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.CompletedAt != nil {
		t.Error("CompletedAt should clear when the task reopens")
	}
}

func TestRegistryGettersReturnCopies(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "task-1", Title: "Original", Tags: []string{"keep"}})

	got, _ := r.Get("task-1")
	got.Title = "Mutated"
	got.Tags[0] = "changed"

	again, _ := r.Get("task-1")
	if again.Title != "Original" {
		t.Errorf("registry task mutated through getter copy: %q", again.Title)
	}
	if again.Tags[0] != "keep" {
		t.Errorf("registry tags mutated through getter copy: %v", again.Tags)
	}
}

func TestRegistryAllDescendantsDepthFirst(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "root", Title: "Root"})
	mustAdd(t, r, &models.Task{ID: "a", Title: "A", ParentID: "root"})
	mustAdd(t, r, &models.Task{ID: "a1", Title: "A1", ParentID: "a"})
	mustAdd(t, r, &models.Task{ID: "b", Title: "B", ParentID: "root"})

	descendants, err := r.AllDescendants("root")
	if err != nil {
		t.Fatalf("AllDescendants: %v", err)
	}

	var ids []string
	for _, d := range descendants {
		ids = append(ids, d.ID)
	}
	want := []string{"a", "a1", "b"}
	if len(ids) != len(want) {
		t.Fatalf("descendants = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("descendants[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestRegistryHierarchyTree(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "root", Title: "Root"})
	mustAdd(t, r, &models.Task{ID: "a", Title: "A", ParentID: "root"})
	mustAdd(t, r, &models.Task{ID: "a1", Title: "A1", ParentID: "a", Dependencies: []string{"root"}})

	tree, err := r.Hierarchy("root")
	if err != nil {
		t.Fatalf("Hierarchy: %v", err)
	}

	if tree.DescendantCount != 2 {
		t.Errorf("DescendantCount = %d, want 2", tree.DescendantCount)
	}
	if tree.Depth != 0 {
		t.Errorf("root Depth = %d, want 0", tree.Depth)
	}
	if len(tree.Dependents) != 1 || tree.Dependents[0] != "a1" {
		t.Errorf("root Dependents = %v, want [a1]", tree.Dependents)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("root Children = %d, want 1", len(tree.Children))
	}
	child := tree.Children[0]
	if child.Task.ID != "a" || child.Depth != 1 {
		t.Errorf("child = %s depth %d, want a depth 1", child.Task.ID, child.Depth)
	}

	var visited []string
	tree.Walk(func(n *TreeNode) { visited = append(visited, n.Task.ID) })
	if len(visited) != 3 {
		t.Errorf("Walk visited %v, want 3 nodes", visited)
	}
}

func TestRegistryLoadRebuildsIndices(t *testing.T) {
	r := newTestRegistry(t)
	tasks := []*models.Task{
		{ID: "root", Title: "Root"},
		{ID: "child", Title: "Child", ParentID: "root", Dependencies: []string{"root"}},
	}

	if err := r.Load(tasks); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
	if got := r.Depth("child"); got != 1 {
		t.Errorf("Depth(child) = %d, want 1", got)
	}
	if deps := r.Dependents("root"); len(deps) != 1 || deps[0] != "child" {
		t.Errorf("Dependents(root) = %v, want [child]", deps)
	}
}

func TestRegistryLoadRejectsBadData(t *testing.T) {
	tests := []struct {
		name  string
		tasks []*models.Task
	}{
		{"duplicate ids", []*models.Task{
			{ID: "x", Title: "One"},
			{ID: "x", Title: "Two"},
		}},
		{"missing parent", []*models.Task{
			{ID: "x", Title: "One", ParentID: "ghost"},
		}},
		{"dependency cycle", []*models.Task{
			{ID: "a", Title: "A", Dependencies: []string{"b"}},
			{ID: "b", Title: "B", Dependencies: []string{"a"}},
		}},
		{"parent cycle", []*models.Task{
			{ID: "a", Title: "A", ParentID: "b"},
			{ID: "b", Title: "B", ParentID: "a"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			if err := r.Load(tt.tasks); err == nil {
				t.Error("expected Load to fail")
			}
		})
	}
}

func TestRegistrySnapshotOrdering(t *testing.T) {
	r := newTestRegistry(t)
	mustAdd(t, r, &models.Task{ID: "first", Title: "First"})
	mustAdd(t, r, &models.Task{ID: "second", Title: "Second"})
	mustAdd(t, r, &models.Task{ID: "third", Title: "Third"})

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot length = %d, want 3", len(snap))
	}
	want := []string{"first", "second", "third"}
	for i, task := range snap {
		if task.ID != want[i] {
			t.Errorf("snapshot[%d] = %s, want %s", i, task.ID, want[i])
		}
	}
}
