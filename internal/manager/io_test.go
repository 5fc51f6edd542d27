package manager

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gantrylabs/gantry/internal/storage"
	"github.com/gantrylabs/gantry/internal/storage/jsonfile"
	"github.com/gantrylabs/gantry/pkg/models"
)

func sortedSnapshot(m *Manager) []*models.Task {
	tasks := m.Snapshot()
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestManager(t)
	due := fixedNow.AddDate(0, 0, 7)
	root := mustCreate(t, src, CreateRequest{
		ID:             "root",
		Type:           models.TaskTypeEpic,
		Title:          "Billing rework",
		Description:    "Replace the invoicing pipeline",
		Priority:       models.PriorityHigh,
		Complexity:     models.ComplexityComplex,
		EstimatedHours: ptr(40.0),
		Tags:           []string{"billing", "q2"},
		Assignee:       "dana",
		DueDate:        &due,
	})
	mustCreate(t, src, CreateRequest{
		ID:       "child",
		Title:    "Schema migration",
		ParentID: root.ID,
	})
	mustCreate(t, src, CreateRequest{
		ID:           "dep",
		Title:        "Cutover switch",
		Dependencies: []string{"child"},
	})

	path := filepath.Join(t.TempDir(), "export.json")
	n, err := src.Export(path, storage.Query{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("Export() count = %d, want 3", n)
	}

	dst := newTestManager(t)
	read, err := dst.Import(path)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if read != 3 {
		t.Errorf("Import() count = %d, want 3", read)
	}

	if diff := cmp.Diff(sortedSnapshot(src), sortedSnapshot(dst)); diff != "" {
		t.Errorf("imported tasks differ from exported (-src +dst):\n%s", diff)
	}
}

func TestExportScopeFilters(t *testing.T) {
	m := newTestManager(t)
	mustCreate(t, m, CreateRequest{ID: "keep", Title: "Open work", Priority: models.PriorityUrgent})
	done := mustCreate(t, m, CreateRequest{ID: "drop", Title: "Finished work"})
	if _, err := m.Complete(done.ID, nil); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "urgent.json")
	n, err := m.Export(path, storage.Query{Priority: []models.Priority{models.PriorityUrgent}})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Export() count = %d, want 1", n)
	}

	dst := newTestManager(t)
	if _, err := dst.Import(path); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if dst.Len() != 1 {
		t.Errorf("Len() = %d, want 1", dst.Len())
	}
	if _, err := dst.Task("keep"); err != nil {
		t.Errorf("Task(keep) error = %v", err)
	}
}

func TestImportMergesAndOverwritesSharedIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	store, err := jsonfile.Open(path, jsonfile.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	m := managerOver(t, store)
	mustCreate(t, m, CreateRequest{ID: "shared", Title: "Original title"})
	mustCreate(t, m, CreateRequest{ID: "untouched", Title: "Stays as is"})

	// Build the incoming document in a scratch set so it carries the
	// same id with a different title plus one new task.
	scratch := newTestManager(t)
	mustCreate(t, scratch, CreateRequest{ID: "shared", Title: "Renamed by import"})
	mustCreate(t, scratch, CreateRequest{ID: "extra", Title: "New arrival"})
	doc := filepath.Join(t.TempDir(), "incoming.json")
	if _, err := scratch.Export(doc, storage.Query{}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	read, err := m.Import(doc)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if read != 2 {
		t.Errorf("Import() count = %d, want 2", read)
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
	shared, err := m.Task("shared")
	if err != nil {
		t.Fatalf("Task(shared) error = %v", err)
	}
	if shared.Title != "Renamed by import" {
		t.Errorf("shared title = %q, want overwritten", shared.Title)
	}

	// The merge must reach disk, not just the in-memory set.
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	reopened, err := jsonfile.Open(path, jsonfile.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	m2 := managerOver(t, reopened)
	if m2.Len() != 3 {
		t.Errorf("reopened Len() = %d, want 3", m2.Len())
	}
}

func TestImportRejectsDocumentBreakingHierarchy(t *testing.T) {
	m := newTestManager(t)
	mustCreate(t, m, CreateRequest{ID: "existing", Title: "Already here"})

	orphan := &models.Task{
		ID:        "orphan",
		Type:      models.TaskTypeTask,
		Title:     "Child of nobody",
		Status:    models.TaskStatusPending,
		Priority:  models.PriorityMedium,
		ParentID:  "ghost",
		Level:     1,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	data, err := storage.EncodeTasks([]*models.Task{orphan}, fixedNow)
	if err != nil {
		t.Fatalf("EncodeTasks() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := m.Import(path); err == nil {
		t.Fatal("Import() error = nil, want hierarchy rejection")
	}
	if m.Len() != 1 {
		t.Errorf("Len() after rejected import = %d, want 1", m.Len())
	}
	if _, err := m.Task("orphan"); err == nil {
		t.Error("orphan registered despite rejected import")
	}
}

func TestImportMissingAndMalformedFiles(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Import(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Import(absent) error = nil, want storage error")
	}

	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := m.Import(path); err == nil {
		t.Error("Import(garbage) error = nil, want decode error")
	}
}
