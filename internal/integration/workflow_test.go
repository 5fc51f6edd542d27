//go:build integration

package integration

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gantrylabs/gantry/internal/decompose"
	"github.com/gantrylabs/gantry/internal/hierarchy"
	"github.com/gantrylabs/gantry/internal/learning"
	"github.com/gantrylabs/gantry/internal/manager"
	"github.com/gantrylabs/gantry/internal/orchestrator"
	"github.com/gantrylabs/gantry/internal/storage/jsonfile"
	"github.com/gantrylabs/gantry/pkg/models"
)

// stack is the full service arrangement the CLI builds: jsonfile store,
// task facade, learning engine, and the orchestration services on top.
type stack struct {
	path     string
	manager  *manager.Manager
	engine   *learning.Engine
	services *orchestrator.Services
}

// newStack opens a fresh stack over path, creating the store file on
// first use. Pass an existing path to model a process restart.
func newStack(t *testing.T, path string, mut ...func(*orchestrator.Config)) *stack {
	t.Helper()

	store, err := jsonfile.Open(path)
	if err != nil {
		t.Fatalf("jsonfile.Open(%s) error = %v", path, err)
	}
	mgr, err := manager.New(store)
	if err != nil {
		t.Fatalf("manager.New() error = %v", err)
	}
	cfg := orchestrator.Config{
		Manager:         mgr,
		Engine:          learning.NewEngine(),
		RescoreOnChange: true,
		FeedCompletions: true,
	}
	for _, m := range mut {
		m(&cfg)
	}
	svc, err := orchestrator.New(cfg)
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}
	s := &stack{path: path, manager: mgr, engine: cfg.Engine, services: svc}
	t.Cleanup(func() { s.close(t) })
	return s
}

func (s *stack) close(t *testing.T) {
	t.Helper()
	if s.services == nil {
		return
	}
	s.services.Close()
	s.services = nil
	if err := s.manager.Close(); err != nil {
		t.Errorf("manager.Close() error = %v", err)
	}
}

func mustCreate(t *testing.T, m *manager.Manager, req manager.CreateRequest) *models.Task {
	t.Helper()
	task, err := m.Create(req)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", req.Title, err)
	}
	return task
}

func hours(v float64) *float64 { return &v }

func byID(tasks []*models.Task) []*models.Task {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

func TestLifecycleSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	s := newStack(t, path)

	due := time.Now().AddDate(0, 0, 14).UTC().Truncate(time.Second)
	epic := mustCreate(t, s.manager, manager.CreateRequest{
		Type:           models.TaskTypeEpic,
		Title:          "Payments platform refresh",
		Description:    "Modernize the payment capture and settlement flow",
		Priority:       models.PriorityHigh,
		Complexity:     models.ComplexityComplex,
		EstimatedHours: hours(80),
		Tags:           []string{"payments"},
		DueDate:        &due,
	})
	child := mustCreate(t, s.manager, manager.CreateRequest{
		Title:    "Capture service skeleton",
		ParentID: epic.ID,
		Assignee: "mika",
	})
	mustCreate(t, s.manager, manager.CreateRequest{
		Title:        "Settlement reconciler",
		ParentID:     epic.ID,
		Dependencies: []string{child.ID},
	})

	status := models.TaskStatusInProgress
	if _, err := s.manager.Update(child.ID, hierarchy.TaskUpdate{Status: &status}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	want := byID(s.manager.Snapshot())
	s.close(t)

	reopened := newStack(t, path)
	got := byID(reopened.manager.Snapshot())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("task set changed across reopen (-before +after):\n%s", diff)
	}

	removed, err := reopened.manager.Delete(epic.ID, true)
	if err != nil {
		t.Fatalf("Delete(cascade) error = %v", err)
	}
	if len(removed) != 3 {
		t.Errorf("cascade removed %d tasks, want 3", len(removed))
	}
	reopened.close(t)

	final := newStack(t, path)
	if n := final.manager.Len(); n != 0 {
		t.Errorf("Len() after cascade and reopen = %d, want 0", n)
	}
}

func TestDecomposeCreatesPersistedSubtasks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	s := newStack(t, path)

	epic := mustCreate(t, s.manager, manager.CreateRequest{
		Type:       models.TaskTypeEpic,
		Title:      "Build the notification delivery service",
		Complexity: models.ComplexityVeryComplex,
		Description: "Design the delivery pipeline end to end. " +
			"Cover template rendering, provider failover, rate limiting, " +
			"retry budgets, and delivery receipts. Implement the HTTP API, " +
			"the database schema for outbound messages, and an integration " +
			"test suite covering provider outages.",
		EstimatedHours: hours(60),
	})

	dec, err := s.services.Decompose(context.Background(), epic.ID, decompose.Options{})
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if dec.Skipped {
		t.Fatalf("Decompose() skipped: %s", dec.SkipReason)
	}
	if len(dec.CreatedIDs) == 0 {
		t.Fatal("Decompose() created no sub-tasks")
	}

	children, err := s.manager.Children(epic.ID)
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(children) == 0 {
		t.Fatal("no children registered under the decomposed epic")
	}
	for _, c := range children {
		if c.Metadata.Generated == nil {
			t.Errorf("child %s has no generation provenance", c.ID)
			continue
		}
		if c.Metadata.Generated.SourceTaskID != epic.ID {
			t.Errorf("child %s provenance source = %q, want %q",
				c.ID, c.Metadata.Generated.SourceTaskID, epic.ID)
		}
	}

	if share := s.manager.Stats().GeneratedShare; share <= 0 {
		t.Errorf("GeneratedShare = %v, want > 0 after decomposition", share)
	}
	s.close(t)

	reopened := newStack(t, path)
	again, err := reopened.manager.Children(epic.ID)
	if err != nil {
		t.Fatalf("Children() after reopen error = %v", err)
	}
	if len(again) != len(children) {
		t.Errorf("children after reopen = %d, want %d", len(again), len(children))
	}
}
