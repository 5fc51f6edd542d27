//go:build integration

package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gantrylabs/gantry/internal/learning"
	"github.com/gantrylabs/gantry/internal/orchestrator"
)

// TestLearningStateSurvivesRestart drives the flow the CLI relies on:
// completions feed the engine, its state is saved on shutdown, and a
// new process loads it and produces identical estimates.
func TestLearningStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	tasksPath := filepath.Join(dir, "tasks.json")
	statePath := filepath.Join(dir, "learning.json")

	s := newStack(t, tasksPath)
	completeBatch(t, s, 20, "history")
	if _, err := s.services.RunLearningCycle(context.Background()); err != nil {
		t.Fatalf("RunLearningCycle() error = %v", err)
	}

	probe := mustCreate(t, s.manager, probeRequest("Estimate survivor"))
	before, err := s.services.Estimate(probe.ID)
	if err != nil {
		t.Fatalf("Estimate() before restart error = %v", err)
	}

	if err := s.engine.SaveState(statePath); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	savedModel := s.engine.Snapshot()
	savedSize := s.engine.DatasetSize()
	s.close(t)

	restored := learning.NewEngine()
	if err := restored.LoadState(statePath); err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	reopened := newStack(t, tasksPath, func(cfg *orchestrator.Config) {
		cfg.Engine = restored
	})

	if got := restored.DatasetSize(); got != savedSize {
		t.Errorf("DatasetSize() after restart = %d, want %d", got, savedSize)
	}
	if diff := cmp.Diff(savedModel, restored.Snapshot()); diff != "" {
		t.Errorf("model changed across restart (-saved +loaded):\n%s", diff)
	}

	after, err := reopened.services.Estimate(probe.ID)
	if err != nil {
		t.Fatalf("Estimate() after restart error = %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("estimate changed across restart (-before +after):\n%s", diff)
	}
}

// TestStateLoadToleratesMissingFile models first launch: no saved
// state yet, the engine starts from priors and still estimates.
func TestStateLoadToleratesMissingFile(t *testing.T) {
	dir := t.TempDir()
	engine := learning.NewEngine()
	if err := engine.LoadState(filepath.Join(dir, "never-written.json")); err != nil {
		t.Fatalf("LoadState(missing) error = %v", err)
	}

	s := newStack(t, filepath.Join(dir, "tasks.json"), func(cfg *orchestrator.Config) {
		cfg.Engine = engine
	})
	probe := mustCreate(t, s.manager, probeRequest("First launch probe"))
	est, err := s.services.Estimate(probe.ID)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if est.Hours < 0.5 {
		t.Errorf("Estimate().Hours = %v, want at least the floor", est.Hours)
	}
	if est.ModelVersion != 0 {
		t.Errorf("ModelVersion = %d, want 0 before any training", est.ModelVersion)
	}
}
