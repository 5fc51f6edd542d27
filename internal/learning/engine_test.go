package learning

import (
	"context"
	"testing"

	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

func newTestEngine() *Engine {
	return NewEngine(WithEngineClock(fixedNow))
}

func completedTask(id string, actual float64) *models.Task {
	estimated := 10.0
	return &models.Task{
		ID:             id,
		Type:           models.TaskTypeTask,
		Complexity:     models.ComplexityMedium,
		Status:         models.TaskStatusCompleted,
		EstimatedHours: &estimated,
		ActualHours:    &actual,
	}
}

func TestEngineRecordCompletionValidatesInput(t *testing.T) {
	e := newTestEngine()

	if err := e.RecordCompletion(nil); !taskerr.IsValidation(err) {
		t.Errorf("nil task error = %v, want validation", err)
	}

	noHours := completedTask("t1", 5)
	noHours.ActualHours = nil
	if err := e.RecordCompletion(noHours); !taskerr.IsValidation(err) {
		t.Errorf("missing hours error = %v, want validation", err)
	}

	if err := e.RecordCompletion(completedTask("t1", -2)); !taskerr.IsValidation(err) {
		t.Errorf("negative hours error = %v, want validation", err)
	}
	if e.DatasetSize() != 0 {
		t.Errorf("DatasetSize() = %d, want 0 after rejected input", e.DatasetSize())
	}
}

func TestEngineRecordCompletionRetainsPointAndSmooths(t *testing.T) {
	e := newTestEngine()

	if err := e.RecordCompletion(completedTask("t1", 12)); err != nil {
		t.Fatalf("RecordCompletion() error: %v", err)
	}

	if e.DatasetSize() != 1 {
		t.Errorf("DatasetSize() = %d, want 1", e.DatasetSize())
	}
	snap := e.Snapshot()
	if snap.Metrics.Samples != 1 {
		t.Errorf("Samples = %d, want 1 after smoothing", snap.Metrics.Samples)
	}
	if snap.Metrics.Bias <= 0 {
		t.Errorf("Bias = %v, want positive for an overrun", snap.Metrics.Bias)
	}
}

func TestEngineCycleTrainsAndPublishes(t *testing.T) {
	e := newTestEngine()
	for i := 0; i < 5; i++ {
		if err := e.RecordCompletion(completedTask("t", 12)); err != nil {
			t.Fatalf("RecordCompletion() error: %v", err)
		}
	}

	report, err := e.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle() error: %v", err)
	}

	if report.Version != 1 {
		t.Errorf("report.Version = %d, want 1", report.Version)
	}
	if report.TrainedOn != 5 {
		t.Errorf("report.TrainedOn = %d, want 5", report.TrainedOn)
	}
	if snap := e.Snapshot(); snap.Version != 1 {
		t.Errorf("published model version = %d, want 1", snap.Version)
	}
}

func TestEngineCycleCancelledLeavesModelUntouched(t *testing.T) {
	e := newTestEngine()
	if err := e.RecordCompletion(completedTask("t", 12)); err != nil {
		t.Fatalf("RecordCompletion() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Cycle(ctx); !taskerr.IsComputation(err) {
		t.Fatalf("Cycle() error = %v, want computation", err)
	}
	if snap := e.Snapshot(); snap.Version != 0 {
		t.Errorf("model version = %d, want 0 after aborted cycle", snap.Version)
	}
}

func TestEngineFeedbackCountsDouble(t *testing.T) {
	e := newTestEngine()

	if err := e.RecordCompletion(completedTask("t1", 20)); err != nil {
		t.Fatalf("RecordCompletion() error: %v", err)
	}
	if err := e.Feedback(completedTask("t2", 0), 5); err != nil {
		t.Fatalf("Feedback() error: %v", err)
	}

	if _, err := e.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle() error: %v", err)
	}

	// Weighted mean over the medium bucket: prior 8 with weight 1,
	// completion 20 with weight 1, feedback 5 with weight 2.
	want := (8 + 20*1 + 5*2) / 4.0
	snap := e.Snapshot()
	closeTo(t, snap.ComplexityAvg[models.ComplexityMedium], want, 1e-9, "trained medium average")
}

func TestEnginePredictReflectsTraining(t *testing.T) {
	e := newTestEngine()
	task := &models.Task{Type: models.TaskTypeTask, Complexity: models.ComplexityMedium}

	before := e.Predict(task)
	closeTo(t, before.Hours, 7.2, 1e-9, "prior-based estimate")

	for i := 0; i < 10; i++ {
		if err := e.RecordCompletion(completedTask("t", 12)); err != nil {
			t.Fatalf("RecordCompletion() error: %v", err)
		}
	}
	if _, err := e.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle() error: %v", err)
	}

	after := e.Predict(task)
	if after.Hours <= before.Hours {
		t.Errorf("estimate after training = %v, want above %v", after.Hours, before.Hours)
	}
	if after.ModelVersion != 1 {
		t.Errorf("ModelVersion = %d, want 1", after.ModelVersion)
	}
}
