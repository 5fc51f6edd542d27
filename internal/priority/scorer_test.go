package priority

import (
	"testing"
	"time"

	"github.com/gantrylabs/gantry/internal/hierarchy"
	"github.com/gantrylabs/gantry/pkg/models"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestScorer() *Scorer {
	return NewScorer(WithClock(fixedNow))
}

func hoursPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func findFactor(t *testing.T, factors []Factor, name string) Factor {
	t.Helper()
	for _, f := range factors {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("factor %s not found in %d factors", name, len(factors))
	return Factor{}
}

func TestScoreComplexNearDeadlineIsUrgent(t *testing.T) {
	now := fixedNow()
	task := &models.Task{
		ID:             "t1",
		Type:           models.TaskTypeTask,
		Title:          "migrate billing schema",
		Status:         models.TaskStatusPending,
		Priority:       models.PriorityMedium,
		Complexity:     models.ComplexityComplex,
		EstimatedHours: hoursPtr(24),
		DueDate:        timePtr(now.Add(2 * 24 * time.Hour)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	result := newTestScorer().Score(task, Context{})

	if result.Overall < 0.75 {
		t.Errorf("Overall = %.3f, want >= 0.75", result.Overall)
	}
	if result.Suggested != models.PriorityUrgent {
		t.Errorf("Suggested = %s, want %s", result.Suggested, models.PriorityUrgent)
	}
}

func TestScoreHighFanOutWithResolvedDependencies(t *testing.T) {
	task := &models.Task{
		ID:        "hub",
		Title:     "shared auth library",
		Status:    models.TaskStatusPending,
		CreatedAt: fixedNow(),
	}

	result := newTestScorer().Score(task, Context{Dependents: 6})

	f := findFactor(t, result.Factors, FactorDependents)
	if f.Score < 0.8 {
		t.Errorf("dependents factor = %.2f, want >= 0.8", f.Score)
	}
}

func TestDeadlineFactorBuckets(t *testing.T) {
	now := fixedNow()

	tests := []struct {
		name string
		due  *time.Time
		want float64
	}{
		{"no deadline", nil, 0.3},
		{"overdue", timePtr(now.Add(-48 * time.Hour)), 1.0},
		{"within a day", timePtr(now.Add(12 * time.Hour)), 0.95},
		{"within 3 days", timePtr(now.Add(2 * 24 * time.Hour)), 0.85},
		{"within a week", timePtr(now.Add(5 * 24 * time.Hour)), 0.7},
		{"within two weeks", timePtr(now.Add(10 * 24 * time.Hour)), 0.5},
		{"far future", timePtr(now.Add(60 * 24 * time.Hour)), 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &models.Task{ID: "t", DueDate: tt.due, CreatedAt: now}
			f := deadlineFactor(task, now, 1)
			if f.Score != tt.want {
				t.Errorf("score = %.2f, want %.2f", f.Score, tt.want)
			}
		})
	}
}

func TestDependentsFactorFanOut(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want float64
	}{
		{"no dependents", Context{}, 0.5},
		{"one dependent", Context{Dependents: 1}, 0.7},
		{"three dependents", Context{Dependents: 3}, 0.8},
		{"five dependents", Context{Dependents: 5}, 0.9},
		{"six dependents", Context{Dependents: 6}, 0.9},
		{"fan-out discounted while blocked", Context{Dependents: 6, IncompleteDependencies: 1}, 0.9 * 0.7},
		{"small fan-out discounted", Context{Dependents: 1, IncompleteDependencies: 2}, 0.7 * 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := dependentsFactor(tt.ctx, 1)
			if f.Score != tt.want {
				t.Errorf("score = %.3f, want %.3f", f.Score, tt.want)
			}
		})
	}
}

func TestBlockersFactor(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want float64
	}{
		{"no dependencies", Context{}, 0.8},
		{"all resolved", Context{DependencyCount: 3}, 0.8},
		{"one active", Context{DependencyCount: 3, IncompleteDependencies: 1}, 0.4},
		{"two active", Context{DependencyCount: 4, IncompleteDependencies: 2}, 0.4},
		{"three active", Context{DependencyCount: 5, IncompleteDependencies: 3}, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := blockersFactor(tt.ctx, 1)
			if f.Score != tt.want {
				t.Errorf("score = %.2f, want %.2f", f.Score, tt.want)
			}
		})
	}
}

func TestProgressFactor(t *testing.T) {
	tests := []struct {
		name     string
		progress int
		want     float64
	}{
		{"not started", 0, 0.4},
		{"under half", 30, 0.6},
		{"half done", 50, 0.7},
		{"nearly done", 85, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := progressFactor(&models.Task{ID: "t", Progress: tt.progress}, 1)
			if f.Score != tt.want {
				t.Errorf("score = %.2f, want %.2f", f.Score, tt.want)
			}
		})
	}
}

func TestAgeFactor(t *testing.T) {
	now := fixedNow()

	tests := []struct {
		name    string
		created time.Time
		want    float64
	}{
		{"fresh", now, 0.5},
		{"one week old", now.Add(-7 * 24 * time.Hour), 0.5},
		{"three weeks old", now.Add(-21 * 24 * time.Hour), 0.6},
		{"stale", now.Add(-45 * 24 * time.Hour), 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ageFactor(&models.Task{ID: "t", CreatedAt: tt.created}, now, 1)
			if f.Score != tt.want {
				t.Errorf("score = %.2f, want %.2f", f.Score, tt.want)
			}
		})
	}
}

func TestRatingFactorExcludedWhenUnset(t *testing.T) {
	if _, ok := ratingFactor(FactorBusinessValue, "", 1); ok {
		t.Error("unset rating should be excluded")
	}

	f, ok := ratingFactor(FactorBusinessValue, models.RatingCritical, 1)
	if !ok {
		t.Fatal("set rating should be included")
	}
	if f.Score != 1.0 {
		t.Errorf("critical rating score = %.2f, want 1.0", f.Score)
	}
}

func TestScoreAppliesOnlyFactorsWithSignal(t *testing.T) {
	now := fixedNow()
	bare := &models.Task{ID: "bare", CreatedAt: now}
	rich := &models.Task{
		ID:        "rich",
		CreatedAt: now,
		Metadata: models.Metadata{
			BusinessValue: models.RatingHigh,
			TechnicalRisk: models.RatingMedium,
			UserImpact:    models.RatingLow,
		},
	}

	scorer := newTestScorer()
	if got := len(scorer.Score(bare, Context{}).Factors); got != 7 {
		t.Errorf("bare task factor count = %d, want 7", got)
	}
	if got := len(scorer.Score(rich, Context{}).Factors); got != 10 {
		t.Errorf("rich task factor count = %d, want 10", got)
	}
}

func TestConfidenceAdjustments(t *testing.T) {
	now := fixedNow()
	aged := now.Add(-3 * 24 * time.Hour)

	tests := []struct {
		name string
		task *models.Task
		ctx  Context
		want float64
	}{
		{
			"no signals and fresh",
			&models.Task{ID: "t", CreatedAt: now},
			Context{},
			0.3,
		},
		{
			"no signals but settled",
			&models.Task{ID: "t", CreatedAt: aged},
			Context{},
			0.5,
		},
		{
			"deadline only",
			&models.Task{ID: "t", CreatedAt: aged, DueDate: timePtr(now.Add(24 * time.Hour))},
			Context{},
			0.65,
		},
		{
			"all signals",
			&models.Task{
				ID: "t", CreatedAt: aged,
				DueDate:  timePtr(now.Add(24 * time.Hour)),
				Metadata: models.Metadata{BusinessValue: models.RatingHigh},
			},
			Context{Dependents: 2},
			0.85,
		},
	}

	scorer := newTestScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.task, tt.ctx).Confidence
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}

func TestThresholdsPriority(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		score float64
		want  models.Priority
	}{
		{0.95, models.PriorityCritical},
		{0.9, models.PriorityCritical},
		{0.8, models.PriorityUrgent},
		{0.75, models.PriorityUrgent},
		{0.6, models.PriorityHigh},
		{0.5, models.PriorityMedium},
		{0.4, models.PriorityMedium},
		{0.1, models.PriorityLow},
	}

	for _, tt := range tests {
		if got := th.Priority(tt.score); got != tt.want {
			t.Errorf("Priority(%.2f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScoreAllOrdersByScoreThenID(t *testing.T) {
	now := fixedNow()
	tasks := []*models.Task{
		{ID: "relaxed", Title: "relaxed", Status: models.TaskStatusPending, CreatedAt: now},
		{ID: "b-twin", Title: "twin", Status: models.TaskStatusPending, CreatedAt: now},
		{ID: "a-twin", Title: "twin", Status: models.TaskStatusPending, CreatedAt: now},
		{
			ID: "pressed", Title: "pressed", Status: models.TaskStatusPending,
			CreatedAt: now, DueDate: timePtr(now.Add(12 * time.Hour)),
		},
	}

	graph := hierarchy.NewDependencyGraph()
	if err := graph.Build(tasks); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	results := newTestScorer().ScoreAll(tasks, graph)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	if results[0].TaskID != "pressed" {
		t.Errorf("first result = %s, want pressed", results[0].TaskID)
	}
	// The identical twins tie on score and fall back to ID order.
	var twinOrder []string
	for _, r := range results {
		if r.TaskID == "a-twin" || r.TaskID == "b-twin" {
			twinOrder = append(twinOrder, r.TaskID)
		}
	}
	if len(twinOrder) != 2 || twinOrder[0] != "a-twin" {
		t.Errorf("tie-break order = %v, want [a-twin b-twin]", twinOrder)
	}
}

func TestScoreAllDerivesContextFromGraph(t *testing.T) {
	now := fixedNow()
	dep := &models.Task{ID: "dep", Title: "dep", Status: models.TaskStatusInProgress, CreatedAt: now}
	blocked := &models.Task{
		ID: "blocked", Title: "blocked", Status: models.TaskStatusPending,
		Dependencies: []string{"dep"}, CreatedAt: now,
	}

	graph := hierarchy.NewDependencyGraph()
	if err := graph.Build([]*models.Task{dep, blocked}); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	results := newTestScorer().ScoreAll([]*models.Task{dep, blocked}, graph)
	byID := make(map[string]Result, len(results))
	for _, r := range results {
		byID[r.TaskID] = r
	}

	if f := findFactor(t, byID["dep"].Factors, FactorDependents); f.Score != 0.7 {
		t.Errorf("dep fan-out score = %.2f, want 0.7", f.Score)
	}
	if f := findFactor(t, byID["blocked"].Factors, FactorBlockers); f.Score != 0.4 {
		t.Errorf("blocked blockers score = %.2f, want 0.4", f.Score)
	}
}
