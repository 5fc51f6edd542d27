package decompose

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/gantrylabs/gantry/pkg/models"
)

func drawDecomposable(t *rapid.T) *models.Task {
	task := &models.Task{
		ID:    rapid.StringMatching(`task-[a-z0-9]{4}`).Draw(t, "id"),
		Type:  rapid.SampledFrom(models.TaskTypes()).Draw(t, "type"),
		Level: rapid.IntRange(0, 3).Draw(t, "level"),
		Title: rapid.StringMatching(`[A-Z][a-z]{2,10} [a-z]{2,10}`).Draw(t, "title"),
		Description: rapid.SampledFrom([]string{
			"",
			"Correct the header label",
			richDescription(30),
			richDescription(60),
			"1. dig the trench\n2. pour the footing\n3. cure the slab",
			"the ingest module and render module proceed as independent workstream halves",
			"First stage the rollout, then verify each phase end to end",
		}).Draw(t, "description"),
		Priority:   rapid.SampledFrom([]models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent, models.PriorityCritical}).Draw(t, "priority"),
		Complexity: rapid.SampledFrom([]models.Complexity{models.ComplexityTrivial, models.ComplexitySimple, models.ComplexityMedium, models.ComplexityComplex, models.ComplexityVeryComplex}).Draw(t, "complexity"),
	}
	if rapid.Bool().Draw(t, "estimated") {
		hours := rapid.Float64Range(0.5, 200).Draw(t, "hours")
		task.EstimatedHours = &hours
	}
	if n := rapid.IntRange(0, 4).Draw(t, "tags"); n > 0 {
		tags := []string{"alpha", "beta", "gamma", "delta"}
		task.Tags = tags[:n]
	}
	return task
}

// Forced decomposition always lands inside the configured size bounds
// with consistent parent and dependency references.
func TestDecomposeOutputStaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		task := drawDecomposable(rt)
		d := NewDecomposer(WithIDSource(seqIDs()), WithDecomposerClock(decomposeClock))

		result, err := d.Decompose(context.Background(), task, Options{Force: true})
		if err != nil {
			rt.Fatalf("Decompose() error: %v", err)
		}
		if result.Skipped {
			rt.Fatal("forced decomposition was skipped")
		}

		bounds := DefaultConstraints()
		if n := len(result.Subtasks); n < bounds.MinSubtasks || n > bounds.MaxSubtasks {
			rt.Fatalf("generated %d subtasks, want within [%d,%d]", n, bounds.MinSubtasks, bounds.MaxSubtasks)
		}

		ids := map[string]bool{task.ID: true}
		for _, sub := range result.Subtasks {
			if ids[sub.ID] {
				rt.Fatalf("duplicate generated id %q", sub.ID)
			}
			ids[sub.ID] = true
		}
		for _, sub := range result.Subtasks {
			if !ids[sub.ParentID] {
				rt.Fatalf("subtask %q parented to unknown %q", sub.ID, sub.ParentID)
			}
			for _, dep := range sub.Dependencies {
				if !ids[dep] {
					rt.Fatalf("subtask %q depends on unknown %q", sub.ID, dep)
				}
				if dep == sub.ID {
					rt.Fatalf("subtask %q depends on itself", sub.ID)
				}
			}
			if sub.Metadata.Generated == nil {
				rt.Fatalf("subtask %q missing provenance", sub.ID)
			}
			if sub.Metadata.Generated.SourceTaskID != task.ID {
				rt.Fatalf("subtask %q provenance source = %q, want %q",
					sub.ID, sub.Metadata.Generated.SourceTaskID, task.ID)
			}
		}
	})
}

// Analysis scores are bounded and the recommendation tracks them.
func TestAnalysisScoreStaysBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		task := drawDecomposable(rt)
		analysis := Analyze(task, DefaultLibrary())

		if analysis.Score < 0 || analysis.Score > 1 {
			rt.Fatalf("Score = %v out of [0,1]", analysis.Score)
		}
		if analysis.RecommendedSubtasks < 2 || analysis.RecommendedSubtasks > 6 {
			rt.Fatalf("RecommendedSubtasks = %d out of [2,6]", analysis.RecommendedSubtasks)
		}
		if !analysis.SuggestedComplexity.Valid() {
			rt.Fatalf("SuggestedComplexity = %q invalid", analysis.SuggestedComplexity)
		}
	})
}
