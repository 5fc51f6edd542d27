package decompose

import (
	"math"
	"strings"
	"testing"

	"github.com/gantrylabs/gantry/pkg/models"
)

func hoursPtr(v float64) *float64 { return &v }

// richDescription builds a description with the given number of
// words, avoiding template and strategy markers.
func richDescription(words int) string {
	return strings.TrimSpace(strings.Repeat("overhaul billing reconciliation logic across ledger boundaries ", (words+7)/8))
}

func TestAnalyzeRichEpicScoresHigh(t *testing.T) {
	description := richDescription(48) + "\n" +
		"1. database schema groundwork\n" +
		"2. api endpoint surface\n" +
		"3. cache invalidation pass\n"
	task := &models.Task{
		ID:             "epic-1",
		Type:           models.TaskTypeEpic,
		Title:          "Rebuild billing platform",
		Description:    description,
		Complexity:     models.ComplexityVeryComplex,
		EstimatedHours: hoursPtr(80),
		Dependencies:   []string{"a", "b"},
		Tags:           []string{"billing", "platform"},
		Metadata:       models.Metadata{Domain: "security"},
	}

	analysis := Analyze(task, nil)

	if analysis.Score < 0.8 {
		t.Errorf("Score = %.3f, want >= 0.8", analysis.Score)
	}
	if analysis.SuggestedComplexity != models.ComplexityVeryComplex {
		t.Errorf("SuggestedComplexity = %s, want very_complex", analysis.SuggestedComplexity)
	}
	if analysis.RecommendedSubtasks < 5 {
		t.Errorf("RecommendedSubtasks = %d, want >= 5", analysis.RecommendedSubtasks)
	}
	if analysis.Strategy != StrategyHierarchical {
		t.Errorf("Strategy = %s, want hierarchical for an epic", analysis.Strategy)
	}
}

func TestAnalyzeThinTaskScoresLow(t *testing.T) {
	task := &models.Task{
		ID:             "t1",
		Type:           models.TaskTypeTask,
		Title:          "Fix typo",
		Description:    "Correct the header label",
		EstimatedHours: hoursPtr(4),
	}

	analysis := Analyze(task, nil)
	if analysis.Score >= 0.6 {
		t.Errorf("Score = %.3f, want < 0.6 for a thin task", analysis.Score)
	}
}

func TestDescriptionFactorRewardsStructure(t *testing.T) {
	plain := &models.Task{Description: richDescription(30)}
	enumerated := &models.Task{Description: richDescription(30) + "\n- first item\n- second item"}

	if p, e := descriptionFactor(plain).Score, descriptionFactor(enumerated).Score; e <= p {
		t.Errorf("enumerated description score %.2f not above plain %.2f", e, p)
	}
}

func TestEffortFactorBuckets(t *testing.T) {
	tests := []struct {
		name  string
		hours *float64
		want  float64
	}{
		{"no estimate", nil, 0.5},
		{"tiny", hoursPtr(4), 0.1},
		{"day", hoursPtr(8), 0.4},
		{"sprint chunk", hoursPtr(16), 0.6},
		{"week", hoursPtr(40), 0.8},
		{"multi-week", hoursPtr(80), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := effortFactor(&models.Task{EstimatedHours: tt.hours})
			if f.Score != tt.want {
				t.Errorf("score = %.2f, want %.2f", f.Score, tt.want)
			}
		})
	}
}

func TestComplexityForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Complexity
	}{
		{0.9, models.ComplexityVeryComplex},
		{0.7, models.ComplexityComplex},
		{0.5, models.ComplexityMedium},
		{0.3, models.ComplexitySimple},
		{0.1, models.ComplexityTrivial},
	}

	for _, tt := range tests {
		if got := complexityForScore(tt.score); got != tt.want {
			t.Errorf("complexityForScore(%.2f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestRecommendedSubtasksStaysInRange(t *testing.T) {
	for score := 0.0; score <= 1.0; score += 0.05 {
		n := recommendedSubtasks(score)
		if n < 2 || n > 6 {
			t.Fatalf("recommendedSubtasks(%.2f) = %d, want within [2,6]", score, n)
		}
	}
	if got := recommendedSubtasks(0); got != 2 {
		t.Errorf("recommendedSubtasks(0) = %d, want 2", got)
	}
	if got := recommendedSubtasks(1); got != 6 {
		t.Errorf("recommendedSubtasks(1) = %d, want 6", got)
	}
}

func TestAnalysisWeightsSumToOne(t *testing.T) {
	sum := weightDescription + weightTypeBase + weightEffort + weightDomain + weightContext
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("analysis weights sum to %v, want 1", sum)
	}
}

func TestChooseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		task    *models.Task
		library *Library
		want    Strategy
	}{
		{
			"epic is hierarchical",
			&models.Task{Type: models.TaskTypeEpic, Description: richDescription(20)},
			nil,
			StrategyHierarchical,
		},
		{
			"very complex is hierarchical",
			&models.Task{Type: models.TaskTypeTask, Complexity: models.ComplexityVeryComplex},
			nil,
			StrategyHierarchical,
		},
		{
			"enumerated description is sequential",
			&models.Task{Type: models.TaskTypeTask, Description: "1. dig\n2. pour\n3. cure"},
			nil,
			StrategySequential,
		},
		{
			"component language is parallel",
			&models.Task{Type: models.TaskTypeTask, Description: "the ingest module and render module proceed as independent workstream halves"},
			nil,
			StrategyParallel,
		},
		{
			"plain task is generic",
			&models.Task{Type: models.TaskTypeTask, Description: richDescription(20)},
			nil,
			StrategyGeneric,
		},
		{
			"library match wins",
			&models.Task{Type: models.TaskTypeFeature, Title: "Add OAuth login"},
			DefaultLibrary(),
			StrategyTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseStrategy(tt.task, tt.library); got != tt.want {
				t.Errorf("chooseStrategy() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractSteps(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        []string
	}{
		{"bullets", "intro\n- first\n- second\ntrailer", []string{"first", "second"}},
		{"numbered dot", "1. dig\n2. pour", []string{"dig", "pour"}},
		{"numbered paren", "1) dig\n2) pour", []string{"dig", "pour"}},
		{"asterisk", "* one\n* two", []string{"one", "two"}},
		{"prose only", "no enumeration here at all", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractSteps(tt.description)
			if len(got) != len(tt.want) {
				t.Fatalf("extractSteps() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("step[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractKeywordsFiltersNoise(t *testing.T) {
	got := extractKeywords("The database migration should migrate the Database rows")

	want := []string{"database", "migration", "migrate", "rows"}
	if len(got) != len(want) {
		t.Fatalf("extractKeywords() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
