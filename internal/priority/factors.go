// Package priority scores tasks across weighted factors and turns
// the scores into priority recommendations.
package priority

import (
	"fmt"
	"time"

	"github.com/gantrylabs/gantry/pkg/models"
)

// Factor is one scored dimension of a task.
type Factor struct {
	// Name identifies the factor.
	Name string
	// Score is the normalized factor value in [0,1].
	Score float64
	// Weight is the declared weight applied to the score.
	Weight float64
	// Detail explains the score in human terms.
	Detail string
}

// Factor names.
const (
	FactorDeadline      = "deadline"
	FactorDependents    = "dependents"
	FactorBusinessValue = "business_value"
	FactorComplexity    = "complexity"
	FactorBlockers      = "blockers"
	FactorProgress      = "progress"
	FactorAssignee      = "assignee"
	FactorAge           = "age"
	FactorTechnicalRisk = "technical_risk"
	FactorUserImpact    = "user_impact"
)

// Weights holds the per-factor weights. They are tunable defaults,
// not a normalized distribution: the scorer divides by the sum of
// the weights actually applied.
type Weights struct {
	Deadline      float64 `mapstructure:"deadline"`
	Dependents    float64 `mapstructure:"dependents"`
	BusinessValue float64 `mapstructure:"business_value"`
	Complexity    float64 `mapstructure:"complexity"`
	Blockers      float64 `mapstructure:"blockers"`
	Progress      float64 `mapstructure:"progress"`
	Assignee      float64 `mapstructure:"assignee"`
	Age           float64 `mapstructure:"age"`
	TechnicalRisk float64 `mapstructure:"technical_risk"`
	UserImpact    float64 `mapstructure:"user_impact"`
}

// DefaultWeights returns the default factor weights.
func DefaultWeights() Weights {
	return Weights{
		Deadline:      0.35,
		Dependents:    0.10,
		BusinessValue: 0.08,
		Complexity:    0.20,
		Blockers:      0.15,
		Progress:      0.03,
		Assignee:      0.02,
		Age:           0.02,
		TechnicalRisk: 0.025,
		UserImpact:    0.025,
	}
}

// ratingScores maps metadata ratings onto factor scores.
var ratingScores = map[models.Rating]float64{
	models.RatingLow:      0.4,
	models.RatingMedium:   0.6,
	models.RatingHigh:     0.8,
	models.RatingCritical: 1.0,
}

// complexityScores maps complexity buckets onto factor scores.
var complexityScores = map[models.Complexity]float64{
	models.ComplexityTrivial:     0.2,
	models.ComplexitySimple:      0.4,
	models.ComplexityMedium:      0.6,
	models.ComplexityComplex:     0.8,
	models.ComplexityVeryComplex: 1.0,
}

// deadlineFactor scores deadline proximity. Tasks without a deadline
// score the same as far-future ones.
func deadlineFactor(task *models.Task, now time.Time, weight float64) Factor {
	if task.DueDate == nil {
		return Factor{Name: FactorDeadline, Score: 0.3, Weight: weight, Detail: "no deadline set"}
	}

	until := task.DueDate.Sub(now)
	var score float64
	var detail string
	switch {
	case until < 0:
		score, detail = 1.0, fmt.Sprintf("overdue by %s", formatDuration(-until))
	case until <= 24*time.Hour:
		score, detail = 0.95, "due within a day"
	case until <= 3*24*time.Hour:
		score, detail = 0.85, "due within 3 days"
	case until <= 7*24*time.Hour:
		score, detail = 0.7, "due within a week"
	case until <= 14*24*time.Hour:
		score, detail = 0.5, "due within two weeks"
	default:
		score, detail = 0.3, fmt.Sprintf("due in %s", formatDuration(until))
	}
	return Factor{Name: FactorDeadline, Score: score, Weight: weight, Detail: detail}
}

// dependentsFactor scores dependency fan-out: the more tasks wait on
// this one, the higher it scores. The score is discounted while the
// task's own dependencies are incomplete, since it cannot start yet.
func dependentsFactor(ctx Context, weight float64) Factor {
	var score float64
	switch {
	case ctx.Dependents >= 5:
		score = 0.9
	case ctx.Dependents >= 3:
		score = 0.8
	case ctx.Dependents >= 1:
		score = 0.7
	default:
		score = 0.5
	}

	detail := fmt.Sprintf("%d tasks wait on this one", ctx.Dependents)
	if ctx.IncompleteDependencies > 0 {
		score *= 0.7
		detail = fmt.Sprintf("%s; %d of its own dependencies incomplete",
			detail, ctx.IncompleteDependencies)
	}
	return Factor{Name: FactorDependents, Score: score, Weight: weight, Detail: detail}
}

// ratingFactor scores a metadata rating. Unset ratings return
// included=false so the factor drops out of the weighted average.
func ratingFactor(name string, rating models.Rating, weight float64) (Factor, bool) {
	if rating == "" {
		return Factor{}, false
	}
	score, known := ratingScores[rating]
	if !known {
		// Malformed rating: fall back to a neutral score instead of
		// failing the whole computation.
		return Factor{Name: name, Score: 0.5, Weight: weight,
			Detail: fmt.Sprintf("unrecognized rating %q", rating)}, true
	}
	return Factor{Name: name, Score: score, Weight: weight,
		Detail: fmt.Sprintf("rated %s", rating)}, true
}

// complexityFactor scores assessed complexity; bigger work floats up.
func complexityFactor(task *models.Task, weight float64) Factor {
	score, known := complexityScores[task.Complexity]
	if !known {
		return Factor{Name: FactorComplexity, Score: 0.5, Weight: weight,
			Detail: fmt.Sprintf("unrecognized complexity %q", task.Complexity)}
	}
	return Factor{Name: FactorComplexity, Score: score, Weight: weight,
		Detail: fmt.Sprintf("complexity %s", task.Complexity)}
}

// blockersFactor scores the task's active blockers. No dependencies
// or fully resolved dependencies leave the task actionable; active
// blockers push it down.
func blockersFactor(ctx Context, weight float64) Factor {
	switch {
	case ctx.DependencyCount == 0:
		return Factor{Name: FactorBlockers, Score: 0.8, Weight: weight, Detail: "no blockers"}
	case ctx.IncompleteDependencies == 0:
		return Factor{Name: FactorBlockers, Score: 0.8, Weight: weight,
			Detail: fmt.Sprintf("all %d blockers resolved", ctx.DependencyCount)}
	case ctx.IncompleteDependencies <= 2:
		return Factor{Name: FactorBlockers, Score: 0.4, Weight: weight,
			Detail: fmt.Sprintf("%d active blockers", ctx.IncompleteDependencies)}
	default:
		return Factor{Name: FactorBlockers, Score: 0.2, Weight: weight,
			Detail: fmt.Sprintf("%d active blockers", ctx.IncompleteDependencies)}
	}
}

// progressFactor scores completion progress; work that is nearly done
// is worth finishing.
func progressFactor(task *models.Task, weight float64) Factor {
	var score float64
	switch {
	case task.Progress >= 80:
		score = 0.9
	case task.Progress >= 50:
		score = 0.7
	case task.Progress > 0:
		score = 0.6
	default:
		score = 0.4
	}
	return Factor{Name: FactorProgress, Score: score, Weight: weight,
		Detail: fmt.Sprintf("%d%% complete", task.Progress)}
}

// assigneeFactor scores whether anyone owns the task.
func assigneeFactor(task *models.Task, weight float64) Factor {
	if task.Assignee != "" {
		return Factor{Name: FactorAssignee, Score: 0.8, Weight: weight,
			Detail: fmt.Sprintf("assigned to %s", task.Assignee)}
	}
	return Factor{Name: FactorAssignee, Score: 0.5, Weight: weight, Detail: "unassigned"}
}

// ageFactor scores how long the task has been waiting.
func ageFactor(task *models.Task, now time.Time, weight float64) Factor {
	age := now.Sub(task.CreatedAt)
	var score float64
	switch {
	case age > 30*24*time.Hour:
		score = 0.8
	case age > 14*24*time.Hour:
		score = 0.6
	default:
		score = 0.5
	}
	return Factor{Name: FactorAge, Score: score, Weight: weight,
		Detail: fmt.Sprintf("created %s ago", formatDuration(age))}
}

// formatDuration renders a duration in whole days or hours.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if days := int(d.Hours() / 24); days >= 1 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
