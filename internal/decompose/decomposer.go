package decompose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

// ErrNoTask rejects decomposition without a task.
var ErrNoTask = errors.New("no task provided")

// Gates are the conditions under which decomposition is skipped.
type Gates struct {
	// MinScore is the analysis score below which a task is left alone.
	MinScore float64 `mapstructure:"min_score"`
	// MinEffortHours is the estimate below which a task is left alone.
	MinEffortHours float64 `mapstructure:"min_effort_hours"`
}

// DefaultGates returns the default skip conditions.
func DefaultGates() Gates {
	return Gates{MinScore: 0.6, MinEffortHours: 8}
}

// typeMinComplexity is the declared complexity a task must reach,
// given its type, before decomposition is worthwhile. Coarser types
// decompose readily; leaf types only when severely misfiled.
var typeMinComplexity = map[models.TaskType]models.Complexity{
	models.TaskTypeEpic:        models.ComplexitySimple,
	models.TaskTypeFeature:     models.ComplexityMedium,
	models.TaskTypeStory:       models.ComplexityMedium,
	models.TaskTypeResearch:    models.ComplexityMedium,
	models.TaskTypeTask:        models.ComplexityComplex,
	models.TaskTypeImprovement: models.ComplexityComplex,
	models.TaskTypeBug:         models.ComplexityComplex,
	models.TaskTypeSubtask:     models.ComplexityVeryComplex,
}

// Options control one decomposition request.
type Options struct {
	// Force bypasses the skip gates.
	Force bool
}

// Result is the outcome of a decomposition request.
type Result struct {
	// Source is the task that was analyzed.
	Source *models.Task
	// Analysis is the complexity analysis behind the decision.
	Analysis Analysis
	// Strategy is the generation approach used.
	Strategy Strategy
	// Subtasks are the generated sub-tasks, empty when skipped.
	Subtasks []*models.Task
	// Skipped reports that the gates left the task unchanged.
	Skipped bool
	// SkipReason explains a skip in human terms.
	SkipReason string
}

// Decomposer turns oversized tasks into structured sub-task sets.
type Decomposer struct {
	library     *Library
	constraints Constraints
	gates       Gates
	newID       func() string
	now         func() time.Time
}

// DecomposerOption configures a Decomposer.
type DecomposerOption func(*Decomposer)

// WithLibrary replaces the embedded template library.
func WithLibrary(lib *Library) DecomposerOption {
	return func(d *Decomposer) { d.library = lib }
}

// WithConstraints overrides the size bounds.
func WithConstraints(c Constraints) DecomposerOption {
	return func(d *Decomposer) { d.constraints = c }
}

// WithGates overrides the skip conditions.
func WithGates(g Gates) DecomposerOption {
	return func(d *Decomposer) { d.gates = g }
}

// WithIDSource overrides sub-task id generation.
func WithIDSource(newID func() string) DecomposerOption {
	return func(d *Decomposer) { d.newID = newID }
}

// WithDecomposerClock overrides the time source.
func WithDecomposerClock(now func() time.Time) DecomposerOption {
	return func(d *Decomposer) { d.now = now }
}

// NewDecomposer creates a decomposer with the embedded template
// library and default bounds.
func NewDecomposer(opts ...DecomposerOption) *Decomposer {
	d := &Decomposer{
		library:     DefaultLibrary(),
		constraints: DefaultConstraints(),
		gates:       DefaultGates(),
		newID:       func() string { return uuid.New().String() },
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decompose analyzes a task and, unless a gate skips it, generates
// its sub-tasks. A skip is a successful result, not an error.
func (d *Decomposer) Decompose(ctx context.Context, task *models.Task, opts Options) (*Result, error) {
	if task == nil {
		return nil, taskerr.Validation("decompose", "", ErrNoTask)
	}
	if err := ctx.Err(); err != nil {
		return nil, taskerr.Computation("decompose", err)
	}

	analysis := Analyze(task, d.library)
	result := &Result{Source: task, Analysis: analysis, Strategy: analysis.Strategy}

	if !opts.Force {
		if reason := d.skipReason(task, analysis); reason != "" {
			result.Skipped = true
			result.SkipReason = reason
			log.Debug().Str("task_id", task.ID).Str("reason", reason).Msg("decomposition skipped")
			return result, nil
		}
	}

	g := &generator{source: task, newID: d.newID, now: d.now()}
	switch analysis.Strategy {
	case StrategyTemplate:
		tpl := d.library.Match(task)
		if tpl == nil {
			// The strategy was chosen from a match, so this only
			// happens if the library changed underneath us.
			result.Strategy = StrategyGeneric
			result.Subtasks = g.generateGeneric()
		} else {
			result.Subtasks = g.generateTemplate(tpl)
		}
	case StrategyHierarchical:
		result.Subtasks = g.generateHierarchical()
	case StrategySequential:
		result.Subtasks = g.generateSequential()
	case StrategyParallel:
		result.Subtasks = g.generateParallel(analysis)
	default:
		result.Subtasks = g.generateGeneric()
	}

	result.Subtasks = d.constraints.apply(g, result.Subtasks)

	log.Debug().
		Str("task_id", task.ID).
		Str("strategy", string(result.Strategy)).
		Int("subtasks", len(result.Subtasks)).
		Msg("task decomposed")
	return result, nil
}

// skipReason returns why the gates leave the task alone, or the empty
// string when decomposition should proceed. An unknown estimate does
// not trip the effort gate.
func (d *Decomposer) skipReason(task *models.Task, analysis Analysis) string {
	if analysis.Score < d.gates.MinScore {
		return fmt.Sprintf("analysis score %.2f below %.2f", analysis.Score, d.gates.MinScore)
	}
	if task.EstimatedHours != nil && *task.EstimatedHours < d.gates.MinEffortHours {
		return fmt.Sprintf("estimated %.1fh below %.1fh", *task.EstimatedHours, d.gates.MinEffortHours)
	}
	if minC, known := typeMinComplexity[task.Type]; known {
		if task.Complexity.Ordinal() >= 0 && task.Complexity.Ordinal() < minC.Ordinal() {
			return fmt.Sprintf("complexity %s below %s for type %s", task.Complexity, minC, task.Type)
		}
	}
	return ""
}
