package priority

import (
	"sort"
	"time"

	"github.com/gantrylabs/gantry/internal/hierarchy"
	"github.com/gantrylabs/gantry/pkg/models"
)

// Thresholds maps an overall score onto a priority bucket. A score
// below Medium maps to low.
type Thresholds struct {
	Critical float64 `mapstructure:"critical"`
	Urgent   float64 `mapstructure:"urgent"`
	High     float64 `mapstructure:"high"`
	Medium   float64 `mapstructure:"medium"`
}

// DefaultThresholds returns the default score-to-priority cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 0.9, Urgent: 0.75, High: 0.6, Medium: 0.4}
}

// Priority buckets a score using the thresholds.
func (t Thresholds) Priority(score float64) models.Priority {
	switch {
	case score >= t.Critical:
		return models.PriorityCritical
	case score >= t.Urgent:
		return models.PriorityUrgent
	case score >= t.High:
		return models.PriorityHigh
	case score >= t.Medium:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// Context carries the graph-derived inputs for scoring one task.
type Context struct {
	// Dependents is the number of tasks that depend on this one.
	Dependents int
	// DependencyCount is the number of dependencies the task declares.
	DependencyCount int
	// IncompleteDependencies is how many of those are not yet complete.
	IncompleteDependencies int
	// TotalTasks is the size of the task set being scored, used by
	// the damping pass.
	TotalTasks int
}

// Result is the scored outcome for a single task.
type Result struct {
	// TaskID identifies the scored task.
	TaskID string
	// Current is the task's priority at scoring time.
	Current models.Priority
	// Suggested is the priority the score maps to.
	Suggested models.Priority
	// Overall is the weighted average of the applied factors.
	Overall float64
	// Confidence estimates how trustworthy the score is, in [0.1,1].
	Confidence float64
	// Factors lists the applied factors and their contributions.
	Factors []Factor
	// ScoredAt is when the score was computed.
	ScoredAt time.Time
}

// Scorer computes priority scores from task state and dependency
// context.
type Scorer struct {
	weights    Weights
	thresholds Thresholds
	now        func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights overrides the default factor weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithThresholds overrides the default score cutoffs.
func WithThresholds(t Thresholds) Option {
	return func(s *Scorer) { s.thresholds = t }
}

// WithClock overrides the scorer's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// NewScorer creates a Scorer with default weights and thresholds.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		weights:    DefaultWeights(),
		thresholds: DefaultThresholds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the weighted factor score for one task. Factors
// without a signal (unset ratings) are excluded and the average is
// taken over the weights actually applied.
func (s *Scorer) Score(task *models.Task, ctx Context) Result {
	now := s.now()

	factors := make([]Factor, 0, 10)
	factors = append(factors,
		deadlineFactor(task, now, s.weights.Deadline),
		dependentsFactor(ctx, s.weights.Dependents),
		complexityFactor(task, s.weights.Complexity),
		blockersFactor(ctx, s.weights.Blockers),
		progressFactor(task, s.weights.Progress),
		assigneeFactor(task, s.weights.Assignee),
		ageFactor(task, now, s.weights.Age),
	)
	if f, ok := ratingFactor(FactorBusinessValue, task.Metadata.BusinessValue, s.weights.BusinessValue); ok {
		factors = append(factors, f)
	}
	if f, ok := ratingFactor(FactorTechnicalRisk, task.Metadata.TechnicalRisk, s.weights.TechnicalRisk); ok {
		factors = append(factors, f)
	}
	if f, ok := ratingFactor(FactorUserImpact, task.Metadata.UserImpact, s.weights.UserImpact); ok {
		factors = append(factors, f)
	}

	var weighted, total float64
	for _, f := range factors {
		weighted += f.Score * f.Weight
		total += f.Weight
	}
	overall := 0.0
	if total > 0 {
		overall = weighted / total
	}

	return Result{
		TaskID:     task.ID,
		Current:    task.Priority,
		Suggested:  s.thresholds.Priority(overall),
		Overall:    overall,
		Confidence: s.confidence(task, ctx, now),
		Factors:    factors,
		ScoredAt:   now,
	}
}

// ScoreAll scores every task in the snapshot, deriving each task's
// dependency context from the graph. Results come back ordered by
// descending score, ties broken by task ID.
func (s *Scorer) ScoreAll(tasks []*models.Task, graph *hierarchy.DependencyGraph) []Result {
	results := make([]Result, 0, len(tasks))
	for _, task := range tasks {
		results = append(results, s.Score(task, contextFor(task, graph, len(tasks))))
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Overall != results[j].Overall {
			return results[i].Overall > results[j].Overall
		}
		return results[i].TaskID < results[j].TaskID
	})
	return results
}

// contextFor derives the scoring context for one task from the graph.
func contextFor(task *models.Task, graph *hierarchy.DependencyGraph, total int) Context {
	ctx := Context{
		DependencyCount: len(task.Dependencies),
		TotalTasks:      total,
	}
	if graph != nil {
		ctx.Dependents = len(graph.Dependents(task.ID))
		ctx.IncompleteDependencies = len(graph.IncompleteDependencies(task.ID))
	}
	return ctx
}

// confidence estimates score trustworthiness. More signals raise it,
// a task too young to have meaningful state lowers it.
func (s *Scorer) confidence(task *models.Task, ctx Context, now time.Time) float64 {
	conf := 0.5
	if task.DueDate != nil {
		conf += 0.15
	}
	if task.Metadata.BusinessValue != "" {
		conf += 0.1
	}
	if ctx.Dependents > 0 {
		conf += 0.1
	}
	if now.Sub(task.CreatedAt) < 24*time.Hour {
		conf -= 0.2
	}
	return clamp(conf, 0.1, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
