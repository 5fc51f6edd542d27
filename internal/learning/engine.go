package learning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

// Sentinel causes for rejected learning input.
var (
	ErrNoTask        = errors.New("no task provided")
	ErrNoActualHours = errors.New("actual hours must be positive")
)

// Engine owns the completion dataset and the estimation model behind
// a single mutex. All methods are safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	dataset *Dataset
	model   *Model
	rate    float64
	now     func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	capacity int
	maxAge   time.Duration
	rate     float64
	now      func() time.Time
}

// WithCapacity bounds the dataset size.
func WithCapacity(n int) EngineOption {
	return func(c *engineConfig) { c.capacity = n }
}

// WithMaxAge bounds data point age; zero disables age eviction.
func WithMaxAge(d time.Duration) EngineOption {
	return func(c *engineConfig) { c.maxAge = d }
}

// WithSmoothingRate sets the exponential smoothing rate for feedback.
func WithSmoothingRate(rate float64) EngineOption {
	return func(c *engineConfig) { c.rate = rate }
}

// WithEngineClock overrides the engine's time source.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(c *engineConfig) { c.now = now }
}

// NewEngine creates an engine with a prior-seeded model and an empty
// dataset.
func NewEngine(opts ...EngineOption) *Engine {
	cfg := engineConfig{
		capacity: DefaultCapacity,
		maxAge:   DefaultMaxAge,
		rate:     DefaultSmoothingRate,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{
		dataset: NewDataset(cfg.capacity, cfg.maxAge, cfg.now),
		model:   NewModel(),
		rate:    cfg.rate,
		now:     cfg.now,
	}
}

// RecordCompletion ingests a finished task as a data point and folds
// the outcome into the rolling metrics. The task must carry positive
// actual hours.
func (e *Engine) RecordCompletion(task *models.Task) error {
	if task == nil {
		return taskerr.Validation("learning.record", "", ErrNoTask)
	}
	if task.ActualHours == nil || *task.ActualHours <= 0 {
		return taskerr.Validation("learning.record", task.ID, ErrNoActualHours)
	}

	point := DataPoint{
		TaskID:          task.ID,
		Type:            task.Type,
		Complexity:      task.Complexity,
		Domain:          task.Metadata.Domain,
		Assignee:        task.Assignee,
		DependencyCount: len(task.Dependencies),
		Tags:            append([]string(nil), task.Tags...),
		ActualHours:     *task.ActualHours,
		Source:          SourceCompletion,
		Weight:          1,
	}
	if task.EstimatedHours != nil {
		point.EstimatedHours = *task.EstimatedHours
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Smooth the metrics with how the current model would have
	// predicted this task, then retain the point for the next full
	// training pass.
	predicted := e.model.Predict(task).Hours
	e.model.Feedback(predicted, point.ActualHours, e.rate)
	e.dataset.Add(point)

	log.Debug().
		Str("task_id", task.ID).
		Float64("actual_hours", point.ActualHours).
		Int("dataset_size", e.dataset.Len()).
		Msg("completion recorded")
	return nil
}

// Feedback records an explicit estimate correction. Corrections are
// weighted heavier than passively observed completions.
func (e *Engine) Feedback(task *models.Task, actualHours float64) error {
	if task == nil {
		return taskerr.Validation("learning.feedback", "", ErrNoTask)
	}
	if actualHours <= 0 {
		return taskerr.Validation("learning.feedback", task.ID, ErrNoActualHours)
	}

	point := DataPoint{
		TaskID:          task.ID,
		Type:            task.Type,
		Complexity:      task.Complexity,
		Domain:          task.Metadata.Domain,
		Assignee:        task.Assignee,
		DependencyCount: len(task.Dependencies),
		Tags:            append([]string(nil), task.Tags...),
		ActualHours:     actualHours,
		Source:          SourceFeedback,
		Weight:          2,
	}
	if task.EstimatedHours != nil {
		point.EstimatedHours = *task.EstimatedHours
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	predicted := e.model.Predict(task).Hours
	e.model.Feedback(predicted, actualHours, e.rate)
	e.dataset.Add(point)
	return nil
}

// Predict estimates effort for a task with the current model.
func (e *Engine) Predict(task *models.Task) Estimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Predict(task)
}

// CycleReport summarizes one training pass.
type CycleReport struct {
	// Version is the model version after the pass.
	Version int
	// TrainedOn is how many data points the pass consumed.
	TrainedOn int
	// Metrics are the accuracy measurements from the pass.
	Metrics Metrics
	// Accuracy is the derived [0.1,0.95] accuracy figure.
	Accuracy float64
	// Duration is how long the pass took.
	Duration time.Duration
}

// Cycle runs a full training pass over the dataset. Training happens
// on a scratch copy of the model and is swapped in only on success,
// so a cancelled pass leaves the published model unchanged.
func (e *Engine) Cycle(ctx context.Context) (CycleReport, error) {
	e.mu.Lock()
	points := e.dataset.Points()
	scratch := e.model.clone()
	e.mu.Unlock()

	start := e.now()
	if err := scratch.Train(ctx, points, start); err != nil {
		return CycleReport{}, taskerr.Computation("learning.cycle", err)
	}

	e.mu.Lock()
	e.model = scratch
	e.mu.Unlock()

	report := CycleReport{
		Version:   scratch.Version,
		TrainedOn: scratch.TrainedOn,
		Metrics:   scratch.Metrics,
		Accuracy:  scratch.Accuracy(),
		Duration:  e.now().Sub(start),
	}
	log.Info().
		Int("model_version", report.Version).
		Int("trained_on", report.TrainedOn).
		Float64("mape", report.Metrics.MAPE).
		Float64("accuracy", report.Accuracy).
		Msg("learning cycle completed")
	return report, nil
}

// Snapshot returns a copy of the current model state for reporting.
func (e *Engine) Snapshot() Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.model.clone()
}

// DatasetSize returns the number of retained data points.
func (e *Engine) DatasetSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dataset.Len()
}

// clone deep-copies the model so training can work on scratch state.
func (m *Model) clone() *Model {
	out := *m
	out.ComplexityAvg = make(map[models.Complexity]float64, len(m.ComplexityAvg))
	for k, v := range m.ComplexityAvg {
		out.ComplexityAvg[k] = v
	}
	out.TypeAvg = make(map[models.TaskType]float64, len(m.TypeAvg))
	for k, v := range m.TypeAvg {
		out.TypeAvg[k] = v
	}
	out.DomainAvg = make(map[string]float64, len(m.DomainAvg))
	for k, v := range m.DomainAvg {
		out.DomainAvg[k] = v
	}
	out.AssigneeAvg = make(map[string]float64, len(m.AssigneeAvg))
	for k, v := range m.AssigneeAvg {
		out.AssigneeAvg[k] = v
	}
	out.ComplexityObserved = make(map[models.Complexity]int, len(m.ComplexityObserved))
	for k, v := range m.ComplexityObserved {
		out.ComplexityObserved[k] = v
	}
	out.TypeObserved = make(map[models.TaskType]int, len(m.TypeObserved))
	for k, v := range m.TypeObserved {
		out.TypeObserved[k] = v
	}
	return &out
}
