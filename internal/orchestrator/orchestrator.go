// Package orchestrator wires the task facade to the scoring, learning,
// and decomposition engines. It reacts to facade events, drives the
// periodic adjustment and training cycles, and exposes the read-only
// insight aggregations the CLI and monitor render.
package orchestrator

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/decompose"
	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/learning"
	"github.com/gantrylabs/gantry/internal/manager"
	"github.com/gantrylabs/gantry/internal/priority"
	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

// ErrNoManager rejects composition without a task facade.
var ErrNoManager = errors.New("manager is required")

// Config contains the components and switches for the service layer.
// Nil engine fields get working defaults.
type Config struct {
	// Manager is the task facade every mutation flows through.
	Manager *manager.Manager
	// Scorer computes multi-factor priority scores.
	Scorer *priority.Scorer
	// Policy filters and damps scoring recommendations.
	// The zero value is replaced with the default policy.
	Policy priority.Policy
	// Engine estimates effort from recorded completions.
	Engine *learning.Engine
	// Decomposer splits oversized tasks into sub-task sets.
	Decomposer *decompose.Decomposer
	// Signals is the optional file-signal controller for pausing and
	// stopping the loops. Nil disables signal handling.
	Signals *SignalController
	// AdjustInterval is the cadence of the automatic priority pass.
	// Zero or negative disables the loop.
	AdjustInterval time.Duration
	// LearnInterval is the cadence of model retraining.
	// Zero or negative disables the loop.
	LearnInterval time.Duration
	// RescoreOnChange refreshes the cached scoreboard whenever a task
	// is created or a scoring-relevant field changes.
	RescoreOnChange bool
	// FeedCompletions forwards completed tasks that carry both an
	// estimate and actual hours into the learning engine.
	FeedCompletions bool
	// Clock overrides the time source.
	Clock func() time.Time
}

// Services composes the facade with the scoring, learning, and
// decomposition engines behind one coordination point.
type Services struct {
	manager    *manager.Manager
	scorer     *priority.Scorer
	policy     priority.Policy
	engine     *learning.Engine
	decomposer *decompose.Decomposer
	signals    *SignalController

	adjustInterval time.Duration
	learnInterval  time.Duration
	rescore        bool
	feed           bool
	now            func() time.Time

	subscription int
	adjusting    atomic.Bool
	training     atomic.Bool

	// scoreMu guards the cached scoreboard from the last full pass.
	scoreMu  sync.RWMutex
	scores   []priority.Result
	scoredAt time.Time
}

// New wires the services around the given facade and subscribes the
// event hooks on its bus.
func New(cfg Config) (*Services, error) {
	if cfg.Manager == nil {
		return nil, taskerr.Validation("orchestrator.new", "", ErrNoManager)
	}

	s := &Services{
		manager:        cfg.Manager,
		scorer:         cfg.Scorer,
		policy:         cfg.Policy,
		engine:         cfg.Engine,
		decomposer:     cfg.Decomposer,
		signals:        cfg.Signals,
		adjustInterval: cfg.AdjustInterval,
		learnInterval:  cfg.LearnInterval,
		rescore:        cfg.RescoreOnChange,
		feed:           cfg.FeedCompletions,
		now:            cfg.Clock,
	}
	if s.scorer == nil {
		s.scorer = priority.NewScorer()
	}
	if s.policy == (priority.Policy{}) {
		s.policy = priority.DefaultPolicy()
	}
	if s.engine == nil {
		s.engine = learning.NewEngine()
	}
	if s.decomposer == nil {
		s.decomposer = decompose.NewDecomposer()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.subscription = s.manager.Bus().Subscribe(s.onEvent)
	return s, nil
}

// Manager returns the composed task facade.
func (s *Services) Manager() *manager.Manager { return s.manager }

// Close detaches the event hooks and shuts down the signal controller.
// The facade itself stays open; its owner closes it.
func (s *Services) Close() {
	s.manager.Bus().Unsubscribe(s.subscription)
	if s.signals != nil {
		s.signals.Close()
	}
}

// onEvent is the bus hook behind the reactive wiring: completions feed
// the learning engine, creations and scoring-relevant updates refresh
// the cached scoreboard.
func (s *Services) onEvent(e events.Event) error {
	switch e.Type {
	case events.EventTaskCreated:
		if s.rescore {
			s.Rescore()
		}
	case events.EventTaskUpdated:
		if s.feed && completionToRecord(e.Before, e.After) {
			s.recordCompletion(e.After)
		}
		if s.rescore && scoringRelevantChange(e.Before, e.After) {
			s.Rescore()
		}
	case events.EventTaskDeleted:
		if s.rescore {
			s.Rescore()
		}
	}
	return nil
}

// completionToRecord reports whether an update is a transition into
// completed state carrying both an estimate and actual hours.
func completionToRecord(before, after *models.Task) bool {
	if before == nil || after == nil {
		return false
	}
	if before.Status == models.TaskStatusCompleted || after.Status != models.TaskStatusCompleted {
		return false
	}
	return after.EstimatedHours != nil && after.ActualHours != nil
}

// recordCompletion feeds one completed task into the engine and
// announces the ingestion on the bus.
func (s *Services) recordCompletion(task *models.Task) {
	if err := s.engine.RecordCompletion(task); err != nil {
		log.Warn().Str("task_id", task.ID).Err(err).Msg("completion not recorded")
		return
	}
	payload := map[string]any{
		"actual_hours": *task.ActualHours,
		"dataset_size": s.engine.DatasetSize(),
	}
	if task.EstimatedHours != nil {
		payload["estimated_hours"] = *task.EstimatedHours
	}
	s.manager.Bus().Publish(events.Event{
		Type:      events.EventTaskCompletionRecorded,
		TaskID:    task.ID,
		After:     task,
		Payload:   payload,
		Timestamp: s.now(),
	})
}

// scoringRelevantChange reports whether an update moved a field that
// feeds the scoring factors.
func scoringRelevantChange(before, after *models.Task) bool {
	if before == nil || after == nil {
		return true
	}
	if before.Status != after.Status ||
		before.Priority != after.Priority ||
		before.Complexity != after.Complexity ||
		before.Progress != after.Progress ||
		before.Assignee != after.Assignee {
		return true
	}
	if !equalTimePtr(before.DueDate, after.DueDate) {
		return true
	}
	if !equalStrings(before.Dependencies, after.Dependencies) {
		return true
	}
	return before.Metadata.BusinessValue != after.Metadata.BusinessValue ||
		before.Metadata.TechnicalRisk != after.Metadata.TechnicalRisk ||
		before.Metadata.UserImpact != after.Metadata.UserImpact
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Rescore runs a full scoring pass over the open tasks and replaces
// the cached scoreboard.
func (s *Services) Rescore() []priority.Result {
	tasks := s.openTasks()
	graph, err := s.manager.Graph()
	if err != nil {
		// A registry that loaded cannot produce a broken graph; score
		// without dependency context rather than dropping the pass.
		log.Warn().Err(err).Msg("scoring without dependency graph")
		graph = nil
	}
	results := s.scorer.ScoreAll(tasks, graph)

	s.scoreMu.Lock()
	s.scores = results
	s.scoredAt = s.now()
	s.scoreMu.Unlock()
	return results
}

// Scores returns the cached scoreboard from the last pass, newest
// first. An empty cache triggers a fresh pass.
func (s *Services) Scores() []priority.Result {
	s.scoreMu.RLock()
	cached := make([]priority.Result, len(s.scores))
	copy(cached, s.scores)
	at := s.scoredAt
	s.scoreMu.RUnlock()

	if at.IsZero() {
		return s.Rescore()
	}
	return cached
}

// openTasks snapshots the facade and drops terminal tasks, which are
// never re-prioritized.
func (s *Services) openTasks() []*models.Task {
	all := s.manager.Snapshot()
	open := make([]*models.Task, 0, len(all))
	for _, t := range all {
		if !t.Status.Terminal() {
			open = append(open, t)
		}
	}
	return open
}

// Estimate predicts effort for a stored task with the current model.
func (s *Services) Estimate(taskID string) (learning.Estimate, error) {
	task, err := s.manager.Task(taskID)
	if err != nil {
		return learning.Estimate{}, err
	}
	return s.engine.Predict(task), nil
}

// RecordFeedback files an explicit estimate correction for a stored
// task, weighted heavier than passive completions.
func (s *Services) RecordFeedback(taskID string, actualHours float64) error {
	task, err := s.manager.Task(taskID)
	if err != nil {
		return err
	}
	return s.engine.Feedback(task, actualHours)
}

// Model returns a copy of the current estimation model state.
func (s *Services) Model() learning.Model {
	return s.engine.Snapshot()
}
