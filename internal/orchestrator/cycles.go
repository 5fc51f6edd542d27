package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/events"
	"github.com/gantrylabs/gantry/internal/hierarchy"
	"github.com/gantrylabs/gantry/internal/learning"
	"github.com/gantrylabs/gantry/internal/priority"
	"github.com/gantrylabs/gantry/internal/taskerr"
	"github.com/gantrylabs/gantry/pkg/models"
)

// ErrCycleActive reports that a cycle invocation found the previous
// one still running. The periodic loops skip on it rather than queue.
var ErrCycleActive = errors.New("cycle already running")

// AppliedAdjustment records one priority change the adjustment cycle
// wrote through the facade.
type AppliedAdjustment struct {
	TaskID     string          `json:"taskId"`
	From       models.Priority `json:"from"`
	To         models.Priority `json:"to"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
}

// AdjustmentReport summarizes one automatic adjustment cycle.
type AdjustmentReport struct {
	// Scored is how many open tasks the pass scored.
	Scored int `json:"scored"`
	// Recommendations are all changes that survived damping, applied
	// or not.
	Recommendations []priority.Recommendation `json:"recommendations"`
	// Applied are the changes confident enough to write back.
	Applied []AppliedAdjustment `json:"applied"`
	// Duration is how long the pass took.
	Duration time.Duration `json:"duration"`
}

// RunAdjustmentCycle scores every open task, derives recommendations
// under the policy, and writes the auto-applicable ones back through
// the facade. A second invocation while one is in flight returns
// ErrCycleActive.
func (s *Services) RunAdjustmentCycle(ctx context.Context) (AdjustmentReport, error) {
	if !s.adjusting.CompareAndSwap(false, true) {
		return AdjustmentReport{}, ErrCycleActive
	}
	defer s.adjusting.Store(false)

	start := s.now()
	tasks := s.openTasks()
	byID := make(map[string]*models.Task, len(tasks))
	urgentOrCritical := 0
	for _, t := range tasks {
		byID[t.ID] = t
		if t.Priority == models.PriorityUrgent || t.Priority == models.PriorityCritical {
			urgentOrCritical++
		}
	}

	graph, err := s.manager.Graph()
	if err != nil {
		return AdjustmentReport{}, taskerr.Computation("orchestrator.adjust", err)
	}
	results := s.scorer.ScoreAll(tasks, graph)

	s.scoreMu.Lock()
	s.scores = results
	s.scoredAt = start
	s.scoreMu.Unlock()

	recs := s.policy.Recommend(results)
	recs = s.policy.Dampen(recs, urgentOrCritical, len(tasks))

	report := AdjustmentReport{Scored: len(tasks), Recommendations: recs}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return report, taskerr.Computation("orchestrator.adjust", err)
		}
		if !s.policy.AutoApplicable(rec) {
			continue
		}
		before := byID[rec.TaskID]
		to := rec.Suggested
		after, err := s.manager.Update(rec.TaskID, hierarchy.TaskUpdate{Priority: &to})
		if err != nil {
			log.Warn().Str("task_id", rec.TaskID).Err(err).Msg("adjustment not applied")
			continue
		}
		report.Applied = append(report.Applied, AppliedAdjustment{
			TaskID:     rec.TaskID,
			From:       rec.Current,
			To:         rec.Suggested,
			Confidence: rec.Confidence,
			Reason:     rec.Reason,
		})
		s.manager.Bus().Publish(events.Event{
			Type:   events.EventPriorityAdjusted,
			TaskID: rec.TaskID,
			Before: before,
			After:  after,
			Payload: map[string]any{
				"reason":     rec.Reason,
				"score":      rec.Score,
				"confidence": rec.Confidence,
			},
			Timestamp: s.now(),
		})
	}

	report.Duration = s.now().Sub(start)
	s.manager.Bus().Publish(events.Event{
		Type:      events.EventAutomaticAdjustmentsCompleted,
		Payload:   map[string]any{"adjustments": len(report.Applied)},
		Timestamp: s.now(),
	})
	log.Debug().
		Int("scored", report.Scored).
		Int("recommended", len(recs)).
		Int("applied", len(report.Applied)).
		Msg("adjustment cycle completed")
	return report, nil
}

// RunLearningCycle retrains the estimation model over the retained
// dataset. A second invocation while one is in flight returns
// ErrCycleActive.
func (s *Services) RunLearningCycle(ctx context.Context) (learning.CycleReport, error) {
	if !s.training.CompareAndSwap(false, true) {
		return learning.CycleReport{}, ErrCycleActive
	}
	defer s.training.Store(false)

	report, err := s.engine.Cycle(ctx)
	if err != nil {
		return report, err
	}
	s.manager.Bus().Publish(events.Event{
		Type: events.EventLearningCycleCompleted,
		Payload: map[string]any{
			"model_version": report.Version,
			"trained_on":    report.TrainedOn,
			"accuracy":      report.Accuracy,
		},
		Timestamp: s.now(),
	})
	return report, nil
}

// Run drives the periodic cycles until the context is cancelled or a
// stop signal arrives. Each configured loop runs on its own ticker; a
// tick firing while the previous cycle is still running is skipped. A
// pause signal suspends the loops without stopping them.
func (s *Services) Run(ctx context.Context) error {
	var adjustC, learnC <-chan time.Time
	if s.adjustInterval > 0 {
		ticker := time.NewTicker(s.adjustInterval)
		defer ticker.Stop()
		adjustC = ticker.C
	}
	if s.learnInterval > 0 {
		ticker := time.NewTicker(s.learnInterval)
		defer ticker.Stop()
		learnC = ticker.C
	}

	log.Info().
		Dur("adjust_interval", s.adjustInterval).
		Dur("learn_interval", s.learnInterval).
		Msg("orchestration loops started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopSignal():
			log.Info().Msg("orchestration loops stopped by signal")
			return nil
		case <-adjustC:
			if s.stopRequested() {
				log.Info().Msg("orchestration loops stopped by signal")
				return nil
			}
			if s.skipTick() {
				continue
			}
			if _, err := s.RunAdjustmentCycle(ctx); err != nil && !errors.Is(err, ErrCycleActive) {
				log.Error().Err(err).Msg("adjustment cycle failed")
			}
		case <-learnC:
			if s.stopRequested() {
				log.Info().Msg("orchestration loops stopped by signal")
				return nil
			}
			if s.skipTick() {
				continue
			}
			if _, err := s.RunLearningCycle(ctx); err != nil && !errors.Is(err, ErrCycleActive) {
				log.Error().Err(err).Msg("learning cycle failed")
			}
		}
	}
}

// stopSignal returns the controller's stop channel, or a nil channel
// that never fires when signals are disabled.
func (s *Services) stopSignal() <-chan struct{} {
	if s.signals == nil {
		return nil
	}
	return s.signals.Stopped()
}

// stopRequested polls the stop file directly. The watcher normally
// closes the stop channel first; the poll covers a missed event.
func (s *Services) stopRequested() bool {
	return s.signals != nil && s.signals.ShouldStop()
}

// skipTick reports whether a tick should be dropped because the
// operator paused the loops.
func (s *Services) skipTick() bool {
	if s.signals == nil {
		return false
	}
	if s.signals.ShouldPause() {
		log.Debug().Msg("tick skipped while paused")
		return true
	}
	return false
}
