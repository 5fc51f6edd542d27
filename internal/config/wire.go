package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/gantrylabs/gantry/internal/decompose"
	"github.com/gantrylabs/gantry/internal/learning"
	"github.com/gantrylabs/gantry/internal/logging"
	"github.com/gantrylabs/gantry/internal/manager"
	"github.com/gantrylabs/gantry/internal/priority"
	"github.com/gantrylabs/gantry/internal/storage"
)

// This file turns a loaded Config into the values the engine
// constructors accept, and validates the knobs before anything is
// built from them.

// DefaultDataDir returns the XDG data directory for gantry.
func DefaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "gantry")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "gantry")
	}
	return filepath.Join(home, ".local", "share", "gantry")
}

// StorageConfig returns the storage selection with ${VAR} references
// expanded and an empty path resolved to the backend's default file
// under the data dir.
func (c *Config) StorageConfig() storage.Config {
	sc := c.Storage
	sc.Path = expandEnv(sc.Path)
	if sc.Path == "" {
		name := "tasks.json"
		if sc.Backend == storage.BackendSQLite {
			name = "tasks.db"
		}
		sc.Path = filepath.Join(DefaultDataDir(), name)
	}
	return sc
}

// SignalsDir returns the signal file directory, defaulting under the
// data dir.
func (c *Config) SignalsDir() string {
	dir := expandEnv(c.Loops.SignalsDir)
	if dir == "" {
		dir = filepath.Join(DefaultDataDir(), "signals")
	}
	return dir
}

// LearningStateFile returns where the estimation model and completion
// dataset are snapshotted between processes.
func (c *Config) LearningStateFile() string {
	return filepath.Join(DefaultDataDir(), "learning.json")
}

// ManagerOptions returns the facade options this config selects.
func (c *Config) ManagerOptions() []manager.Option {
	return []manager.Option{
		manager.WithMaxDepth(c.Hierarchy.MaxDepth),
	}
}

// ScorerOptions returns the scorer options this config selects.
func (c *Config) ScorerOptions() []priority.Option {
	return []priority.Option{
		priority.WithWeights(c.Priority.Weights),
		priority.WithThresholds(c.Priority.Thresholds),
	}
}

// EngineOptions returns the learning engine options this config
// selects.
func (c *Config) EngineOptions() []learning.EngineOption {
	return []learning.EngineOption{
		learning.WithCapacity(c.Learning.Capacity),
		learning.WithMaxAge(c.Learning.MaxAge),
		learning.WithSmoothingRate(c.Learning.SmoothingRate),
	}
}

// DecomposerOptions returns the decomposer options this config
// selects.
func (c *Config) DecomposerOptions() []decompose.DecomposerOption {
	return []decompose.DecomposerOption{
		decompose.WithGates(c.Decompose.Gates),
		decompose.WithConstraints(c.Decompose.Constraints),
	}
}

// Validate checks the configuration for values the engines cannot
// work with. It returns the first problem found.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case storage.BackendJSONFile, storage.BackendSQLite:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}

	if c.Hierarchy.MaxDepth < 1 {
		return fmt.Errorf("hierarchy.max_depth must be at least 1, got %d", c.Hierarchy.MaxDepth)
	}

	if err := validateWeights(c.Priority.Weights); err != nil {
		return err
	}
	if err := validateThresholds(c.Priority.Thresholds); err != nil {
		return err
	}
	if err := validatePolicy(c.Priority.Policy); err != nil {
		return err
	}

	if c.Learning.Capacity < 1 {
		return fmt.Errorf("learning.capacity must be at least 1, got %d", c.Learning.Capacity)
	}
	if c.Learning.MaxAge < 0 {
		return fmt.Errorf("learning.max_age must not be negative, got %s", c.Learning.MaxAge)
	}
	if c.Learning.SmoothingRate <= 0 || c.Learning.SmoothingRate > 1 {
		return fmt.Errorf("learning.smoothing_rate must be in (0, 1], got %g", c.Learning.SmoothingRate)
	}

	if c.Decompose.Gates.MinScore < 0 || c.Decompose.Gates.MinScore > 1 {
		return fmt.Errorf("decompose.gates.min_score must be in [0, 1], got %g", c.Decompose.Gates.MinScore)
	}
	if c.Decompose.Gates.MinEffortHours < 0 {
		return fmt.Errorf("decompose.gates.min_effort_hours must not be negative, got %g", c.Decompose.Gates.MinEffortHours)
	}
	if c.Decompose.Constraints.MinSubtasks < 1 {
		return fmt.Errorf("decompose.constraints.min_subtasks must be at least 1, got %d", c.Decompose.Constraints.MinSubtasks)
	}
	if c.Decompose.Constraints.MaxSubtasks < c.Decompose.Constraints.MinSubtasks {
		return fmt.Errorf("decompose.constraints.max_subtasks %d is below min_subtasks %d",
			c.Decompose.Constraints.MaxSubtasks, c.Decompose.Constraints.MinSubtasks)
	}

	if c.Loops.AdjustInterval < 0 {
		return fmt.Errorf("loops.adjust_interval must not be negative, got %s", c.Loops.AdjustInterval)
	}
	if c.Loops.LearnInterval < 0 {
		return fmt.Errorf("loops.learn_interval must not be negative, got %s", c.Loops.LearnInterval)
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	return nil
}

func validateWeights(w priority.Weights) error {
	fields := map[string]float64{
		"deadline":       w.Deadline,
		"dependents":     w.Dependents,
		"business_value": w.BusinessValue,
		"complexity":     w.Complexity,
		"blockers":       w.Blockers,
		"progress":       w.Progress,
		"assignee":       w.Assignee,
		"age":            w.Age,
		"technical_risk": w.TechnicalRisk,
		"user_impact":    w.UserImpact,
	}
	sum := 0.0
	for name, value := range fields {
		if value < 0 {
			return fmt.Errorf("priority.weights.%s must not be negative, got %g", name, value)
		}
		sum += value
	}
	if sum == 0 {
		return fmt.Errorf("priority.weights must not all be zero")
	}
	return nil
}

func validateThresholds(t priority.Thresholds) error {
	for name, value := range map[string]float64{
		"critical": t.Critical,
		"urgent":   t.Urgent,
		"high":     t.High,
		"medium":   t.Medium,
	} {
		if value <= 0 || value > 1 {
			return fmt.Errorf("priority.thresholds.%s must be in (0, 1], got %g", name, value)
		}
	}
	if t.Critical < t.Urgent || t.Urgent < t.High || t.High < t.Medium {
		return fmt.Errorf("priority.thresholds must descend critical >= urgent >= high >= medium")
	}
	return nil
}

func validatePolicy(p priority.Policy) error {
	for name, value := range map[string]float64{
		"min_confidence":        p.MinConfidence,
		"damping_ratio":         p.DampingRatio,
		"damping_confidence":    p.DampingConfidence,
		"auto_apply_confidence": p.AutoApplyConfidence,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("priority.policy.%s must be in [0, 1], got %g", name, value)
		}
	}
	return nil
}
