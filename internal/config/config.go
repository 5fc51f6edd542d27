// Package config handles configuration loading and management for
// gantry. It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gantrylabs/gantry/internal/decompose"
	"github.com/gantrylabs/gantry/internal/hierarchy"
	"github.com/gantrylabs/gantry/internal/learning"
	"github.com/gantrylabs/gantry/internal/priority"
	"github.com/gantrylabs/gantry/internal/storage"
)

// Loop interval defaults for the background services.
const (
	DefaultAdjustInterval = 15 * time.Minute
	DefaultLearnInterval  = time.Hour
)

// Config holds all configuration for gantry.
type Config struct {
	Storage   storage.Config  `mapstructure:"storage"`
	Hierarchy HierarchyConfig `mapstructure:"hierarchy"`
	Priority  PriorityConfig  `mapstructure:"priority"`
	Learning  LearningConfig  `mapstructure:"learning"`
	Decompose DecomposeConfig `mapstructure:"decompose"`
	Loops     LoopsConfig     `mapstructure:"loops"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// HierarchyConfig holds tree shape limits.
type HierarchyConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

// PriorityConfig holds the scoring weights, the band thresholds, and
// the recommendation policy.
type PriorityConfig struct {
	Weights    priority.Weights    `mapstructure:"weights"`
	Thresholds priority.Thresholds `mapstructure:"thresholds"`
	Policy     priority.Policy     `mapstructure:"policy"`
}

// LearningConfig holds estimation dataset and model settings.
type LearningConfig struct {
	Capacity      int           `mapstructure:"capacity"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	SmoothingRate float64       `mapstructure:"smoothing_rate"`
}

// DecomposeConfig holds the skip gates and subtask count bounds.
type DecomposeConfig struct {
	Gates       decompose.Gates       `mapstructure:"gates"`
	Constraints decompose.Constraints `mapstructure:"constraints"`
}

// LoopsConfig holds background service settings. A zero interval
// disables that loop.
type LoopsConfig struct {
	AdjustInterval  time.Duration `mapstructure:"adjust_interval"`
	LearnInterval   time.Duration `mapstructure:"learn_interval"`
	RescoreOnChange bool          `mapstructure:"rescore_on_change"`
	FeedCompletions bool          `mapstructure:"feed_completions"`
	// SignalsDir is where stop/pause signal files are watched; empty
	// means a gantry subdirectory of the user data dir.
	SignalsDir string `mapstructure:"signals_dir"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (GANTRY_*)
// 2. Project config (.gantry.yaml in current directory or a parent)
// 3. User config (~/.config/gantry/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Project config takes precedence over the user config.
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("GANTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file, on top of the
// built-in defaults.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("storage.backend", cfg.Storage.Backend)
	v.Set("storage.path", cfg.Storage.Path)

	v.Set("hierarchy.max_depth", cfg.Hierarchy.MaxDepth)

	v.Set("priority.weights.deadline", cfg.Priority.Weights.Deadline)
	v.Set("priority.weights.dependents", cfg.Priority.Weights.Dependents)
	v.Set("priority.weights.business_value", cfg.Priority.Weights.BusinessValue)
	v.Set("priority.weights.complexity", cfg.Priority.Weights.Complexity)
	v.Set("priority.weights.blockers", cfg.Priority.Weights.Blockers)
	v.Set("priority.weights.progress", cfg.Priority.Weights.Progress)
	v.Set("priority.weights.assignee", cfg.Priority.Weights.Assignee)
	v.Set("priority.weights.age", cfg.Priority.Weights.Age)
	v.Set("priority.weights.technical_risk", cfg.Priority.Weights.TechnicalRisk)
	v.Set("priority.weights.user_impact", cfg.Priority.Weights.UserImpact)
	v.Set("priority.thresholds.critical", cfg.Priority.Thresholds.Critical)
	v.Set("priority.thresholds.urgent", cfg.Priority.Thresholds.Urgent)
	v.Set("priority.thresholds.high", cfg.Priority.Thresholds.High)
	v.Set("priority.thresholds.medium", cfg.Priority.Thresholds.Medium)
	v.Set("priority.policy.min_confidence", cfg.Priority.Policy.MinConfidence)
	v.Set("priority.policy.damping_ratio", cfg.Priority.Policy.DampingRatio)
	v.Set("priority.policy.damping_confidence", cfg.Priority.Policy.DampingConfidence)
	v.Set("priority.policy.auto_apply_confidence", cfg.Priority.Policy.AutoApplyConfidence)

	v.Set("learning.capacity", cfg.Learning.Capacity)
	v.Set("learning.max_age", cfg.Learning.MaxAge.String())
	v.Set("learning.smoothing_rate", cfg.Learning.SmoothingRate)

	v.Set("decompose.gates.min_score", cfg.Decompose.Gates.MinScore)
	v.Set("decompose.gates.min_effort_hours", cfg.Decompose.Gates.MinEffortHours)
	v.Set("decompose.constraints.min_subtasks", cfg.Decompose.Constraints.MinSubtasks)
	v.Set("decompose.constraints.max_subtasks", cfg.Decompose.Constraints.MaxSubtasks)

	v.Set("loops.adjust_interval", cfg.Loops.AdjustInterval.String())
	v.Set("loops.learn_interval", cfg.Loops.LearnInterval.String())
	v.Set("loops.rescore_on_change", cfg.Loops.RescoreOnChange)
	v.Set("loops.feed_completions", cfg.Loops.FeedCompletions)
	v.Set("loops.signals_dir", cfg.Loops.SignalsDir)

	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.format", cfg.Logging.Format)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if
// one exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values. Every key gets one so that
// GANTRY_* environment overrides resolve through Unmarshal.
func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("storage.backend", def.Storage.Backend)
	v.SetDefault("storage.path", def.Storage.Path)

	v.SetDefault("hierarchy.max_depth", def.Hierarchy.MaxDepth)

	v.SetDefault("priority.weights.deadline", def.Priority.Weights.Deadline)
	v.SetDefault("priority.weights.dependents", def.Priority.Weights.Dependents)
	v.SetDefault("priority.weights.business_value", def.Priority.Weights.BusinessValue)
	v.SetDefault("priority.weights.complexity", def.Priority.Weights.Complexity)
	v.SetDefault("priority.weights.blockers", def.Priority.Weights.Blockers)
	v.SetDefault("priority.weights.progress", def.Priority.Weights.Progress)
	v.SetDefault("priority.weights.assignee", def.Priority.Weights.Assignee)
	v.SetDefault("priority.weights.age", def.Priority.Weights.Age)
	v.SetDefault("priority.weights.technical_risk", def.Priority.Weights.TechnicalRisk)
	v.SetDefault("priority.weights.user_impact", def.Priority.Weights.UserImpact)
	v.SetDefault("priority.thresholds.critical", def.Priority.Thresholds.Critical)
	v.SetDefault("priority.thresholds.urgent", def.Priority.Thresholds.Urgent)
	v.SetDefault("priority.thresholds.high", def.Priority.Thresholds.High)
	v.SetDefault("priority.thresholds.medium", def.Priority.Thresholds.Medium)
	v.SetDefault("priority.policy.min_confidence", def.Priority.Policy.MinConfidence)
	v.SetDefault("priority.policy.damping_ratio", def.Priority.Policy.DampingRatio)
	v.SetDefault("priority.policy.damping_confidence", def.Priority.Policy.DampingConfidence)
	v.SetDefault("priority.policy.auto_apply_confidence", def.Priority.Policy.AutoApplyConfidence)

	v.SetDefault("learning.capacity", def.Learning.Capacity)
	v.SetDefault("learning.max_age", def.Learning.MaxAge)
	v.SetDefault("learning.smoothing_rate", def.Learning.SmoothingRate)

	v.SetDefault("decompose.gates.min_score", def.Decompose.Gates.MinScore)
	v.SetDefault("decompose.gates.min_effort_hours", def.Decompose.Gates.MinEffortHours)
	v.SetDefault("decompose.constraints.min_subtasks", def.Decompose.Constraints.MinSubtasks)
	v.SetDefault("decompose.constraints.max_subtasks", def.Decompose.Constraints.MaxSubtasks)

	v.SetDefault("loops.adjust_interval", def.Loops.AdjustInterval)
	v.SetDefault("loops.learn_interval", def.Loops.LearnInterval)
	v.SetDefault("loops.rescore_on_change", def.Loops.RescoreOnChange)
	v.SetDefault("loops.feed_completions", def.Loops.FeedCompletions)
	v.SetDefault("loops.signals_dir", def.Loops.SignalsDir)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
}

// getUserConfigDir returns the XDG config directory for gantry.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "gantry")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "gantry")
	}
	return filepath.Join(home, ".config", "gantry")
}

// findProjectConfig searches for .gantry.yaml in the current directory
// and its parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".gantry.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with the built-in default values.
func Default() *Config {
	return &Config{
		Storage: storage.Config{
			Backend: storage.BackendJSONFile,
			// Empty means a per-backend file under the user data
			// dir; StorageConfig resolves it.
			Path: "",
		},
		Hierarchy: HierarchyConfig{
			MaxDepth: hierarchy.DefaultMaxDepth,
		},
		Priority: PriorityConfig{
			Weights:    priority.DefaultWeights(),
			Thresholds: priority.DefaultThresholds(),
			Policy:     priority.DefaultPolicy(),
		},
		Learning: LearningConfig{
			Capacity:      learning.DefaultCapacity,
			MaxAge:        learning.DefaultMaxAge,
			SmoothingRate: learning.DefaultSmoothingRate,
		},
		Decompose: DecomposeConfig{
			Gates:       decompose.DefaultGates(),
			Constraints: decompose.DefaultConstraints(),
		},
		Loops: LoopsConfig{
			AdjustInterval:  DefaultAdjustInterval,
			LearnInterval:   DefaultLearnInterval,
			RescoreOnChange: true,
			FeedCompletions: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
