package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify gantry configuration.

Without arguments, displays the current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the value and saves it.

Configuration is stored at ~/.config/gantry/config.yaml.
Project-specific overrides can be placed in .gantry.yaml.
Scoring weights and band thresholds are edited in the file directly.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch len(args) {
		case 0:
			displayAllConfig(cfg)
			return nil
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		default:
			return setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("storage.backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("storage.path: %s\n", displayPath(cfg.Storage.Path))
	fmt.Printf("hierarchy.max_depth: %d\n", cfg.Hierarchy.MaxDepth)
	fmt.Printf("priority.policy.min_confidence: %g\n", cfg.Priority.Policy.MinConfidence)
	fmt.Printf("priority.policy.damping_ratio: %g\n", cfg.Priority.Policy.DampingRatio)
	fmt.Printf("priority.policy.damping_confidence: %g\n", cfg.Priority.Policy.DampingConfidence)
	fmt.Printf("priority.policy.auto_apply_confidence: %g\n", cfg.Priority.Policy.AutoApplyConfidence)
	fmt.Printf("learning.capacity: %d\n", cfg.Learning.Capacity)
	fmt.Printf("learning.max_age: %s\n", cfg.Learning.MaxAge)
	fmt.Printf("learning.smoothing_rate: %g\n", cfg.Learning.SmoothingRate)
	fmt.Printf("decompose.gates.min_score: %g\n", cfg.Decompose.Gates.MinScore)
	fmt.Printf("decompose.gates.min_effort_hours: %g\n", cfg.Decompose.Gates.MinEffortHours)
	fmt.Printf("decompose.constraints.min_subtasks: %d\n", cfg.Decompose.Constraints.MinSubtasks)
	fmt.Printf("decompose.constraints.max_subtasks: %d\n", cfg.Decompose.Constraints.MaxSubtasks)
	fmt.Printf("loops.adjust_interval: %s\n", cfg.Loops.AdjustInterval)
	fmt.Printf("loops.learn_interval: %s\n", cfg.Loops.LearnInterval)
	fmt.Printf("loops.rescore_on_change: %t\n", cfg.Loops.RescoreOnChange)
	fmt.Printf("loops.feed_completions: %t\n", cfg.Loops.FeedCompletions)
	fmt.Printf("loops.signals_dir: %s\n", displayPath(cfg.Loops.SignalsDir))
	fmt.Printf("logging.level: %s\n", cfg.Logging.Level)
	fmt.Printf("logging.format: %s\n", cfg.Logging.Format)
	fmt.Println()
	fmt.Printf("Scoring weights (edit %s directly):\n", config.GetUserConfigPath())
	fmt.Printf("  deadline=%g dependents=%g business_value=%g complexity=%g blockers=%g\n",
		cfg.Priority.Weights.Deadline, cfg.Priority.Weights.Dependents,
		cfg.Priority.Weights.BusinessValue, cfg.Priority.Weights.Complexity,
		cfg.Priority.Weights.Blockers)
	fmt.Printf("  progress=%g assignee=%g age=%g technical_risk=%g user_impact=%g\n",
		cfg.Priority.Weights.Progress, cfg.Priority.Weights.Assignee,
		cfg.Priority.Weights.Age, cfg.Priority.Weights.TechnicalRisk,
		cfg.Priority.Weights.UserImpact)
	fmt.Printf("  thresholds: critical=%g urgent=%g high=%g medium=%g\n",
		cfg.Priority.Thresholds.Critical, cfg.Priority.Thresholds.Urgent,
		cfg.Priority.Thresholds.High, cfg.Priority.Thresholds.Medium)
}

// displayPath renders a possibly-empty path, naming the default case.
func displayPath(p string) string {
	if p == "" {
		return "(default)"
	}
	return p
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) error {
	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "storage.backend":
		return cfg.Storage.Backend, nil
	case "storage.path":
		return displayPath(cfg.Storage.Path), nil
	case "hierarchy.max_depth":
		return strconv.Itoa(cfg.Hierarchy.MaxDepth), nil
	case "priority.policy.min_confidence":
		return formatFloat(cfg.Priority.Policy.MinConfidence), nil
	case "priority.policy.damping_ratio":
		return formatFloat(cfg.Priority.Policy.DampingRatio), nil
	case "priority.policy.damping_confidence":
		return formatFloat(cfg.Priority.Policy.DampingConfidence), nil
	case "priority.policy.auto_apply_confidence":
		return formatFloat(cfg.Priority.Policy.AutoApplyConfidence), nil
	case "learning.capacity":
		return strconv.Itoa(cfg.Learning.Capacity), nil
	case "learning.max_age":
		return cfg.Learning.MaxAge.String(), nil
	case "learning.smoothing_rate":
		return formatFloat(cfg.Learning.SmoothingRate), nil
	case "decompose.gates.min_score":
		return formatFloat(cfg.Decompose.Gates.MinScore), nil
	case "decompose.gates.min_effort_hours":
		return formatFloat(cfg.Decompose.Gates.MinEffortHours), nil
	case "decompose.constraints.min_subtasks":
		return strconv.Itoa(cfg.Decompose.Constraints.MinSubtasks), nil
	case "decompose.constraints.max_subtasks":
		return strconv.Itoa(cfg.Decompose.Constraints.MaxSubtasks), nil
	case "loops.adjust_interval":
		return cfg.Loops.AdjustInterval.String(), nil
	case "loops.learn_interval":
		return cfg.Loops.LearnInterval.String(), nil
	case "loops.rescore_on_change":
		return strconv.FormatBool(cfg.Loops.RescoreOnChange), nil
	case "loops.feed_completions":
		return strconv.FormatBool(cfg.Loops.FeedCompletions), nil
	case "loops.signals_dir":
		return displayPath(cfg.Loops.SignalsDir), nil
	case "logging.level":
		return cfg.Logging.Level, nil
	case "logging.format":
		return cfg.Logging.Format, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "storage.backend":
		cfg.Storage.Backend = value
	case "storage.path":
		cfg.Storage.Path = value
	case "hierarchy.max_depth":
		n, err := parseConfigInt(key, value)
		if err != nil {
			return err
		}
		cfg.Hierarchy.MaxDepth = n
	case "priority.policy.min_confidence":
		f, err := parseConfigFloat(key, value)
		if err != nil {
			return err
		}
		cfg.Priority.Policy.MinConfidence = f
	case "priority.policy.damping_ratio":
		f, err := parseConfigFloat(key, value)
		if err != nil {
			return err
		}
		cfg.Priority.Policy.DampingRatio = f
	case "priority.policy.damping_confidence":
		f, err := parseConfigFloat(key, value)
		if err != nil {
			return err
		}
		cfg.Priority.Policy.DampingConfidence = f
	case "priority.policy.auto_apply_confidence":
		f, err := parseConfigFloat(key, value)
		if err != nil {
			return err
		}
		cfg.Priority.Policy.AutoApplyConfidence = f
	case "learning.capacity":
		n, err := parseConfigInt(key, value)
		if err != nil {
			return err
		}
		cfg.Learning.Capacity = n
	case "learning.max_age":
		d, err := parseConfigDuration(key, value)
		if err != nil {
			return err
		}
		cfg.Learning.MaxAge = d
	case "learning.smoothing_rate":
		f, err := parseConfigFloat(key, value)
		if err != nil {
			return err
		}
		cfg.Learning.SmoothingRate = f
	case "decompose.gates.min_score":
		f, err := parseConfigFloat(key, value)
		if err != nil {
			return err
		}
		cfg.Decompose.Gates.MinScore = f
	case "decompose.gates.min_effort_hours":
		f, err := parseConfigFloat(key, value)
		if err != nil {
			return err
		}
		cfg.Decompose.Gates.MinEffortHours = f
	case "decompose.constraints.min_subtasks":
		n, err := parseConfigInt(key, value)
		if err != nil {
			return err
		}
		cfg.Decompose.Constraints.MinSubtasks = n
	case "decompose.constraints.max_subtasks":
		n, err := parseConfigInt(key, value)
		if err != nil {
			return err
		}
		cfg.Decompose.Constraints.MaxSubtasks = n
	case "loops.adjust_interval":
		d, err := parseConfigDuration(key, value)
		if err != nil {
			return err
		}
		cfg.Loops.AdjustInterval = d
	case "loops.learn_interval":
		d, err := parseConfigDuration(key, value)
		if err != nil {
			return err
		}
		cfg.Loops.LearnInterval = d
	case "loops.rescore_on_change":
		b, err := parseConfigBool(key, value)
		if err != nil {
			return err
		}
		cfg.Loops.RescoreOnChange = b
	case "loops.feed_completions":
		b, err := parseConfigBool(key, value)
		if err != nil {
			return err
		}
		cfg.Loops.FeedCompletions = b
	case "loops.signals_dir":
		cfg.Loops.SignalsDir = value
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.format":
		cfg.Logging.Format = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func parseConfigInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, nil
}

func parseConfigFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number for %s: %w", key, err)
	}
	return f, nil
}

func parseConfigBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	return b, nil
}

func parseConfigDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
