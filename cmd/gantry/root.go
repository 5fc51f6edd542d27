package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/config"
	"github.com/gantrylabs/gantry/internal/logging"
)

var (
	cfg        *config.Config
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "Task orchestration with priority scoring, effort learning, and decomposition",
	Long: `Gantry manages hierarchical tasks and keeps their priorities honest.

Tasks live in a local store (JSON file or SQLite). A multi-factor scorer
ranks the open ones, a learning engine refines effort estimates from
recorded completions, and a decomposition engine splits oversized tasks
into sub-task sets. Background loops apply priority adjustments and
retrain the estimation model on a schedule.

Start with:
  gantry init                 # set up config and data directories
  gantry add "Ship the thing" # create a task
  gantry list                 # see where things stand
  gantry watch                # run the adjustment and learning loops
  gantry monitor              # live TUI over the same engine`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// setup loads configuration and initializes logging before any
// command runs. It does not validate the config: inspection commands
// still work against a broken file, and openApp validates before
// anything touches storage.
func setup(cmd *cobra.Command) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		// Keep the command runnable so the broken value can be fixed
		// with gantry config.
		fmt.Fprintf(os.Stderr, "warning: %v, falling back to info/console\n", err)
		logging.Init("info", logging.FormatConsole)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to an explicit config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(decomposeCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(adjustCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
