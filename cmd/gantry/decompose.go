package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/decompose"
)

var (
	decomposeForce  bool
	decomposeDryRun bool
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose <id>",
	Short: "Split a task into sub-tasks",
	Long: `Analyze a task's complexity and split it into a sub-task set.

Tasks below the complexity and effort gates are left alone unless
--force is passed. Generated sub-tasks are created under the source
task with provenance recorded; sequential strategies chain them with
dependencies. --dry-run shows what would be generated without
creating anything.

Examples:
  gantry decompose 1b9bdb7a
  gantry decompose 1b9bdb7a --dry-run
  gantry decompose 1b9bdb7a --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDecompose,
}

func init() {
	decomposeCmd.Flags().BoolVar(&decomposeForce, "force", false, "Bypass the skip gates")
	decomposeCmd.Flags().BoolVar(&decomposeDryRun, "dry-run", false, "Show the result without creating sub-tasks")
}

func runDecompose(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	opts := decompose.Options{Force: decomposeForce}
	ctx := context.Background()

	if decomposeDryRun {
		task, err := app.manager.Task(args[0])
		if err != nil {
			return err
		}
		result, err := decompose.NewDecomposer(cfg.DecomposerOptions()...).Decompose(ctx, task, opts)
		if err != nil {
			return err
		}
		printDecomposition(result, nil, true)
		return nil
	}

	dec, err := app.services.Decompose(ctx, args[0], opts)
	if err != nil {
		return err
	}
	printDecomposition(dec.Result, dec.CreatedIDs, false)
	return nil
}

// printDecomposition renders an analysis and its generated sub-tasks.
func printDecomposition(result *decompose.Result, createdIDs []string, dryRun bool) {
	a := result.Analysis
	fmt.Printf("Analyzed %q\n", result.Source.Title)
	fmt.Printf("  Complexity score: %.2f (%s)\n", a.Score, a.SuggestedComplexity)
	fmt.Printf("  Strategy:         %s\n", result.Strategy)

	if result.Skipped {
		fmt.Printf("\n%s Skipped: %s\n", color.YellowString("-"), result.SkipReason)
		fmt.Println("Use --force to decompose anyway.")
		return
	}

	if dryRun {
		fmt.Printf("\nWould create %d sub-task(s):\n", len(result.Subtasks))
	} else {
		fmt.Printf("\n%s Created %d sub-task(s):\n", color.GreenString("✓"), len(createdIDs))
	}
	for i, sub := range result.Subtasks {
		id := ""
		if i < len(createdIDs) {
			id = color.HiBlackString(shortID(createdIDs[i])) + "  "
		}
		est := ""
		if sub.EstimatedHours != nil {
			est = fmt.Sprintf(" (%s)", formatHours(*sub.EstimatedHours))
		}
		fmt.Printf("  %d. %s%s%s\n", i+1, id, sub.Title, est)
		if len(sub.Dependencies) > 0 {
			fmt.Printf("     waits on step %d\n", i)
		}
	}
}
