package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/priority"
)

var (
	scoreLimit      int
	scoreJSONOutput bool
)

var scoreCmd = &cobra.Command{
	Use:   "score [id]",
	Short: "Score open tasks by priority factors",
	Long: `Run the multi-factor scorer over the open tasks.

Without arguments, prints the scoreboard: every open task with its
overall score, confidence, and the priority the score maps to. With a
task id, prints the full factor breakdown for that task.

Examples:
  gantry score
  gantry score --limit 10
  gantry score 1b9bdb7a`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().IntVarP(&scoreLimit, "limit", "n", 0, "Show at most this many rows")
	scoreCmd.Flags().BoolVar(&scoreJSONOutput, "json", false, "Emit JSON instead of a table")
}

func runScore(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	results := app.services.Rescore()
	if len(args) == 1 {
		return printScoreDetail(results, args[0])
	}

	if scoreJSONOutput {
		return printJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("No open tasks to score.")
		return nil
	}

	shown := results
	if scoreLimit > 0 && scoreLimit < len(shown) {
		shown = shown[:scoreLimit]
	}
	fmt.Printf("%-10s %-7s %-6s %-10s %-10s\n", "TASK", "SCORE", "CONF", "CURRENT", "SUGGESTED")
	for _, r := range shown {
		suggested := string(r.Suggested)
		if r.Suggested != r.Current {
			suggested = priorityColor(r.Suggested).Sprint(r.Suggested)
		}
		fmt.Printf("%-10s %-7.2f %-6.2f %-10s %s\n",
			shortID(r.TaskID), r.Overall, r.Confidence, r.Current, suggested)
	}
	if len(shown) < len(results) {
		fmt.Printf("... and %d more\n", len(results)-len(shown))
	}
	return nil
}

// printScoreDetail renders the factor breakdown for one task.
func printScoreDetail(results []priority.Result, id string) error {
	for _, r := range results {
		if r.TaskID != id && shortID(r.TaskID) != id {
			continue
		}
		if scoreJSONOutput {
			return printJSON(r)
		}
		fmt.Printf("Task:       %s\n", r.TaskID)
		fmt.Printf("Overall:    %.2f (confidence %.2f)\n", r.Overall, r.Confidence)
		fmt.Printf("Priority:   %s", r.Current)
		if r.Suggested != r.Current {
			fmt.Printf(" %s %s", color.HiBlackString("->"), priorityColor(r.Suggested).Sprint(r.Suggested))
		}
		fmt.Println()
		fmt.Println("\nFactors:")
		for _, f := range r.Factors {
			fmt.Printf("  %-15s %.2f x %.3f  %s\n", f.Name, f.Score, f.Weight, color.HiBlackString(f.Detail))
		}
		return nil
	}
	return fmt.Errorf("no open task scored with id %q", id)
}
