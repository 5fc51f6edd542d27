package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/pkg/models"
)

var (
	statsTimeline   int
	statsJSONOutput bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the task set",
	Long: `Print aggregate statistics over the current task set: totals by
status, priority, type, and complexity, average progress, completion
rate, overdue count, and the share of tasks produced by
decomposition. --timeline also shows the most recent actions.

Examples:
  gantry stats
  gantry stats --timeline 10
  gantry stats --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsTimeline, "timeline", 0, "Also show this many recent actions")
	statsCmd.Flags().BoolVar(&statsJSONOutput, "json", false, "Emit JSON instead of text")
}

func runStats(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	stats := app.manager.Stats()
	if statsJSONOutput {
		return printJSON(stats)
	}

	fmt.Printf("Tasks:           %d\n", stats.Total)
	if stats.Total == 0 {
		return nil
	}
	fmt.Printf("Completion rate: %.0f%%\n", stats.CompletionRate*100)
	fmt.Printf("Avg progress:    %.0f%%\n", stats.AverageProgress)
	fmt.Printf("Overdue:         %d\n", stats.Overdue)
	fmt.Printf("Generated:       %.0f%%\n", stats.GeneratedShare*100)

	fmt.Println("\nBy status:")
	for _, s := range []models.TaskStatus{
		models.TaskStatusPending,
		models.TaskStatusInProgress,
		models.TaskStatusBlocked,
		models.TaskStatusCompleted,
		models.TaskStatusCancelled,
	} {
		if n := stats.ByStatus[s]; n > 0 {
			fmt.Printf("  %-12s %d\n", s, n)
		}
	}

	fmt.Println("\nBy priority:")
	order := models.Priorities()
	for i := len(order) - 1; i >= 0; i-- {
		p := order[i]
		if n := stats.ByPriority[p]; n > 0 {
			fmt.Printf("  %s %d\n", priorityColorSprintf("%-12s", p), n)
		}
	}

	if len(stats.ByType) > 0 {
		fmt.Println("\nBy type:")
		for _, tt := range []models.TaskType{
			models.TaskTypeEpic,
			models.TaskTypeFeature,
			models.TaskTypeStory,
			models.TaskTypeTask,
			models.TaskTypeSubtask,
			models.TaskTypeBug,
			models.TaskTypeImprovement,
			models.TaskTypeResearch,
		} {
			if n := stats.ByType[tt]; n > 0 {
				fmt.Printf("  %-12s %d\n", tt, n)
			}
		}
	}

	if len(stats.ByComplexity) > 0 {
		fmt.Println("\nBy complexity:")
		for _, c := range []models.Complexity{
			models.ComplexityTrivial,
			models.ComplexitySimple,
			models.ComplexityMedium,
			models.ComplexityComplex,
			models.ComplexityVeryComplex,
		} {
			if n := stats.ByComplexity[c]; n > 0 {
				fmt.Printf("  %-12s %d\n", c, n)
			}
		}
	}

	if statsTimeline > 0 {
		fmt.Println("\nRecent activity:")
		for _, e := range app.manager.Timeline(statsTimeline) {
			fmt.Printf("  %s  %-8s %s\n",
				e.Timestamp.Format("2006-01-02 15:04"), e.Action, truncate(e.Title, 50))
		}
	}
	return nil
}

// priorityColorSprintf formats a priority with its display color.
func priorityColorSprintf(format string, p models.Priority) string {
	return priorityColor(p).Sprintf(format, p)
}
