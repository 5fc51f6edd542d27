package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/orchestrator"
	"github.com/gantrylabs/gantry/pkg/models"
)

var (
	adjustDryRun     bool
	adjustJSONOutput bool
)

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Run one automatic priority adjustment pass",
	Long: `Score every open task, derive priority recommendations under the
configured policy, and write back the ones confident enough to
auto-apply. Changes of more than one level are dampened to a single
step unless confidence is very high.

--dry-run shows the current and projected priority distributions and
the ranked recommendations without changing anything.

Examples:
  gantry adjust
  gantry adjust --dry-run`,
	Args: cobra.NoArgs,
	RunE: runAdjust,
}

func init() {
	adjustCmd.Flags().BoolVar(&adjustDryRun, "dry-run", false, "Show recommendations without applying")
	adjustCmd.Flags().BoolVar(&adjustJSONOutput, "json", false, "Emit JSON instead of text")
}

func runAdjust(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	if adjustDryRun {
		insights := app.services.Insights()
		if adjustJSONOutput {
			return printJSON(insights)
		}
		printInsights(insights)
		return nil
	}

	report, err := app.services.RunAdjustmentCycle(context.Background())
	if err != nil {
		return err
	}
	if adjustJSONOutput {
		return printJSON(report)
	}

	fmt.Printf("Scored %d open task(s) in %s\n", report.Scored, formatDuration(report.Duration))
	if len(report.Applied) == 0 {
		fmt.Println("No adjustments confident enough to apply.")
	} else {
		fmt.Printf("%s Applied %d adjustment(s):\n", color.GreenString("✓"), len(report.Applied))
		for _, a := range report.Applied {
			fmt.Printf("  %s %s %s %s  %s\n",
				color.HiBlackString(shortID(a.TaskID)),
				a.From,
				color.HiBlackString("->"),
				priorityColor(a.To).Sprint(a.To),
				color.HiBlackString(a.Reason))
		}
	}
	if held := len(report.Recommendations) - len(report.Applied); held > 0 {
		fmt.Printf("%d recommendation(s) below the auto-apply bar; see gantry adjust --dry-run\n", held)
	}
	return nil
}

// printInsights renders the distributions and ranked recommendations.
func printInsights(in orchestrator.Insights) {
	fmt.Printf("Open tasks: %d\n\n", in.Open)
	fmt.Printf("%-10s %-8s %-9s\n", "PRIORITY", "CURRENT", "PROJECTED")
	order := models.Priorities()
	for i := len(order) - 1; i >= 0; i-- {
		p := order[i]
		current := in.Current[p]
		projected := in.Projected[p]
		delta := ""
		if projected != current {
			delta = color.HiBlackString(" (%+d)", projected-current)
		}
		fmt.Printf("%-10s %-8d %d%s\n", p, current, projected, delta)
	}

	if len(in.Recommendations) == 0 {
		fmt.Println("\nNo priority changes recommended.")
		return
	}
	fmt.Printf("\nRecommendations (%d):\n", len(in.Recommendations))
	for _, rec := range in.Recommendations {
		dampened := ""
		if rec.Dampened {
			dampened = color.YellowString(" dampened")
		}
		fmt.Printf("  %s %s %s %s  conf %.2f%s\n      %s\n",
			color.HiBlackString(shortID(rec.TaskID)),
			rec.Current,
			color.HiBlackString("->"),
			priorityColor(rec.Suggested).Sprint(rec.Suggested),
			rec.Confidence,
			dampened,
			color.HiBlackString(rec.Reason))
	}
}
