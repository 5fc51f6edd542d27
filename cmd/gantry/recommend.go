package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/manager"
)

var (
	recommendApply      bool
	recommendJSONOutput bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show rule-based suggestions for what to do next",
	Long: `Run the facade's rule pass over the task set and print its
suggestions: which unblocked tasks to pick up next, which blocked
tasks have all dependencies done and can be unblocked, and which
tasks look oversized and worth decomposing.

--apply additionally runs the deterministic priority raises (overdue
tasks and tasks blocking three or more others) and writes them back.

Examples:
  gantry recommend
  gantry recommend --apply`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().BoolVar(&recommendApply, "apply", false, "Also apply the deterministic priority raises")
	recommendCmd.Flags().BoolVar(&recommendJSONOutput, "json", false, "Emit JSON instead of text")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	recs := app.manager.Recommendations()

	var applied []manager.PriorityAdjustment
	if recommendApply {
		applied = app.manager.AutoAdjustPriorities()
	}

	if recommendJSONOutput {
		return printJSON(struct {
			Recommendations []manager.Recommendation     `json:"recommendations"`
			Applied         []manager.PriorityAdjustment `json:"applied,omitempty"`
		}{recs, applied})
	}

	if len(recs) == 0 {
		fmt.Println("Nothing to suggest right now.")
	}
	for _, rec := range recs {
		fmt.Printf("%s %s %s\n    %s\n",
			color.CyanString("[%s]", rec.Kind),
			color.HiBlackString(shortID(rec.TaskID)),
			rec.Title,
			rec.Detail)
	}

	if recommendApply {
		if len(applied) == 0 {
			fmt.Println("\nNo deterministic raises fired.")
			return nil
		}
		fmt.Printf("\n%s Raised %d task(s):\n", color.GreenString("✓"), len(applied))
		for _, a := range applied {
			fmt.Printf("  %s %s %s %s  %s\n",
				color.HiBlackString(shortID(a.TaskID)),
				a.From,
				color.HiBlackString("->"),
				priorityColor(a.To).Sprint(a.To),
				color.HiBlackString(a.Reason))
		}
	}
	return nil
}
