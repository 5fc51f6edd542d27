package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var completeHours float64

var completeCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark a task completed",
	Long: `Complete a task: status moves to completed, progress to 100, and
the completion time is stamped. Passing --hours records the actual
effort, which feeds the estimation model when the learning hook is on.

Examples:
  gantry complete 1b9bdb7a
  gantry complete 1b9bdb7a --hours 6.5`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().Float64Var(&completeHours, "hours", 0, "Actual hours spent")
}

func runComplete(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	var hours *float64
	if cmd.Flags().Changed("hours") {
		hours = &completeHours
	}

	task, err := app.manager.Complete(args[0], hours)
	if err != nil {
		return err
	}

	fmt.Printf("%s Completed %s", color.GreenString("✓"), task.Title)
	if task.ActualHours != nil {
		fmt.Printf(" (%s", formatHours(*task.ActualHours))
		if task.EstimatedHours != nil {
			fmt.Printf(" vs %s estimated", formatHours(*task.EstimatedHours))
		}
		fmt.Print(")")
	}
	fmt.Println()
	return nil
}
