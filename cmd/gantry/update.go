package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/hierarchy"
)

var (
	updateTitle       string
	updateDescription string
	updateType        string
	updateStatus      string
	updatePriority    string
	updateComplexity  string
	updateEstimate    float64
	updateActual      float64
	updateProgress    int
	updateParent      string
	updateDeps        []string
	updateTags        []string
	updateAssignee    string
	updateDue         string
	updateClearDue    bool
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of a task",
	Long: `Apply a partial update to a task. Only the flags you pass change;
everything else keeps its value. Completing a task through here stamps
the completion time and forces progress to 100.

Examples:
  gantry update 1b9bdb7a --status in_progress --assignee dana
  gantry update 1b9bdb7a --priority urgent --due 2026-09-01
  gantry update 1b9bdb7a --parent "" --clear-due`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "New title")
	updateCmd.Flags().StringVarP(&updateDescription, "description", "d", "", "New description")
	updateCmd.Flags().StringVarP(&updateType, "type", "t", "", "New task type")
	updateCmd.Flags().StringVarP(&updateStatus, "status", "s", "", "New status (pending, in_progress, blocked, completed, cancelled)")
	updateCmd.Flags().StringVarP(&updatePriority, "priority", "p", "", "New priority")
	updateCmd.Flags().StringVarP(&updateComplexity, "complexity", "c", "", "New complexity")
	updateCmd.Flags().Float64VarP(&updateEstimate, "estimate", "e", 0, "New estimated hours")
	updateCmd.Flags().Float64Var(&updateActual, "actual", 0, "Recorded actual hours")
	updateCmd.Flags().IntVar(&updateProgress, "progress", 0, "Progress percentage, 0 to 100")
	updateCmd.Flags().StringVar(&updateParent, "parent", "", "New parent id (empty string makes it a root)")
	updateCmd.Flags().StringSliceVar(&updateDeps, "deps", nil, "Replacement dependency list")
	updateCmd.Flags().StringSliceVar(&updateTags, "tags", nil, "Replacement tag list")
	updateCmd.Flags().StringVarP(&updateAssignee, "assignee", "a", "", "New assignee")
	updateCmd.Flags().StringVar(&updateDue, "due", "", "New due date (2006-01-02 or RFC3339)")
	updateCmd.Flags().BoolVar(&updateClearDue, "clear-due", false, "Remove the due date")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	upd, err := buildTaskUpdate(cmd)
	if err != nil {
		return err
	}

	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	task, err := app.manager.Update(args[0], upd)
	if err != nil {
		return err
	}

	fmt.Printf("%s Updated task %s\n", color.GreenString("✓"), color.HiBlackString(task.ID))
	printTaskRow(task)
	return nil
}

// buildTaskUpdate collects only the flags that were actually passed,
// so unset flags never clobber stored values.
func buildTaskUpdate(cmd *cobra.Command) (hierarchy.TaskUpdate, error) {
	var upd hierarchy.TaskUpdate
	flags := cmd.Flags()

	if flags.Changed("title") {
		upd.Title = &updateTitle
	}
	if flags.Changed("description") {
		upd.Description = &updateDescription
	}
	if flags.Changed("type") {
		tt, err := parseTaskType(updateType)
		if err != nil {
			return upd, err
		}
		upd.Type = &tt
	}
	if flags.Changed("status") {
		st, err := parseStatus(updateStatus)
		if err != nil {
			return upd, err
		}
		upd.Status = &st
	}
	if flags.Changed("priority") {
		p, err := parsePriority(updatePriority)
		if err != nil {
			return upd, err
		}
		upd.Priority = &p
	}
	if flags.Changed("complexity") {
		c, err := parseComplexity(updateComplexity)
		if err != nil {
			return upd, err
		}
		upd.Complexity = &c
	}
	if flags.Changed("estimate") {
		upd.EstimatedHours = &updateEstimate
	}
	if flags.Changed("actual") {
		upd.ActualHours = &updateActual
	}
	if flags.Changed("progress") {
		upd.Progress = &updateProgress
	}
	if flags.Changed("parent") {
		upd.Parent = &updateParent
	}
	if flags.Changed("deps") {
		upd.Dependencies = &updateDeps
	}
	if flags.Changed("tags") {
		upd.Tags = &updateTags
	}
	if flags.Changed("assignee") {
		upd.Assignee = &updateAssignee
	}
	if flags.Changed("due") {
		due, err := parseDate(updateDue)
		if err != nil {
			return upd, err
		}
		upd.DueDate = &due
	}
	if updateClearDue {
		upd.ClearDueDate = true
	}
	if upd.IsZero() {
		return upd, fmt.Errorf("nothing to update, pass at least one field flag")
	}
	return upd, nil
}
