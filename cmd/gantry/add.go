package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/manager"
	"github.com/gantrylabs/gantry/pkg/models"
)

var (
	addDescription string
	addType        string
	addPriority    string
	addComplexity  string
	addEstimate    float64
	addParent      string
	addDeps        []string
	addTags        []string
	addAssignee    string
	addDue         string
	addValue       string
	addRisk        string
	addImpact      string
	addDomain      string
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task",
	Long: `Create a task in the store.

The title is taken from the arguments; everything else comes from
flags. Type, priority, and complexity default to task/medium/medium.

Examples:
  gantry add "Fix login timeout" --priority high --type bug
  gantry add "Migrate billing" --complexity complex --estimate 24 --due 2026-09-30
  gantry add "Write docs" --parent 1b9bdb7a --tags docs,onboarding`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Detailed description")
	addCmd.Flags().StringVarP(&addType, "type", "t", "", "Task type (epic, feature, story, task, subtask, bug, improvement, research)")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "Priority (low, medium, high, urgent, critical)")
	addCmd.Flags().StringVarP(&addComplexity, "complexity", "c", "", "Complexity (trivial, simple, medium, complex, very_complex)")
	addCmd.Flags().Float64VarP(&addEstimate, "estimate", "e", 0, "Estimated effort in hours")
	addCmd.Flags().StringVar(&addParent, "parent", "", "Parent task id")
	addCmd.Flags().StringSliceVar(&addDeps, "deps", nil, "Dependency task ids")
	addCmd.Flags().StringSliceVar(&addTags, "tags", nil, "Tags")
	addCmd.Flags().StringVarP(&addAssignee, "assignee", "a", "", "Assignee")
	addCmd.Flags().StringVar(&addDue, "due", "", "Due date (2006-01-02 or RFC3339)")
	addCmd.Flags().StringVar(&addValue, "value", "", "Business value (low, medium, high)")
	addCmd.Flags().StringVar(&addRisk, "risk", "", "Technical risk (low, medium, high)")
	addCmd.Flags().StringVar(&addImpact, "impact", "", "User impact (low, medium, high)")
	addCmd.Flags().StringVar(&addDomain, "domain", "", "Functional domain")
}

func runAdd(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	req := manager.CreateRequest{
		Title:        strings.Join(args, " "),
		Description:  addDescription,
		ParentID:     addParent,
		Dependencies: addDeps,
		Tags:         addTags,
		Assignee:     addAssignee,
		Metadata:     models.Metadata{Domain: addDomain},
	}
	for _, f := range []struct {
		value string
		dst   *models.Rating
	}{
		{addValue, &req.Metadata.BusinessValue},
		{addRisk, &req.Metadata.TechnicalRisk},
		{addImpact, &req.Metadata.UserImpact},
	} {
		if f.value == "" {
			continue
		}
		r, err := parseRating(f.value)
		if err != nil {
			return err
		}
		*f.dst = r
	}
	if addType != "" {
		tt, err := parseTaskType(addType)
		if err != nil {
			return err
		}
		req.Type = tt
	}
	if addPriority != "" {
		p, err := parsePriority(addPriority)
		if err != nil {
			return err
		}
		req.Priority = p
	}
	if addComplexity != "" {
		c, err := parseComplexity(addComplexity)
		if err != nil {
			return err
		}
		req.Complexity = c
	}
	if cmd.Flags().Changed("estimate") {
		req.EstimatedHours = &addEstimate
	}
	if addDue != "" {
		due, err := parseDate(addDue)
		if err != nil {
			return err
		}
		req.DueDate = &due
	}

	task, err := app.manager.Create(req)
	if err != nil {
		return err
	}

	fmt.Printf("%s Created task %s\n", color.GreenString("✓"), color.HiBlackString(task.ID))
	printTaskRow(task)
	return nil
}
