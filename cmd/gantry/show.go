package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/hierarchy"
)

var (
	showTree       bool
	showJSONOutput bool
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task in full",
	Long: `Display the full record of a task: every field, its dependencies
and dependents, and optionally the subtree beneath it.

Examples:
  gantry show 1b9bdb7a-4f6e-4d11-a2b0-57e1c2a3ff21
  gantry show 1b9bdb7a-4f6e-4d11-a2b0-57e1c2a3ff21 --tree`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showTree, "tree", false, "Render the subtree beneath the task")
	showCmd.Flags().BoolVar(&showJSONOutput, "json", false, "Emit JSON instead of text")
}

func runShow(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	if showTree {
		node, err := app.manager.Hierarchy(args[0])
		if err != nil {
			return err
		}
		if showJSONOutput {
			return printJSON(node)
		}
		printTree(node, "")
		fmt.Printf("\n%d task(s) beneath the root\n", node.DescendantCount)
		return nil
	}

	task, err := app.manager.Task(args[0])
	if err != nil {
		return err
	}
	if showJSONOutput {
		return printJSON(task)
	}

	printTaskDetail(task)
	if dependents := app.manager.Dependents(task.ID); len(dependents) > 0 {
		fmt.Printf("Dependents:  %s\n", strings.Join(dependents, ", "))
	}
	return nil
}

// printTree renders a subtree with indentation and status markers.
func printTree(node *hierarchy.TreeNode, prefix string) {
	t := node.Task
	marker := statusColor(t.Status).Sprintf("[%s]", t.Status)
	fmt.Printf("%s%s %s %s %s\n",
		prefix,
		color.HiBlackString(shortID(t.ID)),
		priorityColor(t.Priority).Sprint(t.Priority),
		marker,
		t.Title)
	for _, child := range node.Children {
		printTree(child, prefix+"  ")
	}
}
