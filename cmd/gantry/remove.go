package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var removeCascade bool

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a task",
	Long: `Delete a task from the store. A task with children is refused
unless --cascade is passed, which removes the whole subtree. Other
tasks depending on removed ones have those dependency entries
scrubbed.

Examples:
  gantry remove 1b9bdb7a
  gantry remove 1b9bdb7a --cascade`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVar(&removeCascade, "cascade", false, "Also remove every descendant")
}

func runRemove(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	removed, err := app.manager.Delete(args[0], removeCascade)
	if err != nil {
		return err
	}

	if len(removed) == 1 {
		fmt.Printf("%s Removed task %s\n", color.GreenString("✓"), removed[0])
		return nil
	}
	fmt.Printf("%s Removed %d tasks:\n", color.GreenString("✓"), len(removed))
	for _, id := range removed {
		fmt.Printf("  %s\n", id)
	}
	return nil
}
