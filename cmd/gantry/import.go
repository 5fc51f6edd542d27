package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import tasks from a JSON document",
	Long: `Load tasks from a JSON document produced by gantry export. Tasks
keep their ids; importing over an existing set updates tasks whose
ids already exist and creates the rest.

Examples:
  gantry import backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	count, err := app.manager.Import(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s Imported %d task(s) from %s\n", color.GreenString("✓"), count, args[0])
	return nil
}
