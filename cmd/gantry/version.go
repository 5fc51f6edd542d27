package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		rev := version.Revision()
		if rev == "unknown" {
			fmt.Printf("gantry version %s\n", version.Get())
			return
		}
		fmt.Printf("gantry version %s (%s)\n", version.Get(), rev)
	},
}
