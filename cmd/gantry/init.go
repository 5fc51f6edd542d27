package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/config"
	"github.com/gantrylabs/gantry/internal/storage"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up configuration and data directories",
	Long: `Initialize gantry for this user.

This command sets up everything needed to run gantry:
  - Writes the default config to ~/.config/gantry/config.yaml
  - Creates the data directory under ~/.local/share/gantry
  - Opens the configured storage backend once to create it

Examples:
  gantry init          # Initialize with defaults
  gantry init --force  # Rewrite the config file with defaults`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Rewrite the config file even if it exists")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := config.GetUserConfigPath()
	if _, err := os.Stat(configFile); err == nil && !initForce {
		printStatus("✓", fmt.Sprintf("Config exists at %s", configFile), color.FgGreen)
	} else {
		if err := config.Save(config.Default()); err != nil {
			printStatus("✗", fmt.Sprintf("Writing config: %v", err), color.FgRed)
			return err
		}
		printStatus("✓", fmt.Sprintf("Wrote default config to %s", configFile), color.FgGreen)
		cfg = config.Default()
	}

	dataDir := config.DefaultDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		printStatus("✗", fmt.Sprintf("Creating data directory: %v", err), color.FgRed)
		return err
	}
	printStatus("✓", fmt.Sprintf("Data directory at %s", dataDir), color.FgGreen)

	storeCfg := cfg.StorageConfig()
	if err := os.MkdirAll(filepath.Dir(storeCfg.Path), 0o755); err != nil {
		return err
	}
	store, err := storage.Open(storeCfg)
	if err != nil {
		printStatus("✗", fmt.Sprintf("Opening %s storage: %v", storeCfg.Backend, err), color.FgRed)
		return err
	}
	store.Close()
	printStatus("✓", fmt.Sprintf("Storage ready (%s at %s)", storeCfg.Backend, storeCfg.Path), color.FgGreen)

	fmt.Printf("\n%s gantry is ready.\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  gantry add \"My first task\"")
	fmt.Println("  gantry list")
	fmt.Println("  gantry watch")
	return nil
}

// printStatus prints a status line with a colored symbol.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
