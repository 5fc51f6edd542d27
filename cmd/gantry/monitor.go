package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/tui"
)

var monitorNoLoops bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Open the live terminal monitor",
	Long: `Open a full-screen monitor showing task statistics, the priority
distribution, recent activity, and a live event feed.

The adjustment and learning loops run inside the monitor process, so
priority changes and model updates appear in the feed as they happen.
Pass --no-loops to watch a store that another process is driving.

Keys:
  q        quit
  up/down  scroll the event feed
  f        jump to the newest events and follow

Examples:
  gantry monitor
  gantry monitor --no-loops`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorNoLoops, "no-loops", false, "Do not run the background loops inside the monitor")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	a, err := openApp(!monitorNoLoops)
	if err != nil {
		return err
	}
	defer a.Close()

	p, _ := tui.NewProgram(a.manager)
	handle := tui.Attach(a.manager.Bus(), p)
	defer a.manager.Bus().Unsubscribe(handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !monitorNoLoops {
		// The loops tick on minute-scale intervals, long after the
		// program's receive loop is accepting forwarded events.
		go func() {
			_ = a.services.Run(ctx)
		}()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
