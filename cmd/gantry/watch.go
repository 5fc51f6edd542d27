package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/logging"
	"github.com/gantrylabs/gantry/internal/orchestrator"
)

var (
	watchStop   bool
	watchPause  bool
	watchResume bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the background adjustment and learning loops",
	Long: `Run the priority-adjustment and learning loops in the foreground.

Each loop ticks on its configured interval (loops.adjust_interval and
loops.learn_interval; a zero interval disables that loop) until the
process is interrupted. Loop activity is written to the structured log.

A running watcher also honors signal files in the signals directory:
a "pause" file suspends the loops, removing it resumes them, and a
"stop" file shuts the watcher down. The --pause, --resume, and --stop
flags write those files for you from another terminal.

Examples:
  gantry watch              Run the loops until Ctrl-C
  gantry watch --pause      Pause a running watcher
  gantry watch --resume     Resume a paused watcher
  gantry watch --stop       Stop a running watcher`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Signal a running watcher to stop")
	watchCmd.Flags().BoolVar(&watchPause, "pause", false, "Signal a running watcher to pause")
	watchCmd.Flags().BoolVar(&watchResume, "resume", false, "Signal a paused watcher to resume")
}

func runWatch(cmd *cobra.Command, args []string) error {
	flags := 0
	for _, set := range []bool{watchStop, watchPause, watchResume} {
		if set {
			flags++
		}
	}
	if flags > 1 {
		return errors.New("pass at most one of --stop, --pause, --resume")
	}
	if flags == 1 {
		return sendWatchSignal()
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	// Mirror task activity into the structured log while the loops run.
	observerID := a.manager.Bus().Subscribe(logging.EventObserver())
	defer a.manager.Bus().Unsubscribe(observerID)

	printStatus("✓", fmt.Sprintf("Watching %d task(s)", a.manager.Len()), color.FgGreen)
	fmt.Printf("  Adjustment loop: %s\n", describeInterval(cfg.Loops.AdjustInterval))
	fmt.Printf("  Learning loop:   %s\n", describeInterval(cfg.Loops.LearnInterval))
	fmt.Printf("  Signals:         %s\n", cfg.SignalsDir())
	fmt.Println()
	fmt.Println("Press Ctrl-C to stop, or run 'gantry watch --pause|--stop' from another terminal.")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	err = a.services.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printStatus("✓", "Loops stopped", color.FgGreen)
	return nil
}

// sendWatchSignal writes a signal file for a watcher running in another
// process.
func sendWatchSignal() error {
	ctrl, err := orchestrator.NewSignalController(cfg.SignalsDir())
	if err != nil {
		return fmt.Errorf("signal controller: %w", err)
	}
	defer ctrl.Close()

	switch {
	case watchStop:
		if err := ctrl.RequestStop(); err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Stop requested (%s)", ctrl.Dir()), color.FgGreen)
	case watchPause:
		if err := ctrl.RequestPause(); err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Pause requested (%s)", ctrl.Dir()), color.FgGreen)
	case watchResume:
		if err := ctrl.Resume(); err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Resumed (%s)", ctrl.Dir()), color.FgGreen)
	}
	return nil
}

// describeInterval renders a loop interval, naming the disabled case.
func describeInterval(d time.Duration) string {
	if d <= 0 {
		return "disabled"
	}
	return "every " + formatDuration(d)
}
