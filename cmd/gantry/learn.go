package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/pkg/models"
)

var learnJSONOutput bool

var learnCmd = &cobra.Command{
	Use:   "learn [train | estimate <id> | feedback <id> <hours>]",
	Short: "Inspect and train the effort estimation model",
	Long: `Work with the estimation model that learns effort from recorded
completions.

Usage:
  gantry learn                       # Show the current model state
  gantry learn train                 # Run one training cycle now
  gantry learn estimate <id>         # Predict effort for a task
  gantry learn feedback <id> <hours> # File an estimate correction

Completions recorded through gantry complete --hours feed the model
automatically when the learning hook is enabled; train recomputes the
averages and accuracy metrics from the retained dataset.

Examples:
  gantry learn estimate 1b9bdb7a
  gantry learn feedback 1b9bdb7a 6.5`,
	Args: cobra.MaximumNArgs(3),
	RunE: runLearn,
}

func init() {
	learnCmd.Flags().BoolVar(&learnJSONOutput, "json", false, "Emit JSON instead of text")
}

func runLearn(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	if len(args) == 0 {
		return showModel(app)
	}

	switch args[0] {
	case "train":
		return trainModel(app)
	case "estimate":
		if len(args) < 2 {
			return fmt.Errorf("usage: gantry learn estimate <id>")
		}
		return estimateTask(app, args[1])
	case "feedback":
		if len(args) < 3 {
			return fmt.Errorf("usage: gantry learn feedback <id> <hours>")
		}
		hours, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid hours %q: %w", args[2], err)
		}
		return fileFeedback(app, args[1], hours)
	default:
		return fmt.Errorf("unknown learn subcommand %q (train, estimate, feedback)", args[0])
	}
}

// showModel prints the current estimation model state.
func showModel(app *app) error {
	model := app.services.Model()
	if learnJSONOutput {
		return printJSON(model)
	}

	fmt.Printf("Model version: %d\n", model.Version)
	if model.Version == 0 {
		fmt.Println("\nNot trained yet. Complete tasks with --hours, then run:")
		fmt.Println("  gantry learn train")
		return nil
	}
	fmt.Printf("Trained on:    %d completion(s)\n", model.TrainedOn)
	fmt.Printf("Trained at:    %s\n", model.TrainedAt.Format(time.RFC3339))
	if model.Metrics.Samples > 0 {
		fmt.Printf("Accuracy:      MAE %.1fh, MAPE %.0f%%, bias %+.1fh over %d sample(s)\n",
			model.Metrics.MAE, model.Metrics.MAPE, model.Metrics.Bias, model.Metrics.Samples)
	}

	fmt.Println("\nAverage hours by complexity:")
	for _, c := range []models.Complexity{
		models.ComplexityTrivial,
		models.ComplexitySimple,
		models.ComplexityMedium,
		models.ComplexityComplex,
		models.ComplexityVeryComplex,
	} {
		observed := ""
		if n := model.ComplexityObserved[c]; n > 0 {
			observed = fmt.Sprintf(" (%d observed)", n)
		}
		fmt.Printf("  %-12s %s%s\n", c, formatHours(model.ComplexityAvg[c]), observed)
	}

	fmt.Println("\nFactor weights:")
	fmt.Printf("  complexity %.2f, type %.2f, domain %.2f, assignee %.2f\n",
		model.Weights.Complexity, model.Weights.Type, model.Weights.Domain, model.Weights.Assignee)
	return nil
}

// trainModel runs one training cycle and prints the report.
func trainModel(app *app) error {
	report, err := app.services.RunLearningCycle(context.Background())
	if err != nil {
		return err
	}
	if learnJSONOutput {
		return printJSON(report)
	}
	fmt.Printf("%s Trained model v%d on %d completion(s) in %s\n",
		color.GreenString("✓"), report.Version, report.TrainedOn, formatDuration(report.Duration))
	if report.Metrics.Samples > 0 {
		fmt.Printf("Accuracy: %.0f%% (MAE %.1fh, MAPE %.0f%%, bias %+.1fh)\n",
			report.Accuracy*100, report.Metrics.MAE, report.Metrics.MAPE, report.Metrics.Bias)
	}
	return nil
}

// estimateTask predicts effort for a stored task.
func estimateTask(app *app, id string) error {
	estimate, err := app.services.Estimate(id)
	if err != nil {
		return err
	}
	if learnJSONOutput {
		return printJSON(estimate)
	}
	fmt.Printf("Estimated effort: %s (confidence %.2f, model v%d)\n",
		formatHours(estimate.Hours), estimate.Confidence, estimate.ModelVersion)
	if len(estimate.Factors) > 0 {
		fmt.Println("Based on:")
		for _, f := range estimate.Factors {
			fmt.Printf("  - %s\n", f)
		}
	}
	return nil
}

// fileFeedback records an explicit estimate correction.
func fileFeedback(app *app, id string, hours float64) error {
	if err := app.services.RecordFeedback(id, hours); err != nil {
		return err
	}
	fmt.Printf("%s Recorded %s against task %s\n",
		color.GreenString("✓"), formatHours(hours), shortID(id))
	fmt.Println("Run gantry learn train to fold it into the model.")
	return nil
}
