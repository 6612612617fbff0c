package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bizsim/bizsim/sim/analysis"
	"github.com/bizsim/bizsim/sim/export"
	"github.com/bizsim/bizsim/sim/scenario"
	"github.com/bizsim/bizsim/sim/store"
)

var (
	sweepParallel int    // Concurrent sweep points; 1 runs serially
	sweepOutput   string // CSV output path
	sweepSummary  bool   // Print per-combination statistics after the sweep
)

// sweepCmd runs a scenario's parameter sweep and writes the results as CSV
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a parameter sweep and write results to CSV",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := loadScenario(scenarioPath, presetName, "sample", periodFlag)
		if err != nil {
			logrus.Fatalf("Failed to load scenario: %v", err)
		}
		err = withStore(dbPath, func(st *store.Store) error {
			return runSweep(cmd.Context(), cmd.OutOrStdout(), sc, sweepParallel, sweepOutput, sweepSummary, st)
		})
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
	},
}

// runSweep executes the sweep of sc, saves it to output and optionally to st.
func runSweep(ctx context.Context, w io.Writer, sc *scenario.Scenario, parallel int, output string, summary bool, st *store.Store) error {
	s, err := sc.Build()
	if err != nil {
		return err
	}
	factory, err := sc.Factory()
	if err != nil {
		return err
	}

	logrus.Infof("sweeping %d combinations over %d steps", sc.Grid().Size(), sc.Period)
	sweep, err := s.RunParameterSweepParallel(ctx, sc.Grid(), factory, parallel)
	if err != nil {
		return err
	}

	if err := export.SaveSweepCSV(output, sweep); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	if st != nil {
		id, err := st.SaveSweep(ctx, sc.Name, sc.Period, sweep)
		if err != nil {
			return fmt.Errorf("persisting sweep: %w", err)
		}
		logrus.Infof("sweep stored with id %s", id)
	}
	if _, err := fmt.Fprintf(w, "Parameter sweep complete. Results saved to %s.\n", output); err != nil {
		return err
	}
	if summary {
		return analysis.Print(w, analysis.Summarize(export.Rows(sweep)))
	}
	return nil
}

func init() {
	addScenarioFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 1, "Concurrent sweep points (0 = unbounded)")
	sweepCmd.Flags().StringVar(&sweepOutput, "output", "data/output/parameter_sweep_results.csv", "CSV output path")
	sweepCmd.Flags().BoolVar(&sweepSummary, "summary", false, "Print per-combination statistics after the sweep")

	rootCmd.AddCommand(sweepCmd)
}
