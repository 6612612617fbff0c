package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bizsim/bizsim/sim"
	"github.com/bizsim/bizsim/sim/scenario"
	"github.com/bizsim/bizsim/sim/store"
)

var outputFormat string // table or json

var validFormats = map[string]bool{"table": true, "json": true}

// runCmd simulates every business model of a scenario once
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario and print per-step costs and revenues",
	Run: func(cmd *cobra.Command, args []string) {
		if !validFormats[outputFormat] {
			logrus.Fatalf("Unknown --format %q; valid: table, json", outputFormat)
		}
		sc, err := loadScenario(scenarioPath, presetName, "cdip", periodFlag)
		if err != nil {
			logrus.Fatalf("Failed to load scenario: %v", err)
		}
		err = withStore(dbPath, func(st *store.Store) error {
			return runScenario(cmd.Context(), cmd.OutOrStdout(), sc, outputFormat, st)
		})
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

// runScenario builds and runs sc, writes the results in format and, when
// st is non-nil, persists them.
func runScenario(ctx context.Context, w io.Writer, sc *scenario.Scenario, format string, st *store.Store) error {
	s, err := sc.Build()
	if err != nil {
		return err
	}
	if err := s.Run(); err != nil {
		return err
	}
	results := s.CollectResults()

	if st != nil {
		id, err := st.SaveResults(ctx, store.KindRun, sc.Name, sc.Period, "", results)
		if err != nil {
			return fmt.Errorf("persisting run: %w", err)
		}
		logrus.Infof("run stored with id %s", id)
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		return printResultsTable(w, results)
	}
}

func printResultsTable(w io.Writer, results sim.Results) error {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "=== %s ===\n%6s %14s %14s\n", name, "step", "costs", "revenues"); err != nil {
			return err
		}
		for _, rec := range results[name] {
			if _, err := fmt.Fprintf(w, "%6d %14.4f %14.4f\n", rec.Step, rec.Costs, rec.Revenues); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	addScenarioFlags(runCmd)
	runCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")

	rootCmd.AddCommand(runCmd)
}
