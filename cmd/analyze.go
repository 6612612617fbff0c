package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bizsim/bizsim/sim/analysis"
	"github.com/bizsim/bizsim/sim/export"
)

var analyzeInput string // Sweep CSV to analyze

// analyzeCmd prints mean and total cost/revenue per sweep combination
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize a parameter sweep CSV per combination",
	Run: func(cmd *cobra.Command, args []string) {
		if err := analyzeCSV(cmd.OutOrStdout(), analyzeInput); err != nil {
			logrus.Fatalf("Analysis failed: %v", err)
		}
	},
}

func analyzeCSV(w io.Writer, path string) error {
	rows, err := export.LoadSweepCSV(path)
	if err != nil {
		return err
	}
	logrus.Debugf("loaded %d rows from %s", len(rows), path)
	return analysis.Print(w, analysis.Summarize(rows))
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "data/output/parameter_sweep_results.csv", "Path to the sweep CSV")

	rootCmd.AddCommand(analyzeCmd)
}
