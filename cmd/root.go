package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bizsim/bizsim/sim/scenario"
	"github.com/bizsim/bizsim/sim/store"
)

var (
	logLevel     string // Log verbosity level
	scenarioPath string // Path to a scenario YAML file
	presetName   string // Built-in scenario name
	periodFlag   int    // Overrides the scenario period when >= 0
	dbPath       string // SQLite database for persisting runs
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "bizsim",
	Short: "Time-stepped business-model simulator",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// addScenarioFlags registers the scenario selection flags shared by run and sweep.
func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to scenario YAML file")
	cmd.Flags().StringVar(&presetName, "preset", "", fmt.Sprintf("Built-in scenario %v", scenario.PresetNames()))
	cmd.Flags().IntVar(&periodFlag, "period", -1, "Override the scenario's simulation period (steps)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to persist the run in (optional)")
}

// loadScenario resolves --scenario / --preset. With neither set, fallback
// names the preset to use.
func loadScenario(path, preset, fallback string, period int) (*scenario.Scenario, error) {
	var (
		sc  *scenario.Scenario
		err error
	)
	switch {
	case path != "" && preset != "":
		return nil, fmt.Errorf("--scenario and --preset are mutually exclusive")
	case path != "":
		sc, err = scenario.Load(path)
	case preset != "":
		sc, err = scenario.Preset(preset)
	default:
		logrus.Infof("no --scenario or --preset given; using preset %q", fallback)
		sc, err = scenario.Preset(fallback)
	}
	if err != nil {
		return nil, err
	}
	if period >= 0 {
		sc.Period = period
	}
	if sc.Name == "" && path != "" {
		sc.Name = path
	}
	return sc, nil
}

// openStore opens the database at path, or returns nil when path is empty.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return st, nil
}

// withStore opens the database at path (nil when path is empty), calls fn
// and closes the database before returning, so callers may exit on the
// returned error.
func withStore(path string, fn func(st *store.Store) error) error {
	st, err := openStore(path)
	if err != nil {
		return err
	}
	if st == nil {
		return fn(nil)
	}
	fnErr := fn(st)
	if err := st.Close(); err != nil && fnErr == nil {
		return fmt.Errorf("closing database %s: %w", path, err)
	}
	return fnErr
}
