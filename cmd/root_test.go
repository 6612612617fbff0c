package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizsim/bizsim/sim"
	"github.com/bizsim/bizsim/sim/export"
	"github.com/bizsim/bizsim/sim/store"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

const tinyScenario = `
name: tiny
period: 2
business_models:
  - name: Tiny
    transaction_model:
      operations:
        - name: Op
          parameters: {direct_cost: 2.0, base_revenue: 3.0}
sweep:
  grid:
    overhead_rate: [0.0, 0.5]
`

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiny.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tinyScenario), 0o644))
	return path
}

func TestLoadScenario_Sources(t *testing.T) {
	path := writeScenario(t)

	sc, err := loadScenario(path, "", "cdip", -1)
	require.NoError(t, err)
	assert.Equal(t, "tiny", sc.Name)
	assert.Equal(t, 2, sc.Period)

	sc, err = loadScenario("", "sample", "cdip", -1)
	require.NoError(t, err)
	assert.Equal(t, "sample", sc.Name)

	sc, err = loadScenario("", "", "cdip", 4)
	require.NoError(t, err)
	assert.Equal(t, "cdip", sc.Name)
	assert.Equal(t, 4, sc.Period, "period flag overrides the scenario")

	_, err = loadScenario(path, "cdip", "cdip", -1)
	assert.Error(t, err, "scenario and preset are mutually exclusive")

	_, err = loadScenario("", "unknown", "cdip", -1)
	assert.Error(t, err)
}

func TestRunScenario_Table(t *testing.T) {
	sc, err := loadScenario(writeScenario(t), "", "", -1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runScenario(context.Background(), &buf, sc, "table", nil))

	out := buf.String()
	assert.Contains(t, out, "=== Tiny ===")
	assert.Contains(t, out, "2.0000")
	assert.Contains(t, out, "3.0000")
	assert.Equal(t, 4, strings.Count(out, "\n"), "header, column row, two steps")
}

func TestRunScenario_JSONAndStore(t *testing.T) {
	// GIVEN a store and the tiny scenario
	sc, err := loadScenario(writeScenario(t), "", "", -1)
	require.NoError(t, err)
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close()

	// WHEN run with JSON output
	var buf bytes.Buffer
	require.NoError(t, runScenario(context.Background(), &buf, sc, "json", st))

	// THEN stdout holds the results and the run is persisted
	var results sim.Results
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results["Tiny"], 2)
	assert.Equal(t, 2.0, results["Tiny"][1].Costs)

	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "tiny", runs[0].Scenario)
}

func TestWithStore_ClosesBeforeReturningError(t *testing.T) {
	// GIVEN a run that persists and then fails
	sc, err := loadScenario(writeScenario(t), "", "", -1)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "runs.db")
	failure := errors.New("output failed")

	// WHEN it runs through withStore
	var used *store.Store
	err = withStore(path, func(st *store.Store) error {
		used = st
		require.NoError(t, runScenario(context.Background(), &bytes.Buffer{}, sc, "table", st))
		return failure
	})

	// THEN the error surfaces and the database is already closed
	assert.ErrorIs(t, err, failure)
	require.NotNil(t, used)
	_, err = used.ListRuns(context.Background())
	assert.Error(t, err)

	// THEN the persisted run survives a reopen
	reopened, err := store.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	runs, err := reopened.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestWithStore_NoPath(t *testing.T) {
	called := false
	err := withStore("", func(st *store.Store) error {
		called = true
		assert.Nil(t, st)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRunScenario_NegativePeriod(t *testing.T) {
	sc, err := loadScenario(writeScenario(t), "", "", -1)
	require.NoError(t, err)
	sc.Period = -3

	err = runScenario(context.Background(), &bytes.Buffer{}, sc, "table", nil)
	require.Error(t, err)
	assert.True(t, sim.IsConfigurationError(err))
}

func TestRunSweep_WritesCSVAndAnalyze(t *testing.T) {
	// GIVEN the tiny scenario swept into a nested output path
	sc, err := loadScenario(writeScenario(t), "", "", -1)
	require.NoError(t, err)
	output := filepath.Join(t.TempDir(), "out", "sweep.csv")

	// WHEN the sweep runs in parallel
	var buf bytes.Buffer
	require.NoError(t, runSweep(context.Background(), &buf, sc, 2, output, false, nil))
	assert.Contains(t, buf.String(), "Results saved to "+output)

	// THEN the CSV holds both combinations in grid order
	rows, err := export.LoadSweepCSV(output)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "overhead_rate=0.0", rows[0].ComboKey)
	assert.Equal(t, "overhead_rate=0.5", rows[2].ComboKey)
	assert.Equal(t, 3.0, rows[2].Costs)

	// AND analyze summarizes them
	buf.Reset()
	require.NoError(t, analyzeCSV(&buf, output))
	assert.Contains(t, buf.String(), "== Combination: overhead_rate=0.5 ==")
	assert.Contains(t, buf.String(), "  Total Cost:     6.00")
}

func TestRunSweep_NoSweepSection(t *testing.T) {
	sc, err := loadScenario(writeScenario(t), "", "", -1)
	require.NoError(t, err)
	sc.Sweep = nil

	err = runSweep(context.Background(), &bytes.Buffer{}, sc, 1, filepath.Join(t.TempDir(), "x.csv"), false, nil)
	assert.Error(t, err)
}

func TestAnalyzeCSV_MissingFile(t *testing.T) {
	err := analyzeCSV(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestListVariants(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listVariants(&buf))

	out := buf.String()
	assert.Contains(t, out, "data_purchase")
	assert.Contains(t, out, "licensing_fees")
	assert.Contains(t, out, "Presets: cdip, sample")
}
