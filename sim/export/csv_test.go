package export

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizsim/bizsim/sim"
)

func twoPointSweep(t *testing.T) *sim.SweepResults {
	t.Helper()
	grid := sim.ParamGrid{{Name: "overhead_rate", Values: []any{0.0, 0.5}}}
	factory := func(combo sim.Params) (*sim.BusinessModel, error) {
		op := sim.NewOperation("Op", sim.Params{"direct_cost": 2.0, "base_revenue": 3.0}, sim.ComplexityNone, nil)
		tm := sim.NewTransactionModel([]*sim.Operation{op}, combo)
		return sim.NewBusinessModel("BM", tm, nil), nil
	}
	sweep, err := sim.NewSimulator(2, nil).RunParameterSweep(grid, factory)
	require.NoError(t, err)
	return sweep
}

func TestWriteSweepCSV_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSweepCSV(&buf, twoPointSweep(t)))

	want := strings.Join([]string{
		"combo_key,business_model,step,costs,revenues",
		"overhead_rate=0.0,BM,0,2,3",
		"overhead_rate=0.0,BM,1,2,3",
		"overhead_rate=0.5,BM,0,3,3",
		"overhead_rate=0.5,BM,1,3,3",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSweepCSV_NilSweep_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NotPanics(t, func() { require.NoError(t, WriteSweepCSV(&buf, nil)) })
	assert.Equal(t, "combo_key,business_model,step,costs,revenues\n", buf.String())
	assert.Empty(t, Rows(nil))
}

func TestWriteResultsCSV_SortsModels(t *testing.T) {
	results := sim.Results{
		"Zeta":  {{Step: 0, Costs: 1.25, Revenues: 0}},
		"Alpha": {{Step: 0, Costs: 0.5, Revenues: 2}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, "", results))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, ",Alpha,0,0.5,2", lines[1])
	assert.Equal(t, ",Zeta,0,1.25,0", lines[2])
}

func TestCSV_RoundTrip(t *testing.T) {
	// GIVEN a sweep saved to a nested path that does not yet exist
	sweep := twoPointSweep(t)
	path := filepath.Join(t.TempDir(), "out", "nested", "results.csv")

	// WHEN saved and loaded back
	require.NoError(t, SaveSweepCSV(path, sweep))
	rows, err := LoadSweepCSV(path)
	require.NoError(t, err)

	// THEN the rows match the in-memory flattening
	assert.Equal(t, Rows(sweep), rows)
}

func TestReadSweepCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong header", "key,model,step,costs,revenues\n"},
		{"bad step", "combo_key,business_model,step,costs,revenues\nk,BM,x,1,1\n"},
		{"bad costs", "combo_key,business_model,step,costs,revenues\nk,BM,0,abc,1\n"},
		{"short row", "combo_key,business_model,step,costs,revenues\nk,BM,0\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadSweepCSV(strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestReadSweepCSV_HeaderOnly(t *testing.T) {
	rows, err := ReadSweepCSV(strings.NewReader("combo_key,business_model,step,costs,revenues\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
