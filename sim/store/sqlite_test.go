package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizsim/bizsim/sim"
	"github.com/bizsim/bizsim/sim/export"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "bizsim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveResults_GetRun(t *testing.T) {
	// GIVEN a store and results for two models
	s := openTestStore(t)
	ctx := context.Background()
	results := sim.Results{
		"Beta":  {{Step: 0, Costs: 1.5, Revenues: 3.0}, {Step: 1, Costs: 1.5, Revenues: 3.0}},
		"Alpha": {{Step: 0, Costs: 2.0, Revenues: 0.0}},
	}

	// WHEN saved and reloaded
	id, err := s.SaveResults(ctx, KindRun, "sample", 2, "", results)
	require.NoError(t, err)
	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)

	// THEN metadata and records match, models in name order
	assert.Equal(t, id, run.ID)
	assert.Equal(t, KindRun, run.Kind)
	assert.Equal(t, "sample", run.Scenario)
	assert.Equal(t, 2, run.Period)
	assert.False(t, run.CreatedAt.IsZero())
	assert.Equal(t, []export.Row{
		{BusinessModel: "Alpha", Step: 0, Costs: 2.0, Revenues: 0.0},
		{BusinessModel: "Beta", Step: 0, Costs: 1.5, Revenues: 3.0},
		{BusinessModel: "Beta", Step: 1, Costs: 1.5, Revenues: 3.0},
	}, run.Records)
}

func TestStore_SaveSweep(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	grid := sim.ParamGrid{{Name: "overhead_rate", Values: []any{0.0, 0.5}}}
	factory := func(combo sim.Params) (*sim.BusinessModel, error) {
		op := sim.NewOperation("Op", sim.Params{"direct_cost": 2.0}, sim.ComplexityNone, nil)
		return sim.NewBusinessModel("BM", sim.NewTransactionModel([]*sim.Operation{op}, combo), nil), nil
	}
	sweep, err := sim.NewSimulator(1, nil).RunParameterSweep(grid, factory)
	require.NoError(t, err)

	id, err := s.SaveSweep(ctx, "inline", 1, sweep)
	require.NoError(t, err)

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, KindSweep, run.Kind)
	assert.Equal(t, export.Rows(sweep), run.Records)
}

func TestStore_GetRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestStore_ListRuns_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	first, err := s.SaveResults(ctx, KindRun, "a", 1, "", sim.Results{})
	require.NoError(t, err)
	second, err := s.SaveResults(ctx, KindRun, "b", 1, "", sim.Results{})
	require.NoError(t, err)

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	assert.Empty(t, runs[0].Records)
}

func TestStore_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bizsim.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.SaveResults(ctx, KindRun, "persisted", 3, "", sim.Results{"BM": {{Step: 0, Costs: 1, Revenues: 2}}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", run.Scenario)
	require.Len(t, run.Records, 1)
}
