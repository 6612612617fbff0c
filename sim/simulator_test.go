package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicModel(name string) *BusinessModel {
	op := NewOperation("BasicOp", Params{
		"direct_cost":      1.0,
		"variable_cost":    0.5,
		"base_revenue":     2.0,
		"revenue_per_unit": 1.0,
	}, ComplexityNone, nil)
	return NewBusinessModel(name, NewTransactionModel([]*Operation{op}, nil), nil)
}

func TestSimulator_NoBusinessModels_EmptyResults(t *testing.T) {
	s := NewSimulator(5, nil)
	require.NoError(t, s.Run())
	assert.Empty(t, s.CollectResults())
}

func TestSimulator_NeverRun_EmptyResults(t *testing.T) {
	s := NewSimulator(5, nil)
	s.AddBusinessModel(basicModel("Idle"))
	results := s.CollectResults()
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSimulator_SingleModel_OneRecordPerStep(t *testing.T) {
	s := NewSimulator(3, nil)
	s.AddBusinessModel(basicModel("SingleBM"))

	require.NoError(t, s.Run())
	results := s.CollectResults()

	require.Contains(t, results, "SingleBM")
	steps := results["SingleBM"]
	require.Len(t, steps, 3)
	for i, rec := range steps {
		assert.Equal(t, i, rec.Step)
		// base volume defaults to 1.0 and growth to 0.0
		assert.Equal(t, 1.5, rec.Costs)
		assert.Equal(t, 3.0, rec.Revenues)
	}
}

func TestSimulator_MultipleModels(t *testing.T) {
	s := NewSimulator(2, nil)
	s.AddBusinessModel(basicModel("BM1"))
	s.AddBusinessModel(basicModel("BM2"))

	require.NoError(t, s.Run())
	results := s.CollectResults()

	assert.Len(t, results["BM1"], 2)
	assert.Len(t, results["BM2"], 2)
	assert.Len(t, s.BusinessModels(), 2)
}

func TestSimulator_GlobalParametersMerge_GlobalWins(t *testing.T) {
	// GIVEN a model whose own overhead_rate conflicts with a global one
	op := NewOperation("GlobalParamOp", Params{"direct_cost": 2.0, "variable_cost": 1.0, "base_transaction_volume": 2.0}, ComplexityNone, nil)
	tm := NewTransactionModel([]*Operation{op}, Params{"overhead_rate": 0.1})
	s := NewSimulator(1, Params{"overhead_rate": 0.5})
	s.AddBusinessModel(NewBusinessModel("GlobalParamModel", tm, nil))

	// WHEN the simulation runs
	require.NoError(t, s.Run())

	// THEN the global value replaced the model value and was applied
	assert.Equal(t, 0.5, tm.Params["overhead_rate"])
	rec := s.CollectResults()["GlobalParamModel"]
	require.Len(t, rec, 1)
	assert.Equal(t, 6.0, rec[0].Costs)
}

func TestSimulator_BusinessOverridesApplyAfterGlobals(t *testing.T) {
	tm := NewTransactionModel(nil, nil)
	bm := NewBusinessModel("Layered", tm, Params{"cost_scaling_factor": 0.1, "growth_rate": 0.3})
	s := NewSimulator(1, Params{"overhead_rate": 0.2, "growth_rate": 0.0})
	s.AddBusinessModel(bm)

	require.NoError(t, s.Run())

	assert.InDelta(t, 0.3, tm.Params.Float("overhead_rate", 0), 1e-12)
	assert.Equal(t, 0.3, tm.Params["growth_rate"])
}

func TestSimulator_GrowthOverSteps(t *testing.T) {
	op := NewOperation("Reg", Params{
		"base_transaction_volume": 50.0,
		"direct_cost":             2.0,
		"variable_cost":           1.0,
		"base_revenue":            5.0,
		"revenue_per_unit":        1.0,
	}, ComplexityHigh, nil)
	tm := NewTransactionModel([]*Operation{op}, Params{"growth_rate": 0.1, "overhead_rate": 0.05, "revenue_tax_rate": 0.02})
	s := NewSimulator(3, nil)
	s.AddBusinessModel(NewBusinessModel("Growing", tm, nil))

	require.NoError(t, s.Run())
	recs := s.CollectResults()["Growing"]
	require.Len(t, recs, 3)

	volumes := []float64{50.0, 55.0, 60.5}
	for i, v := range volumes {
		assert.InDelta(t, (2.0+v)*2.0*1.05, recs[i].Costs, 1e-9, "step %d costs", i)
		assert.InDelta(t, (5.0+v)*0.98, recs[i].Revenues, 1e-9, "step %d revenues", i)
	}
}

func TestSimulator_RerunOverwritesResults(t *testing.T) {
	s := NewSimulator(2, nil)
	s.AddBusinessModel(basicModel("A"))
	require.NoError(t, s.Run())
	first := s.CollectResults()
	require.Len(t, first["A"], 2)

	s.Period = 4
	require.NoError(t, s.Run())
	second := s.CollectResults()

	assert.Len(t, second["A"], 4)
	assert.Len(t, first["A"], 2, "previous results map is not mutated")
}

func TestSimulator_DuplicateNames_LaterWins(t *testing.T) {
	cheap := basicModel("Dup")
	pricey := basicModel("Dup")
	pricey.TransactionModel.Parameters()["overhead_rate"] = 1.0

	s := NewSimulator(1, nil)
	s.AddBusinessModel(cheap)
	s.AddBusinessModel(pricey)
	require.NoError(t, s.Run())

	results := s.CollectResults()
	assert.Len(t, results, 1)
	assert.Equal(t, 3.0, results["Dup"][0].Costs)
}

func TestSimulator_ZeroPeriod_EmptyStepLists(t *testing.T) {
	s := NewSimulator(0, nil)
	s.AddBusinessModel(basicModel("Zero"))
	require.NoError(t, s.Run())
	assert.Empty(t, s.CollectResults()["Zero"])
	assert.Contains(t, s.CollectResults(), "Zero")
}

func TestSimulator_InvalidConfiguration(t *testing.T) {
	neg := NewSimulator(-1, nil)
	err := neg.Run()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	nilModel := NewSimulator(1, nil)
	nilModel.AddBusinessModel(nil)
	assert.True(t, IsConfigurationError(nilModel.Run()))

	noLedger := NewSimulator(1, nil)
	noLedger.AddBusinessModel(&BusinessModel{Name: "bare"})
	assert.True(t, IsConfigurationError(noLedger.Run()))
}

// staticLedger is a Ledger that does not implement TimeStepper.
type staticLedger struct {
	params Params
	steps  int
}

func (l *staticLedger) CalculateCosts() float64    { l.steps++; return 1.0 }
func (l *staticLedger) CalculateRevenues() float64 { return 2.0 }
func (l *staticLedger) Parameters() Params         { return l.params }

func TestSimulator_LedgerWithoutTimeStepper(t *testing.T) {
	ledger := &staticLedger{params: Params{}}
	s := NewSimulator(4, Params{"region": "eu"})
	s.AddBusinessModel(NewBusinessModel("Static", ledger, Params{"tier": "gold"}))

	require.NoError(t, s.Run())

	assert.Equal(t, 4, ledger.steps)
	assert.Equal(t, "eu", ledger.params["region"])
	assert.Equal(t, "gold", ledger.params["tier"])
	assert.Equal(t, StepRecord{Step: 3, Costs: 1.0, Revenues: 2.0}, s.CollectResults()["Static"][3])
}
