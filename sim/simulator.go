// sim/simulator.go
package sim

import (
	"github.com/sirupsen/logrus"
)

// StepRecord is the outcome of one simulated step for one business model.
type StepRecord struct {
	Step     int     `json:"step" yaml:"step"`
	Costs    float64 `json:"costs" yaml:"costs"`
	Revenues float64 `json:"revenues" yaml:"revenues"`
}

// Results maps a business-model name to its ordered step records.
type Results map[string][]StepRecord

// Simulator drives registered business models through a fixed number of
// discrete steps and keeps the results of the most recent run.
type Simulator struct {
	// Period is the number of steps per run (steps 0..Period-1).
	Period int
	// GlobalParams is merged into every ledger before its run; on conflict
	// the global value wins.
	GlobalParams Params

	models  []*BusinessModel
	results Results
}

// NewSimulator creates a simulator with no registered models.
func NewSimulator(period int, globalParams Params) *Simulator {
	if globalParams == nil {
		globalParams = Params{}
	}
	return &Simulator{
		Period:       period,
		GlobalParams: globalParams,
		models:       make([]*BusinessModel, 0),
		results:      make(Results),
	}
}

// AddBusinessModel registers bm for subsequent runs.
func (s *Simulator) AddBusinessModel(bm *BusinessModel) {
	s.models = append(s.models, bm)
}

// BusinessModels returns the registered models in registration order.
func (s *Simulator) BusinessModels() []*BusinessModel {
	return s.models
}

// Run simulates every registered model and replaces the stored results.
//
// For each model the global parameters are merged into its ledger, the
// model's own overrides are applied, and then for every step the ledger is
// advanced (if it is a TimeStepper) and its costs and revenues recorded.
// Results are keyed by model name; when two models share a name the later
// one's results replace the earlier one's.
func (s *Simulator) Run() error {
	if err := s.validate(); err != nil {
		return err
	}

	results := make(Results, len(s.models))
	for _, bm := range s.models {
		ledger := bm.TransactionModel
		ledger.Parameters().Merge(s.GlobalParams)
		bm.AdjustParameters()

		stepper, canStep := ledger.(TimeStepper)
		records := make([]StepRecord, 0, s.Period)
		for step := 0; step < s.Period; step++ {
			if canStep {
				stepper.UpdateForTimeStep(step)
			}
			costs := ledger.CalculateCosts()
			revenues := ledger.CalculateRevenues()
			records = append(records, StepRecord{Step: step, Costs: costs, Revenues: revenues})
			logrus.Tracef("[%s] step=%d costs=%f revenues=%f", bm.Name, step, costs, revenues)
		}

		if _, dup := results[bm.Name]; dup {
			logrus.Warnf("business model name %q registered more than once; keeping results of the last one", bm.Name)
		}
		results[bm.Name] = records
		logrus.Debugf("simulated business model %q over %d steps", bm.Name, s.Period)
	}
	s.results = results
	return nil
}

// CollectResults returns the results of the last Run. It is empty when Run
// has not been called or no models are registered.
func (s *Simulator) CollectResults() Results {
	if s.results == nil {
		s.results = make(Results)
	}
	return s.results
}

func (s *Simulator) validate() error {
	if s.Period < 0 {
		return configErrorf("simulation_period", "must be non-negative, got %d", s.Period)
	}
	for i, bm := range s.models {
		if bm == nil {
			return configErrorf("business_models", "entry %d is nil", i)
		}
		if bm.TransactionModel == nil {
			return configErrorf("business_models", "%q has no transaction model", bm.Name)
		}
	}
	return nil
}
