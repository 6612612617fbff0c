// Package scenario loads simulation scenarios from YAML and turns them into
// ready-to-run simulators and sweep factories.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/bizsim/bizsim/sim"
)

// Scenario is the top-level scenario configuration.
// Loaded from YAML via Load(path) or from a built-in preset via Preset(name).
type Scenario struct {
	Name             string              `yaml:"name,omitempty" json:"name,omitempty"`
	Period           int                 `yaml:"period" json:"period"`
	GlobalParameters sim.Params          `yaml:"global_parameters,omitempty" json:"global_parameters,omitempty"`
	BusinessModels   []BusinessModelSpec `yaml:"business_models" json:"business_models"`
	Sweep            *SweepSpec          `yaml:"sweep,omitempty" json:"sweep,omitempty"`
}

// BusinessModelSpec describes one business model and its ledger.
type BusinessModelSpec struct {
	Name             string               `yaml:"name" json:"name"`
	Parameters       sim.Params           `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	TransactionModel TransactionModelSpec `yaml:"transaction_model" json:"transaction_model"`
}

// TransactionModelSpec describes a transaction model's operations and parameters.
type TransactionModelSpec struct {
	Parameters sim.Params      `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Operations []OperationSpec `yaml:"operations,omitempty" json:"operations,omitempty"`
}

// OperationSpec describes one operation. Variant names a registered
// sim.Variant; empty means the base formula.
type OperationSpec struct {
	Name       string     `yaml:"name" json:"name"`
	Variant    string     `yaml:"variant,omitempty" json:"variant,omitempty"`
	Complexity string     `yaml:"complexity,omitempty" json:"complexity,omitempty"`
	Parameters sim.Params `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// SweepSpec configures a parameter sweep over one business model template.
type SweepSpec struct {
	// Target names the business model rebuilt for every sweep point.
	// Empty selects the first business model.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`
	// ApplyTo selects where combination values land: "transaction_model"
	// (default) or "business_model".
	ApplyTo string        `yaml:"apply_to,omitempty" json:"apply_to,omitempty"`
	Grid    sim.ParamGrid `yaml:"grid" json:"grid"`
}

const (
	ApplyToTransactionModel = "transaction_model"
	ApplyToBusinessModel    = "business_model"
)

var validApplyTo = map[string]bool{
	"":                      true,
	ApplyToTransactionModel: true,
	ApplyToBusinessModel:    true,
}

// Load reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML scenario with strict field checking.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

// Validate checks structural correctness. Individual parameter values are
// never validated; unknown keys are pass-through state.
func (sc *Scenario) Validate() error {
	if sc.Period < 0 {
		return &sim.ConfigurationError{Field: "period", Reason: fmt.Sprintf("must be non-negative, got %d", sc.Period)}
	}
	for i, bm := range sc.BusinessModels {
		prefix := fmt.Sprintf("business_models[%d]", i)
		if bm.Name == "" {
			return fmt.Errorf("%s: name is required", prefix)
		}
		for j, op := range bm.TransactionModel.Operations {
			if !sim.IsValidVariant(op.Variant) {
				return fmt.Errorf("%s.operations[%d]: unknown variant %q; valid: %v", prefix, j, op.Variant, sim.VariantNames())
			}
		}
	}
	if sc.Sweep != nil {
		if !validApplyTo[sc.Sweep.ApplyTo] {
			return fmt.Errorf("sweep: unknown apply_to %q; valid: transaction_model, business_model", sc.Sweep.ApplyTo)
		}
		if _, err := sc.sweepTarget(); err != nil {
			return err
		}
		if err := sc.Sweep.Grid.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Build validates the scenario and returns a simulator with every business
// model registered in file order.
func (sc *Scenario) Build() (*sim.Simulator, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	s := sim.NewSimulator(sc.Period, sc.GlobalParameters.Clone())
	for i := range sc.BusinessModels {
		bm, err := sc.BusinessModels[i].Build()
		if err != nil {
			return nil, err
		}
		s.AddBusinessModel(bm)
	}
	return s, nil
}

// Factory returns a sweep factory that rebuilds the sweep target from its
// spec on every call, so each sweep point owns its operations.
func (sc *Scenario) Factory() (sim.BusinessModelFactory, error) {
	if sc.Sweep == nil {
		return nil, fmt.Errorf("scenario %q has no sweep section", sc.Name)
	}
	target, err := sc.sweepTarget()
	if err != nil {
		return nil, err
	}
	applyTo := sc.Sweep.ApplyTo
	return func(combo sim.Params) (*sim.BusinessModel, error) {
		bm, err := target.Build()
		if err != nil {
			return nil, err
		}
		switch applyTo {
		case ApplyToBusinessModel:
			bm.Params.Merge(combo)
		default:
			bm.TransactionModel.Parameters().Merge(combo)
		}
		return bm, nil
	}, nil
}

// Grid returns the sweep grid, or nil if the scenario has no sweep.
func (sc *Scenario) Grid() sim.ParamGrid {
	if sc.Sweep == nil {
		return nil
	}
	return sc.Sweep.Grid
}

func (sc *Scenario) sweepTarget() (*BusinessModelSpec, error) {
	if len(sc.BusinessModels) == 0 {
		return nil, &sim.ConfigurationError{Field: "sweep.target", Reason: "scenario has no business models"}
	}
	if sc.Sweep.Target == "" {
		return &sc.BusinessModels[0], nil
	}
	for i := range sc.BusinessModels {
		if sc.BusinessModels[i].Name == sc.Sweep.Target {
			return &sc.BusinessModels[i], nil
		}
	}
	return nil, &sim.ConfigurationError{Field: "sweep.target", Reason: fmt.Sprintf("no business model named %q", sc.Sweep.Target)}
}

// Build constructs a fresh business model. Parameter maps are copied so the
// spec is never mutated by a run.
func (spec *BusinessModelSpec) Build() (*sim.BusinessModel, error) {
	ops := make([]*sim.Operation, 0, len(spec.TransactionModel.Operations))
	for i := range spec.TransactionModel.Operations {
		op, err := spec.TransactionModel.Operations[i].Build()
		if err != nil {
			return nil, fmt.Errorf("business model %q: %w", spec.Name, err)
		}
		ops = append(ops, op)
	}
	tm := sim.NewTransactionModel(ops, spec.TransactionModel.Parameters.Clone())
	return sim.NewBusinessModel(spec.Name, tm, spec.Parameters.Clone()), nil
}

// Build constructs a fresh operation.
func (spec *OperationSpec) Build() (*sim.Operation, error) {
	variant, err := sim.LookupVariant(spec.Variant)
	if err != nil {
		return nil, fmt.Errorf("operation %q: %w", spec.Name, err)
	}
	tier, ok := sim.ParseComplexity(spec.Complexity)
	if !ok {
		logrus.Warnf("operation %q: unrecognized complexity %q treated as Low (multiplier 1.0)", spec.Name, spec.Complexity)
	}
	return sim.NewOperation(spec.Name, spec.Parameters.Clone(), tier, variant), nil
}
