package sim

import "math"

// Ledger reports aggregate costs and revenues for the current step.
type Ledger interface {
	CalculateCosts() float64
	CalculateRevenues() float64
	// Parameters returns the live parameter map, mutated by the simulator
	// when merging global and business-level parameters.
	Parameters() Params
}

// TimeStepper is implemented by ledgers whose state depends on the step
// index. The simulator calls UpdateForTimeStep before computing each step.
type TimeStepper interface {
	UpdateForTimeStep(step int)
}

// TransactionModel aggregates the costs and revenues of its operations and
// applies overhead, tax, revenue-factor and volume-growth adjustments.
type TransactionModel struct {
	Operations []*Operation
	Params     Params
}

var (
	_ Ledger      = (*TransactionModel)(nil)
	_ TimeStepper = (*TransactionModel)(nil)
)

// NewTransactionModel creates a model owning ops. Nil arguments become empty.
func NewTransactionModel(ops []*Operation, params Params) *TransactionModel {
	if params == nil {
		params = Params{}
	}
	if ops == nil {
		ops = []*Operation{}
	}
	return &TransactionModel{Operations: ops, Params: params}
}

// Parameters returns the model's live parameter map.
func (tm *TransactionModel) Parameters() Params {
	if tm.Params == nil {
		tm.Params = Params{}
	}
	return tm.Params
}

// AddOperation appends op to the owned operations.
func (tm *TransactionModel) AddOperation(op *Operation) {
	tm.Operations = append(tm.Operations, op)
}

// UpdateForTimeStep sets every operation's transaction_volume to
// base_transaction_volume * (1 + growth_rate)^step. The volume is always
// derived from the fixed base, so repeated calls with the same step agree.
func (tm *TransactionModel) UpdateForTimeStep(step int) {
	growthRate := tm.Params.Float(KeyGrowthRate, 0.0)
	factor := math.Pow(1.0+growthRate, float64(step))
	for _, op := range tm.Operations {
		if op.Params == nil {
			op.Params = Params{}
		}
		baseVolume := op.Params.Float(KeyBaseTransactionVolume, 1.0)
		op.Params[KeyTransactionVolume] = baseVolume * factor
	}
}

// CalculateCosts sums operation costs and scales by (1 + overhead_rate)
// only when overhead_rate is positive. A negative rate is not a discount.
func (tm *TransactionModel) CalculateCosts() float64 {
	total := 0.0
	for _, op := range tm.Operations {
		total += op.ComputeCost()
	}
	if overhead := tm.Params.Float(KeyOverheadRate, 0.0); overhead > 0.0 {
		total *= 1.0 + overhead
	}
	return total
}

// CalculateRevenues sums operation revenues, multiplies by revenue_factor
// and then by (1 - revenue_tax_rate) only when the tax rate is positive.
func (tm *TransactionModel) CalculateRevenues() float64 {
	total := 0.0
	for _, op := range tm.Operations {
		total += op.ComputeRevenue()
	}
	total *= tm.Params.Float(KeyRevenueFactor, 1.0)
	if tax := tm.Params.Float(KeyRevenueTaxRate, 0.0); tax > 0.0 {
		total *= 1.0 - tax
	}
	return total
}
