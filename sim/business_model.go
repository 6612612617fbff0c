package sim

// BusinessModel is a named scenario wrapping a ledger with scenario-level
// parameter overrides.
type BusinessModel struct {
	Name             string
	TransactionModel Ledger
	Params           Params
}

// NewBusinessModel creates a business model. A nil ledger is replaced with
// an empty TransactionModel.
func NewBusinessModel(name string, tm Ledger, params Params) *BusinessModel {
	if tm == nil {
		tm = NewTransactionModel(nil, nil)
	}
	if params == nil {
		params = Params{}
	}
	return &BusinessModel{Name: name, TransactionModel: tm, Params: params}
}

// AdjustParameters merges the business-level parameters into the ledger:
//  1. cost_scaling_factor is added to overhead_rate
//  2. legal_compliance_fee is added to the resulting overhead_rate
//  3. every other key overwrites the ledger's value verbatim
//
// Calling it twice compounds both additions into overhead_rate again.
func (bm *BusinessModel) AdjustParameters() {
	target := bm.TransactionModel.Parameters()

	if bm.Params.Has(KeyCostScalingFactor) {
		overhead := target.Float(KeyOverheadRate, 0.0)
		target[KeyOverheadRate] = overhead + bm.Params.Float(KeyCostScalingFactor, 0.0)
	}
	if bm.Params.Has(KeyLegalComplianceFee) {
		overhead := target.Float(KeyOverheadRate, 0.0)
		target[KeyOverheadRate] = overhead + bm.Params.Float(KeyLegalComplianceFee, 0.0)
	}

	for key, value := range bm.Params {
		if key == KeyCostScalingFactor || key == KeyLegalComplianceFee {
			continue
		}
		target[key] = value
	}
}
