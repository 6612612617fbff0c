package sim

// ComplexityTier selects the contract-complexity multiplier applied to an
// operation's base cost.
type ComplexityTier string

const (
	ComplexityNone   ComplexityTier = ""
	ComplexityLow    ComplexityTier = "Low"
	ComplexityMedium ComplexityTier = "Medium"
	ComplexityHigh   ComplexityTier = "High"
)

var complexityMultipliers = map[ComplexityTier]float64{
	ComplexityNone:   1.0,
	ComplexityLow:    1.0,
	ComplexityMedium: 1.5,
	ComplexityHigh:   2.0,
}

// Multiplier returns the cost multiplier for the tier.
// Unrecognized tiers behave like Low (identity).
func (c ComplexityTier) Multiplier() float64 {
	if m, ok := complexityMultipliers[c]; ok {
		return m
	}
	return 1.0
}

// ParseComplexity maps a tier name to a ComplexityTier. Matching is exact.
// ok is false for unknown names; the returned tier still carries the name and
// therefore multiplies by 1.0.
func ParseComplexity(s string) (ComplexityTier, bool) {
	tier := ComplexityTier(s)
	_, ok := complexityMultipliers[tier]
	return tier, ok
}

// Operation is one billable or revenue-generating activity.
//
// Params is mutated in place by the owning TransactionModel on every step
// (transaction_volume), so an Operation must not be shared between models
// that run concurrently.
type Operation struct {
	Name   string
	Params Params

	complexity ComplexityTier
	variant    *Variant
}

// NewOperation creates an operation. A nil variant means the plain base formula.
func NewOperation(name string, params Params, complexity ComplexityTier, variant *Variant) *Operation {
	if params == nil {
		params = Params{}
	}
	if variant == nil {
		variant = BaseVariant
	}
	return &Operation{
		Name:       name,
		Params:     params,
		complexity: complexity,
		variant:    variant,
	}
}

// Complexity returns the tier fixed at construction.
func (op *Operation) Complexity() ComplexityTier { return op.complexity }

// Variant returns the contribution set layered on the base formula.
func (op *Operation) Variant() *Variant { return op.variant }

// BaseCost is (direct_cost + variable_cost * transaction_volume) scaled by
// the complexity multiplier.
func (op *Operation) BaseCost() float64 {
	p := op.Params
	cost := p.Float(KeyDirectCost, 0.0) + p.Float(KeyVariableCost, 0.0)*p.Float(KeyTransactionVolume, 0.0)
	if op.complexity != ComplexityNone {
		cost *= op.complexity.Multiplier()
	}
	return cost
}

// BaseRevenue is base_revenue + revenue_per_unit * transaction_volume.
func (op *Operation) BaseRevenue() float64 {
	p := op.Params
	return p.Float(KeyBaseRevenue, 0.0) + p.Float(KeyRevenuePerUnit, 0.0)*p.Float(KeyTransactionVolume, 0.0)
}

// ComputeCost returns the base cost plus every variant cost term, in order.
func (op *Operation) ComputeCost() float64 {
	cost := op.BaseCost()
	for _, term := range op.variantOrBase().CostTerms {
		cost += term.Value(op.Params)
	}
	return cost
}

// ComputeRevenue returns the base revenue plus every variant revenue term.
// Variants flagged NoRevenue always report zero.
func (op *Operation) ComputeRevenue() float64 {
	v := op.variantOrBase()
	if v.NoRevenue {
		return 0.0
	}
	revenue := op.BaseRevenue()
	for _, term := range v.RevenueTerms {
		revenue += term.Value(op.Params)
	}
	return revenue
}

// variantOrBase guards zero-value Operations built without NewOperation.
func (op *Operation) variantOrBase() *Variant {
	if op.variant == nil {
		return BaseVariant
	}
	return op.variant
}
