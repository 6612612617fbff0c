package sim

import (
	"encoding/json"
	"maps"
)

// Well-known parameter keys read by the formulas. Any other key is carried
// along untouched.
const (
	KeyDirectCost            = "direct_cost"
	KeyVariableCost          = "variable_cost"
	KeyTransactionVolume     = "transaction_volume"
	KeyBaseTransactionVolume = "base_transaction_volume"
	KeyBaseRevenue           = "base_revenue"
	KeyRevenuePerUnit        = "revenue_per_unit"

	KeyOverheadRate   = "overhead_rate"
	KeyRevenueTaxRate = "revenue_tax_rate"
	KeyRevenueFactor  = "revenue_factor"
	KeyGrowthRate     = "growth_rate"

	KeyCostScalingFactor  = "cost_scaling_factor"
	KeyLegalComplianceFee = "legal_compliance_fee"
)

// Params maps parameter names to numeric or string values.
// Lookups never fail: a missing or non-numeric value yields the caller's default.
type Params map[string]any

// Float returns the numeric value stored under key, or def when the key is
// absent or holds a non-numeric value.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return def
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Set stores value under key. Set on a nil Params panics, like a nil map.
func (p Params) Set(key string, value any) {
	p[key] = value
}

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Merge copies every entry of src into p, overwriting existing keys.
func (p Params) Merge(src Params) {
	maps.Copy(p, src)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
