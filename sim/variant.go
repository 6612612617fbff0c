package sim

import (
	"fmt"
	"sort"
)

// Contribution is a named additive term evaluated against an operation's
// current parameters.
type Contribution struct {
	Name string
	Fn   func(Params) float64
}

// Value evaluates the term. A nil Fn contributes nothing.
func (c Contribution) Value(p Params) float64 {
	if c.Fn == nil {
		return 0.0
	}
	return c.Fn(p)
}

// ParamTerm returns a contribution that adds the value of a single
// parameter, defaulting to 0.0 when it is absent.
func ParamTerm(key string) Contribution {
	return Contribution{
		Name: key,
		Fn:   func(p Params) float64 { return p.Float(key, 0.0) },
	}
}

// Variant is a declared set of extra cost and revenue terms layered on the
// base operation formula. Terms are added after the base formula (including
// the complexity multiplier) in declaration order.
type Variant struct {
	Name         string
	CostTerms    []Contribution
	RevenueTerms []Contribution
	// NoRevenue marks activities that never generate revenue.
	NoRevenue bool
}

// BaseVariant is the plain operation formula with no extra terms.
var BaseVariant = &Variant{Name: "base"}

// variants is the registry of built-in operation variants, keyed by name.
var variants = map[string]*Variant{
	"":     BaseVariant,
	"base": BaseVariant,
	"registration": {
		Name:      "registration",
		CostTerms: []Contribution{ParamTerm("administrative_cost")},
		NoRevenue: true,
	},
	"preference_setting": {
		Name:      "preference_setting",
		NoRevenue: true,
	},
	"data_exploration": {
		Name:      "data_exploration",
		CostTerms: []Contribution{ParamTerm("data_access_cost")},
		NoRevenue: true,
	},
	"data_purchase": {
		Name:         "data_purchase",
		CostTerms:    []Contribution{ParamTerm("purchase_overhead")},
		RevenueTerms: []Contribution{ParamTerm("licensing_fees")},
	},
	"profit_distribution": {
		Name:      "profit_distribution",
		CostTerms: []Contribution{ParamTerm("distribution_admin_cost")},
		NoRevenue: true,
	},
	"audit": {
		Name:      "audit",
		CostTerms: []Contribution{ParamTerm("legal_cost")},
		NoRevenue: true,
	},
	"governance": {
		Name:      "governance",
		CostTerms: []Contribution{ParamTerm("governance_cost")},
		NoRevenue: true,
	},
}

// LookupVariant returns the registered variant for name.
// The empty string resolves to BaseVariant.
func LookupVariant(name string) (*Variant, error) {
	v, ok := variants[name]
	if !ok {
		return nil, fmt.Errorf("unknown operation variant %q; valid: %v", name, VariantNames())
	}
	return v, nil
}

// IsValidVariant returns true if name is a registered variant.
func IsValidVariant(name string) bool {
	_, ok := variants[name]
	return ok
}

// VariantNames returns the registered variant names in sorted order,
// excluding the empty alias.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TermNames lists the parameter names of the variant's extra terms.
func (v *Variant) TermNames() (cost, revenue []string) {
	for _, t := range v.CostTerms {
		cost = append(cost, t.Name)
	}
	for _, t := range v.RevenueTerms {
		revenue = append(revenue, t.Name)
	}
	return cost, revenue
}
