// Package analysis aggregates exported step records per sweep combination.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/bizsim/bizsim/sim/export"
)

// ErrNonFinite is returned by CheckFinite for rows holding an infinite or
// NaN cost or revenue.
var ErrNonFinite = errors.New("non-finite cost or revenue")

// ComboSummary holds aggregate statistics for one combination across all
// business models and steps.
type ComboSummary struct {
	ComboKey     string          `json:"combo_key"`
	Count        int             `json:"count"`
	AvgCost      decimal.Decimal `json:"avg_cost"`
	AvgRevenue   decimal.Decimal `json:"avg_revenue"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	// NonFinite is set when any cost or revenue of the combination was
	// infinite or NaN. The decimal fields are then zero and Print falls
	// back to float aggregates.
	NonFinite bool `json:"non_finite,omitempty"`

	costSum    float64
	revenueSum float64
}

// Summarize groups rows by combo key, in the order each key first appears,
// and computes mean and sum of costs and revenues.
func Summarize(rows []export.Row) []ComboSummary {
	index := make(map[string]int)
	var summaries []ComboSummary
	for _, r := range rows {
		i, ok := index[r.ComboKey]
		if !ok {
			i = len(summaries)
			index[r.ComboKey] = i
			summaries = append(summaries, ComboSummary{
				ComboKey:     r.ComboKey,
				TotalCost:    decimal.Zero,
				TotalRevenue: decimal.Zero,
			})
		}
		s := &summaries[i]
		s.Count++
		s.costSum += r.Costs
		s.revenueSum += r.Revenues
		if !isFinite(r.Costs) || !isFinite(r.Revenues) {
			s.NonFinite = true
		}
		if s.NonFinite {
			continue
		}
		s.TotalCost = s.TotalCost.Add(decimal.NewFromFloat(r.Costs))
		s.TotalRevenue = s.TotalRevenue.Add(decimal.NewFromFloat(r.Revenues))
	}
	for i := range summaries {
		s := &summaries[i]
		if s.NonFinite {
			s.TotalCost, s.TotalRevenue = decimal.Zero, decimal.Zero
			s.AvgCost, s.AvgRevenue = decimal.Zero, decimal.Zero
			continue
		}
		n := decimal.NewFromInt(int64(s.Count))
		s.AvgCost = s.TotalCost.Div(n)
		s.AvgRevenue = s.TotalRevenue.Div(n)
	}
	return summaries
}

// CheckFinite returns an error wrapping ErrNonFinite for the first row whose
// cost or revenue is infinite or NaN.
func CheckFinite(rows []export.Row) error {
	for _, r := range rows {
		if !isFinite(r.Costs) || !isFinite(r.Revenues) {
			return fmt.Errorf("combination %q, model %q, step %d: %w", r.ComboKey, r.BusinessModel, r.Step, ErrNonFinite)
		}
	}
	return nil
}

// Print writes one block per combination with values at two decimals.
func Print(w io.Writer, summaries []ComboSummary) error {
	for _, s := range summaries {
		avgCost, avgRevenue := s.AvgCost.StringFixed(2), s.AvgRevenue.StringFixed(2)
		totalCost, totalRevenue := s.TotalCost.StringFixed(2), s.TotalRevenue.StringFixed(2)
		if s.NonFinite {
			n := float64(s.Count)
			avgCost, avgRevenue = fixed2(s.costSum/n), fixed2(s.revenueSum/n)
			totalCost, totalRevenue = fixed2(s.costSum), fixed2(s.revenueSum)
		}
		_, err := fmt.Fprintf(w,
			"== Combination: %s ==\n"+
				"  Avg Cost:       %s\n"+
				"  Avg Revenue:    %s\n"+
				"  Total Cost:     %s\n"+
				"  Total Revenue:  %s\n\n",
			s.ComboKey, avgCost, avgRevenue, totalCost, totalRevenue,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// fixed2 renders f with two decimals, spelling non-finite values inf, -inf
// and nan.
func fixed2(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
