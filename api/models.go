package api

import (
	"github.com/bizsim/bizsim/sim"
	"github.com/bizsim/bizsim/sim/analysis"
	"github.com/bizsim/bizsim/sim/scenario"
)

// SimulationRequest selects a scenario either by preset name or inline.
// Exactly one of Preset and Scenario must be set.
type SimulationRequest struct {
	Preset   string             `json:"preset,omitempty"`
	Scenario *scenario.Scenario `json:"scenario,omitempty"`
}

// SweepRequest is a SimulationRequest whose scenario carries a sweep section.
type SweepRequest struct {
	SimulationRequest
	// Parallel bounds concurrent sweep points; 0 uses the server default.
	Parallel int `json:"parallel,omitempty"`
}

// SimulationResponse is returned by POST /api/v1/simulations.
type SimulationResponse struct {
	RunID    string      `json:"run_id,omitempty"`
	Scenario string      `json:"scenario"`
	Period   int         `json:"period"`
	Results  sim.Results `json:"results"`
}

// SweepResponse is returned by POST /api/v1/sweeps.
type SweepResponse struct {
	RunID        string                  `json:"run_id,omitempty"`
	Scenario     string                  `json:"scenario"`
	Period       int                     `json:"period"`
	Combinations int                     `json:"combinations"`
	Points       []SweepPoint            `json:"points"`
	Summary      []analysis.ComboSummary `json:"summary"`
}

// SweepPoint is the outcome of one grid combination.
type SweepPoint struct {
	ComboKey string      `json:"combo_key"`
	Params   sim.Params  `json:"params"`
	Results  sim.Results `json:"results"`
}

// VariantInfo describes a registered operation variant.
type VariantInfo struct {
	Name         string   `json:"name"`
	CostTerms    []string `json:"cost_terms"`
	RevenueTerms []string `json:"revenue_terms"`
	NoRevenue    bool     `json:"no_revenue"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
