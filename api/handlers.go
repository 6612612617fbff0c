package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bizsim/bizsim/sim"
	"github.com/bizsim/bizsim/sim/analysis"
	"github.com/bizsim/bizsim/sim/export"
	"github.com/bizsim/bizsim/sim/scenario"
	"github.com/bizsim/bizsim/sim/store"
)

// ListVariants handles GET /api/v1/variants
func (s *Server) ListVariants(c *gin.Context) {
	names := sim.VariantNames()
	out := make([]VariantInfo, 0, len(names))
	for _, name := range names {
		v, err := sim.LookupVariant(name)
		if err != nil {
			continue
		}
		cost, revenue := v.TermNames()
		out = append(out, VariantInfo{
			Name:         v.Name,
			CostTerms:    cost,
			RevenueTerms: revenue,
			NoRevenue:    v.NoRevenue,
		})
	}
	c.JSON(http.StatusOK, gin.H{"variants": out})
}

// ListPresets handles GET /api/v1/presets
func (s *Server) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": scenario.PresetNames()})
}

// RunSimulation handles POST /api/v1/simulations
func (s *Server) RunSimulation(c *gin.Context) {
	var req SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	sc, ok := resolveScenario(c, req)
	if !ok {
		return
	}

	simulator, err := sc.Build()
	if err != nil {
		writeScenarioError(c, err)
		return
	}
	if err := simulator.Run(); err != nil {
		writeScenarioError(c, err)
		return
	}
	results := simulator.CollectResults()
	if !requireFinite(c, export.ResultRows("", results)) {
		return
	}

	resp := SimulationResponse{Scenario: sc.Name, Period: sc.Period, Results: results}
	if s.store != nil {
		id, err := s.store.SaveResults(c.Request.Context(), store.KindRun, sc.Name, sc.Period, "", results)
		if err != nil {
			logrus.Errorf("persisting run: %v", err)
			abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
		resp.RunID = id
	}
	c.JSON(http.StatusOK, resp)
}

// RunSweep handles POST /api/v1/sweeps
func (s *Server) RunSweep(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	sc, ok := resolveScenario(c, req.SimulationRequest)
	if !ok {
		return
	}
	if sc.Sweep == nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_SCENARIO", "scenario has no sweep section")
		return
	}

	simulator, err := sc.Build()
	if err != nil {
		writeScenarioError(c, err)
		return
	}
	factory, err := sc.Factory()
	if err != nil {
		writeScenarioError(c, err)
		return
	}
	workers := req.Parallel
	if workers <= 0 {
		workers = s.opts.SweepWorkers
	}
	sweep, err := simulator.RunParameterSweepParallel(c.Request.Context(), sc.Grid(), factory, workers)
	if err != nil {
		writeScenarioError(c, err)
		return
	}

	rows := export.Rows(sweep)
	if !requireFinite(c, rows) {
		return
	}

	points := make([]SweepPoint, 0, sweep.Len())
	for _, e := range sweep.Entries() {
		points = append(points, SweepPoint{ComboKey: e.Key, Params: e.Params, Results: e.Results})
	}
	resp := SweepResponse{
		Scenario:     sc.Name,
		Period:       sc.Period,
		Combinations: sweep.Len(),
		Points:       points,
		Summary:      analysis.Summarize(rows),
	}
	if s.store != nil {
		id, err := s.store.SaveSweep(c.Request.Context(), sc.Name, sc.Period, sweep)
		if err != nil {
			logrus.Errorf("persisting sweep: %v", err)
			abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
		resp.RunID = id
	}
	c.JSON(http.StatusOK, resp)
}

// ListRuns handles GET /api/v1/runs
func (s *Server) ListRuns(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	runs, err := s.store.ListRuns(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun handles GET /api/v1/runs/:id
func (s *Server) GetRun(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	run, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store == nil {
		abortWithError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "server started without a database")
		return false
	}
	return true
}

func resolveScenario(c *gin.Context, req SimulationRequest) (*scenario.Scenario, bool) {
	switch {
	case req.Preset != "" && req.Scenario != nil:
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "set either preset or scenario, not both")
		return nil, false
	case req.Preset != "":
		sc, err := scenario.Preset(req.Preset)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "UNKNOWN_PRESET", err.Error())
			return nil, false
		}
		return sc, true
	case req.Scenario != nil:
		return req.Scenario, true
	default:
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "preset or scenario is required")
		return nil, false
	}
}

// writeScenarioError maps configuration problems to 400 and anything else
// produced while building or running a scenario to 422.
// requireFinite aborts with 422 when a result overflowed to Inf or NaN,
// which JSON cannot carry.
func requireFinite(c *gin.Context, rows []export.Row) bool {
	if err := analysis.CheckFinite(rows); err != nil {
		abortWithError(c, http.StatusUnprocessableEntity, "NON_FINITE_RESULT", err.Error())
		return false
	}
	return true
}

func writeScenarioError(c *gin.Context, err error) {
	if sim.IsConfigurationError(err) {
		abortWithError(c, http.StatusBadRequest, "CONFIGURATION_ERROR", err.Error())
		return
	}
	if ctxErr := c.Request.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		abortWithError(c, http.StatusServiceUnavailable, "CANCELLED", err.Error())
		return
	}
	abortWithError(c, http.StatusUnprocessableEntity, "INVALID_SCENARIO", err.Error())
}
