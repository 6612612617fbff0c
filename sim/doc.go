// Package sim provides the core time-stepped cost/revenue simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - operation.go: a single billable activity and its cost/revenue formula
//   - transaction_model.go: aggregation of operations, growth, overhead and tax
//   - simulator.go: the per-step loop and result recording
//   - sweep.go: the Cartesian parameter-sweep combinator
//
// # Architecture
//
// The sim package holds the engine and its value types; everything that
// reads or writes the outside world lives in sub-packages:
//   - sim/scenario/: YAML scenario files and built-in presets
//   - sim/export/: CSV encoding of sweep results
//   - sim/analysis/: per-combination statistics over exported results
//   - sim/store/: SQLite persistence of runs
//
// # Key Interfaces
//
// The extension points are small:
//   - Ledger: anything that can report total costs and revenues for a step
//   - TimeStepper: ledgers that react to the step index (volume growth)
//   - Variant: named additive cost/revenue contributions layered on the
//     base operation formula
//   - BusinessModelFactory: builds a fresh business model per sweep point
package sim
