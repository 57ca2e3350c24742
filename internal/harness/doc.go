// Package harness runs compile scenarios for qcml problems.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: norm_epigraph
//	description: "norm(x) <= t becomes one second-order cone"
//	problem: ../problems/socp.cue
//	program: socp
//	dims:
//	  n: 3
//	assertions:
//	  - type: sizes
//	    expect: { n: 5, q: [4] }
//	  - type: cone_contains
//	    contains: "soc[n+1]"
//	  - type: feasible
//	    x: [1, 0, 0, 1, 1]
//
// # Assertion Types
//
//   - sizes: standard-form sizes n, m, p, l and q (subset match)
//   - error: the pipeline failed with the given code and/or message
//   - feasible, infeasible: a candidate x against the cone constraints
//   - objective: user objective value at x
//   - variables: user variable values mapped back from x
//   - cone_contains: a line of the symbolic cone program listing
//   - curvature: curvature of the objective as written
//   - record: fields of the compilation log row
//
// # Deterministic Testing
//
// Each scenario runs with a fixed run ID and a fresh in-memory compilation
// log, so snapshots are identical across runs. Golden snapshots hold the
// canonical JSON cone data, or the error for failing scenarios.
package harness
