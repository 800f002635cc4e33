// Package harness provides a scenario testing framework for the swapgraph
// matching engine.
//
// A scenario is a YAML file naming one matching input (inline or by file)
// and a list of assertions over the run's outcome:
//
//	name: three_way_ring
//	description: equal-valued 3-ring yields one proposal
//	input_file: ../inputs/three_ring.json
//	assertions:
//	  - type: selected_count
//	    count: 1
//	  - type: proposal
//	    cycle: [alice, bob, carol]
//	    value_spread: 0
//	    fee_per_leg_usd: 1.00
//
// Every scenario runs with a frozen clock, so enumeration timeouts never
// fire and the default "now" is fixed. Successful runs are written to a
// fresh in-memory store and replayed; a replay whose output digest differs
// fails the scenario, which turns every scenario into a determinism check.
//
// Golden snapshots (RunWithGolden) serialize the outcome as canonical
// JSON with scores in basis points and money in cents, so snapshots never
// depend on float formatting.
package harness
