// Package engine implements the swapgraph matching engine.
//
// The engine receives a pool of swap intents and returns a set of
// intent-disjoint exchange rings ("proposals") in which every participant
// gives what it offers and receives something it wants.
//
// ARCHITECTURE:
//
// Pipeline (one call to Matcher.Run):
//  1. BuildCompatibilityGraph: eligible intents become nodes; an edge A -> B
//     means A's offer satisfies B's want spec and value band
//  2. EnumerateCycles: bounded DFS over the graph, restricted to strongly
//     connected components, emitting simple cycles with length in [min, max]
//  3. BuildProposal: score, value spread, fees and explainability per cycle
//  4. SelectDisjoint: conflict graph over candidates, exact bitmask DP on
//     components of at most 18 candidates, greedy on larger ones
//
// The engine is synchronous, single-threaded and stateless across calls.
// Every intermediate structure (graph, visited set, enumeration budget,
// DP memo) is allocated inside the call that uses it, so concurrent runs
// on independent inputs are safe.
//
// CRITICAL PATTERNS:
//
// Deterministic ordering:
// Node ids and adjacency lists are iterated in lexical order. Candidates
// are ranked by score descending, then proposal id ascending. Exact DP ties
// are broken by the sorted, joined proposal-id signature.
//
// Safety valves:
// Enumeration stops at MaxEnumeratedCycles or after the timeout elapses.
// Cycles found so far are kept; only the diagnostics flags reveal the cut.
//
// Fatal vs per-candidate failures:
// A missing asset value aborts the whole run (MatchError
// MISSING_ASSET_VALUE). A cycle that violates a participant's
// max_cycle_length is only dropped from the candidate set.
package engine
