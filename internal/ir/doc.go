// Package ir provides the canonical data types exchanged with the swapgraph
// matching engine.
//
// This package contains type definitions, canonical JSON and content-addressed
// identity only. All other internal packages import ir; ir imports nothing
// internal. This keeps ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Intents, assets and proposals are tagged structs with explicit optional
//     fields (pointers), never loosely-typed maps
//   - All JSON tags use snake_case
//   - Identity hashes are computed over canonical JSON, which forbids floats;
//     only ids and integers ever enter a hash
//   - Proposal ids depend on the cycle's intent-id sequence and nothing else
package ir
