// Package store provides SQLite-backed durable storage for matching runs.
//
// The store is an append-only run log with:
//   - Runs: the input of each run, its content hash and output digest
//   - Proposals: selected proposals per run, in ranking order
//   - Proposal participants: intent -> proposal index for lookups
//   - Selection trace: one row per candidate, in candidate order
//
// The engine itself never touches the store. Callers (the CLI) run the
// engine and hand the result to WriteRun.
//
// # Critical Patterns
//
// Input-Level Idempotency
//   - UNIQUE(input_hash) on runs
//   - Writing the same input twice returns the first run, inserted=false
//
// Deterministic Query Results
//   - Proposals ORDER BY rank ASC, trace ORDER BY row ASC
//   - Run listings ORDER BY id COLLATE BINARY (UUIDv7 ids sort by time)
//
// Replay
//   - Replay re-runs a stored input and compares output digests
//   - A mismatch means the engine is no longer deterministic for that input
//     (or its version changed)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Input hashes and output digests are computed via internal/ir/hash.go
// using SHA-256 with domain separation.
package store
