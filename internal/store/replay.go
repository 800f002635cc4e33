package store

import (
	"context"
	"fmt"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// Runner executes one matching pass. engine.RunMatching and
// (*engine.Matcher).Run both satisfy it.
type Runner func(ctx context.Context, in ir.MatchInput) (*ir.MatchResult, error)

// ReplayResult compares a stored run with a fresh execution of its input.
type ReplayResult struct {
	RunID          string          `json:"run_id"`
	Match          bool            `json:"match"`
	StoredDigest   string          `json:"stored_digest"`
	ReplayedDigest string          `json:"replayed_digest"`
	EngineChanged  bool            `json:"engine_changed"`
	Result         *ir.MatchResult `json:"-"`
}

// Replay re-runs the stored input of runID and checks that proposals and
// trace hash to the stored output digest.
//
// Matching runs are pure functions of their input, so a mismatch means
// either the engine version changed (EngineChanged) or determinism broke.
// Replay never writes to the store.
func (s *Store) Replay(ctx context.Context, runID string, run Runner) (*ReplayResult, error) {
	rec, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	in, err := s.ReadInput(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	res, err := run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("replay run %s: %w", runID, err)
	}
	digest, err := OutputDigest(res)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	return &ReplayResult{
		RunID:          runID,
		Match:          digest == rec.OutputDigest,
		StoredDigest:   rec.OutputDigest,
		ReplayedDigest: digest,
		EngineChanged:  rec.EngineVersion != ir.EngineVersion,
		Result:         res,
	}, nil
}
