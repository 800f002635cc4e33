package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

func TestReplay_Matches(t *testing.T) {
	s := createTestStore(t)
	rec, res := runAndWrite(t, s, "run-1", ringInput("r", 3))

	replay, err := s.Replay(context.Background(), "run-1", engine.RunMatching)
	require.NoError(t, err)

	assert.True(t, replay.Match)
	assert.False(t, replay.EngineChanged)
	assert.Equal(t, rec.OutputDigest, replay.ReplayedDigest)
	assert.Equal(t, res.Proposals, replay.Result.Proposals)
}

func TestReplay_DetectsDrift(t *testing.T) {
	s := createTestStore(t)
	runAndWrite(t, s, "run-1", ringInput("r", 3))

	drifted := func(ctx context.Context, in ir.MatchInput) (*ir.MatchResult, error) {
		res, err := engine.RunMatching(ctx, in)
		if err != nil {
			return nil, err
		}
		res.Proposals = res.Proposals[:0]
		return res, nil
	}

	replay, err := s.Replay(context.Background(), "run-1", drifted)
	require.NoError(t, err)
	assert.False(t, replay.Match)
	assert.NotEqual(t, replay.StoredDigest, replay.ReplayedDigest)
}

func TestReplay_Errors(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Replay(context.Background(), "missing", engine.RunMatching)
	assert.ErrorIs(t, err, ErrRunNotFound)

	runAndWrite(t, s, "run-1", ringInput("r", 3))
	boom := errors.New("boom")
	_, err = s.Replay(context.Background(), "run-1", func(context.Context, ir.MatchInput) (*ir.MatchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
