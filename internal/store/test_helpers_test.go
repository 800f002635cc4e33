package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/testutil"
)

var testCreatedAt = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ringInput builds a run input holding one n-ring priced at $100 per asset.
func ringInput(prefix string, n int) ir.MatchInput {
	intents := testutil.Ring(prefix, n)
	return ir.MatchInput{
		Intents:        intents,
		AssetValuesUSD: testutil.Prices(100, intents...),
		NowISO:         "2026-01-15T12:00:00Z",
	}
}

// runAndWrite runs the engine on in and stores the result as runID.
func runAndWrite(t *testing.T, s *Store, runID string, in ir.MatchInput) (RunRecord, *ir.MatchResult) {
	t.Helper()
	res, err := engine.RunMatching(context.Background(), in)
	require.NoError(t, err)
	rec, inserted, err := s.WriteRun(context.Background(), runID, testCreatedAt, in, res)
	require.NoError(t, err)
	require.True(t, inserted)
	return rec, res
}
