package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/config"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/store"
)

func matchCommand(rootOpts *RootOptions, runIDs engine.RunIDGenerator) *MatchOptions {
	return &MatchOptions{
		RootOptions: rootOpts,
		RunIDs:      runIDs,
		Clock:       frozenClock(),
	}
}

func TestMatchCommand_Text(t *testing.T) {
	input := writeFile(t, t.TempDir(), "ring.json", ringInputJSON)

	out, err := execute(newMatchCommand(matchCommand(testRootOptions(t, "text"), nil)), input)
	require.NoError(t, err)

	assert.Contains(t, out, "1 proposal(s) selected from 1 candidate(s)")
	assert.Contains(t, out, "✓ "+ringProposalID)
	assert.Contains(t, out, "cycle: alice → bob → carol")
	assert.Contains(t, out, "fees: $3.00")
	assert.NotContains(t, out, "Run:")
}

func TestMatchCommand_Verbose(t *testing.T) {
	input := writeFile(t, t.TempDir(), "ring.json", ringInputJSON)
	opts := testRootOptions(t, "text")
	opts.Verbose = true

	out, err := execute(newMatchCommand(matchCommand(opts, nil)), input)
	require.NoError(t, err)

	assert.Contains(t, out, "alice gives knife ($100.00), gets rifle ($100.00)")
	assert.Contains(t, out, "expires: 1970-01-01T00:00:00Z")
}

func TestMatchCommand_JSON(t *testing.T) {
	input := writeFile(t, t.TempDir(), "ring.json", ringInputJSON)

	out, err := execute(newMatchCommand(matchCommand(testRootOptions(t, "json"), nil)), input)
	require.NoError(t, err)

	var payload MatchOutput
	resp := decodeData(t, out, &payload)
	assert.Equal(t, StatusOK, resp.Status)
	require.NotNil(t, payload.Result)
	require.Len(t, payload.Result.Proposals, 1)
	assert.Equal(t, ringProposalID, payload.Result.Proposals[0].ID)
	assert.Equal(t, []string{"alice", "bob", "carol"}, payload.Result.Proposals[0].IntentIDs())
	assert.Empty(t, payload.RunID)
	assert.Nil(t, payload.Inserted)
}

func TestMatchCommand_SaveIsIdempotent(t *testing.T) {
	input := writeFile(t, t.TempDir(), "ring.json", ringInputJSON)
	rootOpts := testRootOptions(t, "json")
	ids := engine.NewSequenceGenerator("run")

	out, err := execute(newMatchCommand(matchCommand(rootOpts, ids)), input, "--save")
	require.NoError(t, err)
	var first MatchOutput
	decodeData(t, out, &first)
	assert.Equal(t, "run-1", first.RunID)
	require.NotNil(t, first.Inserted)
	assert.True(t, *first.Inserted)

	out, err = execute(newMatchCommand(matchCommand(rootOpts, ids)), input, "--save")
	require.NoError(t, err)
	var second MatchOutput
	decodeData(t, out, &second)
	assert.Equal(t, "run-1", second.RunID, "same input maps to the stored run")
	require.NotNil(t, second.Inserted)
	assert.False(t, *second.Inserted)

	st, err := store.Open(rootOpts.config().Store.Path)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, "2026-01-15T12:00:00Z", runs[0].CreatedAt)
}

func TestMatchCommand_SaveText(t *testing.T) {
	input := writeFile(t, t.TempDir(), "ring.json", ringInputJSON)

	out, err := execute(newMatchCommand(matchCommand(testRootOptions(t, "text"), engine.NewSequenceGenerator("run"))), input, "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "Run: run-1 (stored)")
}

func TestMatchCommand_PinsNowForInputsWithoutOne(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "ring.yaml", ringInputYAML)
	rootOpts := testRootOptions(t, "json")

	_, err := execute(newMatchCommand(matchCommand(rootOpts, engine.NewSequenceGenerator("run"))), input, "--save")
	require.NoError(t, err)

	st, err := store.Open(rootOpts.config().Store.Path)
	require.NoError(t, err)
	defer st.Close()
	in, err := st.ReadInput(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-16T12:00:00Z", in.NowISO, "explicit now_iso is kept")
	require.NotNil(t, in.MaxCycleLength)
	assert.Equal(t, 3, *in.MaxCycleLength, "config default filled in")
}

func TestMatchCommand_ConfigFillsUnsetKnobs(t *testing.T) {
	input := writeFile(t, t.TempDir(), "ring.json", ringInputJSON)
	rootOpts := testRootOptions(t, "json")
	rootOpts.Config = config.NewDefaultConfig()
	rootOpts.Config.Matching.MaxCycleLength = 2

	out, err := execute(newMatchCommand(matchCommand(rootOpts, nil)), input)
	require.NoError(t, err)

	var payload MatchOutput
	decodeData(t, out, &payload)
	assert.Empty(t, payload.Result.Proposals, "a 3-ring is out of reach with max length 2")
	assert.Equal(t, 0, payload.Result.Stats.CandidateCycles)
}

func TestMatchCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	unpriced := writeFile(t, dir, "unpriced.json", unpricedInputJSON)
	invalid := writeFile(t, dir, "invalid.json", missingOfferJSON)

	tests := []struct {
		name     string
		input    string
		wantCode string
		wantExit int
	}{
		{"unpriced asset", unpriced, ErrCodeMissingValue, ExitFailure},
		{"schema violation", invalid, ErrCodeInput, ExitFailure},
		{"missing file", dir + "/missing.json", ErrCodeNotFound, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(newMatchCommand(matchCommand(testRootOptions(t, "json"), nil)), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			resp := decodeData(t, out, nil)
			assert.Equal(t, StatusError, resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestMatchCommand_UnpricedMessage(t *testing.T) {
	input := writeFile(t, t.TempDir(), "unpriced.json", unpricedInputJSON)

	out, err := execute(newMatchCommand(matchCommand(testRootOptions(t, "text"), nil)), input)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E021]")
	assert.Contains(t, out, "Missing asset value for asset_id=rifle")
}
