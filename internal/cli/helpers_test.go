package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/store"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/testutil"
)

// ringProposalID is the id of the alice → bob → carol proposal.
const ringProposalID = "prop_ab42f27b1d7c5b767c4dac638857761f692f8a389460022f2a71a7a04f2539bc"

const ringInputJSON = `{
  "intents": [
    {"id": "alice", "offer": [{"platform": "steam", "asset_id": "knife"}],
     "want_spec": {"any_of": [{"type": "specific_asset", "asset_id": "gloves"}]}},
    {"id": "bob", "offer": [{"platform": "steam", "asset_id": "rifle"}],
     "want_spec": {"any_of": [{"type": "specific_asset", "asset_id": "knife"}]}},
    {"id": "carol", "offer": [{"platform": "steam", "asset_id": "gloves"}],
     "want_spec": {"any_of": [{"type": "specific_asset", "asset_id": "rifle"}]}}
  ],
  "asset_values_usd": {"knife": 100, "rifle": 100, "gloves": 100},
  "now_iso": "2026-01-15T12:00:00Z"
}`

const ringInputYAML = `now_iso: "2026-01-16T12:00:00Z"
asset_values_usd: {knife: 100, rifle: 100, gloves: 100}
intents:
  - id: alice
    offer: [{platform: steam, asset_id: knife}]
    want_spec: {any_of: [{type: specific_asset, asset_id: gloves}]}
  - id: bob
    offer: [{platform: steam, asset_id: rifle}]
    want_spec: {any_of: [{type: specific_asset, asset_id: knife}]}
  - id: carol
    offer: [{platform: steam, asset_id: gloves}]
    want_spec: {any_of: [{type: specific_asset, asset_id: rifle}]}
`

// unpricedInputJSON is the ring with rifle left unpriced.
const unpricedInputJSON = `{
  "intents": [
    {"id": "alice", "offer": [{"platform": "steam", "asset_id": "knife"}],
     "want_spec": {"any_of": [{"type": "specific_asset", "asset_id": "gloves"}]}},
    {"id": "bob", "offer": [{"platform": "steam", "asset_id": "rifle"}],
     "want_spec": {"any_of": [{"type": "specific_asset", "asset_id": "knife"}]}},
    {"id": "carol", "offer": [{"platform": "steam", "asset_id": "gloves"}],
     "want_spec": {"any_of": [{"type": "specific_asset", "asset_id": "rifle"}]}}
  ],
  "asset_values_usd": {"knife": 100, "gloves": 100},
  "now_iso": "2026-01-15T12:00:00Z"
}`

// missingOfferJSON violates the input schema.
const missingOfferJSON = `{
  "intents": [
    {"id": "alice", "want_spec": {"any_of": [{"type": "specific_asset", "asset_id": "gloves"}]}}
  ],
  "asset_values_usd": {"gloves": 100}
}`

// duplicateIDJSON is schema valid but fails lint.
const duplicateIDJSON = `{
  "intents": [
    {"id": "alice", "offer": [{"platform": "steam", "asset_id": "knife"}],
     "want_spec": {"any_of": [{"type": "specific_asset", "asset_id": "gloves"}]}},
    {"id": "alice", "offer": [{"platform": "steam", "asset_id": "gloves"}],
     "want_spec": {"any_of": [{"type": "specific_asset", "asset_id": "knife"}]}}
  ],
  "asset_values_usd": {"knife": 100, "gloves": 100}
}`

var testNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeData decodes a JSON envelope, filling data from its payload.
func decodeData(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse
}

func testRootOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format:    format,
		StorePath: filepath.Join(t.TempDir(), "runs.db"),
	}
}

// seedStore stores one run of input under runID and returns the store path.
func seedStore(t *testing.T, opts *RootOptions, runID, input string) {
	t.Helper()
	path := writeFile(t, t.TempDir(), "seed.json", input)
	in, err := LoadInput(path)
	require.NoError(t, err)

	res, err := engine.RunMatching(context.Background(), in)
	require.NoError(t, err)

	st, err := store.Open(opts.config().Store.Path)
	require.NoError(t, err)
	defer st.Close()

	_, inserted, err := st.WriteRun(context.Background(), runID, testNow, in, res)
	require.NoError(t, err)
	require.True(t, inserted)
}

func frozenClock() engine.Clock {
	return testutil.NewFrozenClock(testNow)
}
