package compiler

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

func newCompiler(t *testing.T) *Compiler {
	t.Helper()
	c, err := New()
	require.NoError(t, err)
	return c
}

func TestCompileFile_AllFormatsAgree(t *testing.T) {
	c := newCompiler(t)

	fromJSON, err := c.CompileFile(filepath.Join("testdata", "three_ring.json"))
	require.NoError(t, err)

	require.Len(t, fromJSON.Intents, 3)
	assert.Equal(t, "alice", fromJSON.Intents[0].ID)
	assert.Equal(t, "u_alice", fromJSON.Intents[0].Actor.ID)
	assert.Equal(t, "knife", fromJSON.Intents[0].Offer[0].AssetID)
	assert.Equal(t, ir.WantSpecificAsset, fromJSON.Intents[0].WantSpec.AnyOf[0].Type)
	require.NotNil(t, fromJSON.Intents[2].TrustConstraints.MaxCycleLength)
	assert.Equal(t, 3, *fromJSON.Intents[2].TrustConstraints.MaxCycleLength)
	assert.Equal(t, "2026-02-01T00:00:00Z", fromJSON.Intents[2].TimeConstraints.ExpiresAt)
	assert.Equal(t, map[string]float64{"knife": 100, "rifle": 100, "gloves": 100}, fromJSON.AssetValuesUSD)
	assert.Equal(t, "2026-01-15T12:00:00Z", fromJSON.NowISO)

	for _, name := range []string{"three_ring.yaml", "three_ring.cue"} {
		t.Run(name, func(t *testing.T) {
			got, err := c.CompileFile(filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.Equal(t, fromJSON, got)
		})
	}
}

func TestCompile_OptionalKnobs(t *testing.T) {
	c := newCompiler(t)

	in, err := c.Compile("knobs.json", []byte(`{
		"intents": [],
		"max_cycle_length": 4,
		"max_enumerated_cycles": 100,
		"timeout_ms": 250,
		"include_cycle_diagnostics": true,
		"edge_intents": [
			{"source_intent_id": "a", "target_intent_id": "b", "kind": "block"}
		]
	}`), FormatJSON)
	require.NoError(t, err)

	require.NotNil(t, in.MaxCycleLength)
	assert.Equal(t, 4, *in.MaxCycleLength)
	assert.Nil(t, in.MinCycleLength)
	assert.Equal(t, 100, *in.MaxEnumeratedCycles)
	assert.Equal(t, 250, *in.TimeoutMs)
	assert.True(t, in.IncludeCycleDiagnostics)
	require.Len(t, in.EdgeIntents, 1)
	assert.Equal(t, ir.EdgeKindBlock, in.EdgeIntents[0].Kind)
}

func TestCompile_NullKnobs(t *testing.T) {
	c := newCompiler(t)

	in, err := c.Compile("knobs.json",
		[]byte(`{"intents": [], "max_enumerated_cycles": null, "timeout_ms": null}`), FormatJSON)
	require.NoError(t, err)

	assert.Nil(t, in.MaxEnumeratedCycles)
	assert.Nil(t, in.TimeoutMs)
	assert.Empty(t, c.Check("knobs.json",
		[]byte(`{"intents": [], "max_enumerated_cycles": null, "timeout_ms": null}`), FormatJSON))
}

func TestCompile_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing intents", `{"asset_values_usd": {}}`},
		{"unknown field", `{"intents": [], "surprise": 1}`},
		{"negative timeout", `{"intents": [], "timeout_ms": -5}`},
		{"bad now_iso", `{"intents": [], "now_iso": "yesterday"}`},
		{"bad want type", `{"intents": [{"id": "a", "offer": [], "want_spec": {"any_of": [{"type": "anything"}]}}]}`},
		{"empty intent id", `{"intents": [{"id": "", "offer": [], "want_spec": {"any_of": []}}]}`},
		{"string value", `{"intents": [], "asset_values_usd": {"x": "ten"}}`},
		{"bad edge kind", `{"intents": [], "edge_intents": [{"source_intent_id": "a", "target_intent_id": "b", "kind": "love"}]}`},
	}

	c := newCompiler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile("doc.json", []byte(tt.doc), FormatJSON)
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, ErrInputSchema, ce.Code)
			assert.NotEmpty(t, ce.Violations())

			violations := c.Check("doc.json", []byte(tt.doc), FormatJSON)
			assert.NotEmpty(t, violations)
		})
	}
}

func TestCompile_SyntaxErrors(t *testing.T) {
	c := newCompiler(t)

	_, err := c.Compile("broken.json", []byte(`{"intents": [`), FormatJSON)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrInputSyntax, ce.Code)

	_, err = c.Compile("broken.yaml", []byte("intents: [\n  - : :"), FormatYAML)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrInputSyntax, ce.Code)
}

func TestCheck_ValidDocument(t *testing.T) {
	c := newCompiler(t)
	assert.Empty(t, c.Check("ok.json", []byte(`{"intents": []}`), FormatJSON))
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"in.json", FormatJSON},
		{"in.YAML", FormatYAML},
		{"dir/in.yml", FormatYAML},
		{"in.cue", FormatCUE},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatFromPath("in.toml")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrUnsupportedFormat, ce.Code)
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "timeout_ms", Message: "invalid value", Code: ErrInputSchema}
	assert.Equal(t, "[E102] timeout_ms: invalid value", err.Error())
	assert.Equal(t, []ValidationError{{Field: "timeout_ms", Message: "invalid value", Code: ErrInputSchema}}, err.Violations())
}
