package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ResolvesInputFile(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "three_way_ring.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "three_way_ring", s.Name)
	assert.Equal(t, filepath.Join("testdata", "inputs", "three_ring.json"), s.InputFile)
	assert.Len(t, s.Assertions, 5)
	require.NotNil(t, s.Assertions[2].FeePerLegUSD)
	assert.InDelta(t, 1.0, *s.Assertions[2].FeePerLegUSD, 1e-9)
}

func TestLoadScenario_InlineInput(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "conflicting_cycles.yaml"))
	require.NoError(t, err)
	assert.Empty(t, s.InputFile)
	assert.Contains(t, s.Input, "intents")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestLoadScenario_MissingInputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	writeFile(t, path, `
name: s
description: d
input_file: missing.json
assertions:
  - type: selected_count
    count: 0
`)
	_, err := LoadScenario(path)
	assert.ErrorContains(t, err, "input file not found")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: s\ndescription: d\ninput: {}\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: d\ninput: {}\nassertions: [{type: selected_count, count: 1}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: s\ninput: {}\nassertions: [{type: selected_count, count: 1}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no input",
			yaml:    "name: s\ndescription: d\nassertions: [{type: selected_count, count: 1}]\n",
			wantErr: "exactly one of input and input_file",
		},
		{
			name:    "both inputs",
			yaml:    "name: s\ndescription: d\ninput: {}\ninput_file: x.json\nassertions: [{type: selected_count, count: 1}]\n",
			wantErr: "exactly one of input and input_file",
		},
		{
			name:    "no assertions",
			yaml:    "name: s\ndescription: d\ninput: {}\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "missing type",
			yaml:    "name: s\ndescription: d\ninput: {}\nassertions: [{count: 1}]\n",
			wantErr: "type is required",
		},
		{
			name:    "unknown type",
			yaml:    "name: s\ndescription: d\ninput: {}\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "count missing",
			yaml:    "name: s\ndescription: d\ninput: {}\nassertions: [{type: selected_count}]\n",
			wantErr: "count is required",
		},
		{
			name:    "cycle missing",
			yaml:    "name: s\ndescription: d\ninput: {}\nassertions: [{type: selected_cycle}]\n",
			wantErr: "cycle is required for selected_cycle",
		},
		{
			name:    "reason missing",
			yaml:    "name: s\ndescription: d\ninput: {}\nassertions: [{type: trace_reason, cycle: [a, b]}]\n",
			wantErr: "reason is required",
		},
		{
			name:    "unknown stat",
			yaml:    "name: s\ndescription: d\ninput: {}\nassertions: [{type: stat, stat: vibes, value: 1}]\n",
			wantErr: `unknown stat "vibes"`,
		},
		{
			name:    "stat value missing",
			yaml:    "name: s\ndescription: d\ninput: {}\nassertions: [{type: stat, stat: edges}]\n",
			wantErr: "value is required",
		},
		{
			name:    "error message missing",
			yaml:    "name: s\ndescription: d\ninput: {}\nassertions: [{type: error_contains}]\n",
			wantErr: "message is required",
		},
		{
			name:    "proposal cycle missing",
			yaml:    "name: s\ndescription: d\ninput: {}\nassertions: [{type: proposal}]\n",
			wantErr: "cycle is required for proposal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
