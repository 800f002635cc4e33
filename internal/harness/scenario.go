package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one matching run and the assertions over its outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Input is an inline input document. Exactly one of Input and
	// InputFile must be set.
	Input map[string]any `yaml:"input,omitempty"`

	// InputFile points at a JSON, YAML or CUE input document. Relative
	// paths resolve against the scenario file's directory.
	InputFile string `yaml:"input_file,omitempty"`

	// Assertions validate the run's outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a run's outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "selected_count": number of selected proposals equals Count
	// - "selected_cycle": a selected proposal has exactly Cycle as participants
	// - "trace_reason": the trace row for Cycle has Reason
	// - "stat": the stats field named Stat equals Value
	// - "error_contains": the run failed with Message in its error text
	// - "proposal": the selected proposal for Cycle matches the given numbers
	Type string `yaml:"type"`

	Count *int `yaml:"count,omitempty"`

	// Cycle is an ordered intent-id sequence (selected_cycle, trace_reason, proposal).
	Cycle []string `yaml:"cycle,omitempty"`

	Reason string `yaml:"reason,omitempty"`

	Stat  string `yaml:"stat,omitempty"`
	Value *int   `yaml:"value,omitempty"`

	Message string `yaml:"message,omitempty"`

	// Proposal checks. Unset fields are not checked.
	Participants *int     `yaml:"participants,omitempty"`
	Confidence   *float64 `yaml:"confidence,omitempty"`
	ValueSpread  *float64 `yaml:"value_spread,omitempty"`
	FeeTotalUSD  *float64 `yaml:"fee_total_usd,omitempty"`
	FeePerLegUSD *float64 `yaml:"fee_per_leg_usd,omitempty"`
}

// Assertion type constants.
const (
	AssertSelectedCount = "selected_count"
	AssertSelectedCycle = "selected_cycle"
	AssertTraceReason   = "trace_reason"
	AssertStat          = "stat"
	AssertErrorContains = "error_contains"
	AssertProposal      = "proposal"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative input_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.InputFile != "" && !filepath.IsAbs(scenario.InputFile) {
		scenario.InputFile = filepath.Join(filepath.Dir(path), scenario.InputFile)
	}
	if scenario.InputFile != "" {
		if _, err := os.Stat(scenario.InputFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: input file not found: %s", scenario.InputFile)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if (s.Input == nil) == (s.InputFile == "") {
		return fmt.Errorf("exactly one of input and input_file is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSelectedCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for selected_count", index)
		}
	case AssertSelectedCycle:
		if len(a.Cycle) == 0 {
			return fmt.Errorf("assertions[%d]: cycle is required for selected_cycle", index)
		}
	case AssertTraceReason:
		if len(a.Cycle) == 0 {
			return fmt.Errorf("assertions[%d]: cycle is required for trace_reason", index)
		}
		if a.Reason == "" {
			return fmt.Errorf("assertions[%d]: reason is required for trace_reason", index)
		}
	case AssertStat:
		if _, ok := statFields[a.Stat]; !ok {
			return fmt.Errorf("assertions[%d]: unknown stat %q", index, a.Stat)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for stat", index)
		}
	case AssertErrorContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for error_contains", index)
		}
	case AssertProposal:
		if len(a.Cycle) == 0 {
			return fmt.Errorf("assertions[%d]: cycle is required for proposal", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
