package ir

// Default cycle length bounds for a matching run.
const (
	DefaultMinCycleLength = 2
	DefaultMaxCycleLength = 3
)

// EpochSentinel is the expires_at of a proposal whose participants carry
// no expiry at all.
const EpochSentinel = "1970-01-01T00:00:00Z"

// MatchInput is the complete input of one matching run.
//
// Optional knobs are pointers so that an explicit zero can be told apart
// from "not given". AssetValuesUSD must already be fully resolved; the
// engine performs no lookups of its own.
type MatchInput struct {
	Intents                 []Intent           `json:"intents"`
	AssetValuesUSD          map[string]float64 `json:"asset_values_usd"`
	EdgeIntents             []PreferenceEdge   `json:"edge_intents,omitempty"`
	NowISO                  string             `json:"now_iso,omitempty"`
	MinCycleLength          *int               `json:"min_cycle_length,omitempty"`
	MaxCycleLength          *int               `json:"max_cycle_length,omitempty"`
	MaxEnumeratedCycles     *int               `json:"max_enumerated_cycles,omitempty"`
	TimeoutMs               *int               `json:"timeout_ms,omitempty"`
	IncludeCycleDiagnostics bool               `json:"include_cycle_diagnostics,omitempty"`
}

// MatchResult is the output of one matching run.
// Diagnostics is nil unless the input asked for cycle diagnostics.
type MatchResult struct {
	Proposals   []Proposal            `json:"proposals"`
	Trace       []SelectionTraceEntry `json:"trace"`
	Stats       Stats                 `json:"stats"`
	Diagnostics *RunDiagnostics       `json:"diagnostics,omitempty"`
}

// EnumerationDiagnostics reports how cycle enumeration ended.
//
// A run cut short by either safety valve still returns the cycles found
// so far; these flags are the only way to tell the difference.
type EnumerationDiagnostics struct {
	MaxCyclesReached bool `json:"max_cycles_reached"`
	TimeoutReached   bool `json:"timeout_reached"`
	CyclesFound      int  `json:"cycles_found"`
	StepsVisited     int  `json:"steps_visited"`
}

// RejectedCycle is a cycle that could not become a candidate proposal.
type RejectedCycle struct {
	Cycle  []string `json:"cycle"`
	Reason string   `json:"reason"`
}

// RunDiagnostics collects optional per-run diagnostics.
type RunDiagnostics struct {
	Enumeration      EnumerationDiagnostics `json:"enumeration"`
	Rejected         []RejectedCycle        `json:"rejected"`
	ExactComponents  int                    `json:"exact_components"`
	GreedyComponents int                    `json:"greedy_components"`
}

// IntPtr returns a pointer to v, for building MatchInput knobs.
func IntPtr(v int) *int { return &v }
