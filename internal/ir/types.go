package ir

// Asset is a single item offered by an intent.
// For valuation purposes an asset is identified solely by AssetID.
type Asset struct {
	Platform string            `json:"platform"`
	AssetID  string            `json:"asset_id"`
	Category string            `json:"category,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Actor identifies the party behind an intent.
type Actor struct {
	Type string `json:"type"` // "user", "agent", ...
	ID   string `json:"id"`
}

// Want alternative types.
const (
	WantSpecificAsset = "specific_asset"
	WantCategory      = "category"
)

// WantSpec declares what an intent accepts in return.
// The intent is satisfied by any one alternative in AnyOf.
type WantSpec struct {
	Type  string            `json:"type"` // "set"
	AnyOf []WantAlternative `json:"any_of"`
}

// WantAlternative is one acceptable kind of item.
type WantAlternative struct {
	Type     string `json:"type"` // WantSpecificAsset | WantCategory
	Platform string `json:"platform,omitempty"`
	AssetID  string `json:"asset_id,omitempty"`
	Category string `json:"category,omitempty"`
}

// ValueBand bounds the total USD value an intent is willing to receive.
// Nil bounds are open.
type ValueBand struct {
	MinUSD        *float64 `json:"min_usd,omitempty"`
	MaxUSD        *float64 `json:"max_usd,omitempty"`
	PricingSource string   `json:"pricing_source,omitempty"`
}

// Contains reports whether usd lies inside the band. Bounds are inclusive.
func (b ValueBand) Contains(usd float64) bool {
	if b.MinUSD != nil && usd < *b.MinUSD {
		return false
	}
	if b.MaxUSD != nil && usd > *b.MaxUSD {
		return false
	}
	return true
}

// TrustConstraints limit the rings an intent may take part in.
type TrustConstraints struct {
	MaxCycleLength             *int     `json:"max_cycle_length,omitempty"`
	MinCounterpartyReliability *float64 `json:"min_counterparty_reliability,omitempty"`
}

// TimeConstraints carries the intent's expiry and urgency.
// ExpiresAt is an RFC 3339 timestamp; empty means no expiry.
type TimeConstraints struct {
	ExpiresAt string `json:"expires_at,omitempty"`
	Urgency   string `json:"urgency,omitempty"`
}

// SettlementPreferences are carried through untouched by the engine.
type SettlementPreferences struct {
	PreferredMethods []string `json:"preferred_methods,omitempty"`
	RequireEscrow    bool     `json:"require_escrow,omitempty"`
}

// Intent statuses. An empty status is treated as active.
const (
	IntentStatusActive    = "active"
	IntentStatusPaused    = "paused"
	IntentStatusCancelled = "cancelled"
)

// Intent is an actor's offer-and-want declaration.
// Immutable input to a single matching run; owned by the caller.
type Intent struct {
	ID                    string                `json:"id"`
	Actor                 Actor                 `json:"actor"`
	Status                string                `json:"status,omitempty"`
	Offer                 []Asset               `json:"offer"`
	WantSpec              WantSpec              `json:"want_spec"`
	ValueBand             *ValueBand            `json:"value_band,omitempty"`
	TrustConstraints      TrustConstraints      `json:"trust_constraints"`
	TimeConstraints       TimeConstraints       `json:"time_constraints"`
	SettlementPreferences SettlementPreferences `json:"settlement_preferences"`
}

// Preference edge kinds.
const (
	EdgeKindPrefer = "prefer"
	EdgeKindBlock  = "block"
)

// PreferenceStatusActive marks a live preference edge. An empty status is
// also live.
const PreferenceStatusActive = "active"

// PreferenceEdge is an explicit pairwise statement between two intents.
// A prefer edge strengthens an existing compatibility edge
// Source -> Target; a block edge removes it.
type PreferenceEdge struct {
	SourceIntentID string  `json:"source_intent_id"`
	TargetIntentID string  `json:"target_intent_id"`
	Kind           string  `json:"kind"`
	Strength       float64 `json:"strength"`
	Status         string  `json:"status,omitempty"` // empty or "active" is live
}

// Participant is one position in a proposal ring.
type Participant struct {
	IntentID     string  `json:"intent_id"`
	Actor        Actor   `json:"actor"`
	Give         []Asset `json:"give"`
	Get          []Asset `json:"get"`
	GiveValueUSD float64 `json:"give_value_usd"`
	GetValueUSD  float64 `json:"get_value_usd"`
}

// ParticipantFee is the fee charged to one participant.
type ParticipantFee struct {
	IntentID string  `json:"intent_id"`
	FeeUSD   float64 `json:"fee_usd"`
}

// FeeBreakdown lists per-participant fees for a proposal.
type FeeBreakdown struct {
	Currency     string           `json:"currency"`
	Participants []ParticipantFee `json:"participants"`
	TotalUSD     float64          `json:"total_usd"`
}

// Proposal is a fully scored, fee'd and explainable instantiation of one
// cycle. Built fresh per run; never mutated after construction.
type Proposal struct {
	ID              string        `json:"id"`
	ExpiresAt       string        `json:"expires_at"`
	Participants    []Participant `json:"participants"`
	ConfidenceScore float64       `json:"confidence_score"`
	ValueSpread     float64       `json:"value_spread"`
	FeeBreakdown    FeeBreakdown  `json:"fee_breakdown"`
	Explainability  []string      `json:"explainability"`
}

// IntentIDs returns the participant intent ids in ring order.
func (p Proposal) IntentIDs() []string {
	ids := make([]string, len(p.Participants))
	for i, part := range p.Participants {
		ids[i] = part.IntentID
	}
	return ids
}

// Selection trace reasons.
const (
	ReasonPicked               = "picked"
	ReasonConflictSharedIntent = "conflict_shared_intent"
	ReasonNotSelectedOptimizer = "not_selected_optimizer"
)

// SelectionTraceEntry records the selector's decision for one candidate.
type SelectionTraceEntry struct {
	Cycle      []string `json:"cycle"`
	ProposalID string   `json:"proposal_id"`
	Score      float64  `json:"score"`
	Selected   bool     `json:"selected"`
	Reason     string   `json:"reason"`
}

// Stats summarizes one matching run.
// The enumeration flags are only set when diagnostics were requested.
type Stats struct {
	IntentsActive            int   `json:"intents_active"`
	Edges                    int   `json:"edges"`
	CandidateCycles          int   `json:"candidate_cycles"`
	CandidateProposals       int   `json:"candidate_proposals"`
	SelectedProposals        int   `json:"selected_proposals"`
	CycleEnumerationLimited  *bool `json:"cycle_enumeration_limited,omitempty"`
	CycleEnumerationTimedOut *bool `json:"cycle_enumeration_timed_out,omitempty"`
}
