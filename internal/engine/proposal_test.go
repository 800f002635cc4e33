package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/testutil"
)

func byID(intents ...ir.Intent) map[string]ir.Intent {
	m := make(map[string]ir.Intent, len(intents))
	for _, intent := range intents {
		m[intent.ID] = intent
	}
	return m
}

func TestBuildProposal_ThreeWayRing(t *testing.T) {
	intents := testutil.Ring("r", 3)
	cycle := CandidateCycle{"r1", "r2", "r3"}

	outcome, err := BuildProposal(cycle, byID(intents...), ValueTable(testutil.Prices(100, intents...)), nil)
	require.NoError(t, err)
	require.True(t, outcome.OK)

	p := outcome.Proposal
	assert.Equal(t, ir.MustProposalID([]string{"r1", "r2", "r3"}), p.ID)
	assert.Equal(t, ir.EpochSentinel, p.ExpiresAt)
	assert.Equal(t, []string{"r1", "r2", "r3"}, p.IntentIDs())
	assert.Equal(t, 0.0, p.ValueSpread)
	assert.Equal(t, 0.9, p.ConfidenceScore)

	// r1 gives x1 and receives r2's offer x2
	assert.Equal(t, "r_x1", p.Participants[0].Give[0].AssetID)
	assert.Equal(t, "r_x2", p.Participants[0].Get[0].AssetID)
	assert.Equal(t, "r_x1", p.Participants[2].Get[0].AssetID)
	assert.Equal(t, "user_r2", p.Participants[1].Actor.ID)

	assert.Equal(t, "USD", p.FeeBreakdown.Currency)
	for _, fee := range p.FeeBreakdown.Participants {
		assert.Equal(t, 1.0, fee.FeeUSD, "fee for %s", fee.IntentID)
	}
	assert.Equal(t, 3.0, p.FeeBreakdown.TotalUSD)

	assert.Equal(t, []string{
		"cycle_length=3",
		"value_spread=0.0000",
		"explicit_prefer_strength=0.00",
		"confidence=0.9000",
		"fee_total_usd=3.00",
	}, p.Explainability)
}

func TestBuildProposal_SameCycleSameID(t *testing.T) {
	intents := testutil.Ring("r", 3)
	values := ValueTable(testutil.Prices(10, intents...))

	a, err := BuildProposal(CandidateCycle{"r1", "r2", "r3"}, byID(intents...), values, nil)
	require.NoError(t, err)
	b, err := BuildProposal(CandidateCycle{"r1", "r2", "r3"}, byID(intents...), ValueTable(testutil.Prices(99, intents...)), nil)
	require.NoError(t, err)

	assert.Equal(t, a.Proposal.ID, b.Proposal.ID, "id depends on intent ids only")
	assert.NotEqual(t, a.Proposal.FeeBreakdown, b.Proposal.FeeBreakdown)
}

func TestBuildProposal_EarliestExpiry(t *testing.T) {
	intents := testutil.Ring("r", 3)
	intents[0].TimeConstraints.ExpiresAt = "2026-03-01T00:00:00Z"
	intents[1].TimeConstraints.ExpiresAt = "2026-02-01T12:00:00+02:00"

	outcome, err := BuildProposal(CandidateCycle{"r1", "r2", "r3"}, byID(intents...), ValueTable(testutil.Prices(1, intents...)), nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01T10:00:00Z", outcome.Proposal.ExpiresAt)
}

func TestBuildProposal_Rejections(t *testing.T) {
	intents := testutil.Ring("r", 3)
	intents[2].TrustConstraints.MaxCycleLength = ir.IntPtr(2)
	values := ValueTable(testutil.Prices(1, intents...))

	tests := []struct {
		name   string
		cycle  CandidateCycle
		reason RejectReason
	}{
		{"max cycle length exceeded", CandidateCycle{"r1", "r2", "r3"}, RejectMaxCycleLengthExceeded},
		{"unknown intent", CandidateCycle{"r1", "ghost"}, RejectUnknownIntent},
		{"too short", CandidateCycle{"r1"}, RejectInvalidCycle},
		{"repeated intent", CandidateCycle{"r1", "r2", "r1"}, RejectInvalidCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := BuildProposal(tt.cycle, byID(intents...), values, nil)
			require.NoError(t, err, "rejections are not errors")
			assert.False(t, outcome.OK)
			assert.Equal(t, tt.reason, outcome.Reason)
		})
	}
}

func TestBuildProposal_MaxCycleLengthEqualToLengthIsAllowed(t *testing.T) {
	intents := testutil.Ring("r", 3, testutil.WithMaxCycleLength(3))

	outcome, err := BuildProposal(CandidateCycle{"r1", "r2", "r3"}, byID(intents...), ValueTable(testutil.Prices(1, intents...)), nil)
	require.NoError(t, err)
	assert.True(t, outcome.OK)
}

func TestBuildProposal_MissingAssetValue(t *testing.T) {
	intents := testutil.Ring("r", 3)
	values := ValueTable(testutil.Prices(100, intents...))
	delete(values, "r_x2")

	_, err := BuildProposal(CandidateCycle{"r1", "r2", "r3"}, byID(intents...), values, nil)
	require.Error(t, err)
	assert.True(t, IsMissingAssetValue(err))
	assert.Contains(t, err.Error(), "Missing asset value for asset_id=r_x2")
}

func TestBuildProposal_UnequalValues(t *testing.T) {
	intents := testutil.Ring("r", 2)
	values := ValueTable{"r_x1": 100, "r_x2": 50}

	outcome, err := BuildProposal(CandidateCycle{"r1", "r2"}, byID(intents...), values, nil)
	require.NoError(t, err)
	p := outcome.Proposal

	// r1 receives x2 ($50), r2 receives x1 ($100)
	assert.Equal(t, 50.0, p.Participants[0].GetValueUSD)
	assert.Equal(t, 100.0, p.Participants[0].GiveValueUSD)
	assert.Equal(t, 0.5, p.ValueSpread)
	assert.Equal(t, 0.7, p.ConfidenceScore)
	assert.Equal(t, []ir.ParticipantFee{
		{IntentID: "r1", FeeUSD: 0.5},
		{IntentID: "r2", FeeUSD: 1},
	}, p.FeeBreakdown.Participants)
	assert.Equal(t, 1.5, p.FeeBreakdown.TotalUSD)
}

func TestBuildProposal_PreferenceBonus(t *testing.T) {
	intents := testutil.Ring("r", 3)
	values := ValueTable(testutil.Prices(100, intents...))

	tests := []struct {
		name       string
		meta       map[Edge]EdgeMeta
		confidence float64
		token      string
	}{
		{"single edge", map[Edge]EdgeMeta{{"r1", "r2"}: {ExplicitPreferStrength: 2}}, 0.94, "explicit_prefer_strength=2.00"},
		{"summed over edges", map[Edge]EdgeMeta{
			{"r1", "r2"}: {ExplicitPreferStrength: 1},
			{"r3", "r1"}: {ExplicitPreferStrength: 1.5},
		}, 0.95, "explicit_prefer_strength=2.50"},
		{"capped", map[Edge]EdgeMeta{{"r2", "r3"}: {ExplicitPreferStrength: 50}}, 1.0, "explicit_prefer_strength=50.00"},
		{"reverse edge ignored", map[Edge]EdgeMeta{{"r2", "r1"}: {ExplicitPreferStrength: 5}}, 0.9, "explicit_prefer_strength=0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := BuildProposal(CandidateCycle{"r1", "r2", "r3"}, byID(intents...), values, tt.meta)
			require.NoError(t, err)
			assert.Equal(t, tt.confidence, outcome.Proposal.ConfidenceScore)
			assert.Contains(t, outcome.Proposal.Explainability, tt.token)
		})
	}
}

func TestBuildProposal_FeeRounding(t *testing.T) {
	intents := testutil.Ring("r", 2)
	values := ValueTable{"r_x1": 33.335, "r_x2": 0.5}

	outcome, err := BuildProposal(CandidateCycle{"r1", "r2"}, byID(intents...), values, nil)
	require.NoError(t, err)

	// r1 receives $0.50 -> 0.005 rounds half away from zero to 0.01
	// r2 receives $33.335 -> 0.33335 rounds to 0.33
	assert.Equal(t, []ir.ParticipantFee{
		{IntentID: "r1", FeeUSD: 0.01},
		{IntentID: "r2", FeeUSD: 0.33},
	}, outcome.Proposal.FeeBreakdown.Participants)
	assert.Equal(t, 0.34, outcome.Proposal.FeeBreakdown.TotalUSD)
	assert.Contains(t, outcome.Proposal.Explainability, "fee_total_usd=0.34")
}

func TestValueSpread(t *testing.T) {
	d := func(vs ...float64) []decimal.Decimal {
		out := make([]decimal.Decimal, len(vs))
		for i, v := range vs {
			out[i] = decimal.NewFromFloat(v)
		}
		return out
	}

	assert.Equal(t, 0.0, ValueSpread(nil))
	assert.Equal(t, 0.0, ValueSpread(d(0, 0, 0)))
	assert.Equal(t, 0.0, ValueSpread(d(42, 42)))
	assert.Equal(t, 0.5, ValueSpread(d(100, 50, 75)))
	assert.Equal(t, 1.0, ValueSpread(d(0, 10)))
	assert.Equal(t, 0.6667, ValueSpread(d(3, 1)))
}

// The exact form of the base confidence is a chosen substitute: the only
// hard requirements are bounds and monotonicity. This test pins the
// chosen formula so any change to it is deliberate.
func TestBaseConfidence_ChosenSubstituteFormula(t *testing.T) {
	tests := []struct {
		length int
		spread float64
		want   float64
	}{
		{2, 0, 0.95},
		{3, 0, 0.90},
		{4, 0, 0.85},
		{2, 0.5, 0.70},
		{3, 0.2, 0.80},
		{20, 0, 0.05},
		{21, 0, 0.0},
		{3, 1, 0.40},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, BaseConfidence(tt.length, tt.spread), 1e-9,
			"length=%d spread=%v", tt.length, tt.spread)
	}
}

func TestBaseConfidence_BoundedAndMonotone(t *testing.T) {
	for length := 2; length <= 30; length++ {
		for s := 0; s <= 100; s++ {
			spread := float64(s) / 100
			v := BaseConfidence(length, spread)

			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
			assert.LessOrEqual(t, BaseConfidence(length+1, spread), v, "non-increasing in length")
			if s < 100 {
				assert.LessOrEqual(t, BaseConfidence(length, float64(s+1)/100), v, "non-increasing in spread")
			}
		}
	}
}

func TestConfidenceScore_Bounds(t *testing.T) {
	assert.Equal(t, 1.0, ConfidenceScore(2, 0, 100))
	assert.Equal(t, 0.0, ConfidenceScore(40, 1, 0))
	assert.Equal(t, 0.1, PreferenceBonus(5))
	assert.Equal(t, 0.04, PreferenceBonus(2))
}
