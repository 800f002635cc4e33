package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// Scoring constants.
const (
	// FeeRate is the share of each received value charged as a fee.
	FeeRate = "0.01"

	// FeeCurrency is the currency of every fee breakdown.
	FeeCurrency = "USD"

	preferBonusPerStrength = 0.02
	preferBonusCap         = 0.1

	baseConfidenceTwoCycle  = 0.95
	lengthPenaltyPerStep    = 0.05
	spreadPenaltyMultiplier = 0.5
)

var feeRate = decimal.RequireFromString(FeeRate)

// BuildOutcome is the result of turning one cycle into a proposal.
// When OK is false, Reason says why and Proposal is the zero value.
type BuildOutcome struct {
	OK       bool
	Proposal ir.Proposal
	Reason   RejectReason
}

func rejected(reason RejectReason) BuildOutcome {
	return BuildOutcome{Reason: reason}
}

// BuildProposal scores one candidate cycle.
//
// Steps, in order:
//  1. reject when a participant's max_cycle_length is below the length
//  2. expires_at = earliest participant expiry, or EpochSentinel
//  3. give = own offer, get = next intent's offer, both priced in USD
//  4. value spread over the get values
//  5. confidence from length, spread and explicit prefer strength
//  6. 1% fee per received value, rounded to cents
//  7. explainability tokens
//  8. id from the intent-id sequence
//
// A missing asset value returns an error; every other problem is a
// rejected outcome.
func BuildProposal(cycle CandidateCycle, byID map[string]ir.Intent, values Valuer, edgeMeta map[Edge]EdgeMeta) (BuildOutcome, error) {
	length := len(cycle)
	if length < 2 {
		return rejected(RejectInvalidCycle), nil
	}

	intents := make([]ir.Intent, length)
	seen := make(map[string]bool, length)
	for k, id := range cycle {
		intent, ok := byID[id]
		if !ok {
			return rejected(RejectUnknownIntent), nil
		}
		if seen[id] {
			return rejected(RejectInvalidCycle), nil
		}
		seen[id] = true
		intents[k] = intent
	}

	for _, intent := range intents {
		if limit := intent.TrustConstraints.MaxCycleLength; limit != nil && *limit < length {
			return rejected(RejectMaxCycleLengthExceeded), nil
		}
	}

	expiresAt := earliestExpiry(intents)

	giveValues := make([]decimal.Decimal, length)
	for k, intent := range intents {
		v, err := sumUSD(intent.Offer, values)
		if err != nil {
			return BuildOutcome{}, withIntent(err, intent.ID)
		}
		giveValues[k] = v
	}

	participants := make([]ir.Participant, length)
	getValues := make([]decimal.Decimal, length)
	for k, intent := range intents {
		next := (k + 1) % length
		getValues[k] = giveValues[next]
		participants[k] = ir.Participant{
			IntentID:     intent.ID,
			Actor:        intent.Actor,
			Give:         intent.Offer,
			Get:          intents[next].Offer,
			GiveValueUSD: giveValues[k].InexactFloat64(),
			GetValueUSD:  getValues[k].InexactFloat64(),
		}
	}

	spread := ValueSpread(getValues)

	strength := 0.0
	for k := range cycle {
		strength += edgeMeta[Edge{cycle[k], cycle[(k+1)%length]}].ExplicitPreferStrength
	}
	confidence := ConfidenceScore(length, spread, strength)

	fees := make([]ir.ParticipantFee, length)
	total := decimal.Zero
	for k, intent := range intents {
		fee := getValues[k].Mul(feeRate).Round(2)
		total = total.Add(fee)
		fees[k] = ir.ParticipantFee{IntentID: intent.ID, FeeUSD: fee.InexactFloat64()}
	}

	id, err := ir.ProposalID(cycle)
	if err != nil {
		return BuildOutcome{}, fmt.Errorf("proposal id: %w", err)
	}

	return BuildOutcome{
		OK: true,
		Proposal: ir.Proposal{
			ID:              id,
			ExpiresAt:       expiresAt,
			Participants:    participants,
			ConfidenceScore: confidence,
			ValueSpread:     spread,
			FeeBreakdown: ir.FeeBreakdown{
				Currency:     FeeCurrency,
				Participants: fees,
				TotalUSD:     total.InexactFloat64(),
			},
			Explainability: []string{
				fmt.Sprintf("cycle_length=%d", length),
				fmt.Sprintf("value_spread=%.4f", spread),
				fmt.Sprintf("explicit_prefer_strength=%.2f", strength),
				fmt.Sprintf("confidence=%.4f", confidence),
				"fee_total_usd=" + total.StringFixed(2),
			},
		},
	}, nil
}

// earliestExpiry returns the minimum participant expiry normalized to UTC,
// or EpochSentinel when no participant has one. Unparseable values never
// reach here because CheckEligible excludes them.
func earliestExpiry(intents []ir.Intent) string {
	var (
		earliest time.Time
		found    bool
	)
	for _, intent := range intents {
		raw := intent.TimeConstraints.ExpiresAt
		if raw == "" {
			continue
		}
		t, err := ParseTimestamp(raw)
		if err != nil {
			continue
		}
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	if !found {
		return ir.EpochSentinel
	}
	return earliest.UTC().Format(time.RFC3339Nano)
}

// ValueSpread measures how unequal the received values are:
// (max - min) / max, rounded to 4 decimals. Zero when every value is
// zero. The result lies in [0, 1] for non-negative values.
func ValueSpread(getValues []decimal.Decimal) float64 {
	if len(getValues) == 0 {
		return 0
	}
	lo, hi := getValues[0], getValues[0]
	for _, v := range getValues[1:] {
		lo = decimal.Min(lo, v)
		hi = decimal.Max(hi, v)
	}
	if !hi.IsPositive() {
		return 0
	}
	return hi.Sub(lo).DivRound(hi, 8).Round(4).InexactFloat64()
}

// BaseConfidence is the prior confidence of a cycle before preference
// bonuses: 0.95 for a 2-cycle, minus 0.05 per extra participant, minus
// half the value spread, clamped to [0, 1]. Non-increasing in both
// arguments.
func BaseConfidence(length int, spread float64) float64 {
	return clamp01(baseConfidenceTwoCycle -
		lengthPenaltyPerStep*float64(length-2) -
		spreadPenaltyMultiplier*spread)
}

// PreferenceBonus converts the summed explicit prefer strength on a
// cycle's edges into a confidence bonus, capped at 0.1.
func PreferenceBonus(strength float64) float64 {
	return math.Min(preferBonusCap, preferBonusPerStrength*strength)
}

// ConfidenceScore combines the base confidence and the preference bonus,
// rounded to 4 decimals and clamped to [0, 1].
func ConfidenceScore(length int, spread, preferStrength float64) float64 {
	return clamp01(roundTo(BaseConfidence(length, spread)+PreferenceBonus(preferStrength), 4))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
