package harness

import (
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// Snapshot serializes a scenario outcome as canonical JSON.
//
// Canonical JSON has no floats, so scores are written in basis points
// (confidence_bp, value_spread_bp, score_bp) and money in cents.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snap := map[string]any{
		"scenario_name": scenarioName,
	}
	if result.Output == nil {
		snap["error"] = result.RunError
		return ir.MarshalCanonical(snap)
	}

	out := result.Output
	proposals := make([]any, len(out.Proposals))
	for i, p := range out.Proposals {
		proposals[i] = proposalSnapshot(p)
	}
	trace := make([]any, len(out.Trace))
	for i, row := range out.Trace {
		trace[i] = map[string]any{
			"cycle":       row.Cycle,
			"proposal_id": row.ProposalID,
			"score_bp":    basisPoints(row.Score),
			"selected":    row.Selected,
			"reason":      row.Reason,
		}
	}

	snap["proposals"] = proposals
	snap["trace"] = trace
	snap["stats"] = map[string]any{
		"intents_active":      out.Stats.IntentsActive,
		"edges":               out.Stats.Edges,
		"candidate_cycles":    out.Stats.CandidateCycles,
		"candidate_proposals": out.Stats.CandidateProposals,
		"selected_proposals":  out.Stats.SelectedProposals,
	}
	return ir.MarshalCanonical(snap)
}

func proposalSnapshot(p ir.Proposal) map[string]any {
	fees := make(map[string]int64, len(p.FeeBreakdown.Participants))
	for _, f := range p.FeeBreakdown.Participants {
		fees[f.IntentID] = cents(f.FeeUSD)
	}

	participants := make([]any, len(p.Participants))
	for i, part := range p.Participants {
		participants[i] = map[string]any{
			"intent_id":        part.IntentID,
			"give":             assetIDs(part.Give),
			"get":              assetIDs(part.Get),
			"give_value_cents": cents(part.GiveValueUSD),
			"get_value_cents":  cents(part.GetValueUSD),
			"fee_cents":        fees[part.IntentID],
		}
	}

	return map[string]any{
		"id":              p.ID,
		"expires_at":      p.ExpiresAt,
		"participants":    participants,
		"confidence_bp":   basisPoints(p.ConfidenceScore),
		"value_spread_bp": basisPoints(p.ValueSpread),
		"fee_total_cents": cents(p.FeeBreakdown.TotalUSD),
		"explainability":  p.Explainability,
	}
}

func assetIDs(assets []ir.Asset) []string {
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.AssetID
	}
	return ids
}

func basisPoints(x float64) int64 {
	return int64(math.Round(x * 10000))
}

func cents(usd float64) int64 {
	return int64(math.Round(usd * 100))
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
