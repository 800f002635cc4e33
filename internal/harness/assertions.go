package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// moneyTolerance absorbs float noise in USD comparisons; amounts are cents.
const moneyTolerance = 0.005

// scoreTolerance absorbs float noise in 4-decimal score comparisons.
const scoreTolerance = 0.00005

// statFields maps stat assertion names to their Stats accessors.
var statFields = map[string]func(ir.Stats) int{
	"intents_active":      func(s ir.Stats) int { return s.IntentsActive },
	"edges":               func(s ir.Stats) int { return s.Edges },
	"candidate_cycles":    func(s ir.Stats) int { return s.CandidateCycles },
	"candidate_proposals": func(s ir.Stats) int { return s.CandidateProposals },
	"selected_proposals":  func(s ir.Stats) int { return s.SelectedProposals },
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Selected []string // Selected cycles for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Selected) > 0 {
		fmt.Fprintf(&buf, "\nSelected cycles:\n")
		for i, cycle := range e.Selected {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, cycle)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result and
// returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		if assertion.Type == AssertErrorContains {
			err = assertErrorContains(result, assertion)
		} else if result.Output == nil {
			err = fmt.Errorf("assertion[%d]: %s needs a successful run, got error: %s",
				i, assertion.Type, result.RunError)
		} else {
			err = evaluateOnOutput(result.Output, assertion)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	// An unexpected engine error fails the scenario even if no assertion
	// looked at it.
	if result.RunError != "" && !slices.ContainsFunc(assertions, func(a Assertion) bool {
		return a.Type == AssertErrorContains
	}) {
		errors = append(errors, "unexpected run error: "+result.RunError)
	}

	return errors
}

func evaluateOnOutput(out *ir.MatchResult, assertion Assertion) error {
	switch assertion.Type {
	case AssertSelectedCount:
		return assertSelectedCount(out, assertion)
	case AssertSelectedCycle:
		return assertSelectedCycle(out, assertion)
	case AssertTraceReason:
		return assertTraceReason(out, assertion)
	case AssertStat:
		return assertStat(out, assertion)
	case AssertProposal:
		return assertProposal(out, assertion)
	default:
		return fmt.Errorf("unknown assertion type %q", assertion.Type)
	}
}

func assertSelectedCount(out *ir.MatchResult, a Assertion) error {
	if len(out.Proposals) != *a.Count {
		return &AssertionError{
			Type:     AssertSelectedCount,
			Expected: fmt.Sprintf("%d selected proposals", *a.Count),
			Actual:   fmt.Sprintf("%d selected proposals", len(out.Proposals)),
			Selected: selectedCycles(out),
		}
	}
	return nil
}

func assertSelectedCycle(out *ir.MatchResult, a Assertion) error {
	if findSelected(out, a.Cycle) == nil {
		return &AssertionError{
			Type:     AssertSelectedCycle,
			Expected: fmt.Sprintf("cycle %v selected", a.Cycle),
			Actual:   "not selected",
			Selected: selectedCycles(out),
		}
	}
	return nil
}

func assertTraceReason(out *ir.MatchResult, a Assertion) error {
	for _, row := range out.Trace {
		if !slices.Equal(row.Cycle, a.Cycle) {
			continue
		}
		if row.Reason != a.Reason {
			return &AssertionError{
				Type:     AssertTraceReason,
				Expected: fmt.Sprintf("cycle %v with reason %s", a.Cycle, a.Reason),
				Actual:   fmt.Sprintf("reason %s", row.Reason),
				Selected: selectedCycles(out),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceReason,
		Expected: fmt.Sprintf("cycle %v with reason %s", a.Cycle, a.Reason),
		Actual:   "cycle not in trace",
		Selected: selectedCycles(out),
	}
}

func assertStat(out *ir.MatchResult, a Assertion) error {
	got := statFields[a.Stat](out.Stats)
	if got != *a.Value {
		return &AssertionError{
			Type:     AssertStat,
			Expected: fmt.Sprintf("%s = %d", a.Stat, *a.Value),
			Actual:   fmt.Sprintf("%s = %d", a.Stat, got),
		}
	}
	return nil
}

func assertErrorContains(result *Result, a Assertion) error {
	if result.RunError == "" {
		return &AssertionError{
			Type:     AssertErrorContains,
			Expected: fmt.Sprintf("run error containing %q", a.Message),
			Actual:   "run succeeded",
		}
	}
	if !strings.Contains(result.RunError, a.Message) {
		return &AssertionError{
			Type:     AssertErrorContains,
			Expected: fmt.Sprintf("run error containing %q", a.Message),
			Actual:   result.RunError,
		}
	}
	return nil
}

func assertProposal(out *ir.MatchResult, a Assertion) error {
	p := findSelected(out, a.Cycle)
	if p == nil {
		return &AssertionError{
			Type:     AssertProposal,
			Expected: fmt.Sprintf("selected proposal for cycle %v", a.Cycle),
			Actual:   "not selected",
			Selected: selectedCycles(out),
		}
	}

	var mismatches []string
	if a.Participants != nil && len(p.Participants) != *a.Participants {
		mismatches = append(mismatches, fmt.Sprintf("participants %d != %d", len(p.Participants), *a.Participants))
	}
	if a.Confidence != nil && math.Abs(p.ConfidenceScore-*a.Confidence) > scoreTolerance {
		mismatches = append(mismatches, fmt.Sprintf("confidence %.4f != %.4f", p.ConfidenceScore, *a.Confidence))
	}
	if a.ValueSpread != nil && math.Abs(p.ValueSpread-*a.ValueSpread) > scoreTolerance {
		mismatches = append(mismatches, fmt.Sprintf("value_spread %.4f != %.4f", p.ValueSpread, *a.ValueSpread))
	}
	if a.FeeTotalUSD != nil && math.Abs(p.FeeBreakdown.TotalUSD-*a.FeeTotalUSD) > moneyTolerance {
		mismatches = append(mismatches, fmt.Sprintf("fee total %.2f != %.2f", p.FeeBreakdown.TotalUSD, *a.FeeTotalUSD))
	}
	if a.FeePerLegUSD != nil {
		for _, fee := range p.FeeBreakdown.Participants {
			if math.Abs(fee.FeeUSD-*a.FeePerLegUSD) > moneyTolerance {
				mismatches = append(mismatches, fmt.Sprintf("fee for %s %.2f != %.2f", fee.IntentID, fee.FeeUSD, *a.FeePerLegUSD))
			}
		}
	}

	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertProposal,
			Expected: fmt.Sprintf("proposal for cycle %v as declared", a.Cycle),
			Actual:   strings.Join(mismatches, "; "),
		}
	}
	return nil
}

func findSelected(out *ir.MatchResult, cycle []string) *ir.Proposal {
	for i := range out.Proposals {
		if slices.Equal(out.Proposals[i].IntentIDs(), cycle) {
			return &out.Proposals[i]
		}
	}
	return nil
}

func selectedCycles(out *ir.MatchResult) []string {
	cycles := make([]string, len(out.Proposals))
	for i, p := range out.Proposals {
		cycles[i] = strings.Join(p.IntentIDs(), " -> ")
	}
	return cycles
}
