package engine

import (
	"cmp"
	"math"
	"math/bits"
	"slices"
	"strings"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// ExactComponentLimit is the largest conflict component solved exactly.
const ExactComponentLimit = 18

// scoreScale turns scores into integer DP weights.
const scoreScale = 10000

// Candidate is a successfully built proposal awaiting selection.
type Candidate struct {
	IntentIDs []string
	Proposal  ir.Proposal
	Score     float64
	Length    int

	// inputIndex is the candidate's position among the input cycles.
	inputIndex int
}

// SelectionResult is the selector's output.
type SelectionResult struct {
	// Selected lists the chosen proposals in ranking order
	// (score descending, id ascending).
	Selected []ir.Proposal

	// Trace has one row per built candidate, in input cycle order.
	Trace []ir.SelectionTraceEntry

	// CandidatesCount is the number of cycles that built successfully.
	CandidatesCount int

	// Rejected lists cycles that failed to build, in input order.
	Rejected []ir.RejectedCycle

	ExactComponents  int
	GreedyComponents int
}

// SelectDisjoint picks a maximum-score set of intent-disjoint proposals.
//
// Every cycle is built with BuildProposal; rejected cycles are dropped.
// Candidates that share an intent conflict. Each connected component of
// the conflict graph is solved on its own: exactly (bitmask DP) when it
// has at most ExactComponentLimit candidates, greedily in ranking order
// otherwise.
//
// The only error is a fatal valuation failure from BuildProposal.
func SelectDisjoint(cycles []CandidateCycle, graph *CompatibilityGraph, values Valuer) (*SelectionResult, error) {
	result := &SelectionResult{
		Selected: []ir.Proposal{},
		Trace:    []ir.SelectionTraceEntry{},
		Rejected: []ir.RejectedCycle{},
	}

	var candidates []Candidate
	for i, cycle := range cycles {
		outcome, err := BuildProposal(cycle, graph.ByID, values, graph.EdgeMeta)
		if err != nil {
			return nil, err
		}
		if !outcome.OK {
			result.Rejected = append(result.Rejected, ir.RejectedCycle{
				Cycle:  slices.Clone([]string(cycle)),
				Reason: string(outcome.Reason),
			})
			continue
		}
		candidates = append(candidates, Candidate{
			IntentIDs:  slices.Clone([]string(cycle)),
			Proposal:   outcome.Proposal,
			Score:      outcome.Proposal.ConfidenceScore,
			Length:     len(cycle),
			inputIndex: i,
		})
	}
	result.CandidatesCount = len(candidates)
	if len(candidates) == 0 {
		return result, nil
	}

	// Ranking order: score descending, proposal id ascending.
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Proposal.ID, b.Proposal.ID)
	})

	conflicts := buildConflicts(ranked)
	selected, exact, greedy := chooseDisjoint(ranked, conflicts)
	result.ExactComponents = exact
	result.GreedyComponents = greedy

	for r, c := range ranked {
		if selected[r] {
			result.Selected = append(result.Selected, c.Proposal)
		}
	}

	// Trace rows follow input order.
	rows := make([]int, len(ranked))
	for r := range ranked {
		rows[r] = r
	}
	slices.SortFunc(rows, func(a, b int) int {
		return cmp.Compare(ranked[a].inputIndex, ranked[b].inputIndex)
	})
	for _, r := range rows {
		c := ranked[r]
		reason := ir.ReasonPicked
		if !selected[r] {
			reason = ir.ReasonNotSelectedOptimizer
			for _, other := range conflicts[r] {
				if selected[other] {
					reason = ir.ReasonConflictSharedIntent
					break
				}
			}
		}
		result.Trace = append(result.Trace, ir.SelectionTraceEntry{
			Cycle:      c.IntentIDs,
			ProposalID: c.Proposal.ID,
			Score:      c.Score,
			Selected:   selected[r],
			Reason:     reason,
		})
	}

	return result, nil
}

// chooseDisjoint solves every conflict component and returns which ranked
// candidates were picked, plus how many components each solver handled.
func chooseDisjoint(ranked []Candidate, conflicts [][]int) (selected []bool, exact, greedy int) {
	selected = make([]bool, len(ranked))
	for _, component := range conflictComponents(conflicts) {
		var picked []int
		if len(component) <= ExactComponentLimit {
			picked = solveExact(ranked, conflicts, component)
			exact++
		} else {
			picked = solveGreedy(conflicts, component)
			greedy++
		}
		for _, r := range picked {
			selected[r] = true
		}
	}
	return selected, exact, greedy
}

// buildConflicts returns, for each ranked candidate, the ranked indices of
// the candidates it shares an intent with, ascending.
func buildConflicts(ranked []Candidate) [][]int {
	byIntent := make(map[string][]int)
	for r, c := range ranked {
		for _, id := range c.IntentIDs {
			byIntent[id] = append(byIntent[id], r)
		}
	}

	sets := make([]map[int]struct{}, len(ranked))
	for r := range sets {
		sets[r] = make(map[int]struct{})
	}
	for _, holders := range byIntent {
		for i, a := range holders {
			for _, b := range holders[i+1:] {
				sets[a][b] = struct{}{}
				sets[b][a] = struct{}{}
			}
		}
	}

	conflicts := make([][]int, len(ranked))
	for r, set := range sets {
		list := make([]int, 0, len(set))
		for other := range set {
			list = append(list, other)
		}
		slices.Sort(list)
		conflicts[r] = list
	}
	return conflicts
}

// conflictComponents splits the conflict graph into connected components.
// Components are ordered by their best-ranked member and list members in
// ranking order.
func conflictComponents(conflicts [][]int) [][]int {
	seen := make([]bool, len(conflicts))
	var components [][]int
	for root := range conflicts {
		if seen[root] {
			continue
		}
		seen[root] = true
		queue := []int{root}
		var members []int
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			members = append(members, n)
			for _, m := range conflicts[n] {
				if !seen[m] {
					seen[m] = true
					queue = append(queue, m)
				}
			}
		}
		slices.Sort(members)
		components = append(components, members)
	}
	return components
}

// solveGreedy takes candidates in ranking order when they conflict with
// nothing already taken.
func solveGreedy(conflicts [][]int, component []int) []int {
	taken := make(map[int]bool, len(component))
	var picked []int
	for _, r := range component {
		clash := false
		for _, other := range conflicts[r] {
			if taken[other] {
				clash = true
				break
			}
		}
		if !clash {
			taken[r] = true
			picked = append(picked, r)
		}
	}
	return picked
}

// dpResult is the best subset found for one mask.
type dpResult struct {
	weight int64
	chosen uint32
}

// exactSolver is the per-component maximum-weight independent set solver.
// Bit i of a mask stands for component[i]. The memo lives only as long as
// the solver.
type exactSolver struct {
	weights    []int64
	conflict   []uint32
	ids        []string
	memo       map[uint32]dpResult
	signatures map[uint32]string
}

// solveExact returns the ranked indices of the optimal subset of component.
func solveExact(ranked []Candidate, conflicts [][]int, component []int) []int {
	local := make(map[int]int, len(component))
	for i, r := range component {
		local[r] = i
	}

	s := &exactSolver{
		weights:    make([]int64, len(component)),
		conflict:   make([]uint32, len(component)),
		ids:        make([]string, len(component)),
		memo:       make(map[uint32]dpResult),
		signatures: make(map[uint32]string),
	}
	for i, r := range component {
		s.weights[i] = int64(math.Round(ranked[r].Score * scoreScale))
		s.ids[i] = ranked[r].Proposal.ID
		for _, other := range conflicts[r] {
			if j, ok := local[other]; ok {
				s.conflict[i] |= 1 << j
			}
		}
	}

	full := uint32(1)<<len(component) - 1
	best := s.solve(full)

	var picked []int
	for i, r := range component {
		if best.chosen&(1<<i) != 0 {
			picked = append(picked, r)
		}
	}
	return picked
}

// solve returns the best independent subset of mask. The lowest set bit
// is decided first: take it (dropping its conflicts) or skip it.
func (s *exactSolver) solve(mask uint32) dpResult {
	if mask == 0 {
		return dpResult{}
	}
	if r, ok := s.memo[mask]; ok {
		return r
	}

	i := bits.TrailingZeros32(mask)
	bit := uint32(1) << i

	take := s.solve(mask &^ bit &^ s.conflict[i])
	take.weight += s.weights[i]
	take.chosen |= bit

	skip := s.solve(mask &^ bit)

	best := skip
	if s.better(take, skip) {
		best = take
	}
	s.memo[mask] = best
	return best
}

// better reports whether a beats b: higher weight, then the strict
// superset, then the lexically smaller sorted proposal-id signature. The
// superset rule keeps zero-score candidates that conflict with nothing
// chosen.
func (s *exactSolver) better(a, b dpResult) bool {
	if a.weight != b.weight {
		return a.weight > b.weight
	}
	if a.chosen != b.chosen {
		switch {
		case a.chosen&b.chosen == b.chosen:
			return true
		case a.chosen&b.chosen == a.chosen:
			return false
		}
	}
	return s.signature(a.chosen) < s.signature(b.chosen)
}

func (s *exactSolver) signature(chosen uint32) string {
	if sig, ok := s.signatures[chosen]; ok {
		return sig
	}
	var ids []string
	for m := chosen; m != 0; m &= m - 1 {
		ids = append(ids, s.ids[bits.TrailingZeros32(m)])
	}
	slices.Sort(ids)
	sig := strings.Join(ids, ",")
	s.signatures[chosen] = sig
	return sig
}
