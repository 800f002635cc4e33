package engine

import (
	"slices"
	"time"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// CandidateCycle is an ordered ring of intent ids: cycle[k] gives to
// cycle[(k+1) % len(cycle)].
type CandidateCycle []string

// EnumerateOptions bounds one cycle enumeration.
type EnumerateOptions struct {
	MinLength int
	MaxLength int

	// MaxCycles caps the number of emitted cycles. Zero means no cap.
	MaxCycles int

	// Timeout stops the search once this much clock time has passed.
	// Zero means no timeout.
	Timeout time.Duration

	// Clock measures the timeout. Nil means SystemClock.
	Clock Clock
}

// EnumerateCycles lists the simple cycles of the edge relation whose
// length lies in [MinLength, MaxLength].
//
// Each cycle is emitted exactly once, rotated so that its lexically
// smallest intent id comes first. The search roots a DFS at every node in
// lexical order and only extends the path through nodes greater than the
// root that share the root's strongly connected component. Successors are
// visited in adjacency order, so the output order is a pure function of
// the edge map.
//
// The budget is checked before every edge visit. When it runs out the
// search unwinds and the cycles emitted so far are returned unchanged.
// diag may be nil.
func EnumerateCycles(edges map[string][]string, opts EnumerateOptions, diag *ir.EnumerationDiagnostics) []CandidateCycle {
	budget := NewEnumerationBudget(opts.MaxCycles, opts.Timeout, opts.Clock)
	comp, sizes := stronglyConnected(edges)

	e := &enumerator{
		edges:     edges,
		comp:      comp,
		minLength: opts.MinLength,
		maxLength: opts.MaxLength,
		budget:    budget,
		onPath:    make(map[string]bool),
	}

	starts := make([]string, 0, len(edges))
	for node := range edges {
		if sizes[comp[node]] > 1 {
			starts = append(starts, node)
		}
	}
	slices.Sort(starts)

	if opts.MaxLength >= 2 && opts.MinLength <= opts.MaxLength {
		for _, start := range starts {
			if budget.Exhausted() {
				break
			}
			e.start = start
			e.path = append(e.path[:0], start)
			e.onPath[start] = true
			e.extend(start)
			delete(e.onPath, start)
		}
	}

	if diag != nil {
		diag.MaxCyclesReached = budget.MaxCyclesReached()
		diag.TimeoutReached = budget.TimedOut()
		diag.CyclesFound = len(e.out)
		diag.StepsVisited = budget.Steps()
	}
	return e.out
}

// enumerator holds the per-call DFS state.
type enumerator struct {
	edges     map[string][]string
	comp      map[string]int
	minLength int
	maxLength int
	budget    *EnumerationBudget

	start  string
	path   []string
	onPath map[string]bool
	out    []CandidateCycle
}

func (e *enumerator) extend(node string) {
	for _, next := range e.edges[node] {
		if !e.budget.Step() {
			return
		}
		if next == e.start {
			if len(e.path) >= e.minLength && len(e.path) <= e.maxLength {
				e.out = append(e.out, CandidateCycle(slices.Clone(e.path)))
				e.budget.RecordCycle()
				if e.budget.Exhausted() {
					return
				}
			}
			continue
		}
		if next < e.start || e.onPath[next] || len(e.path) >= e.maxLength {
			continue
		}
		if c, ok := e.comp[next]; !ok || c != e.comp[e.start] {
			continue
		}

		e.path = append(e.path, next)
		e.onPath[next] = true
		e.extend(next)
		e.onPath[next] = false
		e.path = e.path[:len(e.path)-1]

		if e.budget.Exhausted() {
			return
		}
	}
}
