package engine

import "time"

// EnumerationBudget bounds the work of one cycle enumeration.
//
// Two independent limits apply:
//   - maxCycles: stop once this many cycles have been emitted
//   - timeout: stop once the clock has advanced this far past the start
//
// A zero value for either limit disables it. The budget never fails the
// run; exhausting it only truncates the candidate set and sets the
// matching diagnostics flag.
//
// Each enumeration gets its own budget instance. Not safe for concurrent use.
type EnumerationBudget struct {
	maxCycles int
	timeout   time.Duration
	clock     Clock
	started   time.Time

	cycles           int
	steps            int
	maxCyclesReached bool
	timedOut         bool
}

// NewEnumerationBudget starts a budget, reading the clock once for the
// start time.
func NewEnumerationBudget(maxCycles int, timeout time.Duration, clock Clock) *EnumerationBudget {
	if clock == nil {
		clock = SystemClock{}
	}
	return &EnumerationBudget{
		maxCycles: maxCycles,
		timeout:   timeout,
		clock:     clock,
		started:   clock.Now(),
	}
}

// Step records one DFS edge visit and checks the timeout.
//
// Returns false once the budget is exhausted; the caller must unwind.
func (b *EnumerationBudget) Step() bool {
	if b.Exhausted() {
		return false
	}
	b.steps++
	if b.timeout > 0 && b.clock.Now().Sub(b.started) >= b.timeout {
		b.timedOut = true
		return false
	}
	return true
}

// RecordCycle counts an emitted cycle and checks the cycle cap.
func (b *EnumerationBudget) RecordCycle() {
	b.cycles++
	if b.maxCycles > 0 && b.cycles >= b.maxCycles {
		b.maxCyclesReached = true
	}
}

// Exhausted reports whether either limit has been hit.
func (b *EnumerationBudget) Exhausted() bool {
	return b.maxCyclesReached || b.timedOut
}

// Cycles returns the number of cycles recorded so far.
func (b *EnumerationBudget) Cycles() int { return b.cycles }

// Steps returns the number of edge visits so far.
func (b *EnumerationBudget) Steps() int { return b.steps }

// MaxCyclesReached reports whether the cycle cap stopped enumeration.
func (b *EnumerationBudget) MaxCyclesReached() bool { return b.maxCyclesReached }

// TimedOut reports whether the timeout stopped enumeration.
func (b *EnumerationBudget) TimedOut() bool { return b.timedOut }
