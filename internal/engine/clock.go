package engine

import "time"

// Clock supplies wall-clock time to the engine.
//
// The engine reads the clock in two places only:
//   - to default "now" when the input carries no now_iso
//   - to measure the cycle enumeration timeout
//
// Proposal content never depends on the clock when now_iso is given, so
// identical inputs produce identical outputs. Tests inject a stepping
// clock (see testutil.StepClock) to trigger the timeout deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
//
// Thread-safety: SystemClock is stateless and safe for concurrent use.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
