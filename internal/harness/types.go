package harness

import "github.com/LuisRevillaM/swapgraph-sub007/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held and the
	// replay matched.
	Pass bool `json:"pass"`

	// Output is the run's result; nil when the run failed.
	Output *ir.MatchResult `json:"output,omitempty"`

	// RunError is the engine's error text when the run failed.
	RunError string `json:"run_error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
