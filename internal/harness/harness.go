package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/compiler"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/engine"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/store"
	"github.com/LuisRevillaM/swapgraph-sub007/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a frozen clock and an in-memory run log.
type Harness struct {
	store   *store.Store
	matcher *engine.Matcher
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile the scenario input through the boundary schema
// 2. Run the matcher with a frozen clock
// 3. On success, store the run and replay it, comparing output digests
// 4. Evaluate assertions
//
// Returns an error only when the scenario cannot be executed at all
// (unreadable or schema-invalid input, store failure). Engine errors are
// recorded in Result.RunError for error_contains assertions.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(context.Background(), scenario, slog.New(slog.DiscardHandler))
}

// RunWithLogger is Run with an explicit context and logger.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	in, err := loadInput(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		matcher: engine.NewMatcher(
			engine.WithClock(testutil.NewFrozenClock(testutil.Epoch)),
			engine.WithLogger(logger),
		),
		logger: logger,
	}

	result := NewResult()
	out, runErr := h.matcher.Run(ctx, in)
	if runErr != nil {
		result.RunError = runErr.Error()
		h.logger.Info("scenario run failed", "scenario", scenario.Name, "error", runErr)
	} else {
		result.Output = out
		if err := h.checkReplay(ctx, scenario.Name, in, out, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario complete",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"errors", len(result.Errors),
	)
	return result, nil
}

// checkReplay stores the run and re-executes it from the stored input.
func (h *Harness) checkReplay(ctx context.Context, name string, in ir.MatchInput, out *ir.MatchResult, result *Result) error {
	runID := "scenario-" + name
	if _, _, err := h.store.WriteRun(ctx, runID, testutil.Epoch, in, out); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	replay, err := h.store.Replay(ctx, runID, h.matcher.Run)
	if err != nil {
		return fmt.Errorf("failed to replay run: %w", err)
	}
	if !replay.Match {
		result.AddError(fmt.Sprintf("replay mismatch: stored digest %s, replayed %s",
			replay.StoredDigest, replay.ReplayedDigest))
	}
	return nil
}

// loadInput compiles the scenario's input document.
func loadInput(scenario *Scenario) (ir.MatchInput, error) {
	c, err := compiler.New()
	if err != nil {
		return ir.MatchInput{}, err
	}
	if scenario.InputFile != "" {
		return c.CompileFile(scenario.InputFile)
	}

	data, err := json.Marshal(scenario.Input)
	if err != nil {
		return ir.MatchInput{}, fmt.Errorf("encode inline input: %w", err)
	}
	return c.Compile(scenario.Name+".input.json", data, compiler.FormatJSON)
}
