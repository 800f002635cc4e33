package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// Matcher runs matching passes.
//
// A Matcher holds only per-process collaborators (logger, clock). Every
// per-run structure is allocated inside Run, so one Matcher may serve
// concurrent runs on independent inputs.
type Matcher struct {
	logger *slog.Logger
	clock  Clock
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) MatcherOption {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the clock used for the default "now" and for the
// enumeration timeout. Default: SystemClock.
func WithClock(clock Clock) MatcherOption {
	return func(m *Matcher) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMatcher creates a Matcher.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{
		logger: slog.New(slog.DiscardHandler),
		clock:  SystemClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunMatching runs one matching pass with a default Matcher.
func RunMatching(ctx context.Context, in ir.MatchInput) (*ir.MatchResult, error) {
	return NewMatcher().Run(ctx, in)
}

// runParams are the resolved knobs of one run.
type runParams struct {
	now       time.Time
	minLength int
	maxLength int
	maxCycles int
	timeout   time.Duration
}

// resolveParams applies defaults and rejects knobs that cannot be honored.
func (m *Matcher) resolveParams(in ir.MatchInput) (runParams, error) {
	p := runParams{
		minLength: ir.DefaultMinCycleLength,
		maxLength: ir.DefaultMaxCycleLength,
	}
	if in.MinCycleLength != nil {
		p.minLength = *in.MinCycleLength
	}
	if in.MaxCycleLength != nil {
		p.maxLength = *in.MaxCycleLength
	}
	if p.minLength < 2 {
		return p, NewInvalidInputError("min_cycle_length", fmt.Sprintf("must be >= 2, got %d", p.minLength))
	}
	if p.maxLength < p.minLength {
		return p, NewInvalidInputError("max_cycle_length",
			fmt.Sprintf("must be >= min_cycle_length (%d), got %d", p.minLength, p.maxLength))
	}
	if in.MaxEnumeratedCycles != nil {
		if *in.MaxEnumeratedCycles < 0 {
			return p, NewInvalidInputError("max_enumerated_cycles", "must not be negative")
		}
		p.maxCycles = *in.MaxEnumeratedCycles
	}
	if in.TimeoutMs != nil {
		if *in.TimeoutMs < 0 {
			return p, NewInvalidInputError("timeout_ms", "must not be negative")
		}
		p.timeout = time.Duration(*in.TimeoutMs) * time.Millisecond
	}

	if in.NowISO != "" {
		t, err := ParseTimestamp(in.NowISO)
		if err != nil {
			return p, NewInvalidInputError("now_iso", err.Error())
		}
		p.now = t
	} else {
		p.now = m.clock.Now()
	}
	return p, nil
}

// Run executes one matching pass.
//
// ctx only carries telemetry; the run is never cancelled through it. The
// enumeration timeout is the one cooperative bound on run time.
//
// Errors are MatchErrors: INVALID_INPUT for unusable knobs or valuations,
// MISSING_ASSET_VALUE when a needed asset has no USD value.
func (m *Matcher) Run(ctx context.Context, in ir.MatchInput) (result *ir.MatchResult, err error) {
	start := m.clock.Now()
	ctx, span := startRunSpan(ctx, len(in.Intents))
	defer span.End()

	var cycleCount int
	defer func() {
		selected := 0
		if result != nil {
			selected = len(result.Proposals)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		recordRunMetrics(ctx, m.clock.Now().Sub(start), cycleCount, selected, err == nil)
	}()

	params, err := m.resolveParams(in)
	if err != nil {
		return nil, err
	}

	values := ValueTable(in.AssetValuesUSD)
	if err := values.Validate(); err != nil {
		return nil, err
	}

	graph, err := BuildCompatibilityGraph(in.Intents, values, in.EdgeIntents, params.now, m.logger)
	if err != nil {
		return nil, fmt.Errorf("build compatibility graph: %w", err)
	}

	var enumDiag ir.EnumerationDiagnostics
	_, enumSpan := startPhaseSpan(ctx, "EnumerateCycles")
	cycles := EnumerateCycles(graph.Edges, EnumerateOptions{
		MinLength: params.minLength,
		MaxLength: params.maxLength,
		MaxCycles: params.maxCycles,
		Timeout:   params.timeout,
		Clock:     m.clock,
	}, &enumDiag)
	enumSpan.End()
	cycleCount = len(cycles)

	if enumDiag.MaxCyclesReached {
		m.logger.Warn("cycle enumeration hit max_enumerated_cycles",
			"max_enumerated_cycles", params.maxCycles, "cycles", len(cycles))
		recordCutoff(ctx, "max_cycles")
	}
	if enumDiag.TimeoutReached {
		m.logger.Warn("cycle enumeration timed out",
			"timeout", params.timeout, "cycles", len(cycles), "steps", enumDiag.StepsVisited)
		recordCutoff(ctx, "timeout")
	}

	_, selectSpan := startPhaseSpan(ctx, "SelectDisjoint")
	selection, err := SelectDisjoint(cycles, graph, values)
	selectSpan.End()
	if err != nil {
		return nil, fmt.Errorf("select proposals: %w", err)
	}

	result = &ir.MatchResult{
		Proposals: selection.Selected,
		Trace:     selection.Trace,
		Stats: ir.Stats{
			IntentsActive:      len(graph.ByID),
			Edges:              graph.EdgeCount(),
			CandidateCycles:    len(cycles),
			CandidateProposals: selection.CandidatesCount,
			SelectedProposals:  len(selection.Selected),
		},
	}

	if in.IncludeCycleDiagnostics {
		limited := enumDiag.MaxCyclesReached
		timedOut := enumDiag.TimeoutReached
		result.Stats.CycleEnumerationLimited = &limited
		result.Stats.CycleEnumerationTimedOut = &timedOut
		result.Diagnostics = &ir.RunDiagnostics{
			Enumeration:      enumDiag,
			Rejected:         selection.Rejected,
			ExactComponents:  selection.ExactComponents,
			GreedyComponents: selection.GreedyComponents,
		}
	}

	setRunSpanResult(span, result.Stats.Edges, len(cycles), len(selection.Selected),
		enumDiag.MaxCyclesReached || enumDiag.TimeoutReached)

	m.logger.Info("matching run complete",
		"intents_active", result.Stats.IntentsActive,
		"edges", result.Stats.Edges,
		"candidate_cycles", result.Stats.CandidateCycles,
		"candidate_proposals", result.Stats.CandidateProposals,
		"selected_proposals", result.Stats.SelectedProposals,
	)

	return result, nil
}
