package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter. Both are no-ops until a provider is
// installed (see internal/telemetry).
var (
	tracer = otel.Tracer("swapgraph.engine")
	meter  = otel.Meter("swapgraph.engine")
)

var (
	runLatency        metric.Float64Histogram
	runTotal          metric.Int64Counter
	cyclesEnumerated  metric.Int64Histogram
	proposalsSelected metric.Int64Histogram
	enumerationCutoff metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"swapgraph_run_duration_seconds",
			metric.WithDescription("Duration of matching runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"swapgraph_run_total",
			metric.WithDescription("Total number of matching runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cyclesEnumerated, err = meter.Int64Histogram(
			"swapgraph_candidate_cycles",
			metric.WithDescription("Candidate cycles enumerated per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		proposalsSelected, err = meter.Int64Histogram(
			"swapgraph_selected_proposals",
			metric.WithDescription("Proposals selected per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		enumerationCutoff, err = meter.Int64Counter(
			"swapgraph_enumeration_cutoff_total",
			metric.WithDescription("Enumerations stopped by a safety valve"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordRunMetrics records the outcome of one run.
func recordRunMetrics(ctx context.Context, duration time.Duration, cycles, selected int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	runLatency.Record(ctx, duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, attrs)

	if success {
		cyclesEnumerated.Record(ctx, int64(cycles))
		proposalsSelected.Record(ctx, int64(selected))
	}
}

// recordCutoff counts an enumeration stopped early, by cause.
func recordCutoff(ctx context.Context, cause string) {
	if err := initMetrics(); err != nil {
		return
	}
	enumerationCutoff.Add(ctx, 1, metric.WithAttributes(attribute.String("cause", cause)))
}

// startRunSpan creates the span covering one matching run.
func startRunSpan(ctx context.Context, intentCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Matcher.Run",
		trace.WithAttributes(
			attribute.Int("swapgraph.intent_count", intentCount),
		),
	)
}

// startPhaseSpan creates a child span for one pipeline stage.
func startPhaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// setRunSpanResult sets the result attributes on a run span.
func setRunSpanResult(span trace.Span, edges, cycles, selected int, limited bool) {
	span.SetAttributes(
		attribute.Int("swapgraph.edge_count", edges),
		attribute.Int("swapgraph.candidate_cycles", cycles),
		attribute.Int("swapgraph.selected_proposals", selected),
		attribute.Bool("swapgraph.enumeration_limited", limited),
	)
}
