package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "testrelay"

// StartRunSpan starts a span for one pipeline run.
func StartRunSpan(ctx context.Context, runID string, pullNumber int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("pull.number", pullNumber),
		),
	)
}

// StartDispatchSpan starts a span for the downstream dispatch call.
func StartDispatchSpan(ctx context.Context, correlationID, repo string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline.dispatch",
		trace.WithAttributes(
			attribute.String("dispatch.correlation_id", correlationID),
			attribute.String("dispatch.repo", repo),
		),
	)
}
