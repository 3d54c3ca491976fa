package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts a span for an entire chain run.
	StartRunSpan(ctx context.Context, chainName, runID string) (context.Context, trace.Span)

	// StartAttemptSpan starts a span for one completion attempt.
	// It should be a child of the run span when there is one.
	StartAttemptSpan(ctx context.Context, model string, attempt int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The tracer is taken from the global provider at call time, so set the
// provider first:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{tracer: otel.Tracer("promptflow")}
}

// StartRunSpan starts a span for an entire chain run.
func (m *otelSpanManager) StartRunSpan(ctx context.Context, chainName, runID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "promptflow.run",
		trace.WithAttributes(
			attribute.String("chain.name", chainName),
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartAttemptSpan starts a span for one completion attempt.
func (m *otelSpanManager) StartAttemptSpan(ctx context.Context, model string, attempt int) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "promptflow.attempt",
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.Int("attempt", attempt),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
