package statemachine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/amp-labs/actionstate/statemachine"

// tracer returns the global tracer, or a no-op one when tracing is off.
// The global provider is installed by the telemetry package.
func (m *Machine) tracer() trace.Tracer {
	if !m.config.Tracing {
		return noop.NewTracerProvider().Tracer(tracerName)
	}

	return otel.Tracer(tracerName)
}

// startRunSpan creates the root span of a transition run.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func (m *Machine) startRunSpan(ctx context.Context, runID, destination string) (context.Context, trace.Span) {
	ctx, span := m.tracer().Start(ctx, "actionstate.run")
	span.SetAttributes(
		attribute.String("machine", m.config.Name),
		attribute.String("machine_id", m.id),
		attribute.String("run_id", runID),
		attribute.String("destination", destination),
	)

	return ctx, span
}

// startStateSpan creates a child span covering one action state.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func (m *Machine) startStateSpan(ctx context.Context, state, previous string, kind Kind) (context.Context, trace.Span) {
	ctx, span := m.tracer().Start(ctx, "state."+foldName(state))
	span.SetAttributes(
		attribute.String("state", state),
		attribute.String("previous_state", previous),
		attribute.String("kind", kind.String()),
	)

	return ctx, span
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "completed")
	}

	span.End()
}
