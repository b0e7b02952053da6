package runtime

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PanicSpanEventName is the span event added for a recovered panic.
const PanicSpanEventName = "panic.recovered"

// RecordPanicToSpan adds a panic event to the span in ctx and marks it as errored.
// It is a no-op when ctx carries no recording span.
func RecordPanicToSpan(ctx context.Context, panicValue any, stack []byte, component, name string) {
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	stackStr := string(stack)
	if len(stackStr) > maxLoggedStack {
		stackStr = stackStr[:maxLoggedStack] + "\n...[truncated]"
	}

	span.AddEvent(PanicSpanEventName, trace.WithAttributes(
		attribute.String("panic.value", formatPanicValue(panicValue)),
		attribute.String("panic.component", component),
		attribute.String("panic.goroutine_name", name),
		attribute.String("panic.stack", stackStr),
	))
	span.SetStatus(codes.Error, "panic recovered in "+name)
}
