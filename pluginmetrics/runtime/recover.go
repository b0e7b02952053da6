package runtime

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
)

const maxLoggedStack = 4096

// RecoverAndLog recovers from a panic and logs it with the stack trace.
//
//	defer runtime.RecoverAndLog(logger, "worker")
func RecoverAndLog(logger log.Logger, name string) {
	if r := recover(); r != nil {
		logPanicWithStack(context.Background(), logger, name, r, debug.Stack())
	}
}

// RecoverAndLogWithContext is like RecoverAndLog but also records the panic
// metric and a span event.
func RecoverAndLogWithContext(ctx context.Context, logger log.Logger, component, name string) {
	if r := recover(); r != nil {
		stack := debug.Stack()
		logPanicWithStack(ctx, logger, name, r, stack)
		recordPanicObservability(ctx, r, stack, component, name)
	}
}

// RecoverWithPolicyAndContext recovers, records, and then applies policy.
func RecoverWithPolicyAndContext(
	ctx context.Context,
	logger log.Logger,
	component, name string,
	policy PanicPolicy,
) {
	if recovered := recover(); recovered != nil {
		stack := debug.Stack()
		logPanicWithStack(ctx, logger, name, recovered, stack)
		recordPanicObservability(ctx, recovered, stack, component, name)

		if policy == CrashProcess {
			panic(recovered)
		}
	}
}

// HandlePanicValue processes a panic value already recovered by another
// mechanism, such as fiber's recover middleware. It does not call recover itself.
func HandlePanicValue(ctx context.Context, logger log.Logger, panicValue any, component, name string) {
	if panicValue == nil {
		return
	}

	stack := debug.Stack()
	logPanicWithStack(ctx, logger, name, panicValue, stack)
	recordPanicObservability(ctx, panicValue, stack, component, name)
}

func logPanicWithStack(ctx context.Context, logger log.Logger, name string, panicValue any, stack []byte) {
	if logger == nil {
		return
	}

	stackStr := string(stack)
	if len(stackStr) > maxLoggedStack {
		stackStr = stackStr[:maxLoggedStack] + "\n...[truncated]"
	}

	logger.Log(ctx, log.LevelError, "panic recovered",
		log.String("source", name),
		log.String("panic_value", formatPanicValue(panicValue)),
		log.Any("stack_trace", stackStr),
	)
}

func recordPanicObservability(ctx context.Context, panicValue any, stack []byte, component, name string) {
	recordPanicMetric(ctx, component, name)
	RecordPanicToSpan(ctx, panicValue, stack, component, name)
}

func formatPanicValue(value any) string {
	if value == nil {
		return "<nil>"
	}

	switch val := value.(type) {
	case string:
		return val
	case error:
		return val.Error()
	default:
		return fmt.Sprintf("%v", value)
	}
}
