package instrument

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/analytics"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/runtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	// ErrNilRecorder is returned when an Instrumentor is built without a recorder.
	ErrNilRecorder = errors.New("instrument: recorder is nil")
	// ErrOperationPanicked is delivered by Async when the wrapped function panics.
	ErrOperationPanicked = errors.New("instrument: operation panicked")
)

const spanName = "pluginmetrics.observe"

// Recorder receives one observation per outcome. *analytics.Aggregator satisfies it.
type Recorder interface {
	Record(ctx context.Context, key analytics.Key, success bool, latencyMillis float64)
}

// Instrumentor records operation outcomes into a Recorder.
type Instrumentor struct {
	recorder Recorder
	logger   log.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures an Instrumentor.
type Option func(*Instrumentor)

// WithLogger sets the logger used by continuation goroutines.
func WithLogger(logger log.Logger) Option {
	return func(i *Instrumentor) {
		if !nilcheck.Interface(logger) {
			i.logger = logger
		}
	}
}

// WithTracer starts one span per observed outcome.
func WithTracer(tracer trace.Tracer) Option {
	return func(i *Instrumentor) {
		if !nilcheck.Interface(tracer) {
			i.tracer = tracer
		}
	}
}

// WithClock overrides the latency clock.
func WithClock(now func() time.Time) Option {
	return func(i *Instrumentor) {
		if now != nil {
			i.now = now
		}
	}
}

// New returns an Instrumentor writing into recorder.
func New(recorder Recorder, opts ...Option) (*Instrumentor, error) {
	if nilcheck.Interface(recorder) {
		return nil, ErrNilRecorder
	}

	i := &Instrumentor{
		recorder: recorder,
		logger:   log.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer("pluginmetrics"),
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}

	return i, nil
}

// observation tracks one in-flight outcome and guarantees a single record.
type observation struct {
	ins   *Instrumentor
	ctx   context.Context
	key   analytics.Key
	start time.Time
	span  trace.Span
	once  sync.Once
}

func (i *Instrumentor) begin(ctx context.Context, entityID, operation, shape string) *observation {
	ctx, span := i.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("plugin.entity_id", entityID),
		attribute.String("plugin.operation", operation),
		attribute.String("plugin.outcome_shape", shape),
	))

	return &observation{
		ins:   i,
		ctx:   context.WithoutCancel(ctx),
		key:   analytics.Key{EntityID: entityID, Operation: operation},
		start: i.now(),
		span:  span,
	}
}

func (o *observation) finish(success bool, err error) {
	o.once.Do(func() {
		elapsed := o.ins.now().Sub(o.start)
		latency := float64(elapsed) / float64(time.Millisecond)

		o.ins.recorder.Record(o.ctx, o.key, success, latency)

		o.span.SetAttributes(
			attribute.Bool("plugin.success", success),
			attribute.Float64("plugin.latency_ms", latency),
		)

		if err != nil {
			o.span.RecordError(err)
			o.span.SetStatus(codes.Error, err.Error())
		}

		o.span.End()
	})
}

// Observe records outcome for (entityID, operation) and returns an equivalent
// outcome. Immediate and CallbackOnly outcomes are returned unchanged; an
// Awaitable is replaced by one that delivers the same Result after recording.
// A nil Instrumentor or a blank entity id passes outcome through untouched.
func Observe[T any](ctx context.Context, ins *Instrumentor, entityID, operation string, outcome Outcome[T]) Outcome[T] {
	if ins == nil || nilcheck.Blank(entityID) || outcome == nil {
		return outcome
	}

	switch o := outcome.(type) {
	case Immediate[T]:
		ins.begin(ctx, entityID, operation, "immediate").finish(true, nil)

		return o
	case Awaitable[T]:
		if o.Done == nil {
			return o
		}

		return observeAwaitable(ins.begin(ctx, entityID, operation, "awaitable"), o)
	case CallbackOnly[T]:
		if nilcheck.Interface(o.Handle) {
			return o
		}

		obs := ins.begin(ctx, entityID, operation, "callback")
		o.Handle.Then(func(T) { obs.finish(true, nil) })

		return o
	default:
		return outcome
	}
}

func observeAwaitable[T any](obs *observation, in Awaitable[T]) Awaitable[T] {
	out := make(chan Result[T], 1)

	runtime.SafeGoWithContextAndComponent(obs.ctx, obs.ins.logger, "instrument", "awaitable_continuation", runtime.KeepRunning,
		func(context.Context) {
			defer close(out)

			res, ok := <-in.Done
			if !ok {
				obs.finish(false, ErrNoResult)

				return
			}

			obs.finish(res.Err == nil, res.Err)
			out <- res
		})

	return Awaitable[T]{Done: out}
}

// Call runs fn synchronously and records its outcome. The value, error and
// any panic of fn reach the caller unchanged.
func Call[T any](ctx context.Context, ins *Instrumentor, entityID, operation string, fn func(context.Context) (T, error)) (T, error) {
	if ins == nil || nilcheck.Blank(entityID) {
		return fn(ctx)
	}

	obs := ins.begin(ctx, entityID, operation, "call")

	defer func() {
		if r := recover(); r != nil {
			obs.finish(false, fmt.Errorf("%w: %v", ErrOperationPanicked, r))
			panic(r)
		}
	}()

	value, err := fn(ctx)
	obs.finish(err == nil, err)

	return value, err
}

// Async runs fn in a recovered goroutine and returns an observed Awaitable for
// its result. A panic in fn is delivered as ErrOperationPanicked.
func Async[T any](ctx context.Context, ins *Instrumentor, entityID, operation string, fn func(context.Context) (T, error)) Awaitable[T] {
	done := make(chan Result[T], 1)

	var logger log.Logger = log.NewNop()
	if ins != nil {
		logger = ins.logger
	}

	runtime.SafeGoWithContextAndComponent(ctx, logger, "instrument", "async_operation", runtime.KeepRunning,
		func(ctx context.Context) {
			delivered := false

			defer func() {
				if !delivered {
					var zero T
					done <- Result[T]{Value: zero, Err: ErrOperationPanicked}
				}

				close(done)
			}()

			value, err := fn(ctx)
			done <- Result[T]{Value: value, Err: err}
			delivered = true
		})

	observed, _ := Observe[T](ctx, ins, entityID, operation, Awaitable[T]{Done: done}).(Awaitable[T])

	return observed
}
