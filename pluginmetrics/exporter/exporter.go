package exporter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/analytics"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/backoff"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/exposition"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/opentelemetry/metrics"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/runtime"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/sink"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	// ErrNilSource is returned when the exporter has nothing to read from.
	ErrNilSource = errors.New("exporter: source is nil")
	// ErrExporterRequired is returned when a method is called on a nil exporter.
	ErrExporterRequired = errors.New("exporter: exporter is nil")
	// ErrExporterRunning is returned when RunContext is called on a running exporter.
	ErrExporterRunning = errors.New("exporter: already running")

	errExporterStopped = errors.New("exporter: stopped")
)

// Export outcomes, also used as the "outcome" metric label.
const (
	OutcomePublished = "published"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
)

// Source is the read side of the aggregate store. *analytics.Aggregator satisfies it.
type Source interface {
	Len() int
	Snapshot() []analytics.Sample
}

// ExportResult describes one export cycle.
type ExportResult struct {
	RenderID uuid.UUID
	Outcome  string
	Keys     int
	Rendered int
	Bytes    int
	Duration time.Duration
	Err      error
}

// Exporter renders the store on a fixed interval.
type Exporter struct {
	source   Source
	sink     sink.Sink
	renderer *exposition.Renderer
	cfg      Config
	logger   log.Logger
	tracer   trace.Tracer
	factory  *metrics.MetricsFactory

	tickMu sync.Mutex
	last   ExportResult

	stop       chan struct{}
	runStateMu sync.Mutex
	running    bool
	stopped    bool
	cancelFunc context.CancelFunc
	exportWg   sync.WaitGroup
}

var _ pluginmetrics.App = (*Exporter)(nil)

// New builds an Exporter reading source and publishing into target.
func New(source Source, target sink.Sink, opts ...Option) (*Exporter, error) {
	if nilcheck.Interface(source) {
		return nil, ErrNilSource
	}

	if nilcheck.Interface(target) {
		return nil, sink.ErrNilSink
	}

	renderer, err := exposition.NewRenderer(exposition.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("default renderer: %w", err)
	}

	e := &Exporter{
		source:   source,
		sink:     target,
		renderer: renderer,
		cfg:      DefaultConfig(),
		logger:   log.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer("pluginmetrics.noop"),
		factory:  metrics.NewNopFactory(),
		stop:     make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	e.cfg.normalize()

	return e, nil
}

// Interval returns the effective export interval.
func (e *Exporter) Interval() time.Duration {
	return e.cfg.Interval
}

// Run starts the export loop until Stop is called.
func (e *Exporter) Run(launcher *pluginmetrics.Launcher) error {
	return e.RunContext(context.Background(), launcher)
}

// RunContext starts the export loop until Stop is called or ctx is cancelled.
// Stop is terminal: once called, RunContext returns nil without starting.
func (e *Exporter) RunContext(parentCtx context.Context, launcher *pluginmetrics.Launcher) error {
	if e == nil {
		return ErrExporterRequired
	}

	if parentCtx == nil {
		parentCtx = context.Background()
	}

	ctx, cancel := context.WithCancel(parentCtx)
	if err := e.registerRun(cancel); err != nil {
		cancel()

		if errors.Is(err, errExporterStopped) {
			e.logger.Log(ctx, log.LevelDebug, "metrics exporter already stopped, not starting")

			return nil
		}

		return err
	}

	defer e.clearRun()

	if launcher != nil && !nilcheck.Interface(launcher.Logger) {
		launcher.Logger.Log(ctx, log.LevelInfo, "metrics exporter started", log.Duration("interval", e.cfg.Interval))
		defer launcher.Logger.Log(context.Background(), log.LevelInfo, "metrics exporter stopped")
	}

	defer runtime.RecoverAndLogWithContext(ctx, e.logger, "exporter", "exporter_run")

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	if e.cfg.ExportOnStart {
		e.tick(ctx, "initial_export")
	}

	for {
		select {
		case <-e.stop:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			select {
			case <-e.stop:
				return nil
			case <-ctx.Done():
				return nil
			default:
			}

			e.tick(ctx, "export_tick")
		}
	}
}

func (e *Exporter) tick(ctx context.Context, name string) {
	e.exportWg.Add(1)
	defer e.exportWg.Done()
	defer runtime.RecoverAndLogWithContext(ctx, e.logger, "exporter", name)

	e.ExportOnce(ctx)
}

// Stop signals the export loop to stop, including a loop that has not
// started yet. The scheduled timer is released when the loop returns.
func (e *Exporter) Stop() {
	if e == nil {
		return
	}

	e.runStateMu.Lock()
	defer e.runStateMu.Unlock()

	if e.stopped {
		return
	}

	e.stopped = true

	if e.cancelFunc != nil {
		e.cancelFunc()
	}

	close(e.stop)
}

// Shutdown stops the loop and waits for an in-flight export to finish.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	e.Stop()

	done := make(chan struct{})

	runtime.SafeGo(e.logger, "exporter.shutdown_wait", runtime.KeepRunning, func() {
		e.exportWg.Wait()
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("exporter shutdown: %w", ctx.Err())
	}
}

// ExportOnce runs one export cycle: skip when the store is empty, otherwise
// snapshot, render and publish with retries.
func (e *Exporter) ExportOnce(ctx context.Context) ExportResult {
	if e == nil {
		return ExportResult{Outcome: OutcomeFailed, Err: ErrExporterRequired}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "pluginmetrics.export")
	defer span.End()

	result := ExportResult{RenderID: newRenderID()}
	span.SetAttributes(attribute.String("export.render_id", result.RenderID.String()))

	if e.source.Len() == 0 {
		result.Outcome = OutcomeEmpty

		return e.finish(ctx, span, start, result)
	}

	samples := e.source.Snapshot()
	text, rendered := e.renderer.Render(samples)

	result.Keys = len(samples)
	result.Rendered = rendered
	result.Bytes = len(text)

	publishCtx := ctx

	if e.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc

		publishCtx, cancel = context.WithTimeout(ctx, e.cfg.PublishTimeout)
		defer cancel()
	}

	err := backoff.Retry(publishCtx, e.cfg.PublishRetry, func(ctx context.Context) error {
		return e.sink.SetMetrics(ctx, text)
	})
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err

		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		log.SafeError(ctx, e.logger, "failed to publish plugin metrics", err, false)

		return e.finish(ctx, span, start, result)
	}

	result.Outcome = OutcomePublished

	return e.finish(ctx, span, start, result)
}

// LastResult returns the outcome of the most recent export.
func (e *Exporter) LastResult() ExportResult {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	return e.last
}

func (e *Exporter) finish(ctx context.Context, span trace.Span, start time.Time, result ExportResult) ExportResult {
	result.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("export.outcome", result.Outcome),
		attribute.Int("export.keys", result.Keys),
		attribute.Int("export.rendered", result.Rendered),
	)

	millis := float64(result.Duration) / float64(time.Millisecond)
	if err := e.factory.RecordExport(ctx, result.Outcome, millis, int64(result.Rendered)); err != nil {
		e.logger.Log(ctx, log.LevelWarn, "failed to record export metrics", log.Err(err))
	}

	if result.Outcome == OutcomePublished && e.logger.Enabled(log.LevelDebug) {
		e.logger.Log(ctx, log.LevelDebug, "plugin metrics published",
			log.String("render_id", result.RenderID.String()),
			log.Int("keys", result.Keys),
			log.Int("rendered", result.Rendered),
			log.Duration("duration", result.Duration),
		)
	}

	e.last = result

	return result
}

func newRenderID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}

	return id
}

func (e *Exporter) registerRun(cancel context.CancelFunc) error {
	e.runStateMu.Lock()
	defer e.runStateMu.Unlock()

	if e.stopped {
		return errExporterStopped
	}

	if e.running {
		return ErrExporterRunning
	}

	e.running = true
	e.cancelFunc = cancel

	return nil
}

func (e *Exporter) clearRun() {
	e.runStateMu.Lock()
	defer e.runStateMu.Unlock()

	e.running = false
	e.cancelFunc = nil
}

// Running reports whether the export loop is active.
func (e *Exporter) Running() bool {
	e.runStateMu.Lock()
	defer e.runStateMu.Unlock()

	return e.running
}
