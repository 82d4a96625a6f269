// Package workflow runs one workflow invocation: it opens a raw event
// source, translates it into the protocol stream and guarantees that the
// run's resources are released on every exit path.
//
//	runner := workflow.NewRunner(src, workflow.DefaultConfig(),
//		workflow.WithResourceProvider(browser.NewProvider(cfg)))
//	stream, err := runner.Run(ctx, req)
//	for ev := range stream.Events() {
//		...
//	}
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TimeCyber/DeepManus/core/protocol"
	"github.com/TimeCyber/DeepManus/observability"
	"github.com/TimeCyber/DeepManus/resource"
	"github.com/TimeCyber/DeepManus/retry"
	"github.com/TimeCyber/DeepManus/translate"
)

const tracerName = "github.com/TimeCyber/DeepManus/workflow"

// ErrNoResource is returned to tools that acquire the run's resource when
// the runner was built without a provider.
var ErrNoResource = errors.New("workflow: no resource provider configured")

type noResource struct{}

func (noResource) Create(context.Context) (resource.Handle, error) {
	return nil, retry.Permanent(ErrNoResource)
}

func (noResource) Close(context.Context, resource.Handle) error {
	return nil
}

// Option configures a Runner.
type Option func(*Runner)

// WithResourceProvider sets the provider of the per-run resource.
func WithResourceProvider(p resource.Provider) Option {
	return func(r *Runner) { r.provider = p }
}

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(r *Runner) { r.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithRegistry records runs in reg for out-of-band cancellation.
func WithRegistry(reg *Runs) Option {
	return func(r *Runner) { r.runs = reg }
}

// WithManagerOptions passes options to every per-run resource.Manager.
func WithManagerOptions(opts ...resource.Option) Option {
	return func(r *Runner) { r.managerOpts = append(r.managerOpts, opts...) }
}

// Runner starts workflow runs against one source.
type Runner struct {
	source      Source
	cfg         Config
	provider    resource.Provider
	observer    observability.Observer
	logger      *slog.Logger
	tracer      trace.Tracer
	runs        *Runs
	managerOpts []resource.Option
}

func NewRunner(source Source, cfg Config, opts ...Option) *Runner {
	defaults := DefaultConfig()
	defaults.Merge(&cfg)

	r := &Runner{
		source:   source,
		cfg:      defaults,
		provider: noResource{},
		logger:   slog.Default(),
		runs:     NewRuns(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.observer == nil {
		r.observer = observability.NewSlogObserver(r.logger)
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	return r
}

// Runs returns the registry the runner records its runs in.
func (r *Runner) Runs() *Runs {
	return r.runs
}

// Run validates req and starts the run in the background. The run stops
// when ctx is cancelled, when Stream.Cancel is called or when the registry
// cancels it by id.
func (r *Runner) Run(ctx context.Context, req Request) (*Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	runCtx, cancel := context.WithCancel(ctx)

	opts := append([]resource.Option{
		resource.WithObserver(r.observer),
		resource.WithLogger(r.logger),
	}, r.managerOpts...)
	manager := resource.NewManager(r.provider, opts...)
	runCtx = resource.WithManager(runCtx, manager)

	runCtx, span := r.tracer.Start(runCtx, "workflow.run",
		trace.WithAttributes(attribute.String("workflow_id", id)))

	stream := newStream(runCtx, id, cancel, r.cfg.BufferSize)
	r.runs.Register(id, cancel)

	go r.execute(runCtx, span, stream, manager, req)
	return stream, nil
}

func (r *Runner) execute(ctx context.Context, span trace.Span, s *Stream, manager *resource.Manager, req Request) {
	start := time.Now()
	tr := translate.New(translate.Config{
		WorkflowID:  s.id,
		Input:       req.Messages,
		TeamMembers: req.team(r.cfg.TeamMembers),
		Planner:     r.cfg.Planner,
		Coordinator: r.cfg.Coordinator,
		Observer:    r.observer,
	})

	defer func() {
		manager.Release(ctx)
		r.runs.Remove(s.id)

		stats := tr.Stats()
		span.SetAttributes(
			attribute.Int("emitted", stats.Emitted),
			attribute.Int("dropped", stats.Dropped),
		)
		span.End()

		s.events.Close()
		close(s.done)
		s.cancel()
	}()

	r.emit(ctx, EventStart, observability.LevelInfo, map[string]any{
		"workflow_id": s.id,
		"messages":    len(req.Messages),
	})
	if req.Debug {
		r.logger.DebugContext(ctx, "workflow request", "workflow_id", s.id, "team", req.team(r.cfg.TeamMembers))
	}

	err := r.pump(ctx, s, tr, req)

	switch {
	case err == nil:
		stats := tr.Stats()
		r.emit(ctx, EventComplete, observability.LevelInfo, map[string]any{
			"workflow_id": s.id,
			"emitted":     stats.Emitted,
			"dropped":     stats.Dropped,
			"duration":    time.Since(start),
		})

	case ctx.Err() != nil:
		manager.Release(ctx)
		s.setErr(ctx.Err())
		span.SetStatus(codes.Error, "cancelled")
		r.emit(ctx, EventCancelled, observability.LevelWarning, map[string]any{
			"workflow_id": s.id,
			"duration":    time.Since(start),
		})

	default:
		manager.Release(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.emit(ctx, EventError, observability.LevelError, map[string]any{
			"workflow_id": s.id,
			"error":       err,
		})
		if sendErr := s.events.Send(ctx, protocol.Error(err)); sendErr != nil {
			r.logger.WarnContext(ctx, "deliver error event", "workflow_id", s.id, "error", sendErr)
		}
	}
}

// pump opens the source and forwards translated events until the source
// ends, fails or ctx is done.
func (r *Runner) pump(ctx context.Context, s *Stream, tr *translate.Translator, req Request) error {
	events, err := r.source.Open(ctx, req)
	if err != nil {
		return err
	}

	for ev, err := range tr.Translate(ctx, events) {
		if err != nil {
			return err
		}
		if req.Debug {
			r.logger.DebugContext(ctx, "workflow event", "workflow_id", s.id, "event", string(ev.Type))
		}
		if err := s.events.Send(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	r.observer.OnEvent(ctx, observability.NewEvent(t, level, "workflow.Runner", data))
}
