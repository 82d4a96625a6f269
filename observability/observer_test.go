package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/TimeCyber/DeepManus/observability"
)

type recorder struct {
	events []observability.Event
}

func (r *recorder) OnEvent(_ context.Context, e observability.Event) {
	r.events = append(r.events, e)
}

func (r *recorder) types() []observability.EventType {
	out := make([]observability.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func TestLevel_Text(t *testing.T) {
	cases := map[observability.Level]struct {
		text string
		slog slog.Level
	}{
		2:                          {"TRACE", slog.LevelDebug},
		observability.LevelVerbose: {"DEBUG", slog.LevelDebug},
		observability.LevelInfo:    {"INFO", slog.LevelInfo},
		observability.LevelWarning: {"WARN", slog.LevelWarn},
		observability.LevelError:   {"ERROR", slog.LevelError},
		24:                         {"FATAL", slog.LevelError},
	}
	for level, want := range cases {
		assert.Equal(t, want.text, level.String(), "level %d", level)
		assert.Equal(t, want.slog, level.SlogLevel(), "level %d", level)
	}
}

func TestNewEvent_Stamps(t *testing.T) {
	before := time.Now()
	e := observability.NewEvent("resource.acquired", observability.LevelVerbose, "resource.Manager", map[string]any{"attempt": 2})

	assert.Equal(t, observability.EventType("resource.acquired"), e.Type)
	assert.Equal(t, "resource.Manager", e.Source)
	assert.Equal(t, 2, e.Data["attempt"])
	assert.False(t, e.Timestamp.Before(before))
}

func TestCombine(t *testing.T) {
	a, b, c := &recorder{}, &recorder{}, &recorder{}

	t.Run("empty collapses to noop", func(t *testing.T) {
		assert.IsType(t, observability.NoOpObserver{}, observability.Combine())
		assert.IsType(t, observability.NoOpObserver{}, observability.Combine(nil, observability.NoOpObserver{}))
	})

	t.Run("single member returned as is", func(t *testing.T) {
		assert.Same(t, a, observability.Combine(nil, a, observability.NoOpObserver{}))
	})

	t.Run("nested groups flatten", func(t *testing.T) {
		obs := observability.Combine(observability.Combine(a, b), nil, c)
		multi, ok := obs.(observability.MultiObserver)
		require.True(t, ok)
		assert.Len(t, multi, 3)

		obs.OnEvent(context.Background(), observability.NewEvent("workflow.start", observability.LevelInfo, "workflow.Run", nil))
		for _, r := range []*recorder{a, b, c} {
			assert.Equal(t, []observability.EventType{"workflow.start"}, r.types())
		}
	})
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, observability.NoOpObserver{}, observability.OrNoOp(nil))

	r := &recorder{}
	assert.Same(t, r, observability.OrNoOp(r))
}

func TestSlogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	obs := observability.NewSlogObserver(logger)
	ctx := context.Background()

	obs.OnEvent(ctx, observability.NewEvent("translate.chunk", observability.LevelVerbose, "translate.Translator", nil))
	assert.Zero(t, buf.Len(), "debug events are filtered by an info handler")

	obs.OnEvent(ctx, observability.NewEvent("retry.attempt.failed", observability.LevelWarning, "retry.Do", map[string]any{
		"attempt": 3,
		"error":   errors.New("browser not ready"),
	}))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "msg=retry.attempt.failed")
	assert.Contains(t, out, "source=retry.Do")
	assert.Contains(t, out, "attempt=3")
	assert.Contains(t, out, `error="browser not ready"`)
}

func TestSlogObserver_TraceID(t *testing.T) {
	var buf bytes.Buffer
	obs := observability.NewSlogObserver(slog.New(slog.NewTextHandler(&buf, nil)))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "workflow")
	defer span.End()

	obs.OnEvent(ctx, observability.NewEvent("workflow.start", observability.LevelInfo, "workflow.Run", nil))
	assert.Contains(t, buf.String(), "trace_id="+span.SpanContext().TraceID().String())

	buf.Reset()
	obs.OnEvent(context.Background(), observability.NewEvent("workflow.start", observability.LevelInfo, "workflow.Run", nil))
	assert.NotContains(t, buf.String(), "trace_id=")
}

func TestSlogObserver_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.NewSlogObserver(nil).OnEvent(context.Background(),
			observability.NewEvent("workflow.end", observability.LevelVerbose, "workflow.Run", nil))
	})
}

func TestLookupObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	obs, err := observability.LookupObserver("noop", logger)
	require.NoError(t, err)
	assert.IsType(t, observability.NoOpObserver{}, obs)

	obs, err = observability.LookupObserver("slog", logger)
	require.NoError(t, err)
	obs.OnEvent(context.Background(), observability.NewEvent("resource.released", observability.LevelInfo, "resource.Manager", nil))
	assert.Contains(t, buf.String(), "resource.released", "slog factory binds the given logger")

	_, err = observability.LookupObserver("jaeger", logger)
	require.ErrorIs(t, err, observability.ErrUnknownObserver)
	assert.ErrorContains(t, err, "noop")
	assert.ErrorContains(t, err, "slog")
}

func TestRegisterObserver(t *testing.T) {
	r := &recorder{}
	observability.RegisterObserver("recorder", func(*slog.Logger) observability.Observer { return r })

	assert.Contains(t, observability.ObserverNames(), "recorder")
	assert.IsNonDecreasing(t, observability.ObserverNames())

	obs, err := observability.LookupObserver("recorder", nil)
	require.NoError(t, err)
	obs.OnEvent(context.Background(), observability.NewEvent("crawl.fetch", observability.LevelInfo, "crawler.Client", nil))
	assert.Equal(t, []observability.EventType{"crawl.fetch"}, r.types())
}
