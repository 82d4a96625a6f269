package observability

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"go.opentelemetry.io/otel/trace"
)

// SlogObserver writes events to a slog.Logger. The event type is the log
// message, followed by source, trace_id when the context carries a sampled
// span, and the Data keys in sorted order.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver. A nil logger selects slog.Default.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.SlogLevel()
	if !o.logger.Enabled(ctx, level) {
		return
	}

	attrs := []slog.Attr{slog.String("source", event.Source)}
	if sc := trace.SpanContextFromContext(ctx); sc.IsSampled() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}
	for _, k := range slices.Sorted(maps.Keys(event.Data)) {
		switch v := event.Data[k].(type) {
		case error:
			attrs = append(attrs, slog.String(k, v.Error()))
		default:
			attrs = append(attrs, slog.Any(k, v))
		}
	}

	o.logger.LogAttrs(ctx, level, string(event.Type), attrs...)
}
