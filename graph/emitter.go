package graph

import (
	"context"

	"github.com/TimeCyber/DeepManus/core/event"
)

// Emitter receives the raw events of a graph run. Emit blocks until the
// event is accepted or ctx is done.
type Emitter interface {
	Emit(ctx context.Context, ev event.RawEvent) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, ev event.RawEvent) error

func (f EmitterFunc) Emit(ctx context.Context, ev event.RawEvent) error {
	return f(ctx, ev)
}

type discard struct{}

func (discard) Emit(context.Context, event.RawEvent) error { return nil }

type emitterKey struct{}

type scope struct {
	emitter Emitter
	node    string
	step    string
}

// WithEmitter returns a context whose graph runs report to e.
func WithEmitter(ctx context.Context, e Emitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, scope{emitter: e})
}

func withNode(ctx context.Context, node, step string) context.Context {
	s := scopeFrom(ctx)
	s.node, s.step = node, step
	return context.WithValue(ctx, emitterKey{}, s)
}

func scopeFrom(ctx context.Context) scope {
	s, ok := ctx.Value(emitterKey{}).(scope)
	if !ok || s.emitter == nil {
		s.emitter = discard{}
	}
	return s
}

// EmitterFrom returns the emitter of the run ctx belongs to. Events sent
// through it from inside a node are stamped with that node and step when
// they carry none. Without an emitter in ctx events are discarded.
func EmitterFrom(ctx context.Context) Emitter {
	s := scopeFrom(ctx)
	return EmitterFunc(func(ctx context.Context, ev event.RawEvent) error {
		if ev.Node == "" {
			ev.Node = s.node
		}
		if ev.Step == "" {
			ev.Step = s.step
		}
		return s.emitter.Emit(ctx, ev)
	})
}

// ModelStart reports that the current node began a model call.
func ModelStart(ctx context.Context, model string) error {
	return EmitterFrom(ctx).Emit(ctx, event.RawEvent{Kind: event.KindModelStart, Name: model})
}

// ModelChunk reports one streamed model fragment.
func ModelChunk(ctx context.Context, model string, chunk event.Chunk) error {
	return EmitterFrom(ctx).Emit(ctx, event.RawEvent{Kind: event.KindModelStreamChunk, Name: model, Payload: chunk})
}

// ModelEnd reports that the current node's model call finished.
func ModelEnd(ctx context.Context, model string) error {
	return EmitterFrom(ctx).Emit(ctx, event.RawEvent{Kind: event.KindModelEnd, Name: model})
}
