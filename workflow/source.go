package workflow

import (
	"context"
	"iter"

	"github.com/TimeCyber/DeepManus/core/event"
)

// Source opens the raw event stream of one run. The returned sequence is
// ranged over once by the runner; ctx cancellation must stop it.
type Source interface {
	Open(ctx context.Context, req Request) (iter.Seq2[event.RawEvent, error], error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req Request) (iter.Seq2[event.RawEvent, error], error)

func (f SourceFunc) Open(ctx context.Context, req Request) (iter.Seq2[event.RawEvent, error], error) {
	return f(ctx, req)
}
