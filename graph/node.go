package graph

import "context"

// Node transforms state. If it streams model output or calls tools it does
// so through the emitter in ctx; see EmitterFrom and CallTool.
type Node interface {
	Execute(ctx context.Context, state State) (State, error)
}

// NodeFunc adapts a function to Node.
type NodeFunc func(ctx context.Context, state State) (State, error)

func (f NodeFunc) Execute(ctx context.Context, state State) (State, error) {
	return f(ctx, state)
}
