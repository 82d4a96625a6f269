package workflow

import (
	"context"
	"errors"
	"sync"
)

// ErrChannelClosed is returned by Receive once a closed channel is drained.
var ErrChannelClosed = errors.New("workflow: channel closed")

// Channel is a bounded single-producer queue bound to the lifetime of a
// run context. Send fails once that context is done; Receive drains
// buffered values before reporting ErrChannelClosed.
type Channel[T any] struct {
	events chan T
	run    context.Context
	once   sync.Once
}

func NewChannel[T any](run context.Context, size int) *Channel[T] {
	return &Channel[T]{events: make(chan T, size), run: run}
}

// Send must not be called after Close.
func (c *Channel[T]) Send(ctx context.Context, value T) error {
	select {
	case c.events <- value:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.run.Done():
		return c.run.Err()
	}
}

func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	select {
	case value, ok := <-c.events:
		if !ok {
			return zero, ErrChannelClosed
		}
		return value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close is idempotent.
func (c *Channel[T]) Close() {
	c.once.Do(func() { close(c.events) })
}
