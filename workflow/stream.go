package workflow

import (
	"context"
	"iter"
	"sync"

	"github.com/TimeCyber/DeepManus/core/protocol"
)

// Stream is the consumer side of one run.
type Stream struct {
	id     string
	events *Channel[protocol.Event]
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func newStream(ctx context.Context, id string, cancel context.CancelFunc, bufferSize int) *Stream {
	return &Stream{
		id:     id,
		events: NewChannel[protocol.Event](ctx, bufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the workflow run id.
func (s *Stream) ID() string {
	return s.id
}

// Next blocks for the next event. It returns false once the run has
// finished and every event was delivered, or when ctx is done. Cancelling
// ctx does not cancel the run.
func (s *Stream) Next(ctx context.Context) (protocol.Event, bool) {
	ev, err := s.events.Receive(ctx)
	if err != nil {
		return protocol.Event{}, false
	}
	return ev, true
}

// Events yields every event of the run. Stopping the iteration early
// cancels the run and waits for its cleanup.
func (s *Stream) Events() iter.Seq[protocol.Event] {
	return func(yield func(protocol.Event) bool) {
		for {
			ev, ok := s.Next(context.Background())
			if !ok {
				return
			}
			if !yield(ev) {
				s.Cancel()
				<-s.done
				return
			}
		}
	}
}

// Err reports why the run stopped early. It is nil for runs that completed
// or that reported a failure in-band as an error event, and the
// cancellation cause for cancelled runs.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed after the run's resources have been released and the
// stream has been closed.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Cancel stops the run.
func (s *Stream) Cancel() {
	s.cancel()
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
