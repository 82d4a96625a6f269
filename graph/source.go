package graph

import (
	"context"
	"iter"

	"github.com/TimeCyber/DeepManus/core/event"
	"github.com/TimeCyber/DeepManus/workflow"
)

const defaultSourceBuffer = 32

// Source runs Graph in-process for each workflow request. The initial
// state carries the request messages, and its team and mode flags as the
// data keys team_members, deep_thinking_mode and search_before_planning.
type Source struct {
	Graph  *Graph
	Buffer int
}

var _ workflow.Source = Source{}

// InitialState builds the state a request starts from.
func InitialState(req workflow.Request) State {
	s := NewState(req.Messages...)
	s.Data["team_members"] = req.TeamMembers
	s.Data["deep_thinking_mode"] = req.DeepThinking
	s.Data["search_before_planning"] = req.SearchBeforePlanning
	return s
}

// Open starts nothing until the sequence is ranged over. The graph then
// runs on its own goroutine and feeds a bounded queue; stopping the
// iteration early cancels the graph and waits for it to return.
func (s Source) Open(ctx context.Context, req workflow.Request) (iter.Seq2[event.RawEvent, error], error) {
	if err := s.Graph.Validate(); err != nil {
		return nil, err
	}

	buffer := s.Buffer
	if buffer <= 0 {
		buffer = defaultSourceBuffer
	}

	return func(yield func(event.RawEvent, error) bool) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		queue := make(chan event.RawEvent, buffer)
		result := make(chan error, 1)

		go func() {
			defer close(queue)
			emitter := EmitterFunc(func(ctx context.Context, ev event.RawEvent) error {
				select {
				case queue <- ev:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			_, err := s.Graph.Execute(WithEmitter(runCtx, emitter), InitialState(req))
			result <- err
		}()

		for ev := range queue {
			if !yield(ev, nil) {
				cancel()
				for range queue {
				}
				return
			}
		}

		if err := <-result; err != nil {
			yield(event.RawEvent{}, err)
		}
	}, nil
}
