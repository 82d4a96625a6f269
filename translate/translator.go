// Package translate turns the raw event sequence of one workflow run into
// the ordered client-facing protocol stream.
package translate

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"

	"github.com/TimeCyber/DeepManus/core/event"
	"github.com/TimeCyber/DeepManus/core/protocol"
	"github.com/TimeCyber/DeepManus/observability"
)

const (
	DefaultPlanner     = "planner"
	DefaultCoordinator = "coordinator"

	EventHandoff observability.EventType = "translate.handoff"
)

// ErrAlreadyUsed is yielded when Translate is called a second time.
var ErrAlreadyUsed = errors.New("translator already used")

// Config identifies the run and its participants.
type Config struct {
	WorkflowID  string
	Input       []protocol.Message
	TeamMembers []string
	Planner     string
	Coordinator string
	Observer    observability.Observer
}

// Stats counts raw events seen, raw events dropped by the participant
// filter, and protocol events emitted.
type Stats struct {
	Observed int
	Dropped  int
	Emitted  int
}

// Translator maps raw events to protocol events for exactly one run.
type Translator struct {
	cfg        Config
	team       map[string]bool
	recognized map[string]bool
	observer   observability.Observer

	used  atomic.Bool
	stats Stats

	buffer  coordinatorBuffer
	started bool
}

// New creates a Translator. Empty planner and coordinator names fall back
// to "planner" and "coordinator".
func New(cfg Config) *Translator {
	if cfg.Planner == "" {
		cfg.Planner = DefaultPlanner
	}
	if cfg.Coordinator == "" {
		cfg.Coordinator = DefaultCoordinator
	}

	team := make(map[string]bool, len(cfg.TeamMembers))
	recognized := make(map[string]bool, len(cfg.TeamMembers)+2)
	for _, name := range cfg.TeamMembers {
		team[name] = true
		recognized[name] = true
	}
	recognized[cfg.Planner] = true
	recognized[cfg.Coordinator] = true

	return &Translator{
		cfg:        cfg,
		team:       team,
		recognized: recognized,
		observer:   observability.OrNoOp(cfg.Observer),
	}
}

// Stats returns the run counters. It is meaningful once the sequence
// returned by Translate has been fully consumed.
func (t *Translator) Stats() Stats {
	return t.stats
}

// Translate lazily consumes events and yields protocol events in arrival
// order. When events ends normally it yields end_of_workflow (only if the
// planner started the workflow) followed by final_session_state. An
// upstream error or cancellation of ctx is yielded as the last element and
// no end events follow. The returned sequence may be ranged over once.
func (t *Translator) Translate(ctx context.Context, events iter.Seq2[event.RawEvent, error]) iter.Seq2[protocol.Event, error] {
	return func(yield func(protocol.Event, error) bool) {
		if !t.used.CompareAndSwap(false, true) {
			yield(protocol.Event{}, ErrAlreadyUsed)
			return
		}

		var last event.RawEvent
		for ev, err := range events {
			if err != nil {
				yield(protocol.Event{}, err)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(protocol.Event{}, err)
				return
			}

			t.stats.Observed++
			last = ev

			out := t.translate(ctx, ev)
			if out == nil {
				continue
			}
			for _, pe := range out {
				t.stats.Emitted++
				if !yield(pe, nil) {
					return
				}
			}
		}

		if err := ctx.Err(); err != nil {
			yield(protocol.Event{}, err)
			return
		}

		messages := finalMessages(last)
		if t.started {
			t.stats.Emitted++
			if !yield(protocol.EndOfWorkflow(t.cfg.WorkflowID, messages), nil) {
				return
			}
		}
		t.stats.Emitted++
		yield(protocol.FinalSessionState(messages), nil)
	}
}

// finalMessages reads the aggregated conversation from the run's last raw
// event, which for a finished graph is the root chain-end.
func finalMessages(last event.RawEvent) []protocol.Message {
	if snap, ok := last.SnapshotOf(); ok {
		return snap.Messages
	}
	return []protocol.Message{}
}

// translate maps one raw event. A nil result means the event was filtered
// out; an empty non-nil result means it was recognized but produced no
// output yet.
func (t *Translator) translate(ctx context.Context, ev event.RawEvent) []protocol.Event {
	switch ev.Kind {
	case event.KindChainStart:
		if !t.recognized[ev.Name] {
			return t.drop()
		}
		start := protocol.StartOfAgent(ev.Name, t.agentID(ev))
		if ev.Name == t.cfg.Planner {
			t.started = true
			return []protocol.Event{protocol.StartOfWorkflow(t.cfg.WorkflowID, t.cfg.Input), start}
		}
		return []protocol.Event{start}

	case event.KindChainEnd:
		if !t.recognized[ev.Name] {
			return t.drop()
		}
		return []protocol.Event{protocol.EndOfAgent(ev.Name, t.agentID(ev))}

	case event.KindModelStart:
		if !t.recognized[ev.Node] {
			return t.drop()
		}
		return []protocol.Event{protocol.StartOfLLM(ev.Node)}

	case event.KindModelEnd:
		if !t.recognized[ev.Node] {
			return t.drop()
		}
		return []protocol.Event{protocol.EndOfLLM(ev.Node)}

	case event.KindModelStreamChunk:
		if !t.recognized[ev.Node] {
			return t.drop()
		}
		return t.chunk(ctx, ev)

	case event.KindToolStart:
		if !t.team[ev.Node] {
			return t.drop()
		}
		var input any
		if in, ok := ev.Payload.(event.ToolInput); ok {
			input = in.Input
		}
		return []protocol.Event{protocol.ToolCallStarted(t.toolCallID(ev), ev.Name, input)}

	case event.KindToolEnd:
		if !t.team[ev.Node] {
			return t.drop()
		}
		var result string
		if out, ok := ev.Payload.(event.ToolOutput); ok && out.Present {
			result = out.Content
		}
		return []protocol.Event{protocol.ToolCallResult(t.toolCallID(ev), ev.Name, result)}

	default:
		return t.drop()
	}
}

func (t *Translator) chunk(ctx context.Context, ev event.RawEvent) []protocol.Event {
	c := ev.ChunkOf()

	if c.Content == "" {
		if c.ReasoningContent == "" {
			return []protocol.Event{}
		}
		return []protocol.Event{protocol.ReasoningMessage(c.ID, c.ReasoningContent)}
	}

	if ev.Node != t.cfg.Coordinator {
		return []protocol.Event{protocol.ContentMessage(c.ID, c.Content)}
	}

	wasHandoff := t.buffer.handoff
	text, ok := t.buffer.push(c.Content)
	if t.buffer.handoff && !wasHandoff {
		t.observer.OnEvent(ctx, observability.NewEvent(EventHandoff, observability.LevelVerbose, "translate.Translator", map[string]any{
			"workflow_id": t.cfg.WorkflowID,
		}))
	}
	if !ok {
		return []protocol.Event{}
	}
	return []protocol.Event{protocol.ContentMessage(c.ID, text)}
}

func (t *Translator) drop() []protocol.Event {
	t.stats.Dropped++
	return nil
}

func (t *Translator) agentID(ev event.RawEvent) string {
	return t.cfg.WorkflowID + "_" + ev.Name + "_" + ev.Step
}

func (t *Translator) toolCallID(ev event.RawEvent) string {
	return t.cfg.WorkflowID + "_" + ev.Node + "_" + ev.Name + "_" + ev.RunID
}
