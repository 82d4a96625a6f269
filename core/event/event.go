// Package event defines RawEvent, the low-level record produced by an
// execution graph, as a tagged union keyed by Kind.
package event

import "github.com/TimeCyber/DeepManus/core/protocol"

// Kind identifies a raw execution event.
type Kind int

const (
	KindUnknown Kind = iota
	KindChainStart
	KindChainEnd
	KindModelStart
	KindModelEnd
	KindModelStreamChunk
	KindToolStart
	KindToolEnd
)

var kindNames = [...]string{
	KindUnknown:          "unknown",
	KindChainStart:       "chain-start",
	KindChainEnd:         "chain-end",
	KindModelStart:       "model-start",
	KindModelEnd:         "model-end",
	KindModelStreamChunk: "model-stream-chunk",
	KindToolStart:        "tool-start",
	KindToolEnd:          "tool-end",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// RawEvent is one record from the execution graph.
//
// Name is the emitting participant for chain events and the tool name for
// tool events. Node is the scope the event ran under and may be empty.
// RunID correlates a tool-start with its tool-end. Step is the graph step
// used to build agent instance ids.
type RawEvent struct {
	Kind    Kind
	Name    string
	Node    string
	RunID   string
	Step    string
	Payload Payload
}

// Payload is the kind-specific body of a RawEvent. The set of variants is
// closed: Chunk, ToolInput, ToolOutput and Snapshot.
type Payload interface {
	payload()
}

// Chunk is a streamed model fragment.
type Chunk struct {
	ID               string
	Content          string
	ReasoningContent string
}

// ToolInput is the argument value of a tool-start.
type ToolInput struct {
	Input any
}

// ToolOutput is the result of a tool-end. Present is false when the tool
// produced no output object at all.
type ToolOutput struct {
	Content string
	Present bool
}

// Snapshot is the state carried by a chain-end. Present is false when the
// output carried no messages key.
type Snapshot struct {
	Messages []protocol.Message
	Present  bool
}

func (Chunk) payload()      {}
func (ToolInput) payload()  {}
func (ToolOutput) payload() {}
func (Snapshot) payload()   {}

// ChunkOf returns the event's chunk payload, or the zero Chunk.
func (e RawEvent) ChunkOf() Chunk {
	c, _ := e.Payload.(Chunk)
	return c
}

// SnapshotOf returns the event's snapshot and whether it carries one.
func (e RawEvent) SnapshotOf() (Snapshot, bool) {
	s, ok := e.Payload.(Snapshot)
	return s, ok && s.Present
}
