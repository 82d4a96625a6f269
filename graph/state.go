package graph

import (
	"maps"
	"slices"

	"github.com/TimeCyber/DeepManus/core/protocol"
)

// State is the immutable value flowing through a graph: the conversation
// so far plus free-form data nodes use for routing. Every modifier returns
// a new State.
type State struct {
	Messages []protocol.Message `json:"messages"`
	Data     map[string]any     `json:"data"`
}

func NewState(messages ...protocol.Message) State {
	return State{
		Messages: slices.Clone(messages),
		Data:     make(map[string]any),
	}
}

func (s State) Clone() State {
	data := maps.Clone(s.Data)
	if data == nil {
		data = make(map[string]any)
	}
	return State{
		Messages: slices.Clone(s.Messages),
		Data:     data,
	}
}

func (s State) Get(key string) (any, bool) {
	val, exists := s.Data[key]
	return val, exists
}

// Text returns the value at key when it is a string.
func (s State) Text(key string) string {
	v, _ := s.Data[key].(string)
	return v
}

func (s State) Set(key string, value any) State {
	next := s.Clone()
	next.Data[key] = value
	return next
}

// Append returns a State with messages added to the conversation.
func (s State) Append(messages ...protocol.Message) State {
	next := s.Clone()
	next.Messages = append(next.Messages, messages...)
	return next
}

// Merge copies the data keys of other over s. Messages are kept from s.
func (s State) Merge(other State) State {
	next := s.Clone()
	maps.Copy(next.Data, other.Data)
	return next
}
