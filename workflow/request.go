package workflow

import (
	"errors"

	"github.com/TimeCyber/DeepManus/core/protocol"
)

// ErrEmptyMessages is returned by Run when the request has no messages.
var ErrEmptyMessages = errors.New("workflow: input messages must not be empty")

// Request is one workflow invocation.
type Request struct {
	Messages             []protocol.Message `json:"messages"`
	Debug                bool               `json:"debug,omitempty"`
	DeepThinking         bool               `json:"deep_thinking_mode,omitempty"`
	SearchBeforePlanning bool               `json:"search_before_planning,omitempty"`
	TeamMembers          []string           `json:"team_members,omitempty"`
}

// Validate reports ErrEmptyMessages for a request without input.
func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return ErrEmptyMessages
	}
	return nil
}

// team returns the request's team, or fallback when the request names none.
func (r Request) team(fallback []string) []string {
	if len(r.TeamMembers) > 0 {
		return r.TeamMembers
	}
	return fallback
}
