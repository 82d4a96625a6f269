// Package protocol defines the client-facing wire types: conversation
// messages and the normalized workflow event stream.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation recorded on an assistant message.
// It marshals to the nested OpenAI shape ({type, function:{name, arguments}})
// and accepts either nested or flat input.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string           `json:"id"`
		Type     string           `json:"type"`
		Function toolCallFunction `json:"function"`
	}{
		ID:       tc.ID,
		Type:     "function",
		Function: toolCallFunction{Name: tc.Name, Arguments: tc.Arguments},
	})
}

func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var nested struct {
		ID       string           `json:"id"`
		Function toolCallFunction `json:"function"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}

	if nested.Function.Name != "" {
		tc.ID = nested.ID
		tc.Name = nested.Function.Name
		tc.Arguments = nested.Function.Arguments
		return nil
	}

	type plain ToolCall
	return json.Unmarshal(data, (*plain)(tc))
}

// Message is one entry of the aggregated conversation carried by
// start_of_workflow, end_of_workflow and final_session_state.
// Content is usually a string but may hold multimodal arrays.
type Message struct {
	Role       Role       `json:"role"`
	Content    any        `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// langchainRoles maps LangChain message "type" values onto roles.
var langchainRoles = map[string]Role{
	"human":  RoleUser,
	"ai":     RoleAssistant,
	"system": RoleSystem,
	"tool":   RoleTool,
}

// UnmarshalJSON accepts OpenAI dicts ({role, content}), serialized LangChain
// messages ({type, content}) and the LangChain shorthands: a bare string is
// a user message and a [type, content] pair names its sender.
func (m *Message) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 {
		switch data[0] {
		case '"':
			var text string
			if err := json.Unmarshal(data, &text); err != nil {
				return err
			}
			*m = NewMessage(RoleUser, text)
			return nil
		case '[':
			return m.unmarshalPair(data)
		}
	}

	type plain Message
	var raw struct {
		plain
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Message(raw.plain)
	if m.Role == "" {
		if role, ok := langchainRoles[raw.Type]; ok {
			m.Role = role
		}
	}
	return nil
}

func (m *Message) unmarshalPair(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("message pair has %d elements, want 2", len(pair))
	}

	var sender string
	if err := json.Unmarshal(pair[0], &sender); err != nil {
		return fmt.Errorf("message pair sender: %w", err)
	}
	role, ok := langchainRoles[sender]
	if !ok {
		role = Role(sender)
	}

	var content any
	if err := json.Unmarshal(pair[1], &content); err != nil {
		return err
	}
	*m = NewMessage(role, content)
	return nil
}

// NewMessage creates a Message with the given role and content.
func NewMessage(role Role, content any) Message {
	return Message{Role: role, Content: content}
}

// InitMessages starts a conversation from a single prompt.
func InitMessages(role Role, content string) []Message {
	return []Message{NewMessage(role, content)}
}
