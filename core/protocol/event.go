package protocol

import "encoding/json"

// EventType identifies a normalized workflow event.
type EventType string

const (
	EventStartOfWorkflow   EventType = "start_of_workflow"
	EventStartOfAgent      EventType = "start_of_agent"
	EventEndOfAgent        EventType = "end_of_agent"
	EventStartOfLLM        EventType = "start_of_llm"
	EventEndOfLLM          EventType = "end_of_llm"
	EventMessage           EventType = "message"
	EventToolCall          EventType = "tool_call"
	EventToolCallResult    EventType = "tool_call_result"
	EventEndOfWorkflow     EventType = "end_of_workflow"
	EventFinalSessionState EventType = "final_session_state"
	EventError             EventType = "error"
)

// Event is one unit of the client-facing stream. It encodes as
// {"event": <type>, "data": {...}}.
type Event struct {
	Type EventType      `json:"event"`
	Data map[string]any `json:"data"`
}

// JSON encodes the event data alone, as written to SSE data lines.
func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e.Data)
}

// Delta is the incremental payload of a message event. Exactly one field is
// set per event.
type Delta struct {
	Content          string `json:"content,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

func StartOfWorkflow(workflowID string, input []Message) Event {
	return Event{Type: EventStartOfWorkflow, Data: map[string]any{
		"workflow_id": workflowID,
		"input":       input,
	}}
}

func StartOfAgent(name, agentID string) Event {
	return Event{Type: EventStartOfAgent, Data: map[string]any{
		"agent_name": name,
		"agent_id":   agentID,
	}}
}

func EndOfAgent(name, agentID string) Event {
	return Event{Type: EventEndOfAgent, Data: map[string]any{
		"agent_name": name,
		"agent_id":   agentID,
	}}
}

func StartOfLLM(name string) Event {
	return Event{Type: EventStartOfLLM, Data: map[string]any{"agent_name": name}}
}

func EndOfLLM(name string) Event {
	return Event{Type: EventEndOfLLM, Data: map[string]any{"agent_name": name}}
}

// ContentMessage is a message event carrying visible text.
func ContentMessage(messageID, content string) Event {
	return Event{Type: EventMessage, Data: map[string]any{
		"message_id": messageID,
		"delta":      Delta{Content: content},
	}}
}

// ReasoningMessage is a message event carrying model reasoning only.
func ReasoningMessage(messageID, reasoning string) Event {
	return Event{Type: EventMessage, Data: map[string]any{
		"message_id": messageID,
		"delta":      Delta{ReasoningContent: reasoning},
	}}
}

func ToolCallStarted(toolCallID, toolName string, input any) Event {
	return Event{Type: EventToolCall, Data: map[string]any{
		"tool_call_id": toolCallID,
		"tool_name":    toolName,
		"tool_input":   input,
	}}
}

func ToolCallResult(toolCallID, toolName, result string) Event {
	return Event{Type: EventToolCallResult, Data: map[string]any{
		"tool_call_id": toolCallID,
		"tool_name":    toolName,
		"tool_result":  result,
	}}
}

func EndOfWorkflow(workflowID string, messages []Message) Event {
	return Event{Type: EventEndOfWorkflow, Data: map[string]any{
		"workflow_id": workflowID,
		"messages":    nonNil(messages),
	}}
}

func FinalSessionState(messages []Message) Event {
	return Event{Type: EventFinalSessionState, Data: map[string]any{
		"messages": nonNil(messages),
	}}
}

func Error(err error) Event {
	return Event{Type: EventError, Data: map[string]any{"error": err.Error()}}
}

// nonNil keeps empty message lists encoding as [] rather than null.
func nonNil(messages []Message) []Message {
	if messages == nil {
		return []Message{}
	}
	return messages
}
