package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/TimeCyber/DeepManus/core/protocol"
)

var wireKinds = map[string]Kind{
	"on_chain_start":       KindChainStart,
	"on_chain_end":         KindChainEnd,
	"on_chat_model_start":  KindModelStart,
	"on_chat_model_end":    KindModelEnd,
	"on_chat_model_stream": KindModelStreamChunk,
	"on_tool_start":        KindToolStart,
	"on_tool_end":          KindToolEnd,
}

// wireEvent mirrors a LangGraph astream_events (v2) record.
type wireEvent struct {
	Event    string `json:"event"`
	Name     string `json:"name"`
	RunID    string `json:"run_id"`
	Metadata struct {
		CheckpointNS  string          `json:"checkpoint_ns"`
		LanggraphStep json.RawMessage `json:"langgraph_step"`
	} `json:"metadata"`
	Data struct {
		Chunk *struct {
			ID               string `json:"id"`
			Content          any    `json:"content"`
			AdditionalKwargs struct {
				ReasoningContent string `json:"reasoning_content"`
			} `json:"additional_kwargs"`
		} `json:"chunk"`
		Input  any             `json:"input"`
		Output json.RawMessage `json:"output"`
	} `json:"data"`
}

// Decode parses one LangGraph-style event record. Unknown event names decode
// to KindUnknown rather than failing, and outputs in a shape the translator
// cannot use decode to an absent payload. Only malformed JSON is an error.
func Decode(data []byte) (RawEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return RawEvent{}, fmt.Errorf("decode raw event: %w", err)
	}

	ev := RawEvent{
		Kind:  wireKinds[w.Event],
		Name:  w.Name,
		RunID: w.RunID,
		Node:  nodeFromNamespace(w.Metadata.CheckpointNS),
		Step:  stepString(w.Metadata.LanggraphStep),
	}

	switch ev.Kind {
	case KindModelStreamChunk:
		if w.Data.Chunk != nil {
			ev.Payload = Chunk{
				ID:               w.Data.Chunk.ID,
				Content:          contentString(w.Data.Chunk.Content),
				ReasoningContent: w.Data.Chunk.AdditionalKwargs.ReasoningContent,
			}
		} else {
			ev.Payload = Chunk{}
		}
	case KindToolStart:
		ev.Payload = ToolInput{Input: w.Data.Input}
	case KindToolEnd:
		ev.Payload = decodeToolOutput(w.Data.Output)
	case KindChainEnd:
		ev.Payload = decodeSnapshot(w.Data.Output)
	}

	return ev, nil
}

// nodeFromNamespace returns the node part of "node:task-id|child:task".
func nodeFromNamespace(ns string) string {
	node, _, _ := strings.Cut(ns, ":")
	return node
}

func stepString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// contentString flattens chunk content. Providers send either a string or
// a list of typed parts; only text parts are kept.
func contentString(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case []any:
		var b strings.Builder
		for _, part := range c {
			switch p := part.(type) {
			case string:
				b.WriteString(p)
			case map[string]any:
				if text, ok := p["text"].(string); ok {
					b.WriteString(text)
				}
			}
		}
		return b.String()
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprint(c)
	}
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func decodeToolOutput(raw json.RawMessage) ToolOutput {
	if isAbsent(raw) {
		return ToolOutput{}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return ToolOutput{Content: text, Present: text != ""}
	}

	var obj struct {
		Content any `json:"content"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ToolOutput{}
	}
	return ToolOutput{Content: contentString(obj.Content), Present: true}
}

// decodeSnapshot extracts the conversation from a chain output. A messages
// list holding anything that is not a message yields no snapshot rather than
// a partial conversation.
func decodeSnapshot(raw json.RawMessage) Snapshot {
	if isAbsent(raw) || raw[0] != '{' {
		return Snapshot{}
	}

	var obj struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || isAbsent(obj.Messages) {
		return Snapshot{}
	}

	var msgs []protocol.Message
	if err := json.Unmarshal(obj.Messages, &msgs); err != nil {
		return Snapshot{}
	}
	return Snapshot{Messages: msgs, Present: true}
}
