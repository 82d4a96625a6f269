package protocol

// Tool is the definition a tool registers under and the `tools` command
// lists. Parameters holds the JSON Schema of the call arguments, e.g. the
// crawl tool's {"url": string}.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
