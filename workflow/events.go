package workflow

import "github.com/TimeCyber/DeepManus/observability"

const (
	EventStart     observability.EventType = "workflow.start"
	EventComplete  observability.EventType = "workflow.complete"
	EventError     observability.EventType = "workflow.error"
	EventCancelled observability.EventType = "workflow.cancelled"
)
