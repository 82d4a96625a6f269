// Package observability carries structured events from the retry engine,
// resource manager, translator and workflow runner to logs, metrics and
// traces. Level values follow OpenTelemetry SeverityNumbers so events can be
// forwarded to a collector without translation.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level is an event severity within the OTel SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

type band struct {
	max  Level
	text string
	slog slog.Level
}

// bands covers the OTel severity ranges in ascending order. Anything above
// the last band is FATAL.
var bands = [...]band{
	{4, "TRACE", slog.LevelDebug},
	{8, "DEBUG", slog.LevelDebug},
	{12, "INFO", slog.LevelInfo},
	{16, "WARN", slog.LevelWarn},
	{20, "ERROR", slog.LevelError},
}

func (l Level) band() band {
	for _, b := range bands {
		if l <= b.max {
			return b
		}
	}
	return band{text: "FATAL", slog: slog.LevelError}
}

// String returns the OTel severity text, e.g. "WARN" for LevelWarning.
func (l Level) String() string { return l.band().text }

// SlogLevel maps the level onto slog's four levels. TRACE and FATAL fold
// into Debug and Error.
func (l Level) SlogLevel() slog.Level { return l.band().slog }

// EventType names an event. Packages declare their own constants
// ("retry.attempt.failed", "workflow.start", ...).
type EventType string

// Event is a single observation. Type maps to the OTel EventName, Source to
// the instrumentation scope and Data to attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, level Level, source string, data map[string]any) Event {
	return Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}

// Observer receives events for logging, tracing or metrics.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// OrNoOp returns obs, or a NoOpObserver when obs is nil.
func OrNoOp(obs Observer) Observer {
	if obs == nil {
		return NoOpObserver{}
	}
	return obs
}
