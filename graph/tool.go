package graph

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/TimeCyber/DeepManus/core/event"
	"github.com/TimeCyber/DeepManus/tools"
)

// CallTool runs a registered tool between a tool-start and a tool-end
// event sharing one run id. A failed dispatch still ends with a tool-end
// that carries no output.
func CallTool(ctx context.Context, name string, args json.RawMessage) (tools.Result, error) {
	emitter := EmitterFrom(ctx)
	runID := uuid.New().String()

	var input any = string(args)
	var decoded map[string]any
	if err := json.Unmarshal(args, &decoded); err == nil {
		input = decoded
	}

	if err := emitter.Emit(ctx, event.RawEvent{
		Kind:    event.KindToolStart,
		Name:    name,
		RunID:   runID,
		Payload: event.ToolInput{Input: input},
	}); err != nil {
		return tools.Result{}, err
	}

	result, err := tools.Execute(ctx, name, args)

	output := event.ToolOutput{}
	if err == nil {
		output = event.ToolOutput{Content: result.Content, Present: true}
	}
	if emitErr := emitter.Emit(ctx, event.RawEvent{
		Kind:    event.KindToolEnd,
		Name:    name,
		RunID:   runID,
		Payload: output,
	}); emitErr != nil && err == nil {
		err = emitErr
	}

	return result, err
}
