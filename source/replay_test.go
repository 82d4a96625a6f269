package source_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimeCyber/DeepManus/core/event"
	"github.com/TimeCyber/DeepManus/source"
	"github.com/TimeCyber/DeepManus/workflow"
)

const recorded = `{"event":"on_chain_start","name":"planner","metadata":{"langgraph_step":1}}

{"event":"on_chat_model_stream","name":"ChatOpenAI","metadata":{"checkpoint_ns":"planner:1"},"data":{"chunk":{"id":"m1","content":"plan"}}}
{"event":"on_chain_end","name":"planner","metadata":{"langgraph_step":1}}
`

func TestReplay(t *testing.T) {
	var kinds []event.Kind
	for ev, err := range source.Replay(strings.NewReader(recorded)) {
		require.NoError(t, err)
		kinds = append(kinds, ev.Kind)
	}

	assert.Equal(t, []event.Kind{event.KindChainStart, event.KindModelStreamChunk, event.KindChainEnd}, kinds)
}

func TestReplay_DecodeError(t *testing.T) {
	input := recorded + "not json\n" + recorded

	var count int
	var lastErr error
	for _, err := range source.Replay(strings.NewReader(input)) {
		if err != nil {
			lastErr = err
			break
		}
		count++
	}

	assert.Equal(t, 3, count)
	require.Error(t, lastErr)
	assert.Contains(t, lastErr.Error(), "line 5")
}

func TestReplay_OddPayloadsContinue(t *testing.T) {
	input := `{"event":"on_chain_end","name":"RunnableSequence","metadata":{"checkpoint_ns":"planner:1"},"data":{"output":{"messages":[7]}}}
{"event":"on_tool_end","name":"calc","metadata":{"checkpoint_ns":"someone_else:2"},"data":{"output":42}}
` + recorded

	var kinds []event.Kind
	for ev, err := range source.Replay(strings.NewReader(input)) {
		require.NoError(t, err)
		kinds = append(kinds, ev.Kind)
	}

	assert.Equal(t, []event.Kind{
		event.KindChainEnd, event.KindToolEnd,
		event.KindChainStart, event.KindModelStreamChunk, event.KindChainEnd,
	}, kinds)
}

func TestReplayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(recorded), 0o644))

	events, err := source.ReplayFile(path).Open(context.Background(), workflow.Request{})
	require.NoError(t, err)

	var names []string
	for ev, err := range events {
		require.NoError(t, err)
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"planner", "ChatOpenAI", "planner"}, names)
}

func TestReplayFile_Missing(t *testing.T) {
	_, err := source.ReplayFile(filepath.Join(t.TempDir(), "absent.jsonl")).Open(context.Background(), workflow.Request{})
	assert.Error(t, err)
}

func TestReplayFile_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(recorded), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, err := source.ReplayFile(path).Open(ctx, workflow.Request{})
	require.NoError(t, err)

	for _, err := range events {
		assert.ErrorIs(t, err, context.Canceled)
		break
	}
}
