package workflow_test

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimeCyber/DeepManus/core/event"
	"github.com/TimeCyber/DeepManus/core/protocol"
	"github.com/TimeCyber/DeepManus/observability"
	"github.com/TimeCyber/DeepManus/resource"
	"github.com/TimeCyber/DeepManus/workflow"
)

type captureObserver struct {
	mu     sync.Mutex
	events []observability.EventType
}

func (c *captureObserver) OnEvent(_ context.Context, e observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e.Type)
}

func (c *captureObserver) types() []observability.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.events)
}

func (c *captureObserver) index(t observability.EventType) int {
	return slices.Index(c.types(), t)
}

type countingProvider struct {
	mu      sync.Mutex
	creates int
	closes  int
}

func (p *countingProvider) Create(context.Context) (resource.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
	return "handle", nil
}

func (p *countingProvider) Close(context.Context, resource.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

func (p *countingProvider) closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func request() workflow.Request {
	return workflow.Request{Messages: protocol.InitMessages(protocol.RoleUser, "hello")}
}

func replay(events ...event.RawEvent) workflow.Source {
	return workflow.SourceFunc(func(ctx context.Context, _ workflow.Request) (iter.Seq2[event.RawEvent, error], error) {
		return func(yield func(event.RawEvent, error) bool) {
			for _, ev := range events {
				if !yield(ev, nil) {
					return
				}
			}
		}, nil
	})
}

// acquiring acquires the run's resource, yields a planner start and then
// either fails with err or, when err is nil, blocks until cancelled.
func acquiring(err error) workflow.Source {
	return workflow.SourceFunc(func(ctx context.Context, _ workflow.Request) (iter.Seq2[event.RawEvent, error], error) {
		return func(yield func(event.RawEvent, error) bool) {
			m, ok := resource.FromContext(ctx)
			if !ok {
				yield(event.RawEvent{}, errors.New("no manager in context"))
				return
			}
			if _, err := m.Acquire(ctx); err != nil {
				yield(event.RawEvent{}, err)
				return
			}
			if !yield(event.RawEvent{Kind: event.KindChainStart, Name: "planner", Step: "1"}, nil) {
				return
			}
			if err != nil {
				yield(event.RawEvent{}, err)
				return
			}
			<-ctx.Done()
			yield(event.RawEvent{}, ctx.Err())
		}, nil
	})
}

func collect(s *workflow.Stream) []protocol.EventType {
	var out []protocol.EventType
	for ev := range s.Events() {
		out = append(out, ev.Type)
	}
	return out
}

func waitDone(t *testing.T, s *workflow.Stream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestRun_EmptyMessages(t *testing.T) {
	runner := workflow.NewRunner(replay(), workflow.DefaultConfig(), workflow.WithObserver(observability.NoOpObserver{}))

	stream, err := runner.Run(context.Background(), workflow.Request{})
	assert.Nil(t, stream)
	assert.ErrorIs(t, err, workflow.ErrEmptyMessages)
}

func TestRun_Completes(t *testing.T) {
	obs := &captureObserver{}
	provider := &countingProvider{}
	runner := workflow.NewRunner(replay(
		event.RawEvent{Kind: event.KindChainStart, Name: "planner", Step: "1"},
		event.RawEvent{Kind: event.KindChainEnd, Name: "planner", Step: "1"},
	), workflow.DefaultConfig(), workflow.WithObserver(obs), workflow.WithResourceProvider(provider))

	stream, err := runner.Run(context.Background(), request())
	require.NoError(t, err)
	assert.NotEmpty(t, stream.ID())

	assert.Equal(t, []protocol.EventType{
		protocol.EventStartOfWorkflow,
		protocol.EventStartOfAgent,
		protocol.EventEndOfAgent,
		protocol.EventEndOfWorkflow,
		protocol.EventFinalSessionState,
	}, collect(stream))

	waitDone(t, stream)
	assert.NoError(t, stream.Err())
	assert.Equal(t, 0, provider.closed(), "resource never acquired")
	assert.Empty(t, runner.Runs().Active())
	assert.Contains(t, obs.types(), workflow.EventComplete)
}

func TestRun_WorkflowIDFlowsIntoEvents(t *testing.T) {
	runner := workflow.NewRunner(replay(
		event.RawEvent{Kind: event.KindChainStart, Name: "planner", Step: "3"},
	), workflow.DefaultConfig(), workflow.WithObserver(observability.NoOpObserver{}))

	stream, err := runner.Run(context.Background(), request())
	require.NoError(t, err)

	first, ok := stream.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, stream.ID(), first.Data["workflow_id"])

	second, ok := stream.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, stream.ID()+"_planner_3", second.Data["agent_id"])
}

func TestRun_RequestTeamOverridesConfig(t *testing.T) {
	runner := workflow.NewRunner(replay(
		event.RawEvent{Kind: event.KindToolStart, Name: "crawl_tool", Node: "analyst", RunID: "r"},
		event.RawEvent{Kind: event.KindToolStart, Name: "crawl_tool", Node: "researcher", RunID: "r"},
	), workflow.DefaultConfig(), workflow.WithObserver(observability.NoOpObserver{}))

	req := request()
	req.TeamMembers = []string{"analyst"}
	stream, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []protocol.EventType{protocol.EventToolCall, protocol.EventFinalSessionState}, collect(stream))
}

func TestRun_SourceOpenFailure(t *testing.T) {
	boom := errors.New("graph unavailable")
	runner := workflow.NewRunner(workflow.SourceFunc(func(context.Context, workflow.Request) (iter.Seq2[event.RawEvent, error], error) {
		return nil, boom
	}), workflow.DefaultConfig(), workflow.WithObserver(observability.NoOpObserver{}))

	stream, err := runner.Run(context.Background(), request())
	require.NoError(t, err)

	var events []protocol.Event
	for ev := range stream.Events() {
		events = append(events, ev)
	}

	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventError, events[0].Type)
	assert.Equal(t, "graph unavailable", events[0].Data["error"])
	waitDone(t, stream)
	assert.NoError(t, stream.Err())
}

func TestRun_BodyErrorReleasesBeforeReporting(t *testing.T) {
	obs := &captureObserver{}
	provider := &countingProvider{}
	runner := workflow.NewRunner(acquiring(errors.New("node failed")), workflow.DefaultConfig(),
		workflow.WithObserver(obs), workflow.WithResourceProvider(provider))

	stream, err := runner.Run(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, []protocol.EventType{
		protocol.EventStartOfWorkflow,
		protocol.EventStartOfAgent,
		protocol.EventError,
	}, collect(stream))

	waitDone(t, stream)
	assert.NoError(t, stream.Err())
	assert.Equal(t, 1, provider.closed())

	release, reported := obs.index(resource.EventRelease), obs.index(workflow.EventError)
	require.NotEqual(t, -1, release)
	require.NotEqual(t, -1, reported)
	assert.Less(t, release, reported)
}

func TestRun_CancelReleasesBeforePropagating(t *testing.T) {
	obs := &captureObserver{}
	provider := &countingProvider{}
	runner := workflow.NewRunner(acquiring(nil), workflow.DefaultConfig(),
		workflow.WithObserver(obs), workflow.WithResourceProvider(provider))

	stream, err := runner.Run(context.Background(), request())
	require.NoError(t, err)

	first, ok := stream.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, protocol.EventStartOfWorkflow, first.Type)

	stream.Cancel()
	waitDone(t, stream)

	assert.ErrorIs(t, stream.Err(), context.Canceled)
	assert.Equal(t, 1, provider.closed())

	types := obs.types()
	assert.NotContains(t, types, workflow.EventError)
	release, cancelled := obs.index(resource.EventRelease), obs.index(workflow.EventCancelled)
	require.NotEqual(t, -1, release)
	require.NotEqual(t, -1, cancelled)
	assert.Less(t, release, cancelled)

	for ev := range stream.Events() {
		assert.NotEqual(t, protocol.EventError, ev.Type)
		assert.NotEqual(t, protocol.EventFinalSessionState, ev.Type)
	}
}

func TestRun_ParentContextCancel(t *testing.T) {
	provider := &countingProvider{}
	runner := workflow.NewRunner(acquiring(nil), workflow.DefaultConfig(),
		workflow.WithObserver(observability.NoOpObserver{}), workflow.WithResourceProvider(provider))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := runner.Run(ctx, request())
	require.NoError(t, err)

	_, ok := stream.Next(context.Background())
	require.True(t, ok)
	cancel()

	waitDone(t, stream)
	assert.ErrorIs(t, stream.Err(), context.Canceled)
	assert.Equal(t, 1, provider.closed())
}

func TestRun_CancelByID(t *testing.T) {
	provider := &countingProvider{}
	runs := workflow.NewRuns()
	runner := workflow.NewRunner(acquiring(nil), workflow.DefaultConfig(),
		workflow.WithObserver(observability.NoOpObserver{}),
		workflow.WithResourceProvider(provider),
		workflow.WithRegistry(runs))

	stream, err := runner.Run(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, []string{stream.ID()}, runs.Active())

	_, ok := stream.Next(context.Background())
	require.True(t, ok)

	assert.True(t, runs.Cancel(stream.ID()))
	waitDone(t, stream)

	assert.ErrorIs(t, stream.Err(), context.Canceled)
	assert.Empty(t, runs.Active())
	assert.False(t, runs.Cancel(stream.ID()))
	assert.Equal(t, 1, provider.closed())
}

func TestRun_EventsBreakCancels(t *testing.T) {
	provider := &countingProvider{}
	runner := workflow.NewRunner(acquiring(nil), workflow.DefaultConfig(),
		workflow.WithObserver(observability.NoOpObserver{}), workflow.WithResourceProvider(provider))

	stream, err := runner.Run(context.Background(), request())
	require.NoError(t, err)

	for range stream.Events() {
		break
	}

	select {
	case <-stream.Done():
	default:
		t.Fatal("breaking out of Events should wait for cleanup")
	}
	assert.ErrorIs(t, stream.Err(), context.Canceled)
	assert.Equal(t, 1, provider.closed())
}

func TestRun_NoProvider(t *testing.T) {
	runner := workflow.NewRunner(acquiring(nil), workflow.DefaultConfig(), workflow.WithObserver(observability.NoOpObserver{}))

	stream, err := runner.Run(context.Background(), request())
	require.NoError(t, err)

	var last protocol.Event
	for ev := range stream.Events() {
		last = ev
	}
	assert.Equal(t, protocol.EventError, last.Type)
	assert.Contains(t, last.Data["error"], workflow.ErrNoResource.Error())
}
