// Package graph is the in-process execution graph. Nodes connected by
// predicate edges transform an immutable State, and every step is
// reported as raw events (chain-start and chain-end per node, model and
// tool events from inside nodes, a root chain-end with the final
// conversation) to the Emitter carried by the context.
//
//	g := graph.New(graph.Config{Name: "deepmanus"})
//	g.AddNode("coordinator", coordinator)
//	g.AddNode("planner", planner)
//	g.AddEdge("coordinator", "planner", graph.Goto("planner"))
//	g.SetEntryPoint("coordinator")
//	g.SetExitPoint("planner")
//	final, err := g.Execute(graph.WithEmitter(ctx, emitter), graph.NewState(msgs...))
package graph

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/TimeCyber/DeepManus/core/event"
	"github.com/TimeCyber/DeepManus/observability"
)

// NextKey is the state key supervisor nodes set to choose their successor.
const NextKey = "next"

const defaultMaxIterations = 25

type Config struct {
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Name:          "LangGraph",
		MaxIterations: defaultMaxIterations,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.MaxIterations > 0 {
		c.MaxIterations = source.MaxIterations
	}
}

type Option func(*Graph)

func WithObserver(o observability.Observer) Option {
	return func(g *Graph) { g.observer = observability.OrNoOp(o) }
}

// Graph is built once and may then be executed concurrently.
type Graph struct {
	name          string
	nodes         map[string]Node
	edges         map[string][]Edge
	entryPoint    string
	exitPoints    map[string]bool
	maxIterations int
	observer      observability.Observer
}

func New(cfg Config, opts ...Option) *Graph {
	c := DefaultConfig()
	c.Merge(&cfg)

	g := &Graph{
		name:          c.Name,
		nodes:         make(map[string]Node),
		edges:         make(map[string][]Edge),
		exitPoints:    make(map[string]bool),
		maxIterations: c.MaxIterations,
		observer:      observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Graph) Name() string {
	return g.name
}

func (g *Graph) AddNode(name string, node Node) error {
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}
	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("node %s already exists", name)
	}

	g.nodes[name] = node
	return nil
}

// AddEdge adds a transition. Edges leaving one node are evaluated in the
// order they were added and the first passing edge wins.
func (g *Graph) AddEdge(from, to string, predicate Predicate) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("from node %q does not exist", from)
	}
	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("to node %q does not exist", to)
	}

	g.edges[from] = append(g.edges[from], Edge{From: from, To: to, Predicate: predicate})
	return nil
}

func (g *Graph) SetEntryPoint(node string) error {
	if g.entryPoint != "" {
		return fmt.Errorf("entry point already set to %s", g.entryPoint)
	}
	if _, exists := g.nodes[node]; !exists {
		return fmt.Errorf("entry point node %q does not exist", node)
	}

	g.entryPoint = node
	return nil
}

func (g *Graph) SetExitPoint(node string) error {
	if _, exists := g.nodes[node]; !exists {
		return fmt.Errorf("exit point node %q does not exist", node)
	}

	g.exitPoints[node] = true
	return nil
}

func (g *Graph) Validate() error {
	if len(g.nodes) == 0 {
		return errors.New("graph has no nodes")
	}
	if g.entryPoint == "" {
		return errors.New("entry point not set")
	}
	if len(g.exitPoints) == 0 {
		return errors.New("no exit points set")
	}
	return nil
}

// Execute runs the graph from its entry point until an exit point
// completes. Cancellation of ctx stops the run before the next node.
func (g *Graph) Execute(ctx context.Context, initial State) (State, error) {
	if err := g.Validate(); err != nil {
		return initial, fmt.Errorf("graph validation failed: %w", err)
	}

	emitter := scopeFrom(ctx).emitter
	g.emit(ctx, EventGraphStart, observability.LevelInfo, map[string]any{
		"graph":       g.name,
		"entry_point": g.entryPoint,
	})

	if err := emitter.Emit(ctx, event.RawEvent{Kind: event.KindChainStart, Name: g.name}); err != nil {
		return initial, &ExecutionError{Node: g.entryPoint, State: initial, Err: err}
	}

	current := g.entryPoint
	state := initial
	visited := make(map[string]int)
	path := make([]string, 0, g.maxIterations)

	fail := func(err error) (State, error) {
		return state, &ExecutionError{Node: current, State: state, Path: path, Err: err}
	}

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("execution cancelled: %w", err))
		}
		if iteration > g.maxIterations {
			return fail(fmt.Errorf("max iterations (%d) exceeded", g.maxIterations))
		}

		visited[current]++
		path = append(path, current)
		if visited[current] > 1 {
			g.emit(ctx, EventCycleDetected, observability.LevelWarning, map[string]any{
				"node":        current,
				"visit_count": visited[current],
			})
		}

		step := strconv.Itoa(iteration)
		next, err := g.runNode(ctx, emitter, current, step, state)
		if err != nil {
			return fail(err)
		}
		state = next

		if g.exitPoints[current] {
			break
		}

		to, err := g.transition(ctx, current, state)
		if err != nil {
			return fail(err)
		}
		current = to
	}

	if err := emitter.Emit(ctx, event.RawEvent{
		Kind:    event.KindChainEnd,
		Name:    g.name,
		Payload: event.Snapshot{Messages: state.Messages, Present: true},
	}); err != nil {
		return fail(err)
	}

	g.emit(ctx, EventGraphComplete, observability.LevelInfo, map[string]any{
		"graph":       g.name,
		"exit_point":  current,
		"path_length": len(path),
	})
	return state, nil
}

func (g *Graph) runNode(ctx context.Context, emitter Emitter, name, step string, state State) (State, error) {
	node, exists := g.nodes[name]
	if !exists {
		return state, fmt.Errorf("node %s not found", name)
	}

	if err := emitter.Emit(ctx, event.RawEvent{Kind: event.KindChainStart, Name: name, Node: name, Step: step}); err != nil {
		return state, err
	}
	g.emit(ctx, EventNodeStart, observability.LevelVerbose, map[string]any{"node": name, "step": step})

	next, err := node.Execute(withNode(ctx, name, step), state)

	g.emit(ctx, EventNodeComplete, observability.LevelVerbose, map[string]any{
		"node":  name,
		"step":  step,
		"error": err != nil,
	})
	if err != nil {
		return state, fmt.Errorf("node execution failed: %w", err)
	}

	if err := emitter.Emit(ctx, event.RawEvent{
		Kind:    event.KindChainEnd,
		Name:    name,
		Node:    name,
		Step:    step,
		Payload: event.Snapshot{Messages: next.Messages, Present: true},
	}); err != nil {
		return next, err
	}
	return next, nil
}

func (g *Graph) transition(ctx context.Context, from string, state State) (string, error) {
	edges, ok := g.edges[from]
	if !ok {
		return "", fmt.Errorf("node %s has no outgoing edges and is not an exit point", from)
	}

	for _, edge := range edges {
		if edge.Predicate == nil || edge.Predicate(state) {
			g.emit(ctx, EventEdgeTransition, observability.LevelVerbose, map[string]any{
				"from": edge.From,
				"to":   edge.To,
			})
			return edge.To, nil
		}
	}
	return "", fmt.Errorf("no valid transition from node %s", from)
}

func (g *Graph) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	g.observer.OnEvent(ctx, observability.NewEvent(t, level, "graph."+g.name, data))
}
