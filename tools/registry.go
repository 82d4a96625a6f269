// Package tools holds the process-wide tool registry the execution graph
// dispatches tool calls through. The browser and crawl tools register
// themselves when the app starts.
package tools

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/TimeCyber/DeepManus/core/protocol"
)

// Handler runs one tool call with its JSON-encoded arguments.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Result is the tool output recorded as the tool-end content. IsError marks
// a failure the tool reported as text instead of returning an error.
type Result struct {
	Content string
	IsError bool
}

// Text is a successful result.
func Text(content string) Result {
	return Result{Content: content}
}

// Errorf is a failed result whose content describes the failure.
func Errorf(format string, args ...any) Result {
	return Result{Content: fmt.Sprintf(format, args...), IsError: true}
}

type binding struct {
	tool    protocol.Tool
	handler Handler
}

type mode int

const (
	insert mode = iota
	update
	upsert
)

var (
	mu       sync.RWMutex
	bindings = map[string]binding{}
)

func bind(tool protocol.Tool, h Handler, m mode) error {
	if tool.Name == "" {
		return ErrEmptyName
	}

	mu.Lock()
	defer mu.Unlock()

	_, taken := bindings[tool.Name]
	switch {
	case m == insert && taken:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, tool.Name)
	case m == update && !taken:
		return fmt.Errorf("%w: %s", ErrNotFound, tool.Name)
	}
	bindings[tool.Name] = binding{tool: tool, handler: h}
	return nil
}

// Register adds a tool. It returns ErrAlreadyExists for a taken name.
func Register(tool protocol.Tool, h Handler) error { return bind(tool, h, insert) }

// Replace swaps the handler of a registered tool. It returns ErrNotFound
// for unknown names.
func Replace(tool protocol.Tool, h Handler) error { return bind(tool, h, update) }

// Upsert registers the tool or replaces whatever is bound to its name. Tool
// constructors use it so building a second app in one process is harmless.
func Upsert(tool protocol.Tool, h Handler) error { return bind(tool, h, upsert) }

func lookup(name string) (binding, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := bindings[name]
	return b, ok
}

func Get(name string) (Handler, bool) {
	b, ok := lookup(name)
	return b.handler, ok
}

// List returns the registered tool definitions ordered by name.
func List() []protocol.Tool {
	mu.RLock()
	defer mu.RUnlock()

	sorted := slices.SortedFunc(maps.Values(bindings), func(a, b binding) int {
		return cmp.Compare(a.tool.Name, b.tool.Name)
	})
	out := make([]protocol.Tool, len(sorted))
	for i, b := range sorted {
		out[i] = b.tool
	}
	return out
}

// Execute dispatches a call by name. A handler error comes back as a
// *CallError naming the tool.
func Execute(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	b, ok := lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	result, err := b.handler(ctx, args)
	if err != nil {
		return Result{}, &CallError{Tool: name, Err: err}
	}
	return result, nil
}

// DecodeArgs unmarshals call arguments into T. Empty arguments decode to
// the zero value.
func DecodeArgs[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return v, nil
}
