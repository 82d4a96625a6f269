// Package browser drives a remote browser automation server over a
// websocket. Provider is the per-run resource the workflow manager owns;
// the browser tool borrows it from the run context.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/TimeCyber/DeepManus/core/protocol"
	"github.com/TimeCyber/DeepManus/observability"
	"github.com/TimeCyber/DeepManus/resource"
	"github.com/TimeCyber/DeepManus/tools"
)

const ToolName = "browser"

// Tool describes the browser tool.
func Tool() protocol.Tool {
	return protocol.Tool{
		Name: ToolName,
		Description: "Use this tool to interact with web browsers. Input should be a natural language description " +
			"of what you want to do with the browser, such as 'Go to google.com and search for browser-use', " +
			"or 'Navigate to Reddit and find the top post about AI'.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"instruction": map[string]any{
					"type":        "string",
					"description": "The instruction to use browser",
				},
			},
			"required": []string{"instruction"},
		},
	}
}

// Output is the JSON content of a finished browser task.
type Output struct {
	ResultContent    string `json:"result_content"`
	GeneratedGifPath string `json:"generated_gif_path"`
}

type args struct {
	Instruction string `json:"instruction"`
}

// Browser runs browser tasks on the run's resource manager.
type Browser struct {
	provider *Provider
	observer observability.Observer
	logger   *slog.Logger
}

type Option func(*Browser)

func WithObserver(o observability.Observer) Option {
	return func(b *Browser) { b.observer = observability.OrNoOp(o) }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Browser) { b.logger = l }
}

func New(provider *Provider, opts ...Option) *Browser {
	b := &Browser{
		provider: provider,
		observer: observability.NoOpObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register adds the browser tool to the global registry, replacing any
// earlier binding.
func (b *Browser) Register() error {
	return tools.Upsert(Tool(), b.Handle)
}

// Handle is the tools.Handler of the browser tool. Failures are reported
// as an error result rather than an error so the graph keeps going.
func (b *Browser) Handle(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
	in, err := tools.DecodeArgs[args](raw)
	if err != nil {
		return b.failed(ctx, err), nil
	}

	out, err := b.Run(ctx, in.Instruction)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return tools.Result{}, err
		}
		return b.failed(ctx, err), nil
	}

	content, err := json.Marshal(out)
	if err != nil {
		return b.failed(ctx, err), nil
	}
	return tools.Text(string(content)), nil
}

// Run executes one task. It uses the run's manager from ctx, or a private
// manager released before returning when ctx carries none. A task that
// exceeds the configured timeout is reported in the output, not as an
// error.
func (b *Browser) Run(ctx context.Context, instruction string) (Output, error) {
	manager, ok := resource.FromContext(ctx)
	if !ok {
		manager = resource.NewManager(b.provider, resource.WithObserver(b.observer), resource.WithLogger(b.logger))
		defer manager.Release(ctx)
	}

	h, err := manager.Acquire(ctx)
	if err != nil {
		return Output{}, err
	}
	session, ok := h.(*Session)
	if !ok {
		return Output{}, fmt.Errorf("unexpected browser handle %T", h)
	}

	cfg := b.provider.Config()
	out := Output{GeneratedGifPath: filepath.Join(cfg.HistoryDir, uuid.New().String()+".gif")}
	timeout := time.Duration(cfg.TaskTimeout)

	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := session.Run(taskCtx, instruction, out.GeneratedGifPath)
	switch {
	case err == nil:
		out.ResultContent = result
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		b.logger.ErrorContext(ctx, "browser task timed out", "timeout", timeout)
		out.ResultContent = fmt.Sprintf("Browser task timed out after %s", timeout)
	default:
		return Output{}, err
	}
	return out, nil
}

func (b *Browser) failed(ctx context.Context, err error) tools.Result {
	b.logger.ErrorContext(ctx, "browser task failed", "error", err)
	return tools.Errorf("Error executing browser task: %v", err)
}
