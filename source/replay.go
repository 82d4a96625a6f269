// Package source provides raw event sources for the workflow runner: a
// replay of recorded astream_events JSON lines and an SSE client for a
// remote execution graph.
package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/TimeCyber/DeepManus/core/event"
	"github.com/TimeCyber/DeepManus/workflow"
)

const maxLineSize = 1 << 20

// Replay decodes one raw event per non-blank line of r.
func Replay(r io.Reader) iter.Seq2[event.RawEvent, error] {
	return func(yield func(event.RawEvent, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		line := 0
		for scanner.Scan() {
			line++
			data := bytes.TrimSpace(scanner.Bytes())
			if len(data) == 0 {
				continue
			}

			ev, err := event.Decode(data)
			if err != nil {
				yield(event.RawEvent{}, fmt.Errorf("line %d: %w", line, err))
				return
			}
			if !yield(ev, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(event.RawEvent{}, fmt.Errorf("failed to read events: %w", err))
		}
	}
}

// ReplayFile is a workflow.Source that replays a recorded JSONL file for
// every request.
type ReplayFile string

var _ workflow.Source = ReplayFile("")

func (p ReplayFile) Open(ctx context.Context, _ workflow.Request) (iter.Seq2[event.RawEvent, error], error) {
	f, err := os.Open(string(p))
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}

	return func(yield func(event.RawEvent, error) bool) {
		defer f.Close()
		for ev, err := range Replay(f) {
			if err == nil {
				err = ctx.Err()
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}, nil
}
