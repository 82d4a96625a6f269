package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/TimeCyber/DeepManus/core/event"
	"github.com/TimeCyber/DeepManus/retry"
	"github.com/TimeCyber/DeepManus/workflow"
)

// SSEConfig locates a remote execution graph.
type SSEConfig struct {
	Endpoint string        `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Timeout  retry.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

const defaultSSETimeout = 30 * time.Minute

// Frame is one parsed server-sent event.
type Frame struct {
	Event string
	Data  string
}

// SSE streams raw events from a remote graph that answers a POSTed
// workflow.Request with text/event-stream frames whose data lines carry
// astream_events JSON. A frame named "error" ends the stream with its data
// as the error; a frame named "end" ends it normally.
type SSE struct {
	endpoint   string
	httpClient *http.Client
}

var _ workflow.Source = (*SSE)(nil)

func NewSSE(cfg SSEConfig) *SSE {
	timeout := time.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = defaultSSETimeout
	}
	return &SSE{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Open sends the request and returns the event sequence. The response body
// is closed when the sequence ends, so the sequence must be ranged over.
func (s *SSE) Open(ctx context.Context, req workflow.Request) (iter.Seq2[event.RawEvent, error], error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach graph: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("graph returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return func(yield func(event.RawEvent, error) bool) {
		defer resp.Body.Close()

		for frame, err := range Frames(resp.Body) {
			if err != nil {
				yield(event.RawEvent{}, err)
				return
			}

			switch frame.Event {
			case "end":
				return
			case "error":
				yield(event.RawEvent{}, errors.New(frame.Data))
				return
			}

			ev, err := event.Decode([]byte(frame.Data))
			if err != nil {
				yield(event.RawEvent{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}, nil
}

// field splits "name: value". One space after the colon is dropped and the
// rest of the value is kept verbatim. Comment lines have an empty name.
func field(line string) (name, value string) {
	name, value, _ = strings.Cut(line, ":")
	return name, strings.TrimPrefix(value, " ")
}

// Frames parses an SSE stream. Multiple data lines of one frame are joined
// with newlines; comment lines and frames whose data is empty are skipped.
func Frames(r io.Reader) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		var frame Frame
		var data []string
		dispatch := func() bool {
			frame.Data = strings.Join(data, "\n")
			if frame.Data == "" {
				frame, data = Frame{}, nil
				return true
			}
			ok := yield(frame, nil)
			frame, data = Frame{}, nil
			return ok
		}

		for scanner.Scan() {
			line := scanner.Text()

			if line == "" {
				if !dispatch() {
					return
				}
				continue
			}
			switch name, value := field(line); name {
			case "event":
				frame.Event = value
			case "data":
				data = append(data, value)
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Frame{}, fmt.Errorf("failed to read stream: %w", err))
			return
		}
		dispatch()
	}
}
