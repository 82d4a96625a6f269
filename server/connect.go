package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/TimeCyber/DeepManus/core/protocol"
	"github.com/TimeCyber/DeepManus/workflow"
)

// StreamProcedure is the connect procedure that streams one workflow run.
// Requests carry the chat request fields; each response is {event, data}.
const StreamProcedure = "/deepmanus.v1.WorkflowService/Stream"

func (s *Server) connectHandler() (string, http.Handler) {
	return StreamProcedure, connect.NewServerStreamHandler(StreamProcedure, s.streamRun)
}

func (s *Server) streamRun(ctx context.Context, req *connect.Request[structpb.Struct], out *connect.ServerStream[structpb.Struct]) error {
	var wreq workflow.Request
	if err := fromStruct(req.Msg, &wreq); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	stream, err := s.runner.Run(ctx, wreq)
	if errors.Is(err, workflow.ErrEmptyMessages) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	defer func() { <-stream.Done() }()

	for {
		ev, ok := stream.Next(ctx)
		if !ok {
			break
		}
		msg, err := toStruct(ev)
		if err != nil {
			stream.Cancel()
			return connect.NewError(connect.CodeInternal, err)
		}
		if err := out.Send(msg); err != nil {
			stream.Cancel()
			return err
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	<-stream.Done()
	return stream.Err()
}

// toStruct normalizes the event through JSON so structpb sees only maps,
// slices and scalars.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func fromStruct(msg *structpb.Struct, v any) error {
	data, err := json.Marshal(msg.AsMap())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// StreamClient calls the streaming procedure of a remote server.
type StreamClient struct {
	client *connect.Client[structpb.Struct, structpb.Struct]
}

func NewStreamClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *StreamClient {
	return &StreamClient{
		client: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+StreamProcedure, opts...),
	}
}

// Stream starts a remote run and yields its events. The sequence ends with
// a non-nil error if the call fails or the server ends it with one.
func (c *StreamClient) Stream(ctx context.Context, req workflow.Request) iter.Seq2[protocol.Event, error] {
	return func(yield func(protocol.Event, error) bool) {
		msg, err := toStruct(req)
		if err != nil {
			yield(protocol.Event{}, err)
			return
		}

		stream, err := c.client.CallServerStream(ctx, connect.NewRequest(msg))
		if err != nil {
			yield(protocol.Event{}, err)
			return
		}
		defer stream.Close()

		for stream.Receive() {
			data, err := json.Marshal(stream.Msg().AsMap())
			if err != nil {
				yield(protocol.Event{}, err)
				return
			}
			var ev protocol.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				yield(protocol.Event{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(protocol.Event{}, err)
		}
	}
}
