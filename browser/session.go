package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Message types exchanged with the automation server.
const (
	TypeLaunch   = "launch"
	TypeReady    = "ready"
	TypeTask     = "task"
	TypeProgress = "progress"
	TypeResult   = "result"
	TypeError    = "error"
	TypeClose    = "close"
)

// Viewport is the page size requested at launch.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Message is the JSON frame of the automation protocol. Fields are set
// according to Type.
type Message struct {
	Type        string       `json:"type"`
	Headless    *bool        `json:"headless,omitempty"`
	ChromePath  string       `json:"chrome_path,omitempty"`
	Proxy       *ProxyConfig `json:"proxy,omitempty"`
	Viewport    *Viewport    `json:"viewport,omitempty"`
	UserAgent   string       `json:"user_agent,omitempty"`
	Instruction string       `json:"instruction,omitempty"`
	GifPath     string       `json:"gif_path,omitempty"`
	Result      string       `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// RemoteError is an error reported by the automation server.
type RemoteError struct {
	Stage   string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("browser %s: %s", e.Stage, e.Message)
}

const closeWait = 2 * time.Second

// Session is one launched browser. Run calls are serialized; Close may be
// called concurrently with Run and unblocks it.
type Session struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed atomic.Bool
	broken atomic.Bool
}

func newSession(conn *websocket.Conn) *Session {
	return &Session{conn: conn}
}

// Run performs one natural-language task and returns the server's final
// result. Cancelling ctx aborts the wait and returns ctx.Err().
func (s *Session) Run(ctx context.Context, instruction, gifPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return "", errors.New("browser session closed")
	}
	if s.broken.Load() {
		return "", errors.New("browser session unusable after an interrupted read")
	}

	if err := s.write(ctx, Message{Type: TypeTask, Instruction: instruction, GifPath: gifPath}); err != nil {
		return "", err
	}

	for {
		msg, err := s.read(ctx)
		if err != nil {
			return "", err
		}
		switch msg.Type {
		case TypeResult:
			return msg.Result, nil
		case TypeError:
			return "", &RemoteError{Stage: "task", Message: msg.Error}
		}
	}
}

func (s *Session) write(ctx context.Context, msg Message) error {
	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetWriteDeadline(deadline)
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		if cerr := contextCause(ctx, err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}
	return nil
}

// read waits for the next frame. A done ctx moves the read deadline into
// the past so the blocked read returns.
func (s *Session) read(ctx context.Context) (Message, error) {
	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now())
	})
	defer func() {
		stop()
		s.conn.SetReadDeadline(time.Time{})
	}()

	var msg Message
	if err := s.conn.ReadJSON(&msg); err != nil {
		s.broken.Store(true)
		if cerr := contextCause(ctx, err); cerr != nil {
			return Message{}, cerr
		}
		return Message{}, fmt.Errorf("failed to read from browser: %w", err)
	}
	return msg, nil
}

// contextCause reports the ctx error behind a failed connection call. The
// connection deadline mirrors the ctx deadline and can expire before the ctx
// timer fires, so a timeout past the deadline counts as DeadlineExceeded.
func contextCause(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	deadline, ok := ctx.Deadline()
	if !ok || time.Now().Before(deadline) {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return context.DeadlineExceeded
	}
	return nil
}

// Close asks the server to shut the browser down and closes the
// connection. Only the first call has an effect.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	// The close request is skipped while a task still owns the writer.
	if s.mu.TryLock() {
		s.conn.SetWriteDeadline(time.Now().Add(closeWait))
		s.conn.WriteJSON(Message{Type: TypeClose})
		s.mu.Unlock()
	}
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWait))
	return s.conn.Close()
}
