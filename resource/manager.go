// Package resource owns the externally managed automation resource of a
// single workflow run. A Manager acquires it with retries, hands it to
// callers and releases it exactly once however the run ends.
package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TimeCyber/DeepManus/observability"
	"github.com/TimeCyber/DeepManus/retry"
)

// Handle is the opaque value a Provider creates.
type Handle any

// Provider creates and tears down the underlying resource. Create may
// return a non-nil handle together with an error when it fails halfway;
// the manager closes such partial handles before retrying.
type Provider interface {
	Create(ctx context.Context) (Handle, error)
	Close(ctx context.Context, h Handle) error
}

// State is the lifecycle position of the managed resource.
type State int

const (
	StateAbsent State = iota
	StateAcquiring
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateAcquiring:
		return "acquiring"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultPolicy waits 2^n seconds plus up to one second between creation
// attempts, three attempts in total.
func DefaultPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		JitterMax:   time.Second,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithPolicy replaces the acquisition retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithObserver sets the observer for lifecycle events.
func WithObserver(o observability.Observer) Option {
	return func(m *Manager) { m.observer = observability.OrNoOp(o) }
}

// WithLogger sets the logger used for teardown failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRetryOptions passes extra options to every acquisition retry loop.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(m *Manager) { m.retryOpts = append(m.retryOpts, opts...) }
}

// Manager owns one resource for one workflow run. It is safe for use by
// several goroutines of that run; it must not be shared across runs.
type Manager struct {
	provider  Provider
	policy    retry.Policy
	observer  observability.Observer
	logger    *slog.Logger
	retryOpts []retry.Option

	mu     sync.Mutex
	state  State
	handle Handle
	closes int
}

// NewManager creates a Manager in the absent state.
func NewManager(provider Provider, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		policy:   DefaultPolicy(),
		observer: observability.NoOpObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Closes reports how many real teardowns ran. It is at most one.
func (m *Manager) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Acquire returns the ready resource, creating it first if needed.
// Creation is retried under the manager's policy; failed attempts have
// their partial handles closed. After exhaustion Acquire returns an
// *AcquisitionError and the manager stays absent. Acquire after Release
// returns ErrClosed.
func (m *Manager) Acquire(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateReady:
		return m.handle, nil
	case StateClosed:
		return nil, ErrClosed
	}

	m.state = StateAcquiring
	m.emit(ctx, EventAcquireStart, observability.LevelVerbose, nil)

	var handle Handle
	opts := append([]retry.Option{
		retry.WithObserver(m.observer, "resource.Manager"),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			m.emit(ctx, EventAcquireRetry, observability.LevelWarning, map[string]any{
				"attempt": attempt,
				"delay":   delay,
				"error":   err,
			})
		}),
	}, m.retryOpts...)

	attempts, err := retry.Do(ctx, m.policy, func(ctx context.Context, attempt int) error {
		h, err := m.provider.Create(ctx)
		if err != nil {
			if h != nil {
				m.closePartial(ctx, h, attempt)
			}
			return err
		}
		handle = h
		return nil
	}, opts...)

	if err != nil {
		m.state = StateAbsent
		m.emit(ctx, EventAcquireFailed, observability.LevelError, map[string]any{
			"attempts": attempts,
			"error":    err,
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &AcquisitionError{Attempts: attempts, Err: err}
	}

	m.state = StateReady
	m.handle = handle
	m.emit(ctx, EventAcquireSuccess, observability.LevelInfo, map[string]any{
		"attempts": attempts,
	})
	return handle, nil
}

// closePartial tears down a half-created handle. Failures are logged only.
func (m *Manager) closePartial(ctx context.Context, h Handle, attempt int) {
	if err := m.provider.Close(context.WithoutCancel(ctx), h); err != nil {
		m.logger.WarnContext(ctx, "close partial resource", "attempt", attempt, "error", err)
	}
}

// Release tears the resource down once. Later calls, and calls before any
// acquisition, do nothing beyond marking the manager closed. Teardown
// errors are logged and observed, never returned, and teardown ignores
// cancellation of ctx so it completes on the cancellation path too.
func (m *Manager) Release(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateClosed {
		return
	}

	wasReady := m.state == StateReady
	handle := m.handle
	m.state = StateClosed
	m.handle = nil

	if !wasReady {
		return
	}

	m.closes++
	start := time.Now()
	err := m.provider.Close(context.WithoutCancel(ctx), handle)
	if err != nil {
		m.logger.ErrorContext(ctx, "release resource", "error", err)
		m.emit(ctx, EventReleaseError, observability.LevelError, map[string]any{
			"error": err,
		})
		return
	}

	m.emit(ctx, EventRelease, observability.LevelInfo, map[string]any{
		"duration": time.Since(start),
	})
}

// Use acquires the resource, runs body with it and releases it on every
// exit path: normal return, error, panic, and cancellation of ctx. When ctx
// is cancelled while body is still running, Use releases and returns
// ctx.Err() without waiting for body to notice.
func (m *Manager) Use(ctx context.Context, body func(ctx context.Context, h Handle) error) error {
	defer m.Release(ctx)

	h, err := m.Acquire(ctx)
	if err != nil {
		return err
	}

	type outcome struct {
		err   error
		panic any
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{panic: r}
			}
		}()
		done <- outcome{err: body(ctx, h)}
	}()

	select {
	case out := <-done:
		if out.panic != nil {
			panic(out.panic)
		}
		return out.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["state"] = m.state.String()
	m.observer.OnEvent(ctx, observability.NewEvent(t, level, "resource.Manager", data))
}
