package retry

import (
	"context"
	"time"

	"github.com/TimeCyber/DeepManus/observability"
)

const (
	EventAttemptFailed observability.EventType = "retry.attempt.failed"
	EventExhausted     observability.EventType = "retry.exhausted"
	EventThrottled     observability.EventType = "retry.throttled"
)

// Option customizes a single Do call.
type Option func(*runner)

type runner struct {
	throttle *Throttle
	observer observability.Observer
	source   string
	onRetry  func(attempt int, err error, delay time.Duration)
	sleep    func(context.Context, time.Duration) error
}

// WithThrottle waits on t before every attempt, including the first.
func WithThrottle(t *Throttle) Option {
	return func(r *runner) { r.throttle = t }
}

// WithObserver reports failed attempts and exhaustion. source names the
// caller in emitted events.
func WithObserver(obs observability.Observer, source string) Option {
	return func(r *runner) {
		r.observer = observability.OrNoOp(obs)
		r.source = source
	}
}

// WithOnRetry runs fn after a failed attempt that will be retried, before
// the backoff wait.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(r *runner) { r.onRetry = fn }
}

// WithSleep replaces the backoff wait, typically in tests.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(r *runner) { r.sleep = fn }
}

// Do calls fn until it succeeds, the policy says stop, or ctx is done.
// It returns the number of attempts made and, on failure, the last error
// fn returned. Context errors during a wait are returned as is.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error, opts ...Option) (int, error) {
	r := runner{
		observer: observability.NoOpObserver{},
		source:   "retry.Do",
		sleep:    Sleep,
	}
	for _, opt := range opts {
		opt(&r)
	}

	for attempt := 1; ; attempt++ {
		if r.throttle != nil {
			waited, err := r.throttle.Wait(ctx)
			if err != nil {
				return attempt - 1, err
			}
			if waited > 0 {
				r.observer.OnEvent(ctx, observability.NewEvent(EventThrottled, observability.LevelVerbose, r.source, map[string]any{
					"attempt": attempt,
					"delay":   waited,
				}))
			}
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}

		delay, again := p.NextDelay(attempt, err)
		if !again {
			if Classify(err) == Transient {
				r.observer.OnEvent(ctx, observability.NewEvent(EventExhausted, observability.LevelError, r.source, map[string]any{
					"attempts": attempt,
					"error":    err,
				}))
			}
			return attempt, err
		}

		r.observer.OnEvent(ctx, observability.NewEvent(EventAttemptFailed, observability.LevelWarning, r.source, map[string]any{
			"attempt":      attempt,
			"max_attempts": p.MaxAttempts,
			"delay":        delay,
			"error":        err,
		}))

		if r.onRetry != nil {
			r.onRetry(attempt, err, delay)
		}

		if err := r.sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}
}
