package retry

import (
	"context"
	"errors"
	"time"
)

// Class is the retry classification of a failure.
type Class int

const (
	// Transient failures are retried up to the policy's attempt cap.
	Transient Class = iota
	// Fatal failures stop immediately.
	Fatal
)

func (c Class) String() string {
	if c == Fatal {
		return "fatal"
	}
	return "transient"
}

// TransientError marks a failure as retryable. A positive RetryAfter is a
// server-suggested wait that replaces the computed backoff; Cooldown is
// added on top of it instead.
type TransientError struct {
	Err        error
	RetryAfter time.Duration
	Cooldown   time.Duration
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError marks a failure that must not be retried, such as a validation
// failure or an unsupported input.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as a TransientError.
func Retryable(err error, retryAfter time.Duration) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err, RetryAfter: retryAfter}
}

// WithCooldown wraps err as a TransientError whose next wait is the
// computed backoff plus extra, e.g. after a refused connection.
func WithCooldown(err error, extra time.Duration) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err, Cooldown: extra}
}

// Permanent wraps err as a FatalError.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Classify decides whether err may be retried. Explicit markers win;
// context cancellation and deadlines are fatal; anything else is transient.
func Classify(err error) Class {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return Fatal
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return Transient
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal
	}

	return Transient
}

// RetryAfter returns the server-suggested wait carried by err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var transient *TransientError
	if errors.As(err, &transient) && transient.RetryAfter > 0 {
		return transient.RetryAfter, true
	}
	return 0, false
}

func cooldown(err error) time.Duration {
	var transient *TransientError
	if errors.As(err, &transient) && transient.Cooldown > 0 {
		return transient.Cooldown
	}
	return 0
}
