// Package retry implements the backoff policy shared by resource acquisition
// and network fetches: exponential delays with uniform jitter, transient vs
// fatal classification, server-suggested waits, and a minimum interval
// between calls.
package retry

import (
	"math/rand/v2"
	"time"
)

// Policy holds the retry parameters. It keeps no state of its own; the
// minimum call interval is tracked by Throttle.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	JitterMax   time.Duration

	// rand returns a value in [0, 1). Nil uses math/rand/v2.
	rand func() float64
}

// WithRand returns a copy of p drawing jitter from fn.
func (p Policy) WithRand(fn func() float64) Policy {
	p.rand = fn
	return p
}

func (p Policy) uniform(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	r := p.rand
	if r == nil {
		r = rand.Float64
	}
	return time.Duration(r() * float64(max))
}

// Backoff returns BaseDelay * 2^(attempt-1) plus uniform jitter in
// [0, JitterMax]. Attempts below 1 count as 1.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	return p.BaseDelay*time.Duration(1<<shift) + p.uniform(p.JitterMax)
}

// NextDelay decides what follows the failed attempt'th call. It returns
// false ("stop") for fatal errors and once MaxAttempts calls have failed.
// A server-suggested wait on err replaces the computed backoff; a cooldown
// extends it.
func (p Policy) NextDelay(attempt int, err error) (time.Duration, bool) {
	if Classify(err) == Fatal {
		return 0, false
	}
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	if wait, ok := RetryAfter(err); ok {
		return wait, true
	}
	return p.Backoff(attempt) + cooldown(err), true
}
