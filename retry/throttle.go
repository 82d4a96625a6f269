package retry

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Throttle enforces a minimum interval between calls. When a call comes
// sooner than MinInterval after the previous one, Wait sleeps for the
// remainder plus a random jitter in [JitterMin, JitterMax].
type Throttle struct {
	minInterval time.Duration
	jitterMin   time.Duration
	jitterMax   time.Duration

	mu   sync.Mutex
	last time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
	rand  func() float64
}

// NewThrottle creates a Throttle. A zero minInterval never waits.
func NewThrottle(minInterval, jitterMin, jitterMax time.Duration) *Throttle {
	return &Throttle{
		minInterval: minInterval,
		jitterMin:   jitterMin,
		jitterMax:   jitterMax,
		now:         time.Now,
		sleep:       Sleep,
		rand:        rand.Float64,
	}
}

// WithClock replaces the time source and sleep function.
func (t *Throttle) WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) *Throttle {
	t.now = now
	t.sleep = sleep
	return t
}

// WithRand replaces the jitter source; fn returns a value in [0, 1).
func (t *Throttle) WithRand(fn func() float64) *Throttle {
	t.rand = fn
	return t
}

// Wait blocks until the call may proceed, records the call time and
// returns how long it slept. Concurrent callers are serialized so each
// observes the previous call.
func (t *Throttle) Wait(ctx context.Context) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var waited time.Duration
	if !t.last.IsZero() {
		elapsed := t.now().Sub(t.last)
		if elapsed < t.minInterval {
			waited = t.minInterval - elapsed + t.jitter()
			if err := t.sleep(ctx, waited); err != nil {
				return 0, err
			}
		}
	}

	t.last = t.now()
	return waited, nil
}

func (t *Throttle) jitter() time.Duration {
	span := t.jitterMax - t.jitterMin
	if span <= 0 {
		return t.jitterMin
	}
	return t.jitterMin + time.Duration(t.rand()*float64(span))
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
