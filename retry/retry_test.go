package retry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimeCyber/DeepManus/observability"
	"github.com/TimeCyber/DeepManus/retry"
)

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *captureObserver) OnEvent(_ context.Context, e observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureObserver) types() []observability.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]observability.EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, JitterMax: time.Second}.WithRand(func() float64 { return 0 })
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	sleeps := &recordedSleeps{}
	calls := 0

	attempts, err := retry.Do(context.Background(), testPolicy(), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errConn
		}
		return nil
	}, retry.WithSleep(sleeps.sleep))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.delays)
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	sleeps := &recordedSleeps{}
	obs := &captureObserver{}
	last := errors.New("attempt 3 failed")

	attempts, err := retry.Do(context.Background(), testPolicy(), func(_ context.Context, attempt int) error {
		if attempt == 3 {
			return last
		}
		return errConn
	}, retry.WithSleep(sleeps.sleep), retry.WithObserver(obs, "test"))

	assert.Equal(t, 3, attempts)
	assert.Same(t, last, err)
	assert.Len(t, sleeps.delays, 2)
	assert.Equal(t, []observability.EventType{
		retry.EventAttemptFailed,
		retry.EventAttemptFailed,
		retry.EventExhausted,
	}, obs.types())
}

func TestDo_FatalStopsImmediately(t *testing.T) {
	sleeps := &recordedSleeps{}
	fatal := retry.Permanent(errors.New("unsupported return format: text"))

	attempts, err := retry.Do(context.Background(), testPolicy(), func(context.Context, int) error {
		return fatal
	}, retry.WithSleep(sleeps.sleep))

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, fatal)
	assert.Empty(t, sleeps.delays)
}

func TestDo_OnRetryHook(t *testing.T) {
	var hooked []int

	_, err := retry.Do(context.Background(), testPolicy(), func(context.Context, int) error {
		return errConn
	},
		retry.WithSleep(func(context.Context, time.Duration) error { return nil }),
		retry.WithOnRetry(func(attempt int, err error, _ time.Duration) {
			hooked = append(hooked, attempt)
		}),
	)

	assert.ErrorIs(t, err, errConn)
	assert.Equal(t, []int{1, 2}, hooked)
}

func TestDo_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := retry.Do(ctx, testPolicy(), func(context.Context, int) error {
		calls++
		cancel()
		return errConn
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ThrottlesEveryAttempt(t *testing.T) {
	clock := time.Unix(1000, 0)
	var throttleSleeps []time.Duration

	throttle := retry.NewThrottle(2*time.Second, 500*time.Millisecond, 500*time.Millisecond).WithClock(
		func() time.Time { return clock },
		func(_ context.Context, d time.Duration) error {
			throttleSleeps = append(throttleSleeps, d)
			clock = clock.Add(d)
			return nil
		},
	)

	_, err := retry.Do(context.Background(), testPolicy(), func(context.Context, int) error {
		return errConn
	},
		retry.WithThrottle(throttle),
		retry.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)

	assert.ErrorIs(t, err, errConn)
	// Backoff sleeps are faked without advancing the clock, so attempts 2 and 3
	// arrive immediately after their predecessor.
	assert.Equal(t, []time.Duration{2500 * time.Millisecond, 2500 * time.Millisecond}, throttleSleeps)
}
