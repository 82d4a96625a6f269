package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimeCyber/DeepManus/retry"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newThrottle(clock *fakeClock) *retry.Throttle {
	return retry.NewThrottle(2*time.Second, 500*time.Millisecond, 1500*time.Millisecond).
		WithClock(clock.Now, clock.Sleep).
		WithRand(func() float64 { return 0.5 })
}

func TestThrottle_FirstCallDoesNotWait(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	th := newThrottle(clock)

	waited, err := th.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
	assert.Empty(t, clock.sleeps)
}

func TestThrottle_WaitsRemainderPlusJitter(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	th := newThrottle(clock)

	_, err := th.Wait(context.Background())
	require.NoError(t, err)

	clock.now = clock.now.Add(500 * time.Millisecond)
	waited, err := th.Wait(context.Background())
	require.NoError(t, err)

	// 2s - 0.5s elapsed + (0.5s + 0.5*1s) jitter
	assert.Equal(t, 2500*time.Millisecond, waited)
}

func TestThrottle_NoWaitAfterInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	th := newThrottle(clock)

	_, err := th.Wait(context.Background())
	require.NoError(t, err)

	clock.now = clock.now.Add(3 * time.Second)
	waited, err := th.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
}

func TestThrottle_RecordsTimeAfterWait(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	th := newThrottle(clock)

	_, _ = th.Wait(context.Background())
	_, _ = th.Wait(context.Background())

	// The second call slept 3s (2s + 1s jitter) and recorded its own time,
	// so a call 1s later still owes 1s plus jitter.
	clock.now = clock.now.Add(time.Second)
	waited, err := th.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, waited)
}

func TestThrottle_Cancelled(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	th := newThrottle(clock)
	_, _ = th.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := th.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, retry.Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, retry.Sleep(context.Background(), 0))
}
