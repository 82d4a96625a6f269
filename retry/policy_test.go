package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimeCyber/DeepManus/retry"
)

var errConn = errors.New("connection refused")

func TestPolicy_BackoffBounds(t *testing.T) {
	base := 5 * time.Second
	jitter := 2 * time.Second

	for _, r := range []float64{0, 0.5, 0.999999} {
		p := retry.Policy{MaxAttempts: 4, BaseDelay: base, JitterMax: jitter}.WithRand(func() float64 { return r })

		for k := 1; k <= 4; k++ {
			t.Run(fmt.Sprintf("attempt %d rand %v", k, r), func(t *testing.T) {
				lo := base * time.Duration(1<<(k-1))
				got := p.Backoff(k)
				assert.GreaterOrEqual(t, got, lo)
				assert.LessOrEqual(t, got, lo+jitter)
			})
		}
	}
}

func TestPolicy_BackoffDefaultRand(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, JitterMax: time.Second}
	for range 100 {
		got := p.Backoff(2)
		require.GreaterOrEqual(t, got, 2*time.Second)
		require.LessOrEqual(t, got, 3*time.Second)
	}
}

func TestPolicy_BackoffAttemptFloor(t *testing.T) {
	p := retry.Policy{BaseDelay: time.Second}
	assert.Equal(t, time.Second, p.Backoff(0))
}

func TestPolicy_NextDelay(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, BaseDelay: time.Second}.WithRand(func() float64 { return 0 })

	tests := []struct {
		name      string
		attempt   int
		err       error
		wantDelay time.Duration
		wantRetry bool
	}{
		{name: "first transient", attempt: 1, err: errConn, wantDelay: time.Second, wantRetry: true},
		{name: "second transient", attempt: 2, err: retry.Retryable(errConn, 0), wantDelay: 2 * time.Second, wantRetry: true},
		{name: "exhausted", attempt: 3, err: errConn, wantRetry: false},
		{name: "fatal", attempt: 1, err: retry.Permanent(errors.New("unsupported format")), wantRetry: false},
		{name: "cancelled", attempt: 1, err: context.Canceled, wantRetry: false},
		{name: "retry after overrides", attempt: 2, err: retry.Retryable(errConn, 30*time.Second), wantDelay: 30 * time.Second, wantRetry: true},
		{name: "cooldown extends backoff", attempt: 2, err: retry.WithCooldown(errConn, 10*time.Second), wantDelay: 12 * time.Second, wantRetry: true},
		{name: "cooldown wrapped", attempt: 1, err: fmt.Errorf("fetch: %w", retry.WithCooldown(errConn, 10*time.Second)), wantDelay: 11 * time.Second, wantRetry: true},
		{name: "retry after still capped", attempt: 3, err: retry.Retryable(errConn, 30*time.Second), wantRetry: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, again := p.NextDelay(tt.attempt, tt.err)
			assert.Equal(t, tt.wantRetry, again)
			if tt.wantRetry {
				assert.Equal(t, tt.wantDelay, delay)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Class
	}{
		{name: "plain error", err: errConn, want: retry.Transient},
		{name: "transient", err: retry.Retryable(errConn, 0), want: retry.Transient},
		{name: "wrapped fatal", err: fmt.Errorf("fetch: %w", retry.Permanent(errConn)), want: retry.Fatal},
		{name: "deadline", err: context.DeadlineExceeded, want: retry.Fatal},
		{name: "fatal wins over transient", err: retry.Retryable(retry.Permanent(errConn), 0), want: retry.Fatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retry.Classify(tt.err))
		})
	}
}

func TestErrorWrappers(t *testing.T) {
	assert.NoError(t, retry.Retryable(nil, time.Second))
	assert.NoError(t, retry.Permanent(nil))

	err := retry.Retryable(errConn, time.Second)
	assert.ErrorIs(t, err, errConn)
	wait, ok := retry.RetryAfter(err)
	assert.True(t, ok)
	assert.Equal(t, time.Second, wait)

	_, ok = retry.RetryAfter(errConn)
	assert.False(t, ok)
}
