package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimeCyber/DeepManus/workflow"
)

func TestChannel_SendReceive(t *testing.T) {
	ch := workflow.NewChannel[int](context.Background(), 2)

	require.NoError(t, ch.Send(context.Background(), 1))
	require.NoError(t, ch.Send(context.Background(), 2))

	for _, want := range []int{1, 2} {
		v, err := ch.Receive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestChannel_SendBlocksWhenFull(t *testing.T) {
	ch := workflow.NewChannel[int](context.Background(), 1)
	require.NoError(t, ch.Send(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ch.Send(ctx, 2), context.DeadlineExceeded)
}

func TestChannel_CloseDrainsFirst(t *testing.T) {
	ch := workflow.NewChannel[string](context.Background(), 1)
	require.NoError(t, ch.Send(context.Background(), "last"))

	ch.Close()
	assert.NotPanics(t, ch.Close)

	v, err := ch.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "last", v)

	_, err = ch.Receive(context.Background())
	assert.ErrorIs(t, err, workflow.ErrChannelClosed)
}

func TestChannel_SendStopsWithOwnerContext(t *testing.T) {
	owner, cancel := context.WithCancel(context.Background())
	ch := workflow.NewChannel[int](owner, 0)

	cancel()
	err := ch.Send(context.Background(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChannel_ReceiveHonoursCallerContext(t *testing.T) {
	ch := workflow.NewChannel[int](context.Background(), 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := ch.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
