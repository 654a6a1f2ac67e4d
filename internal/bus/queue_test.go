package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueOrder(t *testing.T) {
	q := NewQueue[int](8)
	for i := 1; i <= 5; i++ {
		require.NoError(t, q.TryPublish(i))
	}

	ctx, cancel := context.WithCancel(t.Context())
	var got []int
	q.Run(ctx, func(v int) {
		got = append(got, v)
		if v == 5 {
			cancel()
		}
	})
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestQueueFullAndClosed(t *testing.T) {
	q := NewQueue[int](1)
	require.NoError(t, q.TryPublish(1))
	assert.Equal(t, ErrQueueFull, q.TryPublish(2))

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, 2), context.DeadlineExceeded)

	q.Close()
	q.Close()
	assert.Equal(t, ErrQueueClosed, q.TryPublish(3))
	assert.Equal(t, ErrQueueClosed, q.Publish(t.Context(), 3))

	select {
	case <-q.Closed():
	default:
		t.Fatal("queue should report closed")
	}
}

func TestQueueRunStopsOnClose(t *testing.T) {
	q := NewQueue[string](4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(t.Context(), func(string) {})
	}()

	require.NoError(t, q.Publish(t.Context(), "a"))
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop after close")
	}
}
