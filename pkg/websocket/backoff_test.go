package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	b := DefaultBackoff()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, w := range want {
		assert.Equalf(t, w, b.Delay(i+1), "attempt %d", i+1)
	}
	assert.Equal(t, b.Base, b.Delay(0))
}

func TestBackoffDelayCustom(t *testing.T) {
	b := Backoff{Base: 250 * time.Millisecond, Multiplier: 1.5, MaxAttempts: 3}
	assert.Equal(t, 250*time.Millisecond, b.Delay(1))
	assert.Equal(t, 375*time.Millisecond, b.Delay(2))
	assert.Equal(t, 562500*time.Microsecond, b.Delay(3))

	flat := Backoff{Base: time.Second, Multiplier: 1, MaxAttempts: 3}
	assert.Equal(t, time.Second, flat.Delay(3))
}

func TestBackoffDelayMax(t *testing.T) {
	b := Backoff{Base: time.Second, Multiplier: 2, MaxAttempts: 10, Max: 5 * time.Second}
	assert.Equal(t, 4*time.Second, b.Delay(3))
	assert.Equal(t, 5*time.Second, b.Delay(4))
	assert.Equal(t, 5*time.Second, b.Delay(10))
}

func TestBackoffValidate(t *testing.T) {
	require.NoError(t, DefaultBackoff().Validate())
	require.NoError(t, Backoff{Base: time.Millisecond, Multiplier: 1}.Validate())

	bad := []Backoff{
		{Base: 0, Multiplier: 2, MaxAttempts: 1},
		{Base: time.Second, Multiplier: 0.5, MaxAttempts: 1},
		{Base: time.Second, Multiplier: 2, MaxAttempts: -1},
		{Base: time.Second, Multiplier: 2, MaxAttempts: 1, Max: -time.Second},
	}
	for _, b := range bad {
		assert.ErrorIsf(t, b.Validate(), ErrBadConfig, "%+v", b)
	}
}

func TestReconnectLabel(t *testing.T) {
	assert.Equal(t, "Reconnecting in 1s...", ReconnectLabel(time.Second))
	assert.Equal(t, "Reconnecting in 2s...", ReconnectLabel(1500*time.Millisecond))
	assert.Equal(t, "Reconnecting in 16s...", ReconnectLabel(16*time.Second))
	assert.Equal(t, "Reconnecting in 1s...", ReconnectLabel(100*time.Millisecond))
}
