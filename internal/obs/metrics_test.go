package obs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.ObserveState(1)
	m.ObserveState(1)
	m.ObserveState(3)
	m.ObserveState(200)
	m.IncReconnectAttempt()
	m.IncTransportError()
	m.IncSent()
	m.IncSent()
	m.IncSendRejected()
	m.IncReceived()
	m.IncDropped()
	m.IncEvicted()
	m.ObserveDial(10 * time.Millisecond)
	m.ObserveDial(30 * time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, map[uint8]uint64{1: 2, 3: 1}, s.StateCounts)
	assert.Equal(t, uint64(1), s.ReconnectAttempts)
	assert.Equal(t, uint64(1), s.TransportErrors)
	assert.Equal(t, uint64(2), s.MessagesSent)
	assert.Equal(t, uint64(1), s.SendRejected)
	assert.Equal(t, uint64(1), s.MessagesReceived)
	assert.Equal(t, uint64(1), s.MessagesDropped)
	assert.Equal(t, uint64(1), s.MessagesEvicted)
	assert.Equal(t, LatencySnapshot{
		Count: 2,
		Min:   10 * time.Millisecond,
		Max:   30 * time.Millisecond,
		Avg:   20 * time.Millisecond,
	}, s.DialLatency)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveState(1)
	m.IncSent()
	m.ObserveDial(time.Second)
	assert.Equal(t, Snapshot{}, m.Snapshot())
}
