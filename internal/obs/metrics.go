package obs

import (
	"sync/atomic"
	"time"
)

// maxStates bounds the state index space; connection states are small enums.
const maxStates = 16

// Metrics collects lightweight counters and latency stats for a chat client.
type Metrics struct {
	stateCounts       [maxStates]uint64
	reconnectAttempts uint64
	transportErrors   uint64
	messagesSent      uint64
	sendRejected      uint64
	messagesReceived  uint64
	messagesDropped   uint64
	messagesEvicted   uint64

	dialLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	// StateCounts counts transitions into each state, keyed by state value.
	StateCounts       map[uint8]uint64
	ReconnectAttempts uint64
	TransportErrors   uint64
	MessagesSent      uint64
	SendRejected      uint64
	MessagesReceived  uint64
	MessagesDropped   uint64
	MessagesEvicted   uint64
	DialLatency       LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveState records a transition into state.
func (m *Metrics) ObserveState(state uint8) {
	if m == nil {
		return
	}
	if int(state) < len(m.stateCounts) {
		atomic.AddUint64(&m.stateCounts[state], 1)
	}
}

// IncReconnectAttempt records a scheduled reconnect.
func (m *Metrics) IncReconnectAttempt() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.reconnectAttempts, 1)
}

// IncTransportError records a dial, read or write failure.
func (m *Metrics) IncTransportError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.transportErrors, 1)
}

// IncSent records an accepted outgoing message.
func (m *Metrics) IncSent() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.messagesSent, 1)
}

// IncSendRejected records an outgoing message that was not accepted.
func (m *Metrics) IncSendRejected() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.sendRejected, 1)
}

// IncReceived records a decoded inbound message.
func (m *Metrics) IncReceived() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.messagesReceived, 1)
}

// IncDropped records a malformed inbound payload.
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.messagesDropped, 1)
}

// IncEvicted records a record evicted from the message log.
func (m *Metrics) IncEvicted() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.messagesEvicted, 1)
}

// ObserveDial measures how long a successful dial took.
func (m *Metrics) ObserveDial(d time.Duration) {
	if m == nil {
		return
	}
	m.dialLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	stateCounts := make(map[uint8]uint64)
	for i := range m.stateCounts {
		if v := atomic.LoadUint64(&m.stateCounts[i]); v > 0 {
			stateCounts[uint8(i)] = v
		}
	}
	return Snapshot{
		StateCounts:       stateCounts,
		ReconnectAttempts: atomic.LoadUint64(&m.reconnectAttempts),
		TransportErrors:   atomic.LoadUint64(&m.transportErrors),
		MessagesSent:      atomic.LoadUint64(&m.messagesSent),
		SendRejected:      atomic.LoadUint64(&m.sendRejected),
		MessagesReceived:  atomic.LoadUint64(&m.messagesReceived),
		MessagesDropped:   atomic.LoadUint64(&m.messagesDropped),
		MessagesEvicted:   atomic.LoadUint64(&m.messagesEvicted),
		DialLatency:       m.dialLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
