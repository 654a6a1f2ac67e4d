package websocket

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrNotConnected is returned when sending while the manager is not connected.
	ErrNotConnected = errors.New("websocket: not connected")
	// ErrQueueFull is returned when the outbound queue cannot accept more frames.
	ErrQueueFull = errors.New("websocket: outbound queue full")
)

// OutboundFrame represents a queued write payload.
type OutboundFrame struct {
	// MsgType is the WebSocket message type for the payload.
	MsgType MessageType
	// Buf is the payload to send.
	Buf []byte
}

// Writer provides a bounded outbound queue that only accepts frames while connected.
type Writer struct {
	queue     chan OutboundFrame
	policy    OverflowPolicy
	connected atomic.Bool
}

// NewWriter creates a Writer with a bounded queue.
func NewWriter(capacity int, policy OverflowPolicy) *Writer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Writer{
		queue:  make(chan OutboundFrame, capacity),
		policy: policy,
	}
}

// SetConnected toggles the writer connection state.
func (w *Writer) SetConnected(connected bool) {
	w.connected.Store(connected)
}

// Connected reports whether frames are accepted.
func (w *Writer) Connected() bool {
	return w.connected.Load()
}

// Enqueue queues a frame for writing according to the overflow policy.
func (w *Writer) Enqueue(frame OutboundFrame) bool {
	if !w.connected.Load() {
		return false
	}
	switch w.policy {
	case OverflowBlock:
		w.queue <- frame
		return true
	case OverflowDropOldest:
		for {
			select {
			case w.queue <- frame:
				return true
			default:
				select {
				case <-w.queue:
				default:
					return false
				}
			}
		}
	default:
		select {
		case w.queue <- frame:
			return true
		default:
			return false
		}
	}
}

// Send copies payload and enqueues it.
func (w *Writer) Send(msgType MessageType, payload []byte) bool {
	if !w.connected.Load() {
		return false
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return w.Enqueue(OutboundFrame{MsgType: msgType, Buf: buf})
}

// Drain clears the queue.
func (w *Writer) Drain() {
	for {
		select {
		case <-w.queue:
		default:
			return
		}
	}
}
