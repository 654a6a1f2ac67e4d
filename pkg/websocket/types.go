package websocket

import "time"

// MessageType represents a WebSocket message type.
// Values match RFC 6455 opcodes where applicable.
type MessageType uint8

const (
	// MessageText is a text data frame.
	MessageText MessageType = 1
	// MessageBinary is a binary data frame.
	MessageBinary MessageType = 2
	// MessageClose is a close control frame.
	MessageClose MessageType = 8
	// MessagePing is a ping control frame.
	MessagePing MessageType = 9
	// MessagePong is a pong control frame.
	MessagePong MessageType = 10
)

// CloseCode is a WebSocket close code.
type CloseCode uint16

const (
	// CloseNormal indicates a normal closure.
	CloseNormal CloseCode = 1000
	// CloseGoingAway indicates the endpoint is going away.
	CloseGoingAway CloseCode = 1001
	// CloseAbnormal is reported when the connection dropped without a close frame.
	CloseAbnormal CloseCode = 1006
)

// CloseEvent describes how a connection ended.
type CloseEvent struct {
	Code   CloseCode
	Reason string
	// Clean is true when the closing handshake completed.
	Clean bool
}

// OverflowPolicy defines queue behavior when full.
type OverflowPolicy uint8

const (
	// OverflowDropNewest drops the incoming item if the queue is full.
	OverflowDropNewest OverflowPolicy = iota
	// OverflowDropOldest drops the oldest item to make room.
	OverflowDropOldest
	// OverflowBlock blocks until space is available.
	OverflowBlock
)

// Backoff defines reconnect backoff behavior.
type Backoff struct {
	// Base is the delay before the first reconnect attempt.
	Base time.Duration
	// Multiplier scales the delay for each further attempt.
	Multiplier float64
	// MaxAttempts bounds the number of consecutive reconnect attempts.
	MaxAttempts int
	// Max caps a single delay. Zero keeps the growth uncapped.
	Max time.Duration
}
