package chat

import "chatclient/pkg/websocket"

// RenderSink displays the session. Calls arrive in order and must not block
// or call back into the session.
type RenderSink interface {
	// RenderMessage appends a record to the display.
	RenderMessage(record Record)
	// EvictMessage removes the oldest displayed record, which is record.
	EvictMessage(record Record)
	SetConnectionStatus(state websocket.State, label string)
	SetInputEnabled(enabled bool)
}

// Sender delivers serialized outgoing frames.
type Sender interface {
	Send(payload []byte) error
}
