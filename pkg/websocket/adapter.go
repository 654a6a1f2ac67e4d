package websocket

import "context"

// Conn is a minimal interface for a WebSocket connection.
type Conn interface {
	// Read blocks until the next data frame arrives. When the connection ends
	// the returned error can be turned into a CloseEvent with CloseEventFromError.
	Read(ctx context.Context) (MessageType, []byte, error)
	Write(ctx context.Context, msgType MessageType, payload []byte) error
	Close(code CloseCode, reason string) error
}

// Dialer creates new connections to an endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// Observer receives the manager's events. Calls are serialized on the
// manager's event loop; implementations must not block.
type Observer interface {
	OnStateChange(state State, label string)
	OnMessage(payload []byte)
	OnError(err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	StateChange func(state State, label string)
	Message     func(payload []byte)
	Error       func(err error)
}

func (o ObserverFuncs) OnStateChange(state State, label string) {
	if o.StateChange != nil {
		o.StateChange(state, label)
	}
}

func (o ObserverFuncs) OnMessage(payload []byte) {
	if o.Message != nil {
		o.Message(payload)
	}
}

func (o ObserverFuncs) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}
