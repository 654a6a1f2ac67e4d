package websocket

// State is the connection lifecycle state.
type State uint8

const (
	// StateIdle is the state before the first connect.
	StateIdle State = iota
	// StateConnecting means a dial is in flight.
	StateConnecting
	// StateConnected means the connection is open and sends are accepted.
	StateConnected
	// StateReconnecting means a reconnect is scheduled after a backoff delay.
	StateReconnecting
	// StateDisconnected is reported for transport errors and is terminal after a clean close.
	StateDisconnected
	// StateFailed is terminal: reconnect attempts are exhausted.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Indicator returns the status indicator class for the state.
func (s State) Indicator() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateConnecting, StateReconnecting:
		return "connecting"
	default:
		return "disconnected"
	}
}
