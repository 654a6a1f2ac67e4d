package render

import (
	"fmt"
	"io"
	"sync"

	"chatclient/internal/chat"
	"chatclient/pkg/websocket"
)

var _ chat.RenderSink = (*Terminal)(nil)

// Terminal renders a session as plain text lines.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	enabled bool
}

// NewTerminal creates a terminal sink writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) RenderMessage(record chat.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "[%s] %s%s: %s\n", record.Clock, marker(record.Class), record.Username, record.Content)
}

// EvictMessage is a no-op; evicted lines stay in the terminal scrollback.
func (t *Terminal) EvictMessage(chat.Record) {}

func (t *Terminal) SetConnectionStatus(state websocket.State, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if label == t.label {
		return
	}
	t.label = label
	fmt.Fprintf(t.w, "-- %s (%s)\n", label, state.Indicator())
}

func (t *Terminal) SetInputEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// InputEnabled reports whether the input is currently accepted.
func (t *Terminal) InputEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func marker(class chat.Class) string {
	switch class {
	case chat.ClassOwn:
		return "* "
	case chat.ClassBot:
		return "$ "
	default:
		return ""
	}
}
