package render

import (
	"fmt"
	"io"
	"sync"

	"chatclient/internal/chat"
	"chatclient/pkg/websocket"

	"github.com/microcosm-cc/bluemonday"
)

var _ chat.RenderSink = (*HTML)(nil)

// HTML mirrors the chat widget's message container as sanitised markup.
type HTML struct {
	mu        sync.Mutex
	w         io.Writer
	policy    *bluemonday.Policy
	fragments []string
	indicator string
	status    string
	enabled   bool
}

// NewHTML creates an HTML sink. Each rendered fragment is also written to w
// when w is not nil.
func NewHTML(w io.Writer) *HTML {
	return &HTML{
		w:         w,
		policy:    bluemonday.StrictPolicy(),
		indicator: websocket.StateIdle.Indicator(),
	}
}

func (h *HTML) RenderMessage(record chat.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fragment := fmt.Sprintf(
		`<div class="message %s"><div class="message-header">%s</div><div class="message-content">%s</div><div class="message-time">%s</div></div>`,
		record.Class,
		h.policy.Sanitize(record.Username),
		h.policy.Sanitize(record.Content),
		h.policy.Sanitize(record.Clock),
	)
	h.fragments = append(h.fragments, fragment)
	if h.w != nil {
		fmt.Fprintln(h.w, fragment)
	}
}

func (h *HTML) EvictMessage(chat.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.fragments) == 0 {
		return
	}
	h.fragments[0] = ""
	h.fragments = h.fragments[1:]
}

func (h *HTML) SetConnectionStatus(state websocket.State, label string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.indicator = state.Indicator()
	h.status = label
}

func (h *HTML) SetInputEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = enabled
}

// Fragments returns the displayed message markup oldest first.
func (h *HTML) Fragments() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.fragments))
	copy(out, h.fragments)
	return out
}

// Status returns the status indicator markup.
func (h *HTML) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fmt.Sprintf(`<span class="status-indicator %s"></span><span class="status-text">%s</span>`, h.indicator, h.policy.Sanitize(h.status))
}

// InputEnabled reports whether the input and send button are enabled.
func (h *HTML) InputEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}
