package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatclient/internal/chat"

	"github.com/bytedance/sonic"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, srv *httptest.Server, user string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := gws.DefaultDialer.Dial(url, http.Header{"X-Chat-User": []string{user}})
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readInbound(t *testing.T, conn *gws.Conn) chat.InboundMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg chat.InboundMessage
	require.NoError(t, sonic.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastAndReplay(t *testing.T) {
	h := newHub(50)
	go h.run(t.Context())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	alice := dialHub(t, srv, "alice")
	bob := dialHub(t, srv, "bob")

	// register is synchronous with the hub loop, but the upgrade response can
	// reach the client first; give both registrations a moment to land.
	time.Sleep(50 * time.Millisecond)

	out, err := sonic.Marshal(chat.OutgoingMessage{Type: chat.MessageTypeChat, Content: "  hello  ", Time: chat.Timestamp{Time: time.Now()}})
	require.NoError(t, err)
	require.NoError(t, alice.WriteMessage(gws.TextMessage, out))

	for _, conn := range []*gws.Conn{alice, bob} {
		msg := readInbound(t, conn)
		assert.Equal(t, "alice", msg.Username)
		assert.Equal(t, "hello", msg.Content)
		assert.False(t, msg.Time.IsZero())
	}

	carol := dialHub(t, srv, "carol")
	replayed := readInbound(t, carol)
	assert.Equal(t, "alice", replayed.Username)
	assert.Equal(t, "hello", replayed.Content)
}

func TestHubHistoryBounded(t *testing.T) {
	h := newHub(2)
	for _, p := range []string{"a", "b", "c"} {
		h.remember([]byte(p))
	}
	require.Len(t, h.history, 2)
	assert.Equal(t, "b", string(h.history[0]))
	assert.Equal(t, "c", string(h.history[1]))

	none := newHub(0)
	none.remember([]byte("a"))
	assert.Empty(t, none.history)
}
