package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"chatclient/internal/chat"

	"github.com/bytedance/sonic"
	gws "github.com/gorilla/websocket"
	"github.com/yanun0323/logs"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4 << 10
	sendBuffer     = 256
)

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	hub      *hub
	conn     *gws.Conn
	send     chan []byte
	username string
}

// hub fans every chat line out to all connected clients and replays recent
// history to newcomers. All membership changes happen on the run goroutine.
type hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	history    [][]byte
	maxHistory int
	guests     atomic.Uint64
}

func newHub(maxHistory int) *hub {
	if maxHistory < 0 {
		maxHistory = 0
	}
	return &hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
		maxHistory: maxHistory,
	}
}

func (h *hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				_ = c.conn.WriteControl(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseGoingAway, "server shutdown"), time.Now().Add(writeWait))
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			logs.Infof("client %s connected", c.username)
			for _, payload := range h.history {
				select {
				case c.send <- payload:
				default:
				}
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				logs.Infof("client %s disconnected", c.username)
			}
		case payload := <-h.broadcast:
			h.remember(payload)
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

func (h *hub) remember(payload []byte) {
	if h.maxHistory == 0 {
		return
	}
	h.history = append(h.history, payload)
	if over := len(h.history) - h.maxHistory; over > 0 {
		h.history = append(h.history[:0:0], h.history[over:]...)
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.Header.Get("X-Chat-User"))
	if username == "" {
		username = strings.TrimSpace(r.URL.Query().Get("user"))
	}
	if username == "" {
		username = fmt.Sprintf("guest-%d", h.guests.Add(1))
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logs.Errorf("websocket upgrade error, err: %+v", err)
		return
	}

	c := &client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		username: username,
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if gws.IsUnexpectedCloseError(err, gws.CloseGoingAway, gws.CloseNormalClosure) {
				logs.Errorf("client %s read error, err: %+v", c.username, err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var in chat.OutgoingMessage
		if err := sonic.Unmarshal(data, &in); err != nil {
			logs.Errorf("client %s sent malformed frame, err: %+v", c.username, err)
			continue
		}
		content := strings.TrimSpace(in.Content)
		if in.Type != chat.MessageTypeChat || content == "" {
			continue
		}
		if r := []rune(content); len(r) > chat.MaxContentLength {
			content = string(r[:chat.MaxContentLength])
		}

		payload, err := sonic.Marshal(chat.InboundMessage{
			Username: c.username,
			Content:  content,
			Time:     chat.Timestamp{Time: time.Now()},
		})
		if err != nil {
			logs.Errorf("marshal broadcast, err: %+v", err)
			continue
		}
		select {
		case c.hub.broadcast <- payload:
		case <-c.hub.done:
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(gws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(gws.TextMessage, payload); err != nil {
				logs.Errorf("client %s write error, err: %+v", c.username, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(gws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
