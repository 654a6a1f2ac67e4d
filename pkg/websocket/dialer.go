package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
)

var (
	errProtocol = errors.New("websocket: protocol error")
)

const (
	DefaultDialerTimeout = 10 * time.Second
	DefaultWriteWait     = 10 * time.Second
	DefaultReadLimit     = 64 << 10
)

// DialerOption configures the gorilla-backed dialer.
type DialerOption struct {
	HandshakeTimeout time.Duration
	Header           http.Header
	// ReadLimit bounds a single inbound message in bytes.
	ReadLimit int64
	// PongWait is how long a connection may stay silent before the read
	// fails. Zero disables the read deadline.
	PongWait time.Duration
}

type dialer struct {
	inner     *gws.Dialer
	header    http.Header
	readLimit int64
	pongWait  time.Duration
}

// NewDialer creates a Dialer backed by gorilla/websocket.
func NewDialer(opt DialerOption) Dialer {
	if opt.HandshakeTimeout <= 0 {
		opt.HandshakeTimeout = DefaultDialerTimeout
	}
	if opt.ReadLimit <= 0 {
		opt.ReadLimit = DefaultReadLimit
	}
	return &dialer{
		inner: &gws.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opt.HandshakeTimeout,
		},
		header:    opt.Header.Clone(),
		readLimit: opt.ReadLimit,
		pongWait:  opt.PongWait,
	}
}

func (d *dialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	conn, resp, err := d.inner.DialContext(ctx, endpoint, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(d.readLimit)

	c := &wsConn{conn: conn, pongWait: d.pongWait}
	if d.pongWait > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(d.pongWait))
		})
	}
	return c, nil
}

type wsConn struct {
	conn      *gws.Conn
	pongWait  time.Duration
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) Read(ctx context.Context) (MessageType, []byte, error) {
	for {
		var err error
		if c.pongWait > 0 {
			err = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		} else {
			err = setDeadline(ctx, c.conn.SetReadDeadline)
		}
		if err != nil {
			return 0, nil, err
		}

		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return 0, nil, err
		}
		switch mt {
		case gws.TextMessage:
			return MessageText, data, nil
		case gws.BinaryMessage:
			return MessageBinary, data, nil
		}
	}
}

func (c *wsConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	opcode := messageTypeToOpcode(msgType)
	if opcode == 0 {
		return errProtocol
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := ctx.Deadline(); ok {
		if err := setDeadline(ctx, c.conn.SetWriteDeadline); err != nil {
			return err
		}
	} else if err := c.conn.SetWriteDeadline(time.Now().Add(DefaultWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(opcode, payload)
}

func (c *wsConn) Close(code CloseCode, reason string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		_ = c.conn.WriteControl(gws.CloseMessage, gws.FormatCloseMessage(int(code), reason), time.Now().Add(DefaultWriteWait))
		c.mu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// CloseEventFromError classifies the error that ended a read. A received
// close frame is clean unless it reports an abnormal closure; anything else
// (EOF, reset, timeout) is an unclean termination.
func CloseEventFromError(err error) CloseEvent {
	var ce *gws.CloseError
	if errors.As(err, &ce) {
		code := CloseCode(ce.Code)
		return CloseEvent{Code: code, Reason: ce.Text, Clean: code != CloseAbnormal}
	}
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return CloseEvent{Code: CloseAbnormal, Reason: reason}
}

func messageTypeToOpcode(msgType MessageType) int {
	switch msgType {
	case MessageText:
		return gws.TextMessage
	case MessageBinary:
		return gws.BinaryMessage
	case MessagePing:
		return gws.PingMessage
	case MessagePong:
		return gws.PongMessage
	case MessageClose:
		return gws.CloseMessage
	default:
		return 0
	}
}

func setDeadline(ctx context.Context, set func(time.Time) error) error {
	if ctx == nil {
		return set(time.Time{})
	}
	if deadline, ok := ctx.Deadline(); ok {
		return set(deadline)
	}
	if ctx.Err() != nil {
		return set(time.Now())
	}
	return set(time.Time{})
}
