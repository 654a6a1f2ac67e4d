package websocket

import (
	"context"
	"time"
)

// session pumps frames for one open connection. It never touches manager
// state; everything it observes is posted back to the manager's event loop
// tagged with the connection generation.
type session struct {
	m    *Manager
	gen  uint64
	conn Conn
}

func newSession(m *Manager, gen uint64, conn Conn) *session {
	return &session{
		m:    m,
		gen:  gen,
		conn: conn,
	}
}

func (s *session) start(ctx context.Context) {
	go s.readLoop(ctx)
	go s.writeLoop(ctx)
}

func (s *session) readLoop(ctx context.Context) {
	for {
		msgType, payload, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			_ = s.m.post(event{kind: evClosed, gen: s.gen, close: CloseEventFromError(err), err: err})
			return
		}
		if msgType != MessageText && msgType != MessageBinary {
			continue
		}
		if err := s.m.post(event{kind: evInbound, gen: s.gen, payload: payload}); err != nil {
			return
		}
	}
}

func (s *session) writeLoop(ctx context.Context) {
	var pingTicker *time.Ticker
	if s.m.opt.PingInterval > 0 {
		pingTicker = time.NewTicker(s.m.opt.PingInterval)
		defer pingTicker.Stop()
	}
	var ping <-chan time.Time
	if pingTicker != nil {
		ping = pingTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-s.m.writer.queue:
			if err := s.conn.Write(ctx, frame.MsgType, frame.Buf); err != nil {
				s.fail(ctx, err)
				return
			}
		case <-ping:
			if err := s.conn.Write(ctx, MessagePing, nil); err != nil {
				s.fail(ctx, err)
				return
			}
		}
	}
}

func (s *session) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	_ = s.m.post(event{kind: evWriteFailed, gen: s.gen, err: err})
}
