package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chatclient/internal/bus"
	"chatclient/internal/obs"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"
)

var (
	ErrNilDialer         = errors.New("websocket: nil dialer")
	ErrBadConfig         = errors.New("websocket: invalid config")
	ErrInvalidOrigin     = errors.New("websocket: invalid origin")
	ErrUnsupportedScheme = errors.New("websocket: unsupported scheme")
	ErrAlreadyRunning    = errors.New("websocket: manager already running")
	ErrDisposed          = errors.New("websocket: manager disposed")
	// ErrConnectFailed wraps errors that prevented a connection attempt from
	// being made at all.
	ErrConnectFailed = errors.New("websocket: connect failed")
)

const (
	LabelConnecting      = "Connecting..."
	LabelConnected       = "Connected"
	LabelDisconnected    = "Disconnected"
	LabelConnectionError = "Connection Error"
	LabelConnectFailed   = "Connection Failed"
)

const defaultMailboxSize = 64

// Option defines the manager runtime configuration.
type Option struct {
	Backoff        Backoff
	WriteQueueSize int
	WriteOverflow  OverflowPolicy
	// PingInterval enables keepalive pings while connected.
	PingInterval time.Duration
	MailboxSize  int
	// Scheduler runs reconnect timers. Defaults to time.AfterFunc.
	Scheduler Scheduler
	Metrics   *obs.Metrics
}

type eventKind uint8

const (
	evConnect eventKind = iota + 1
	evClose
	evOpened
	evDialFailed
	evInbound
	evClosed
	evWriteFailed
	evTimer
)

type event struct {
	kind    eventKind
	gen     uint64
	conn    Conn
	payload []byte
	err     error
	close   CloseEvent
	latency time.Duration
}

type observerEntry struct {
	id uint64
	o  Observer
}

// Manager owns the connection lifecycle: dialing, loss detection, bounded
// backoff reconnection and state reporting. Every state mutation runs on the
// goroutine executing Run; dials, pumps and timers only post events to it.
type Manager struct {
	id        string
	origin    string
	dialer    Dialer
	opt       Option
	scheduler Scheduler
	metrics   *obs.Metrics
	writer    *Writer
	mailbox   *bus.Queue[event]
	state     atomic.Uint32
	running   atomic.Bool
	done      chan struct{}
	ctx       context.Context

	observerMu   sync.RWMutex
	observers    []observerEntry
	nextObserver uint64

	// owned by the event loop
	attempts   int
	gen        uint64
	dialing    bool
	conn       Conn
	connCtx    context.Context
	connCancel context.CancelFunc
	timer      Timer
	timerGen   uint64
}

// New validates the option and builds a manager for the given page origin.
func New(origin string, dialer Dialer, opt Option) (*Manager, error) {
	if dialer == nil {
		return nil, ErrNilDialer
	}
	if opt.Backoff == (Backoff{}) {
		opt.Backoff = DefaultBackoff()
	}
	if err := opt.Backoff.Validate(); err != nil {
		return nil, err
	}
	if opt.WriteQueueSize <= 0 {
		opt.WriteQueueSize = 256
	}
	if opt.MailboxSize <= 0 {
		opt.MailboxSize = defaultMailboxSize
	}
	if opt.PingInterval < 0 {
		return nil, ErrBadConfig
	}
	scheduler := opt.Scheduler
	if scheduler == nil {
		scheduler = timeScheduler{}
	}

	return &Manager{
		id:        uuid.NewString(),
		origin:    origin,
		dialer:    dialer,
		opt:       opt,
		scheduler: scheduler,
		metrics:   opt.Metrics,
		writer:    NewWriter(opt.WriteQueueSize, opt.WriteOverflow),
		mailbox:   bus.NewQueue[event](opt.MailboxSize),
		done:      make(chan struct{}),
	}, nil
}

// ID identifies the manager in logs.
func (m *Manager) ID() string {
	return m.id
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Backoff returns the reconnect policy in use.
func (m *Manager) Backoff() Backoff {
	return m.opt.Backoff
}

// Subscribe registers an observer and returns a func that removes it.
func (m *Manager) Subscribe(o Observer) (unsubscribe func()) {
	if o == nil {
		return func() {}
	}
	m.observerMu.Lock()
	m.nextObserver++
	id := m.nextObserver
	m.observers = append(m.observers, observerEntry{id: id, o: o})
	m.observerMu.Unlock()

	return func() {
		m.observerMu.Lock()
		defer m.observerMu.Unlock()
		for i, entry := range m.observers {
			if entry.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

// Run processes lifecycle events and blocks until ctx is done or Dispose is called.
func (m *Manager) Run(ctx context.Context) error {
	if m == nil {
		return ErrBadConfig
	}
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(m.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.ctx = ctx

	m.mailbox.Run(ctx, m.handle)
	m.mailbox.Close()
	m.teardown()

	if err := ctx.Err(); err != nil && !m.disposed() {
		return err
	}
	return nil
}

// Connect requests a connection. It is ignored while a connection is open or
// being established, and resets the attempt counter otherwise.
func (m *Manager) Connect() error {
	return m.request(evConnect)
}

// Close requests a clean, intentional close. No reconnect follows.
func (m *Manager) Close() error {
	return m.request(evClose)
}

// Dispose stops the manager: the pending reconnect timer is cancelled, the
// connection closed and no further observer call is made once it returns.
// It must not be called from an observer callback.
func (m *Manager) Dispose() {
	m.mailbox.Close()
	if m.running.Load() {
		<-m.done
	}
}

// Send enqueues a text payload. It fails without side effects unless connected.
// With the default drop-newest policy a full queue returns ErrQueueFull;
// only OverflowBlock makes Send wait for room.
func (m *Manager) Send(payload []byte) error {
	if m.State() != StateConnected {
		logs.Infof("[%s] websocket not connected, drop outgoing payload", m.id)
		m.metrics.IncSendRejected()
		return ErrNotConnected
	}
	if !m.writer.Send(MessageText, payload) {
		m.metrics.IncSendRejected()
		if !m.writer.Connected() {
			return ErrNotConnected
		}
		return ErrQueueFull
	}
	return nil
}

// ErrorLabel is the status text for an error reported through OnError.
func ErrorLabel(err error) string {
	if errors.Is(err, ErrConnectFailed) {
		return LabelConnectFailed
	}
	return LabelConnectionError
}

func (m *Manager) request(kind eventKind) error {
	err := m.mailbox.TryPublish(event{kind: kind})
	if errors.Is(err, bus.ErrQueueClosed) {
		return ErrDisposed
	}
	return err
}

func (m *Manager) post(e event) error {
	return m.mailbox.Publish(m.ctx, e)
}

func (m *Manager) disposed() bool {
	select {
	case <-m.mailbox.Closed():
		return true
	default:
		return false
	}
}

func (m *Manager) handle(e event) {
	if m.disposed() {
		if e.conn != nil {
			_ = e.conn.Close(CloseGoingAway, "")
		}
		return
	}

	switch e.kind {
	case evConnect:
		switch m.State() {
		case StateConnecting, StateConnected:
			return
		}
		m.stopTimer()
		m.attempts = 0
		m.connect()
	case evClose:
		m.stopTimer()
		m.gen++
		m.dialing = false
		if conn := m.dropConn(); conn != nil {
			_ = conn.Close(CloseNormal, "")
		}
		m.attempts = 0
		logs.Infof("[%s] close websocket. reason: requested", m.id)
		m.setState(StateDisconnected, LabelDisconnected)
	case evOpened:
		m.onOpen(e)
	case evDialFailed:
		if e.gen != m.gen || !m.dialing {
			return
		}
		m.dialing = false
		m.dropConn()
		m.transportError(e.err)
		m.onClose(CloseEvent{Code: CloseAbnormal, Reason: e.err.Error()})
	case evInbound:
		if e.gen != m.gen || m.conn == nil {
			return
		}
		m.notifyMessage(e.payload)
	case evClosed:
		if e.gen != m.gen || m.conn == nil {
			return
		}
		if conn := m.dropConn(); conn != nil {
			_ = conn.Close(CloseNormal, "")
		}
		m.onClose(e.close)
	case evWriteFailed:
		if e.gen != m.gen || m.conn == nil {
			return
		}
		m.transportError(e.err)
		if conn := m.dropConn(); conn != nil {
			_ = conn.Close(CloseGoingAway, "")
		}
		m.onClose(CloseEvent{Code: CloseAbnormal, Reason: e.err.Error()})
	case evTimer:
		if e.gen != m.timerGen || m.timer == nil {
			return
		}
		m.timer = nil
		if m.attempts <= m.opt.Backoff.MaxAttempts {
			m.connect()
			return
		}
		m.setState(StateFailed, LabelConnectFailed)
	}
}

func (m *Manager) connect() {
	m.setState(StateConnecting, LabelConnecting)

	endpoint, err := Endpoint(m.origin)
	if err != nil {
		logs.Errorf("[%s] failed to create websocket, err: %+v", m.id, err)
		m.notifyError(fmt.Errorf("%w: %w", ErrConnectFailed, err))
		m.scheduleReconnect()
		return
	}

	m.gen++
	m.dialing = true
	m.connCtx, m.connCancel = context.WithCancel(m.ctx)
	go m.dial(m.connCtx, m.gen, endpoint)
}

func (m *Manager) dial(ctx context.Context, gen uint64, endpoint string) {
	start := time.Now()
	conn, err := m.dialer.Dial(ctx, endpoint)
	if err != nil {
		_ = m.post(event{kind: evDialFailed, gen: gen, err: err})
		return
	}
	if err := m.post(event{kind: evOpened, gen: gen, conn: conn, latency: time.Since(start)}); err != nil {
		_ = conn.Close(CloseGoingAway, "")
	}
}

func (m *Manager) onOpen(e event) {
	if e.gen != m.gen || !m.dialing {
		_ = e.conn.Close(CloseNormal, "")
		return
	}
	m.dialing = false
	m.conn = e.conn
	m.attempts = 0
	m.metrics.ObserveDial(e.latency)
	logs.Infof("[%s] websocket connected", m.id)

	m.writer.Drain()
	m.writer.SetConnected(true)
	m.setState(StateConnected, LabelConnected)

	s := newSession(m, e.gen, e.conn)
	s.start(m.connCtx)
}

func (m *Manager) onClose(ev CloseEvent) {
	logs.Infof("[%s] websocket closed, code: %d, reason: %s, clean: %t", m.id, ev.Code, ev.Reason, ev.Clean)
	if ev.Clean {
		m.setState(StateDisconnected, LabelDisconnected)
		return
	}
	if m.attempts < m.opt.Backoff.MaxAttempts {
		m.scheduleReconnect()
		return
	}
	m.setState(StateFailed, LabelConnectFailed)
}

func (m *Manager) scheduleReconnect() {
	m.attempts++
	delay := m.opt.Backoff.Delay(m.attempts)
	m.metrics.IncReconnectAttempt()
	m.setState(StateReconnecting, ReconnectLabel(delay))

	m.stopTimer()
	m.timerGen++
	gen := m.timerGen
	m.timer = m.scheduler.AfterFunc(delay, func() {
		_ = m.post(event{kind: evTimer, gen: gen})
	})
}

func (m *Manager) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

// dropConn disables the outbound path and detaches the current connection.
func (m *Manager) dropConn() Conn {
	if m.connCancel != nil {
		m.connCancel()
		m.connCancel = nil
		m.connCtx = nil
	}
	m.writer.SetConnected(false)
	m.writer.Drain()
	conn := m.conn
	m.conn = nil
	return conn
}

func (m *Manager) teardown() {
	m.stopTimer()
	m.gen++
	m.dialing = false
	if conn := m.dropConn(); conn != nil {
		_ = conn.Close(CloseGoingAway, "")
	}
	logs.Infof("[%s] websocket manager disposed", m.id)
}

func (m *Manager) transportError(err error) {
	m.metrics.IncTransportError()
	logs.Errorf("[%s] websocket error, err: %+v", m.id, err)
	m.notifyError(err)
}

func (m *Manager) setState(state State, label string) {
	m.state.Store(uint32(state))
	m.metrics.ObserveState(uint8(state))
	for _, o := range m.snapshotObservers() {
		o.OnStateChange(state, label)
	}
}

func (m *Manager) notifyMessage(payload []byte) {
	for _, o := range m.snapshotObservers() {
		o.OnMessage(payload)
	}
}

func (m *Manager) notifyError(err error) {
	for _, o := range m.snapshotObservers() {
		o.OnError(err)
	}
}

func (m *Manager) snapshotObservers() []Observer {
	m.observerMu.RLock()
	defer m.observerMu.RUnlock()
	out := make([]Observer, len(m.observers))
	for i, entry := range m.observers {
		out[i] = entry.o
	}
	return out
}
