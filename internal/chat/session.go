package chat

import (
	"strings"
	"sync"
	"time"

	"chatclient/internal/obs"
	"chatclient/pkg/exception"
	"chatclient/pkg/websocket"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

var _ websocket.Observer = (*Session)(nil)

// Option tunes a Session. Zero values select the defaults.
type Option struct {
	Metrics *obs.Metrics
	// Now stamps outgoing messages.
	Now func() time.Time
	// Location is used for the displayed clock.
	Location         *time.Location
	LogCapacity      int
	MaxContentLength int
}

// Session turns user input into outgoing frames, decodes inbound frames and
// keeps the bounded display log. It observes a connection manager to keep
// the status indicator and input affordance in sync.
type Session struct {
	user    string
	sender  Sender
	sink    RenderSink
	metrics *obs.Metrics
	now     func() time.Time
	loc     *time.Location

	mu    sync.Mutex
	log   *Log
	input *Input
}

// NewSession creates a session for currentUser.
func NewSession(currentUser string, sender Sender, sink RenderSink, opt Option) (*Session, error) {
	if currentUser == "" {
		return nil, exception.ErrEmptyUser
	}
	if sender == nil || sink == nil {
		return nil, exception.ErrNilInstance
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Location == nil {
		opt.Location = time.Local
	}
	if opt.LogCapacity <= 0 {
		opt.LogCapacity = LogCapacity
	}
	if opt.MaxContentLength <= 0 {
		opt.MaxContentLength = MaxContentLength
	}

	return &Session{
		user:    currentUser,
		sender:  sender,
		sink:    sink,
		metrics: opt.Metrics,
		now:     opt.Now,
		loc:     opt.Location,
		log:     NewLog(opt.LogCapacity),
		input:   NewInput(opt.MaxContentLength),
	}, nil
}

// User returns the identity messages are attributed against.
func (s *Session) User() string {
	return s.user
}

// Input captures the composed text as the user types and returns what was
// kept after truncation.
func (s *Session) Input(text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.Set(text)
}

// InputText returns the composed text.
func (s *Session) InputText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.Text()
}

// Submit sends the composed text and clears the input on success. Blank
// input is rejected without sending.
func (s *Session) Submit() error {
	s.mu.Lock()
	raw := s.input.Text()
	s.mu.Unlock()

	content := strings.TrimSpace(raw)
	if content == "" {
		return exception.ErrEmptyMessage
	}

	payload, err := sonic.Marshal(OutgoingMessage{
		Type:    MessageTypeChat,
		Content: content,
		Time:    Timestamp{Time: s.now()},
	})
	if err != nil {
		return errors.Wrap(err, "marshal outgoing message")
	}
	if err := s.sender.Send(payload); err != nil {
		return errors.Wrap(err, "send message")
	}
	s.metrics.IncSent()

	s.mu.Lock()
	if s.input.Text() == raw {
		s.input.Clear()
	}
	s.mu.Unlock()
	return nil
}

// SubmitText captures raw as input and submits it.
func (s *Session) SubmitText(raw string) error {
	s.Input(raw)
	return s.Submit()
}

// Receive decodes an inbound frame and appends it to the log. Malformed
// payloads are dropped and the log is left untouched.
func (s *Session) Receive(payload []byte) error {
	msg, err := decodeInbound(payload)
	if err != nil {
		s.metrics.IncDropped()
		logs.Errorf("drop malformed inbound payload, err: %+v", err)
		return errors.Wrap(exception.ErrMalformedPayload, err.Error())
	}
	s.metrics.IncReceived()

	s.appendToLog(Record{
		Username: msg.Username,
		Content:  msg.Content,
		Time:     msg.Time.Time,
		Clock:    msg.Time.In(s.loc).Format("15:04"),
		Class:    s.Classify(msg),
	})
	return nil
}

// decodeInbound accepts only a JSON object carrying a valid time. A missing
// time is rejected the same way as an unparsable one.
func decodeInbound(payload []byte) (InboundMessage, error) {
	var msg *InboundMessage
	if err := sonic.Unmarshal(payload, &msg); err != nil {
		return InboundMessage{}, err
	}
	if msg == nil {
		return InboundMessage{}, errors.New("payload is not an object")
	}
	if msg.Time.IsZero() {
		return InboundMessage{}, errors.New("missing time")
	}
	return *msg, nil
}

// Classify tags msg as own, bot or other for styling.
func (s *Session) Classify(msg InboundMessage) Class {
	switch msg.Username {
	case s.user:
		return ClassOwn
	case BotName:
		return ClassBot
	default:
		return ClassOther
	}
}

// Records returns the displayed records oldest first.
func (s *Session) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Records()
}

func (s *Session) appendToLog(record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted, ok := s.log.Push(record)
	s.sink.RenderMessage(record)
	if ok {
		s.metrics.IncEvicted()
		s.sink.EvictMessage(evicted)
	}
}

func (s *Session) OnStateChange(state websocket.State, label string) {
	s.sink.SetConnectionStatus(state, label)
	s.sink.SetInputEnabled(state == websocket.StateConnected)
}

func (s *Session) OnMessage(payload []byte) {
	_ = s.Receive(payload)
}

func (s *Session) OnError(err error) {
	logs.Errorf("connection error, err: %+v", err)
	s.sink.SetConnectionStatus(websocket.StateDisconnected, websocket.ErrorLabel(err))
	s.sink.SetInputEnabled(false)
}
