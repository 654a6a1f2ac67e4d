package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"chatclient/internal/obs"
	"chatclient/pkg/exception"
	"chatclient/pkg/websocket"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (s *fakeSender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, payload)
	return nil
}

func (s *fakeSender) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

type fakeSink struct {
	mu       sync.Mutex
	rendered []Record
	evicted  []Record
	states   []websocket.State
	labels   []string
	enabled  bool
}

func (s *fakeSink) RenderMessage(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rendered = append(s.rendered, r)
}

func (s *fakeSink) EvictMessage(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evicted = append(s.evicted, r)
}

func (s *fakeSink) SetConnectionStatus(state websocket.State, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
	s.labels = append(s.labels, label)
}

func (s *fakeSink) SetInputEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

var fixedNow = time.Date(2024, 3, 9, 6, 5, 7, 0, time.UTC)

func newTestSession(t *testing.T, user string) (*Session, *fakeSender, *fakeSink, *obs.Metrics) {
	t.Helper()
	sender := &fakeSender{}
	sink := &fakeSink{}
	metrics := obs.NewMetrics()
	s, err := NewSession(user, sender, sink, Option{
		Metrics:  metrics,
		Now:      func() time.Time { return fixedNow },
		Location: time.UTC,
	})
	require.NoError(t, err)
	return s, sender, sink, metrics
}

func inbound(t *testing.T, user, content string) []byte {
	t.Helper()
	data, err := sonic.Marshal(InboundMessage{Username: user, Content: content, Time: Timestamp{Time: fixedNow}})
	require.NoError(t, err)
	return data
}

func TestNewSessionValidates(t *testing.T) {
	_, err := NewSession("", &fakeSender{}, &fakeSink{}, Option{})
	assert.ErrorIs(t, err, exception.ErrEmptyUser)

	_, err = NewSession("alice", nil, &fakeSink{}, Option{})
	assert.ErrorIs(t, err, exception.ErrNilInstance)

	_, err = NewSession("alice", &fakeSender{}, nil, Option{})
	assert.ErrorIs(t, err, exception.ErrNilInstance)
}

func TestSubmitSendsTrimmedContent(t *testing.T) {
	s, sender, _, metrics := newTestSession(t, "alice")

	s.Input("  hello world \n")
	require.NoError(t, s.Submit())

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.JSONEq(t, `{"type":"message","content":"hello world","time":"2024-03-09T06:05:07.000Z"}`, string(sent[0]))
	assert.Empty(t, s.InputText())
	assert.Equal(t, uint64(1), metrics.Snapshot().MessagesSent)
	assert.Empty(t, s.Records())
}

func TestSubmitBlankIsNoop(t *testing.T) {
	s, sender, _, _ := newTestSession(t, "alice")

	assert.ErrorIs(t, s.SubmitText(""), exception.ErrEmptyMessage)
	assert.ErrorIs(t, s.SubmitText("   \t\n"), exception.ErrEmptyMessage)
	assert.Empty(t, sender.Sent())
	assert.Equal(t, "   \t\n", s.InputText())
}

func TestSubmitKeepsInputOnSendFailure(t *testing.T) {
	s, sender, _, metrics := newTestSession(t, "alice")
	sender.err = errors.New("not connected")

	require.Error(t, s.SubmitText("hello"))
	assert.Equal(t, "hello", s.InputText())
	assert.Zero(t, metrics.Snapshot().MessagesSent)
}

func TestSubmitTruncatesLongInput(t *testing.T) {
	s, sender, _, _ := newTestSession(t, "alice")

	kept := s.Input(strings.Repeat("x", MaxContentLength+20))
	assert.Len(t, kept, MaxContentLength)
	require.NoError(t, s.Submit())

	var out OutgoingMessage
	require.NoError(t, sonic.Unmarshal(sender.Sent()[0], &out))
	assert.Len(t, out.Content, MaxContentLength)
}

func TestReceiveClassifies(t *testing.T) {
	s, _, sink, metrics := newTestSession(t, "alice")

	require.NoError(t, s.Receive(inbound(t, "alice", "mine")))
	require.NoError(t, s.Receive(inbound(t, BotName, "AAPL.US quote is $189.84 per share")))
	require.NoError(t, s.Receive(inbound(t, "bob", "<b>hi</b>")))

	records := s.Records()
	require.Len(t, records, 3)
	assert.Equal(t, ClassOwn, records[0].Class)
	assert.Equal(t, ClassBot, records[1].Class)
	assert.Equal(t, ClassOther, records[2].Class)
	assert.Equal(t, "<b>hi</b>", records[2].Content)
	assert.Equal(t, "06:05", records[0].Clock)

	assert.Len(t, sink.rendered, 3)
	assert.Equal(t, uint64(3), metrics.Snapshot().MessagesReceived)
}

func TestReceiveMalformedLeavesLogUnchanged(t *testing.T) {
	s, _, sink, metrics := newTestSession(t, "alice")
	require.NoError(t, s.Receive(inbound(t, "bob", "first")))

	malformed := []string{
		"{not json",
		"null",
		" null ",
		"{}",
		"[]",
		`"hello"`,
		`{"username":"bob"}`,
		`{"username":"bob","content":"x"}`,
		`{"username":"bob","content":"x","time":null}`,
		`{"username":"bob","content":"x","time":"soon"}`,
	}
	for _, payload := range malformed {
		require.Errorf(t, s.Receive([]byte(payload)), "payload %s", payload)
	}

	assert.Len(t, s.Records(), 1)
	assert.Len(t, sink.rendered, 1)
	assert.Equal(t, uint64(len(malformed)), metrics.Snapshot().MessagesDropped)
	assert.Equal(t, uint64(1), metrics.Snapshot().MessagesReceived)
}

func TestReceiveEvictsOldest(t *testing.T) {
	s, _, sink, metrics := newTestSession(t, "alice")

	for i := 1; i <= 60; i++ {
		require.NoError(t, s.Receive(inbound(t, "bob", strconv.Itoa(i))))
	}

	records := s.Records()
	require.Len(t, records, LogCapacity)
	assert.Equal(t, "11", records[0].Content)
	assert.Equal(t, "60", records[LogCapacity-1].Content)

	require.Len(t, sink.evicted, 10)
	assert.Equal(t, "1", sink.evicted[0].Content)
	assert.Equal(t, "10", sink.evicted[9].Content)
	assert.Equal(t, uint64(10), metrics.Snapshot().MessagesEvicted)
}

func TestSessionObservesConnection(t *testing.T) {
	s, _, sink, _ := newTestSession(t, "alice")

	s.OnStateChange(websocket.StateConnected, websocket.LabelConnected)
	assert.True(t, sink.enabled)

	s.OnStateChange(websocket.StateReconnecting, websocket.ReconnectLabel(time.Second))
	assert.False(t, sink.enabled)
	assert.Equal(t, "Reconnecting in 1s...", sink.labels[1])

	s.OnStateChange(websocket.StateConnected, websocket.LabelConnected)
	s.OnError(errors.New("boom"))
	assert.False(t, sink.enabled)
	assert.Equal(t, websocket.StateDisconnected, sink.states[len(sink.states)-1])
	assert.Equal(t, websocket.LabelConnectionError, sink.labels[len(sink.labels)-1])

	s.OnError(fmt.Errorf("%w: bad origin", websocket.ErrConnectFailed))
	assert.Equal(t, websocket.LabelConnectFailed, sink.labels[len(sink.labels)-1])
	assert.False(t, sink.enabled)

	s.OnMessage(inbound(t, "bob", "via observer"))
	require.Len(t, s.Records(), 1)
	assert.Equal(t, "via observer", s.Records()[0].Content)
}
