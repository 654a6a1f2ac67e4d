package chat

import (
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	// MaxContentLength bounds an outgoing message, in characters.
	MaxContentLength = 500
	// LogCapacity is the number of records kept for display.
	LogCapacity = 50
	// BotName is the reserved username of the stock quote bot.
	BotName = "StockBot"
	// MessageTypeChat is the only outgoing frame type.
	MessageTypeChat = "message"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is an ISO-8601 instant encoded with millisecond precision in UTC.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(timestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := sonic.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// OutgoingMessage is the frame sent for a submitted chat line.
type OutgoingMessage struct {
	Type    string    `json:"type"`
	Content string    `json:"content"`
	Time    Timestamp `json:"time"`
}

// InboundMessage is a chat line broadcast by the backend.
type InboundMessage struct {
	Username string    `json:"username"`
	Content  string    `json:"content"`
	Time     Timestamp `json:"time"`
}

// Class is the presentational category of a message.
type Class uint8

const (
	ClassOther Class = iota
	ClassOwn
	ClassBot
)

func (c Class) String() string {
	switch c {
	case ClassOwn:
		return "own"
	case ClassBot:
		return "bot"
	default:
		return "other"
	}
}

// Record is a classified message ready for display.
type Record struct {
	Username string
	Content  string
	Time     time.Time
	// Clock is the local hour and minute of Time.
	Clock string
	Class Class
}
