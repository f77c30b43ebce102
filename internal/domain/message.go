package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// EventType tags a ChatEvent received on the group channel.
type EventType string

const (
	EventJoin   EventType = "JOIN"
	EventLeave  EventType = "LEAVE"
	EventTyping EventType = "TYPING"
	EventChat   EventType = "CHAT"
)

// ChatEvent is a message on the group channel. ID and Timestamp are assigned
// by the server but may be missing.
type ChatEvent struct {
	ID        MessageID `json:"id,omitempty"`
	Type      EventType `json:"type"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content,omitempty"`
	Timestamp Timestamp `json:"timestamp,omitzero"`
}

// PrivateMessage is a message on a user's private queue.
type PrivateMessage struct {
	ID        MessageID `json:"id,omitempty"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp,omitzero"`
}

// Partner returns the other side of the conversation from self's point of view.
func (m PrivateMessage) Partner(self string) string {
	if m.Sender == self {
		return m.Recipient
	}
	return m.Sender
}

// MessageID accepts both string and numeric ids from the server.
type MessageID string

func (id *MessageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = MessageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = MessageID(n.String())
	return nil
}

// Timestamp is a time.Time that tolerates the formats the server is known to
// emit: RFC 3339, zone-less ISO local date-times and epoch milliseconds.
// Anything unparseable decodes to the zero time.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

var localLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	t.Time = time.Time{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '"' {
		if ms, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			t.Time = time.UnixMilli(ms)
		} else if f, err := strconv.ParseFloat(string(data), 64); err == nil {
			t.Time = time.UnixMilli(int64(f))
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range localLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
