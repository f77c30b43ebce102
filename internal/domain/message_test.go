package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatEvent_DecodeServerFormats(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantID   MessageID
		wantTime bool
	}{
		{"string id with RFC3339", `{"id":"abc","type":"CHAT","sender":"bob","content":"hi","timestamp":"2024-05-01T10:00:00Z"}`, "abc", true},
		{"numeric id", `{"id":1714557600123.42,"type":"CHAT","sender":"bob"}`, "1714557600123.42", false},
		{"zone-less local time", `{"type":"CHAT","sender":"bob","timestamp":"2024-05-01T10:00:00.123"}`, "", true},
		{"epoch millis", `{"type":"CHAT","sender":"bob","timestamp":1714557600123}`, "", true},
		{"garbage time", `{"type":"CHAT","sender":"bob","timestamp":"yesterday"}`, "", false},
		{"null fields", `{"id":null,"type":"JOIN","sender":"bob","timestamp":null}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ev ChatEvent
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &ev))
			assert.Equal(t, tt.wantID, ev.ID)
			assert.Equal(t, tt.wantTime, !ev.Timestamp.IsZero())
			assert.Equal(t, "bob", ev.Sender)
		})
	}
}

func TestChatEvent_EncodeOmitsMissingTimestamp(t *testing.T) {
	data, err := json.Marshal(ChatEvent{Type: EventTyping, Sender: "me"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"TYPING","sender":"me"}`, string(data))

	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	data, err = json.Marshal(ChatEvent{Type: EventChat, Sender: "me", Content: "hi", Timestamp: NewTimestamp(ts)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"CHAT","sender":"me","content":"hi","timestamp":"2024-05-01T10:00:00Z"}`, string(data))
}

func TestPrivateMessage_Partner(t *testing.T) {
	incoming := PrivateMessage{Sender: "alice", Recipient: "me"}
	outgoing := PrivateMessage{Sender: "me", Recipient: "alice"}

	assert.Equal(t, "alice", incoming.Partner("me"))
	assert.Equal(t, "alice", outgoing.Partner("me"))
}

func TestUser_KeepsUnknownFields(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"username":"bob","email":"bob@example.com","role":"admin"}`), &u))

	assert.Equal(t, "bob", u.Username)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.Equal(t, "admin", u.Extra["role"])
	assert.Equal(t, map[string]any{"username": "bob", "email": "bob@example.com", "role": "admin"}, u.Profile())
}

func TestValidUsername(t *testing.T) {
	assert.True(t, ValidUsername("alice"))
	assert.True(t, ValidUsername("alice.smith-2"))
	assert.False(t, ValidUsername(""))
	assert.False(t, ValidUsername(" alice"))
	assert.False(t, ValidUsername("al/ice"))
	assert.False(t, ValidUsername("ali ce"))
	assert.False(t, ValidUsername("topic.*"))

	id := &Identity{Username: "a/b"}
	assert.Error(t, id.Validate())
	id.Username = "ab"
	assert.NoError(t, id.Validate())
}

func TestAuthError_MatchesInvalidCredentials(t *testing.T) {
	err := error(&AuthError{StatusCode: 401, Message: "bad password"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	err = &AuthError{StatusCode: 409, Message: "taken"}
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
}
