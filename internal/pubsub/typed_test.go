package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/chatroom/internal/pubsub"
	"github.com/nfrund/chatroom/internal/topics"
)

func TestPublish_EncodesPayload(t *testing.T) {
	event := pubsub.NewEvent[note](topics.SendMessage)
	pub := &mockPublisher{}

	require.NoError(t, pubsub.Publish(context.Background(), pub, event, note{Sender: "alice", Content: "hi"}))

	require.Len(t, pub.published, 1)
	assert.Equal(t, "/app/chat.sendMessage", pub.published[0].Topic)

	var got note
	require.NoError(t, json.Unmarshal(pub.published[0].Payload, &got))
	assert.Equal(t, note{Sender: "alice", Content: "hi"}, got)
}

func TestNewEvent_RejectsParameterizedTopic(t *testing.T) {
	assert.Panics(t, func() { pubsub.NewEvent[note](topics.PrivateQueue) })
}

func TestDecode(t *testing.T) {
	got, err := pubsub.Decode[note](pubsub.Message{Topic: "/topic/public", Payload: []byte(`{"sender":"bob","content":"yo"}`)})
	require.NoError(t, err)
	assert.Equal(t, note{Sender: "bob", Content: "yo"}, got)

	_, err = pubsub.Decode[note](pubsub.Message{Topic: "/topic/public", Payload: []byte(`{`)})
	assert.Error(t, err)
}
