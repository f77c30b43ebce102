package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nfrund/chatroom/internal/topics"
)

// Event[T] binds a payload type to a send destination and provides
// type-safe publishing.
type Event[T any] struct {
	topic topics.Topic
}

// NewEvent creates a typed event for a destination. The destination must be
// registered and must not take parameters; a failure here is a programming
// error, so it panics at package initialization.
func NewEvent[T any](topic topics.Topic) Event[T] {
	if _, ok := topics.Get(topic.Name); !ok {
		panic(fmt.Sprintf("pubsub: topic %q is not registered", topic.Name))
	}
	if len(topic.Params()) > 0 {
		panic(fmt.Sprintf("pubsub: topic %q needs parameters", topic.Name))
	}
	return Event[T]{topic: topic}
}

// Name returns the destination the event is published to.
func (e Event[T]) Name() string {
	return e.topic.Pattern
}

// Publish sends a typed event. The compiler ensures 'payload' matches 'T'.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.topic.Name, err)
	}

	return p.Publish(ctx, Message{
		Topic:   event.Name(),
		Payload: data,
	})
}

// Decode unmarshals a message payload into T.
func Decode[T any](msg Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("decode message on %s: %w", msg.Topic, err)
	}
	return v, nil
}
