package pubsub

import (
	"context"
	"encoding/json"
	"time"
)

// Event is one room broadcast travelling over the bus.
type Event struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id"`
	Origin    string          `json:"origin,omitempty"` // publishing instance
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent wraps an already-encoded payload.
func NewEvent(eventType, roomID, origin string, payload []byte) *Event {
	return &Event{
		Type:      eventType,
		RoomID:    roomID,
		Origin:    origin,
		Payload:   json.RawMessage(payload),
		Timestamp: time.Now().UTC(),
	}
}

// Publisher publishes events to the bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber receives events from the bus. The returned channel is closed
// when ctx ends or the subscription is replaced by a later one for the same
// pattern.
type Subscriber interface {
	SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error)
}

// PubSub combines Publisher and Subscriber.
type PubSub interface {
	Publisher
	Subscriber
	Close() error
}
