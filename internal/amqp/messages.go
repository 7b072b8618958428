package amqp

import (
	"encoding/json"
	"time"

	"dotproduct/internal/core"
)

// ActivityMessage carries one activity event from the web process to the
// activity worker.
type ActivityMessage struct {
	Event     core.ActivityEvent `json:"event"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewActivityMessage wraps an event for publishing.
func NewActivityMessage(event core.ActivityEvent) *ActivityMessage {
	return &ActivityMessage{
		Event:     event,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON decodes a message body.
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
