package pubsub

import (
	"time"

	"github.com/google/uuid"
)

// Topics carried by the bus. Subscribers pick one; the external
// notifier forwards both.
const (
	// TopicRoutingReplaced fires after a model's routing is validated
	// and committed, including first-time creation.
	TopicRoutingReplaced = "routing.replaced"

	// TopicRoutingDeleted fires after a model's routing is removed.
	TopicRoutingDeleted = "routing.deleted"
)

// Event describes one committed change to a model's routing. Events
// are emitted only after the store accepts the write, so consumers
// can re-read the model and always observe the new state or newer.
type Event struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	ModelID    string    `json:"model_id"`
	Areas      int       `json:"areas"` // area count after the change
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent builds an event with a fresh ID and UTC timestamp.
func NewEvent(topic, modelID string, areas int) Event {
	return Event{
		ID:         uuid.New().String(),
		Topic:      topic,
		ModelID:    modelID,
		Areas:      areas,
		OccurredAt: time.Now().UTC(),
	}
}
