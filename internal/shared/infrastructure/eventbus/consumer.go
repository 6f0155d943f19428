package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ConsumedEvent is the wire envelope. Payload holds the marshalled
// concrete event for the consumer to decode.
type ConsumedEvent struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// EventConsumer is a handler for one or more routing keys. A returned
// error means the delivery should be retried; handlers that must not be
// retried swallow their own failures.
type EventConsumer interface {
	// EventTypes lists the routing keys to subscribe, e.g.
	// "chat.message.created".
	EventTypes() []string

	Handle(ctx context.Context, event *ConsumedEvent) error
}

// Consumer is a running subscription against a broker.
type Consumer interface {
	// Start blocks until the context is cancelled or the connection dies.
	Start(ctx context.Context) error

	RegisterConsumer(consumer EventConsumer)
	Close() error
}
