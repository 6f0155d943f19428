// Package eventbus moves domain events between contexts. Production runs
// on a RabbitMQ topic exchange; local mode dispatches synchronously
// in-process. Both sides speak the ConsumedEvent envelope.
package eventbus

import "context"

// Publisher sends an already-marshalled event envelope under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}
