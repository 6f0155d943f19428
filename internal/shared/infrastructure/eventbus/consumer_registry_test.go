package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/harborchat/harbor/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConsumer struct {
	types   []string
	handled []*ConsumedEvent
	err     error
}

func (s *stubConsumer) EventTypes() []string { return s.types }

func (s *stubConsumer) Handle(ctx context.Context, event *ConsumedEvent) error {
	s.handled = append(s.handled, event)
	return s.err
}

func TestConsumerRegistry_Dispatch(t *testing.T) {
	registry := NewConsumerRegistry(nil)
	consumer := &stubConsumer{types: []string{"chat.message.created"}}
	registry.Register(consumer)

	event := &ConsumedEvent{
		EventID:    uuid.New(),
		RoutingKey: "chat.message.created",
	}

	err := registry.Dispatch(context.Background(), event)
	require.NoError(t, err)
	require.Len(t, consumer.handled, 1)
	assert.Equal(t, event.EventID, consumer.handled[0].EventID)
}

func TestConsumerRegistry_Dispatch_NoConsumers(t *testing.T) {
	registry := NewConsumerRegistry(nil)

	err := registry.Dispatch(context.Background(), &ConsumedEvent{
		RoutingKey: "unknown.event",
	})
	assert.NoError(t, err)
}

func TestConsumerRegistry_Dispatch_ContinuesAfterFailure(t *testing.T) {
	registry := NewConsumerRegistry(nil)
	failing := &stubConsumer{types: []string{"chat.message.created"}, err: errors.New("boom")}
	healthy := &stubConsumer{types: []string{"chat.message.created"}}
	registry.Register(failing)
	registry.Register(healthy)

	err := registry.Dispatch(context.Background(), &ConsumedEvent{
		RoutingKey: "chat.message.created",
	})

	assert.Error(t, err)
	assert.Len(t, failing.handled, 1)
	assert.Len(t, healthy.handled, 1)
}

func TestConsumerRegistry_Dispatch_RecordsMetrics(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	registry := NewConsumerRegistry(nil).WithMetrics(metrics)
	registry.Register(&stubConsumer{types: []string{"chat.message.created"}, err: errors.New("boom")})

	_ = registry.Dispatch(context.Background(), &ConsumedEvent{
		RoutingKey: "chat.message.created",
	})
	_ = registry.Dispatch(context.Background(), &ConsumedEvent{
		RoutingKey: "chat.message.created",
	})

	tag := observability.T("routing_key", "chat.message.created")
	assert.Equal(t, int64(2), metrics.CounterValue("eventbus.events_dispatched", tag))
	assert.Equal(t, int64(2), metrics.CounterValue("eventbus.consumer_errors", tag))
}

func TestConsumerRegistry_ConsumerCount(t *testing.T) {
	registry := NewConsumerRegistry(nil)
	assert.Equal(t, 0, registry.ConsumerCount())

	registry.Register(&stubConsumer{types: []string{"a", "b"}})
	assert.Equal(t, 2, registry.ConsumerCount())
}
