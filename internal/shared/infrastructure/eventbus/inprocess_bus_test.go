package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/harborchat/harbor/internal/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessEventBus_PublishDispatchesToConsumer(t *testing.T) {
	bus := NewInProcessEventBus(nil)
	consumer := &stubConsumer{types: []string{"chat.message.created"}}
	bus.RegisterConsumer(consumer)

	event := ConsumedEvent{
		EventID:    uuid.New(),
		RoutingKey: "chat.message.created",
		Payload:    json.RawMessage(`{"text":"hello"}`),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = bus.Publish(context.Background(), "chat.message.created", payload)
	require.NoError(t, err)
	require.Len(t, consumer.handled, 1)
	assert.JSONEq(t, `{"text":"hello"}`, string(consumer.handled[0].Payload))
}

func TestInProcessEventBus_PublishSwallowsConsumerErrors(t *testing.T) {
	bus := NewInProcessEventBus(nil)
	bus.RegisterConsumer(&stubConsumer{
		types: []string{"chat.message.created"},
		err:   errors.New("handler failed"),
	})

	payload, err := json.Marshal(ConsumedEvent{RoutingKey: "chat.message.created"})
	require.NoError(t, err)

	// Consumer failure must not surface to the publisher
	assert.NoError(t, bus.Publish(context.Background(), "chat.message.created", payload))
}

func TestInProcessEventBus_PublishMalformedPayload(t *testing.T) {
	bus := NewInProcessEventBus(nil)

	assert.NoError(t, bus.Publish(context.Background(), "chat.message.created", []byte("not json")))
}

type testEvent struct {
	domain.BaseEvent
	Text string `json:"text"`
}

func TestMarshalDomainEvent(t *testing.T) {
	aggregateID := uuid.New()
	event := testEvent{
		BaseEvent: domain.NewBaseEvent(aggregateID, "message", "chat.message.created"),
		Text:      "hello",
	}

	raw, err := MarshalDomainEvent(event)
	require.NoError(t, err)

	var envelope ConsumedEvent
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, aggregateID, envelope.AggregateID)
	assert.Equal(t, "chat.message.created", envelope.RoutingKey)
	assert.Equal(t, "message", envelope.AggregateType)
}
