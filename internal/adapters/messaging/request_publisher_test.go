package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

func TestPublishing(t *testing.T) {
	createdAt := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	evt := ports.BloodRequestCreatedEvent{
		RequestID:  "req-1",
		BloodGroup: "O-",
		Location:   "Dhaka",
		Urgency:    "high",
		CreatedAt:  createdAt,
	}

	tests := []struct {
		name        string
		senderID    string
		wantHeaders amqp.Table
	}{
		{name: "without sender id", senderID: ""},
		{name: "with sender id", senderID: "123456789", wantHeaders: amqp.Table{"sender-id": "123456789"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rmq := &RabbitMQBroker{queueName: "blood_requests", appID: "1:123:web:abc", senderID: tt.senderID}

			msg, err := rmq.publishing(evt)
			require.NoError(t, err)

			assert.Equal(t, "application/json", msg.ContentType)
			assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
			assert.Equal(t, "req-1", msg.MessageId)
			assert.Equal(t, RequestCreatedType, msg.Type)
			assert.Equal(t, "1:123:web:abc", msg.AppId)
			assert.True(t, createdAt.Equal(msg.Timestamp))
			assert.Equal(t, tt.wantHeaders, msg.Headers)

			var body map[string]any
			require.NoError(t, json.Unmarshal(msg.Body, &body))
			assert.Equal(t, "req-1", body["request_id"])
			assert.Equal(t, "O-", body["blood_group"])
			assert.Equal(t, "Dhaka", body["location"])
			assert.Equal(t, "high", body["urgency"])
		})
	}
}

func TestPublishRequestCreated_ExpiredContext(t *testing.T) {
	rmq := &RabbitMQBroker{queueName: "blood_requests"}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := rmq.PublishRequestCreated(ctx, ports.BloodRequestCreatedEvent{RequestID: "req-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose_Unconnected(t *testing.T) {
	rmq := &RabbitMQBroker{}
	assert.NoError(t, rmq.Close())
}

func TestPing_Unconnected(t *testing.T) {
	rmq := &RabbitMQBroker{}
	assert.ErrorIs(t, rmq.Ping(context.Background()), errBrokerClosed)
}

func TestPublishRequestCreated_RedialsLostConnection(t *testing.T) {
	clock := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	dials := 0
	refused := errors.New("connection refused")

	rmq := &RabbitMQBroker{
		opts:      BrokerOptions{Queue: "blood_requests"},
		queueName: "blood_requests",
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "test",
			ReadyToTrip: func(gobreaker.Counts) bool { return false },
		}),
		logger: zap.NewNop(),
		now:    func() time.Time { return clock },
		dial: func(opts BrokerOptions) (*amqp.Connection, *amqp.Channel, error) {
			dials++
			assert.Equal(t, "blood_requests", opts.Queue)
			return nil, nil, refused
		},
	}
	evt := ports.BloodRequestCreatedEvent{RequestID: "req-1"}

	err := rmq.PublishRequestCreated(context.Background(), evt)
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, 1, dials)

	err = rmq.PublishRequestCreated(context.Background(), evt)
	assert.ErrorIs(t, err, errBrokerClosed, "redials are spaced out")
	assert.Equal(t, 1, dials)

	clock = clock.Add(redialInterval)
	err = rmq.PublishRequestCreated(context.Background(), evt)
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, 2, dials)

	require.NoError(t, rmq.Close())
	clock = clock.Add(redialInterval)
	err = rmq.PublishRequestCreated(context.Background(), evt)
	assert.ErrorIs(t, err, errBrokerClosed)
	assert.Equal(t, 2, dials, "a closed broker never redials")
}
