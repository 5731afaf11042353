package messaging

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

const RequestCreatedType = "blood_request.created"

var _ ports.RequestEventPublisher = (*RabbitMQBroker)(nil)

// publishing builds the persistent JSON message for a created request.
func (rmq *RabbitMQBroker) publishing(evt ports.BloodRequestCreatedEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.RequestID,
		Type:         RequestCreatedType,
		AppId:        rmq.appID,
		Timestamp:    evt.CreatedAt,
		Body:         body,
	}
	if rmq.senderID != "" {
		msg.Headers = amqp.Table{"sender-id": rmq.senderID}
	}
	return msg, nil
}

func (rmq *RabbitMQBroker) PublishRequestCreated(ctx context.Context, evt ports.BloodRequestCreatedEvent) error {
	msg, err := rmq.publishing(evt)
	if err != nil {
		return err
	}

	// Respect context deadline
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return ctx.Err()
		}
	}

	_, err = rmq.cb.Execute(func() (interface{}, error) {
		ch, err := rmq.channel()
		if err != nil {
			return nil, err
		}
		err = ch.PublishWithContext(
			ctx,
			"",            // exchange (default)
			rmq.queueName, // routing key == queue name
			false,         // mandatory
			false,         // immediate
			msg,
		)
		return nil, err
	})
	return err
}
