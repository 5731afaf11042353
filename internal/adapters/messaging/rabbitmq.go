package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/config"
)

// redialInterval spaces reconnect attempts after the broker connection drops.
const redialInterval = 5 * time.Second

// BrokerOptions describes the request-event queue and the identity project
// stamped on every message.
type BrokerOptions struct {
	URL        string
	Queue      string
	AppID      string
	SenderID   string
	MessageTTL time.Duration
}

type dialFunc func(opts BrokerOptions) (*amqp.Connection, *amqp.Channel, error)

// RabbitMQBroker implements ports.RequestEventPublisher using RabbitMQ.
// A dropped connection is redialed by the next publish.
type RabbitMQBroker struct {
	opts      BrokerOptions
	queueName string
	appID     string
	senderID  string
	cb        *gobreaker.CircuitBreaker
	logger    *zap.Logger
	dial      dialFunc
	now       func() time.Time

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	lastDial time.Time
	closed   bool
}

// NewRabbitMQBroker dials the broker and declares the durable request queue.
// Announcements older than MessageTTL are dropped by the broker.
func NewRabbitMQBroker(opts BrokerOptions, logger *zap.Logger) (*RabbitMQBroker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rmq := &RabbitMQBroker{
		opts:      opts,
		queueName: opts.Queue,
		appID:     opts.AppID,
		senderID:  opts.SenderID,
		cb:        config.NewCircuitBreaker(config.BreakerRabbitMQ, logger),
		logger:    logger,
		dial:      dial,
		now:       time.Now,
	}

	rmq.mu.Lock()
	defer rmq.mu.Unlock()
	if err := rmq.connectLocked(); err != nil {
		return nil, err
	}
	return rmq, nil
}

func dial(opts BrokerOptions) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(opts.URL, amqp.Config{
		Heartbeat:  10 * time.Second,
		Properties: amqp.Table{"connection_name": "bloodlink-api"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	var args amqp.Table
	if opts.MessageTTL > 0 {
		args = amqp.Table{"x-message-ttl": opts.MessageTTL.Milliseconds()}
	}
	if _, err := ch.QueueDeclare(opts.Queue, true, false, false, false, args); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", opts.Queue, err)
	}
	return conn, ch, nil
}

func (rmq *RabbitMQBroker) connectLocked() error {
	rmq.lastDial = rmq.now()
	conn, ch, err := rmq.dial(rmq.opts)
	if err != nil {
		return err
	}
	rmq.conn, rmq.ch = conn, ch
	go rmq.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return nil
}

// channel returns an open channel, redialing at most once per redialInterval.
func (rmq *RabbitMQBroker) channel() (*amqp.Channel, error) {
	rmq.mu.Lock()
	defer rmq.mu.Unlock()

	if rmq.closed {
		return nil, errBrokerClosed
	}
	if rmq.ch != nil && !rmq.ch.IsClosed() {
		return rmq.ch, nil
	}
	if !rmq.lastDial.IsZero() && rmq.now().Sub(rmq.lastDial) < redialInterval {
		return nil, errBrokerClosed
	}

	rmq.logger.Info("redialing rabbitmq", zap.String("queue", rmq.queueName))
	if rmq.conn != nil {
		_ = ignoreClosed(rmq.conn.Close())
		rmq.conn, rmq.ch = nil, nil
	}
	if err := rmq.connectLocked(); err != nil {
		return nil, err
	}
	return rmq.ch, nil
}

// watch logs an unexpected connection loss; the next publish redials.
func (rmq *RabbitMQBroker) watch(closed <-chan *amqp.Error) {
	if err, ok := <-closed; ok && err != nil {
		rmq.logger.Error("rabbitmq connection lost",
			zap.String("queue", rmq.queueName),
			zap.Int("code", err.Code),
			zap.String("reason", err.Reason),
		)
	}
}

var errBrokerClosed = errors.New("rabbitmq connection closed")

// Ping reports whether the connection is still open.
func (rmq *RabbitMQBroker) Ping(ctx context.Context) error {
	rmq.mu.Lock()
	conn := rmq.conn
	rmq.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return errBrokerClosed
	}
	return ctx.Err()
}

func (rmq *RabbitMQBroker) Close() error {
	rmq.mu.Lock()
	defer rmq.mu.Unlock()

	rmq.closed = true
	var errs []error
	if rmq.ch != nil {
		errs = append(errs, ignoreClosed(rmq.ch.Close()))
	}
	if rmq.conn != nil {
		errs = append(errs, ignoreClosed(rmq.conn.Close()))
	}
	return errors.Join(errs...)
}

func ignoreClosed(err error) error {
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}
