package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AMQPConsumer consumes upload events from a RabbitMQ queue with manual
// acknowledgment. The queue is declared with a dead-letter exchange so
// that Nack(requeue=false) routes exhausted messages to the DLQ.
type AMQPConsumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	log       *logrus.Logger
}

// AMQPConfig holds the consumer's connection settings.
type AMQPConfig struct {
	URL                string
	QueueName          string
	DeadLetterExchange string
	// Prefetch bounds how many unacknowledged deliveries are in flight
	// at once. Zero means the broker default.
	Prefetch int
}

// NewAMQPConsumer connects to RabbitMQ, declares the queue, and sets QoS.
func NewAMQPConsumer(cfg AMQPConfig, log *logrus.Logger) (*AMQPConsumer, error) {
	conn, err := connectWithRetry(cfg.URL, 10, 5*time.Second, log)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	var args amqp.Table
	if cfg.DeadLetterExchange != "" {
		args = amqp.Table{"x-dead-letter-exchange": cfg.DeadLetterExchange}
	}

	_, err = channel.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		args,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if cfg.Prefetch > 0 {
		if err := channel.Qos(cfg.Prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	log.WithField("queue", cfg.QueueName).Info("connected to message queue")

	return &AMQPConsumer{
		conn:      conn,
		channel:   channel,
		queueName: cfg.QueueName,
		log:       log,
	}, nil
}

func connectWithRetry(url string, maxRetries int, delay time.Duration, log *logrus.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}

		log.WithError(err).WithField("attempt", i+1).Warn("queue connection failed")
		if i < maxRetries-1 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
}

// Start consumes deliveries until the context is cancelled. Each delivery
// runs in its own goroutine; serialization per message is the handler's
// concern, not the consumer's.
func (c *AMQPConsumer) Start(ctx context.Context, h Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.WithField("queue", c.queueName).Info("waiting for messages")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			go h(ctx, c.wrap(msg))
		}
	}
}

func (c *AMQPConsumer) wrap(msg amqp.Delivery) *Delivery {
	return NewDelivery(
		messageID(msg),
		msg.Body,
		func() error { return msg.Ack(false) },
		func(requeue bool) error { return msg.Nack(false, requeue) },
	)
}

// messageID returns an identifier stable across redeliveries. Publishers
// that set MessageId get it verbatim; otherwise the payload hash serves.
func messageID(msg amqp.Delivery) string {
	if msg.MessageId != "" {
		return msg.MessageId
	}
	sum := sha256.Sum256(msg.Body)
	return hex.EncodeToString(sum[:16])
}

func (c *AMQPConsumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
