package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"restaurant-backend/pkg/events"
)

// Handler processes one decoded envelope. A returned error drops the message;
// redelivery is the broker's job, the application never retries on its own.
type Handler func(ctx context.Context, env events.Envelope) error

// Consumer reads one queue with manual acknowledgment.
type Consumer struct {
	conn        *Connection
	queueName   string
	consumerTag string
	prefetch    int
}

func NewConsumer(conn *Connection, queueName, consumerTag string, prefetch int) *Consumer {
	return &Consumer{
		conn:        conn,
		queueName:   queueName,
		consumerTag: consumerTag,
		prefetch:    prefetch,
	}
}

// Start consumes until the context is cancelled. A closed channel triggers a
// reconnect and a fresh consume loop.
func (c *Consumer) Start(ctx context.Context, handler Handler) error {
	if c.conn.IsClosed() {
		if err := c.conn.Reconnect(); err != nil {
			return fmt.Errorf("messaging: failed to reconnect: %w", err)
		}
	}

	if err := c.conn.Channel().Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("messaging: failed to set QoS: %w", err)
	}

	msgs, err := c.conn.Channel().Consume(
		c.queueName,
		c.consumerTag,
		false, // auto-ack off, we ack manually
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("messaging: failed to register consumer: %w", err)
	}

	log.Info().Str("queue", c.queueName).Str("consumer", c.consumerTag).Msg("Consumer started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("queue", c.queueName).Msg("Consumer stopped")
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				log.Warn().Str("queue", c.queueName).Msg("Message channel closed, reconnecting")
				if err := c.conn.Reconnect(); err != nil {
					return fmt.Errorf("messaging: failed to reconnect after channel close: %w", err)
				}
				return c.Start(ctx, handler)
			}
			c.process(ctx, d, handler)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp091.Delivery, handler Handler) {
	var env events.Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		// Malformed payload: drop, a redelivery would fail the same way.
		log.Error().Err(err).Str("queue", c.queueName).Msg("Failed to decode envelope, dropping message")
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Msg("Failed to nack message")
		}
		return
	}

	processingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := handler(processingCtx, env); err != nil {
		log.Error().
			Err(err).
			Str("queue", c.queueName).
			Str("event_type", env.EventType).
			Str("event_id", env.EventID).
			Msg("Failed to process event, dropping message")
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Msg("Failed to nack message")
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		log.Error().Err(ackErr).Msg("Failed to ack message")
	}
}

// Close cancels the consumer registration.
func (c *Consumer) Close() error {
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Channel().Cancel(c.consumerTag, false); err != nil {
			return fmt.Errorf("messaging: failed to cancel consumer: %w", err)
		}
	}
	return nil
}
