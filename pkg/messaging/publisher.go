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

// Publisher sends envelopes to the topic exchange. Publishing is
// fire-and-forget from the producer's point of view: callers log a failed
// publish and continue, there is no retry or outbox.
type Publisher struct {
	conn *Connection
}

func NewPublisher(conn *Connection) *Publisher {
	return &Publisher{conn: conn}
}

// Publish serializes the envelope and sends it with the order id as
// correlation id, keeping one order's events on one ordered stream.
func (p *Publisher) Publish(ctx context.Context, routingKey string, env events.Envelope) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("messaging: failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("messaging: failed to marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.conn.Channel().PublishWithContext(
		ctx,
		events.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			Body:          body,
			MessageId:     env.EventID,
			CorrelationId: env.OrderID.String(),
			Timestamp:     env.OccurredAt,
		},
	)
	if err != nil {
		return fmt.Errorf("messaging: failed to publish %s: %w", env.EventType, err)
	}

	log.Debug().
		Str("event_type", env.EventType).
		Str("event_id", env.EventID).
		Str("routing_key", routingKey).
		Msg("Event published")

	return nil
}
