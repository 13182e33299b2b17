package messaging

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"restaurant-backend/pkg/events"
)

// Queue names, one per consumer group.
const (
	QueueKitchenOrders  = "kitchen_orders"
	QueueOrderDishReady = "order_dish_ready"
)

// Connection wraps an AMQP connection with retrying dial and topology setup.
type Connection struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	url     string
}

// Connect dials RabbitMQ and declares the exchange and consumer queues.
func Connect(url string) (*Connection, error) {
	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("messaging: failed to establish initial connection: %w", err)
	}
	return c, nil
}

func (c *Connection) connect() error {
	const maxRetries = 5
	var err error

	for i := 0; i < maxRetries; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				if setupErr := c.setupTopology(); setupErr != nil {
					c.close()
					err = setupErr
				} else {
					return nil
				}
			} else {
				c.conn.Close()
			}
		}

		if i < maxRetries-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			log.Warn().Err(err).Dur("retry_in", wait).Msg("Failed to connect to RabbitMQ, retrying")
			time.Sleep(wait)
		}
	}

	return fmt.Errorf("messaging: failed to connect after %d attempts: %w", maxRetries, err)
}

func (c *Connection) setupTopology() error {
	err := c.channel.ExchangeDeclare(
		events.Exchange, // name
		"topic",         // type
		true,            // durable
		false,           // auto-deleted
		false,           // internal
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		return fmt.Errorf("messaging: failed to declare exchange %s: %w", events.Exchange, err)
	}

	bindings := []struct {
		queue      string
		routingKey string
	}{
		{QueueKitchenOrders, events.TopicOrderSentToKitchen},
		{QueueOrderDishReady, events.TopicDishReady},
	}

	for _, b := range bindings {
		if _, err := c.channel.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("messaging: failed to declare queue %s: %w", b.queue, err)
		}
		if err := c.channel.QueueBind(b.queue, b.routingKey, events.Exchange, false, nil); err != nil {
			return fmt.Errorf("messaging: failed to bind queue %s to %s: %w", b.queue, b.routingKey, err)
		}
	}

	return nil
}

// Channel returns the current channel.
func (c *Connection) Channel() *amqp091.Channel {
	return c.channel
}

// IsClosed reports whether the underlying connection is gone.
func (c *Connection) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect tears down and re-establishes the connection.
func (c *Connection) Reconnect() error {
	c.close()
	return c.connect()
}

// Close closes the channel and connection.
func (c *Connection) Close() error {
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
