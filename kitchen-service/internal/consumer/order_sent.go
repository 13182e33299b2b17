package consumer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"restaurant-backend/kitchen-service/internal/kitchen"
	"restaurant-backend/pkg/events"
	"restaurant-backend/pkg/messaging"
)

// OrderSentConsumer ingests ORDER_SENT_TO_KITCHEN into the queue. The unique
// order_item_id constraint makes redelivered or already-pushed items no-ops.
type OrderSentConsumer struct {
	consumer *messaging.Consumer
	svc      kitchen.Service
}

func NewOrderSentConsumer(conn *messaging.Connection, svc kitchen.Service) *OrderSentConsumer {
	return &OrderSentConsumer{
		consumer: messaging.NewConsumer(conn, messaging.QueueKitchenOrders, "kitchen-service", 10),
		svc:      svc,
	}
}

func (c *OrderSentConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx, c.handle)
}

func (c *OrderSentConsumer) handle(ctx context.Context, env events.Envelope) error {
	if env.EventType != events.TypeOrderSentToKitchen {
		log.Warn().Str("event_type", env.EventType).Msg("Unexpected event on kitchen queue, skipping")
		return nil
	}

	var payload events.OrderSentToKitchen
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}

	log.Info().Stringer("order_id", payload.OrderID).Int("items", len(payload.Items)).Msg("Order received from bus")
	return c.svc.Ingest(ctx, payload.OrderID, payload.Items)
}

func (c *OrderSentConsumer) Close() error {
	return c.consumer.Close()
}
