package consumer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"restaurant-backend/order-service/internal/order"
	"restaurant-backend/pkg/events"
	"restaurant-backend/pkg/messaging"
)

// DishReadyConsumer feeds kitchen.dish-ready events back into the order
// aggregate. Idempotency lives in the service's status guard, not here.
type DishReadyConsumer struct {
	consumer *messaging.Consumer
	svc      order.Service
}

func NewDishReadyConsumer(conn *messaging.Connection, svc order.Service) *DishReadyConsumer {
	return &DishReadyConsumer{
		consumer: messaging.NewConsumer(conn, messaging.QueueOrderDishReady, "order-service", 10),
		svc:      svc,
	}
}

func (c *DishReadyConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx, c.handle)
}

func (c *DishReadyConsumer) handle(ctx context.Context, env events.Envelope) error {
	if env.EventType != events.TypeDishReady {
		log.Warn().Str("event_type", env.EventType).Msg("Unexpected event on dish-ready queue, skipping")
		return nil
	}

	var payload events.DishReady
	if err := env.Decode(&payload); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}

	return c.svc.HandleDishReady(ctx, payload)
}

func (c *DishReadyConsumer) Close() error {
	return c.consumer.Close()
}
