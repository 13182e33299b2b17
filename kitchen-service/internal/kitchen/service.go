package kitchen

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"restaurant-backend/pkg/apperror"
	"restaurant-backend/pkg/events"
)

// AddToQueueInput is the synchronous push from order-service, one dish per
// call.
type AddToQueueInput struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderItemID    uuid.UUID `json:"order_item_id"`
	DishName       string    `json:"dish_name"`
	Quantity       int       `json:"quantity"`
	SpecialRequest string    `json:"special_request,omitempty"`
}

// EventPublisher sends envelopes to the bus, fire-and-forget.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, env events.Envelope) error
}

type Service interface {
	AddToQueue(ctx context.Context, input AddToQueueInput) (*QueueItem, bool, error)
	Ingest(ctx context.Context, orderID uuid.UUID, items []events.KitchenItem) error
	ActiveQueue(ctx context.Context) ([]QueueItem, error)
	AllQueue(ctx context.Context) ([]QueueItem, error)
	QueueByOrderID(ctx context.Context, orderID uuid.UUID) ([]QueueItem, error)
	GetQueueItemByID(ctx context.Context, id uuid.UUID) (*QueueItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next DishStatus) (*QueueItem, error)
}

type service struct {
	repo      Repository
	publisher EventPublisher
}

func NewService(repo Repository, publisher EventPublisher) Service {
	return &service{repo: repo, publisher: publisher}
}

// AddToQueue queues one dish. The second return value is false when the
// order item was already queued through the other ingestion path; the call
// is then an acknowledged no-op.
func (s *service) AddToQueue(ctx context.Context, input AddToQueueInput) (*QueueItem, bool, error) {
	if input.OrderID == uuid.Nil || input.OrderItemID == uuid.Nil {
		return nil, false, apperror.Validation("order_item_id", input.OrderItemID, "order_id and order_item_id are required")
	}
	if input.DishName == "" {
		return nil, false, apperror.Validation("dish_name", input.DishName, "dish_name is required")
	}
	quantity := input.Quantity
	if quantity < 1 {
		quantity = 1
	}

	item := &QueueItem{
		OrderID:        input.OrderID,
		OrderItemID:    input.OrderItemID,
		DishName:       input.DishName,
		Quantity:       quantity,
		Status:         StatusPending,
		SpecialRequest: input.SpecialRequest,
	}

	created, err := s.repo.Insert(ctx, item)
	if err != nil {
		return nil, false, fmt.Errorf("service: failed to queue dish: %w", err)
	}
	if !created {
		existing, err := s.repo.GetByOrderItemID(ctx, input.OrderItemID)
		if err != nil {
			return nil, false, fmt.Errorf("service: failed to fetch queued dish: %w", err)
		}
		log.Debug().Stringer("order_item_id", input.OrderItemID).Msg("Dish already queued, skipping")
		return existing, false, nil
	}

	log.Info().Stringer("order_id", item.OrderID).Str("dish", item.DishName).Msg("Dish queued")
	return item, true, nil
}

// Ingest handles ORDER_SENT_TO_KITCHEN: one queue row per order item. Rows
// already created by the synchronous push (or an earlier delivery) are
// skipped, so redelivery is harmless.
func (s *service) Ingest(ctx context.Context, orderID uuid.UUID, items []events.KitchenItem) error {
	for _, evItem := range items {
		item := &QueueItem{
			OrderID:        orderID,
			OrderItemID:    evItem.OrderItemID,
			DishName:       evItem.DishName,
			Quantity:       evItem.Quantity,
			Status:         StatusPending,
			SpecialRequest: evItem.SpecialRequest,
		}
		created, err := s.repo.Insert(ctx, item)
		if err != nil {
			return fmt.Errorf("service: failed to ingest dish %s: %w", evItem.DishName, err)
		}
		if created {
			log.Info().Stringer("order_id", orderID).Str("dish", item.DishName).Msg("Dish queued from event")
		}
	}
	return nil
}

func (s *service) ActiveQueue(ctx context.Context) ([]QueueItem, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list active queue: %w", err)
	}
	return items, nil
}

func (s *service) AllQueue(ctx context.Context) ([]QueueItem, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list queue: %w", err)
	}
	return items, nil
}

func (s *service) QueueByOrderID(ctx context.Context, orderID uuid.UUID) ([]QueueItem, error) {
	items, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list queue for order: %w", err)
	}
	return items, nil
}

func (s *service) GetQueueItemByID(ctx context.Context, id uuid.UUID) (*QueueItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrQueueItemNotFound) {
			return nil, apperror.NotFound("kitchen queue item", id)
		}
		return nil, fmt.Errorf("service: failed to fetch queue item: %w", err)
	}
	return item, nil
}

// UpdateStatus applies one guarded transition. Repeating the current status
// is an idempotent no-op (a double "ready" click must not re-publish
// DISH_READY); skipping or reversing steps is a conflict. The conditional
// write in the repository makes the publish fire exactly once per transition
// into READY even under concurrent updates.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, next DishStatus) (*QueueItem, error) {
	item, err := s.GetQueueItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if item.Status == next {
		return item, nil
	}
	if !item.Status.CanTransitionTo(next) {
		return nil, apperror.Conflict(
			"invalid kitchen status transition",
			fmt.Sprintf("queue item: %s, from: %s, to: %s", id, item.Status, next),
		)
	}

	moved, err := s.repo.UpdateStatus(ctx, id, item.Status, next)
	if err != nil {
		return nil, fmt.Errorf("service: failed to update queue item status: %w", err)
	}
	if !moved {
		return nil, apperror.Conflict(
			"invalid kitchen status transition",
			fmt.Sprintf("queue item: %s, concurrent update", id),
		)
	}

	updated, err := s.GetQueueItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if next == StatusReady {
		s.publishDishReady(ctx, updated)
	}

	log.Info().Stringer("queue_item_id", id).Str("status", next.String()).Msg("Queue item status updated")
	return updated, nil
}

func (s *service) publishDishReady(ctx context.Context, item *QueueItem) {
	env, err := events.New(events.TypeDishReady, item.OrderID, events.DishReady{
		OrderID:     item.OrderID,
		QueueItemID: item.ID,
		OrderItemID: item.OrderItemID,
		DishName:    item.DishName,
	})
	if err != nil {
		log.Error().Err(err).Stringer("queue_item_id", item.ID).Msg("Failed to build DISH_READY event")
		return
	}
	if err := s.publisher.Publish(ctx, events.TopicDishReady, env); err != nil {
		log.Error().Err(err).Stringer("order_id", item.OrderID).Msg("Failed to publish DISH_READY event")
	}
}
