package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"restaurant-backend/order-service/internal/registry"
	"restaurant-backend/pkg/apperror"
	"restaurant-backend/pkg/events"
)

// Bounded retry for the optimistic-concurrency loop on item mutations.
const maxVersionRetries = 3

type CreateOrderInput struct {
	TableID         uuid.UUID `json:"table_id"`
	WaiterID        uuid.UUID `json:"waiter_id"`
	SpecialRequests string    `json:"special_requests,omitempty"`
}

type AddItemInput struct {
	DishID         uuid.UUID `json:"dish_id"`
	Quantity       int       `json:"quantity"`
	SpecialRequest string    `json:"special_request,omitempty"`
}

type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	AddItem(ctx context.Context, orderID uuid.UUID, input AddItemInput) (*Order, error)
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*Order, error)
	SendToKitchen(ctx context.Context, orderID uuid.UUID) (*Order, error)
	CloseOrder(ctx context.Context, orderID uuid.UUID) (*Order, error)
	HandleDishReady(ctx context.Context, payload events.DishReady) error

	CreateTable(ctx context.Context, t *registry.RestaurantTable) error
	ListTables(ctx context.Context) ([]registry.RestaurantTable, error)
	CreateEmployee(ctx context.Context, e *registry.Employee) error
	ListEmployees(ctx context.Context) ([]registry.Employee, error)
}

type service struct {
	repo      Repository
	registry  registry.Repository
	menu      MenuPort
	kitchen   KitchenPort
	billing   BillingPort
	publisher EventPublisher
}

func NewService(repo Repository, reg registry.Repository, menu MenuPort, kitchen KitchenPort, billing BillingPort, publisher EventPublisher) Service {
	return &service{
		repo:      repo,
		registry:  reg,
		menu:      menu,
		kitchen:   kitchen,
		billing:   billing,
		publisher: publisher,
	}
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	table, err := s.registry.GetTable(ctx, input.TableID)
	if err != nil {
		if errors.Is(err, registry.ErrTableNotFound) {
			return nil, apperror.NotFound("table", input.TableID)
		}
		return nil, fmt.Errorf("service: failed to fetch table: %w", err)
	}

	if _, err := s.registry.GetEmployee(ctx, input.WaiterID); err != nil {
		if errors.Is(err, registry.ErrEmployeeNotFound) {
			return nil, apperror.NotFound("employee", input.WaiterID)
		}
		return nil, fmt.Errorf("service: failed to fetch employee: %w", err)
	}

	// Conditional UPDATE, not read-then-write: two waiters racing for the
	// same table resolve on the affected-row count.
	occupied, err := s.registry.OccupyTable(ctx, table.ID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to occupy table: %w", err)
	}
	if !occupied {
		return nil, apperror.Conflict(
			"cannot create order: table is already occupied",
			fmt.Sprintf("table: %s, status: %s", table.ID, registry.TableOccupied),
		)
	}

	o := &Order{
		TableID:         table.ID,
		WaiterID:        input.WaiterID,
		Status:          StatusCreated,
		TotalAmount:     decimal.Zero,
		SpecialRequests: input.SpecialRequests,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		if freeErr := s.registry.FreeTable(ctx, table.ID); freeErr != nil {
			log.Error().Err(freeErr).Stringer("table_id", table.ID).Msg("Failed to free table after create failure")
		}
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}
	o.Items = make([]OrderItem, 0)

	s.publish(ctx, events.TopicOrderCreated, events.TypeOrderCreated, o.ID, events.OrderCreated{
		OrderID:  o.ID,
		TableID:  o.TableID,
		WaiterID: o.WaiterID,
		Status:   o.Status.String(),
	})

	log.Info().Stringer("order_id", o.ID).Stringer("table_id", o.TableID).Msg("Order created")
	return o, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, apperror.NotFound("order", id)
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}

func (s *service) ListOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *service) AddItem(ctx context.Context, orderID uuid.UUID, input AddItemInput) (*Order, error) {
	if input.Quantity < 1 {
		return nil, apperror.Validation("quantity", input.Quantity, "quantity must be at least 1")
	}

	dish, err := s.menu.GetDish(ctx, input.DishID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		o, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return nil, apperror.NotFound("order", orderID)
			}
			return nil, fmt.Errorf("service: failed to fetch order: %w", err)
		}

		item := &OrderItem{
			OrderID:        orderID,
			DishID:         dish.ID,
			DishName:       dish.Name,
			Quantity:       input.Quantity,
			UnitPrice:      dish.Price,
			SpecialRequest: input.SpecialRequest,
		}

		newTotal := ComputeTotal(o.Items).Add(item.Subtotal())
		err = s.repo.InsertItem(ctx, item, newTotal, o.Version)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("service: failed to add item: %w", err)
		}

		return s.GetOrderByID(ctx, orderID)
	}

	return nil, apperror.Conflict(
		"cannot add item: order is being modified concurrently",
		fmt.Sprintf("order: %s, retries: %d", orderID, maxVersionRetries),
	)
}

func (s *service) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*Order, error) {
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		o, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return nil, apperror.NotFound("order", orderID)
			}
			return nil, fmt.Errorf("service: failed to fetch order: %w", err)
		}

		item, err := s.repo.GetItem(ctx, orderID, itemID)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				return nil, apperror.NotFound("order item", itemID)
			}
			return nil, fmt.Errorf("service: failed to fetch item: %w", err)
		}

		newTotal := ComputeTotal(o.Items).Sub(item.Subtotal())
		err = s.repo.DeleteItem(ctx, orderID, itemID, newTotal, o.Version)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperror.NotFound("order item", itemID)
		}
		if err != nil {
			return nil, fmt.Errorf("service: failed to remove item: %w", err)
		}

		return s.GetOrderByID(ctx, orderID)
	}

	return nil, apperror.Conflict(
		"cannot remove item: order is being modified concurrently",
		fmt.Sprintf("order: %s, retries: %d", orderID, maxVersionRetries),
	)
}

func (s *service) SendToKitchen(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, apperror.NotFound("order", orderID)
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}

	if !o.Status.CanTransitionTo(StatusInKitchen) {
		return nil, apperror.Conflict(
			"cannot send to kitchen: order must be in CREATED status",
			fmt.Sprintf("order: %s, current status: %s", orderID, o.Status),
		)
	}
	if len(o.Items) == 0 {
		return nil, apperror.Conflict(
			"cannot send to kitchen: order has no items",
			fmt.Sprintf("order: %s, items count: 0", orderID),
		)
	}

	// Fail-closed: the kitchen must acknowledge every item before the order
	// leaves CREATED. The kitchen de-duplicates on order_item_id, so a
	// partial push retried later cannot double-queue a dish.
	for _, item := range o.Items {
		push := KitchenPush{
			OrderID:        o.ID,
			OrderItemID:    item.ID,
			DishName:       item.DishName,
			Quantity:       item.Quantity,
			SpecialRequest: item.SpecialRequest,
		}
		if err := s.kitchen.AddToQueue(ctx, push); err != nil {
			return nil, err
		}
	}

	moved, err := s.repo.UpdateStatus(ctx, orderID, StatusInKitchen, statusesAllowing(StatusInKitchen), nil)
	if err != nil {
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}
	if !moved {
		return nil, apperror.Conflict(
			"cannot send to kitchen: order must be in CREATED status",
			fmt.Sprintf("order: %s, concurrent transition", orderID),
		)
	}

	kitchenItems := make([]events.KitchenItem, 0, len(o.Items))
	for _, item := range o.Items {
		kitchenItems = append(kitchenItems, events.KitchenItem{
			OrderItemID:    item.ID,
			DishName:       item.DishName,
			Quantity:       item.Quantity,
			SpecialRequest: item.SpecialRequest,
		})
	}
	s.publish(ctx, events.TopicOrderSentToKitchen, events.TypeOrderSentToKitchen, o.ID, events.OrderSentToKitchen{
		OrderID: o.ID,
		Items:   kitchenItems,
	})

	log.Info().Stringer("order_id", o.ID).Int("items", len(o.Items)).Msg("Order sent to kitchen")
	return s.GetOrderByID(ctx, orderID)
}

// HandleDishReady advances IN_KITCHEN orders to READY. Any other current
// status makes the event a no-op: replays and late deliveries never regress
// state.
func (s *service) HandleDishReady(ctx context.Context, payload events.DishReady) error {
	moved, err := s.repo.UpdateStatus(ctx, payload.OrderID, StatusReady, statusesAllowing(StatusReady), nil)
	if err != nil {
		return fmt.Errorf("service: failed to advance order on dish ready: %w", err)
	}

	if moved {
		log.Info().Stringer("order_id", payload.OrderID).Str("dish", payload.DishName).Msg("Order ready")
	} else {
		log.Debug().Stringer("order_id", payload.OrderID).Msg("DISH_READY ignored, order not in kitchen")
	}
	return nil
}

func (s *service) CloseOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	now := time.Now().UTC()
	moved, err := s.repo.UpdateStatus(ctx, orderID, StatusClosed, statusesAllowing(StatusClosed), &now)
	if err != nil {
		return nil, fmt.Errorf("service: failed to close order: %w", err)
	}
	if !moved {
		o, getErr := s.repo.GetByID(ctx, orderID)
		if getErr != nil {
			if errors.Is(getErr, ErrOrderNotFound) {
				return nil, apperror.NotFound("order", orderID)
			}
			return nil, fmt.Errorf("service: failed to fetch order: %w", getErr)
		}
		return nil, apperror.Conflict(
			"cannot close order: nothing prepared or already closed",
			fmt.Sprintf("order: %s, current status: %s", orderID, o.Status),
		)
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch closed order: %w", err)
	}

	if err := s.registry.FreeTable(ctx, o.TableID); err != nil {
		log.Error().Err(err).Stringer("table_id", o.TableID).Msg("Failed to free table on order close")
	}

	// Billing must not block closing the table. A failed trigger is logged;
	// the bill can still be generated through the billing API.
	if err := s.billing.GenerateBill(ctx, o.ID); err != nil {
		log.Warn().Err(err).Stringer("order_id", o.ID).Msg("Failed to trigger bill generation")
	}

	log.Info().Stringer("order_id", o.ID).Msg("Order closed")
	return o, nil
}

func (s *service) CreateTable(ctx context.Context, t *registry.RestaurantTable) error {
	if t.Capacity < 1 {
		return apperror.Validation("capacity", t.Capacity, "capacity must be at least 1")
	}
	if err := s.registry.CreateTable(ctx, t); err != nil {
		return fmt.Errorf("service: failed to create table: %w", err)
	}
	return nil
}

func (s *service) ListTables(ctx context.Context) ([]registry.RestaurantTable, error) {
	tables, err := s.registry.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list tables: %w", err)
	}
	return tables, nil
}

func (s *service) CreateEmployee(ctx context.Context, e *registry.Employee) error {
	if e.FirstName == "" || e.LastName == "" {
		return apperror.Validation("name", e.FirstName+" "+e.LastName, "first and last name are required")
	}
	if err := s.registry.CreateEmployee(ctx, e); err != nil {
		return fmt.Errorf("service: failed to create employee: %w", err)
	}
	return nil
}

func (s *service) ListEmployees(ctx context.Context) ([]registry.Employee, error) {
	employees, err := s.registry.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list employees: %w", err)
	}
	return employees, nil
}

// publish is fire-and-forget: a lost event is logged, never retried.
func (s *service) publish(ctx context.Context, topic, eventType string, orderID uuid.UUID, payload any) {
	env, err := events.New(eventType, orderID, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to build event")
		return
	}
	if err := s.publisher.Publish(ctx, topic, env); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Stringer("order_id", orderID).Msg("Failed to publish event")
	}
}
