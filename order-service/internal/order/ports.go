package order

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"restaurant-backend/pkg/events"
)

// Dish is the menu-service view of a dish, as of lookup time.
type Dish struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	IsActive bool            `json:"is_active"`
}

// MenuPort resolves dish name and price. Implementations fail closed: if the
// menu service is down and the breaker is open, an item cannot be priced and
// the add is refused.
type MenuPort interface {
	GetDish(ctx context.Context, dishID uuid.UUID) (*Dish, error)
}

// KitchenPush is one dish handed to the kitchen queue.
type KitchenPush struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderItemID    uuid.UUID `json:"order_item_id"`
	DishName       string    `json:"dish_name"`
	Quantity       int       `json:"quantity"`
	SpecialRequest string    `json:"special_request,omitempty"`
}

// KitchenPort pushes dishes to the kitchen queue. Implementations fail
// closed: an order must not reach IN_KITCHEN unless the kitchen knows.
type KitchenPort interface {
	AddToQueue(ctx context.Context, push KitchenPush) error
}

// BillingPort triggers bill generation on order closure. Callers treat a
// failure as non-fatal; a bill can be generated later through the billing API.
type BillingPort interface {
	GenerateBill(ctx context.Context, orderID uuid.UUID) error
}

// EventPublisher sends envelopes to the bus, fire-and-forget.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, env events.Envelope) error
}
