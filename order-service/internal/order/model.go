package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusCreated   OrderStatus = "CREATED"
	StatusInKitchen OrderStatus = "IN_KITCHEN"
	StatusReady     OrderStatus = "READY"
	StatusClosed    OrderStatus = "CLOSED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Status only ever moves forward; CLOSED is terminal. READY may be skipped
// when an order is closed while still IN_KITCHEN.
var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusCreated: {
		StatusInKitchen: true,
	},
	StatusInKitchen: {
		StatusReady:  true,
		StatusClosed: true,
	},
	StatusReady: {
		StatusClosed: true,
	},
	StatusClosed: {},
}

// CanTransitionTo reports whether the state machine permits moving to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return allowedTransitions[s][next]
}

// statusesAllowing lists the statuses the state machine lets move into next.
// The repository's conditional update takes this as its WHERE-clause guard.
func statusesAllowing(next OrderStatus) []OrderStatus {
	var from []OrderStatus
	for s, targets := range allowedTransitions {
		if targets[next] {
			from = append(from, s)
		}
	}
	return from
}

type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	TableID         uuid.UUID       `json:"table_id" db:"table_id"`
	WaiterID        uuid.UUID       `json:"waiter_id" db:"waiter_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	SpecialRequests string          `json:"special_requests,omitempty" db:"special_requests"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty" db:"closed_at"`
	Version         int64           `json:"-" db:"version"`
	Items           []OrderItem     `json:"items" db:"-"`
}

// OrderItem snapshots dish name and price at add-time, so later menu changes
// never touch an open order.
type OrderItem struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrderID        uuid.UUID       `json:"order_id" db:"order_id"`
	DishID         uuid.UUID       `json:"dish_id" db:"dish_id"`
	DishName       string          `json:"dish_name" db:"dish_name"`
	Quantity       int             `json:"quantity" db:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
	SpecialRequest string          `json:"special_request,omitempty" db:"special_request"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Subtotal is unit price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ComputeTotal sums the subtotals of the given items.
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
