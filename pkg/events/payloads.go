package events

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// KitchenItem is one dish of an order as the kitchen needs to see it.
type KitchenItem struct {
	OrderItemID    uuid.UUID `json:"order_item_id"`
	DishName       string    `json:"dish_name"`
	Quantity       int       `json:"quantity"`
	SpecialRequest string    `json:"special_request,omitempty"`
}

type OrderCreated struct {
	OrderID  uuid.UUID `json:"order_id"`
	TableID  uuid.UUID `json:"table_id"`
	WaiterID uuid.UUID `json:"waiter_id"`
	Status   string    `json:"status"`
}

type OrderSentToKitchen struct {
	OrderID uuid.UUID     `json:"order_id"`
	Items   []KitchenItem `json:"items"`
}

type DishReady struct {
	OrderID     uuid.UUID `json:"order_id"`
	QueueItemID uuid.UUID `json:"queue_item_id"`
	OrderItemID uuid.UUID `json:"order_item_id"`
	DishName    string    `json:"dish_name"`
}

type BillGenerated struct {
	BillID      uuid.UUID       `json:"bill_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	FinalAmount decimal.Decimal `json:"final_amount"`
}

type BillPaid struct {
	BillID        uuid.UUID `json:"bill_id"`
	OrderID       uuid.UUID `json:"order_id"`
	PaymentMethod string    `json:"payment_method"`
}
