package order_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"restaurant-backend/order-service/internal/order"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from order.OrderStatus
		to   order.OrderStatus
		want bool
	}{
		{"created_to_in_kitchen", order.StatusCreated, order.StatusInKitchen, true},
		{"in_kitchen_to_ready", order.StatusInKitchen, order.StatusReady, true},
		{"in_kitchen_to_closed", order.StatusInKitchen, order.StatusClosed, true},
		{"ready_to_closed", order.StatusReady, order.StatusClosed, true},
		{"created_to_ready_skips", order.StatusCreated, order.StatusReady, false},
		{"created_to_closed_skips", order.StatusCreated, order.StatusClosed, false},
		{"ready_back_to_in_kitchen", order.StatusReady, order.StatusInKitchen, false},
		{"closed_is_terminal", order.StatusClosed, order.StatusReady, false},
		{"in_kitchen_back_to_created", order.StatusInKitchen, order.StatusCreated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestComputeTotal(t *testing.T) {
	items := []order.OrderItem{
		{Quantity: 2, UnitPrice: decimal.NewFromFloat(12.50)},
		{Quantity: 1, UnitPrice: decimal.NewFromFloat(8.00)},
		{Quantity: 3, UnitPrice: decimal.NewFromFloat(4.30)},
	}

	total := order.ComputeTotal(items)
	assert.True(t, total.Equal(decimal.NewFromFloat(45.90)), "got %s", total)
}

func TestComputeTotal_Empty(t *testing.T) {
	total := order.ComputeTotal(nil)
	assert.True(t, total.IsZero())
}
