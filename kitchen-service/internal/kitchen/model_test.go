package kitchen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"restaurant-backend/kitchen-service/internal/kitchen"
)

func TestDishStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from kitchen.DishStatus
		to   kitchen.DishStatus
		want bool
	}{
		{"pending_to_in_progress", kitchen.StatusPending, kitchen.StatusInProgress, true},
		{"in_progress_to_ready", kitchen.StatusInProgress, kitchen.StatusReady, true},
		{"ready_to_served", kitchen.StatusReady, kitchen.StatusServed, true},
		{"pending_skips_to_ready", kitchen.StatusPending, kitchen.StatusReady, false},
		{"pending_skips_to_served", kitchen.StatusPending, kitchen.StatusServed, false},
		{"in_progress_skips_to_served", kitchen.StatusInProgress, kitchen.StatusServed, false},
		{"ready_back_to_in_progress", kitchen.StatusReady, kitchen.StatusInProgress, false},
		{"served_is_terminal", kitchen.StatusServed, kitchen.StatusReady, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}
