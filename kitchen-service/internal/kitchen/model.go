package kitchen

import (
	"time"

	"github.com/gofrs/uuid"
)

type DishStatus string

const (
	StatusPending    DishStatus = "PENDING"
	StatusInProgress DishStatus = "IN_PROGRESS"
	StatusReady      DishStatus = "READY"
	StatusServed     DishStatus = "SERVED"
)

func (s DishStatus) String() string {
	return string(s)
}

// Preparation state is strictly monotonic; SERVED is terminal.
var allowedTransitions = map[DishStatus]map[DishStatus]bool{
	StatusPending: {
		StatusInProgress: true,
	},
	StatusInProgress: {
		StatusReady: true,
	},
	StatusReady: {
		StatusServed: true,
	},
	StatusServed: {},
}

// CanTransitionTo reports whether the state machine permits moving to next.
func (s DishStatus) CanTransitionTo(next DishStatus) bool {
	return allowedTransitions[s][next]
}

// QueueItem is one dish to prepare. OrderID and OrderItemID are
// back-references; the kitchen does not own the order. StartedAt and
// CompletedAt are stamped on first entry into IN_PROGRESS and READY and
// never overwritten.
type QueueItem struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrderID        uuid.UUID  `json:"order_id" db:"order_id"`
	OrderItemID    uuid.UUID  `json:"order_item_id" db:"order_item_id"`
	DishName       string     `json:"dish_name" db:"dish_name"`
	Quantity       int        `json:"quantity" db:"quantity"`
	Status         DishStatus `json:"status" db:"status"`
	SpecialRequest string     `json:"special_request,omitempty" db:"special_request"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
