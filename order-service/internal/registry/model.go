package registry

import (
	"github.com/gofrs/uuid"
)

type TableStatus string

const (
	TableFree     TableStatus = "FREE"
	TableOccupied TableStatus = "OCCUPIED"
)

// RestaurantTable status is mutated only by order creation and closure.
type RestaurantTable struct {
	ID       uuid.UUID   `json:"id" db:"id"`
	Number   int         `json:"number" db:"number"`
	Capacity int         `json:"capacity" db:"capacity"`
	Location string      `json:"location,omitempty" db:"location"`
	Status   TableStatus `json:"status" db:"status"`
}

type Employee struct {
	ID        uuid.UUID `json:"id" db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Role      string    `json:"role" db:"role"`
}
