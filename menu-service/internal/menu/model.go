package menu

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryAppetizer Category = "APPETIZER"
	CategoryMain      Category = "MAIN"
	CategoryDessert   Category = "DESSERT"
	CategoryDrink     Category = "DRINK"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryAppetizer, CategoryMain, CategoryDessert, CategoryDrink:
		return true
	}
	return false
}

// Dish is a menu position. IsActive is the stored flag; what callers see may
// additionally be downgraded by a stock check at read time.
type Dish struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
	// IngredientIDs ties the dish to inventory-service ingredients; the
	// stock check compares their quantities against the minimum threshold.
	IngredientIDs []uuid.UUID `json:"ingredient_ids,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
