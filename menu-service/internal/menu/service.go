package menu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"restaurant-backend/pkg/apperror"
)

// InventoryPort checks whether every listed ingredient is on hand.
// Implementations are fail-open: when the stock service cannot answer, the
// ingredients count as available.
type InventoryPort interface {
	AllAvailable(ctx context.Context, ingredientIDs []uuid.UUID) bool
}

type CreateDishInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      Category        `json:"category"`
	Price         decimal.Decimal `json:"price"`
	IngredientIDs []uuid.UUID     `json:"ingredient_ids"`
}

type UpdateDishInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      Category        `json:"category"`
	Price         decimal.Decimal `json:"price"`
	IsActive      bool            `json:"is_active"`
	IngredientIDs []uuid.UUID     `json:"ingredient_ids"`
}

type Service interface {
	CreateDish(ctx context.Context, input CreateDishInput) (*Dish, error)
	GetDishByID(ctx context.Context, id uuid.UUID) (*Dish, error)
	GetDishByName(ctx context.Context, name string) (*Dish, error)
	ListDishes(ctx context.Context, activeOnly bool, category *Category) ([]Dish, error)
	UpdateDish(ctx context.Context, id uuid.UUID, input UpdateDishInput) (*Dish, error)
	SetDishActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteDish(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	inventory InventoryPort
}

func NewService(repo Repository, inventory InventoryPort) Service {
	return &service{repo: repo, inventory: inventory}
}

func (s *service) CreateDish(ctx context.Context, input CreateDishInput) (*Dish, error) {
	if input.Name == "" {
		return nil, apperror.Validation("name", input.Name, "name is required")
	}
	if !input.Category.Valid() {
		return nil, apperror.Validation("category", input.Category, "unknown category")
	}
	if !input.Price.IsPositive() {
		return nil, apperror.Validation("price", input.Price.String(), "price must be positive")
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate dish id: %w", err)
	}

	now := time.Now().UTC()
	dish := &Dish{
		ID:            id,
		Name:          input.Name,
		Description:   input.Description,
		Category:      input.Category,
		Price:         input.Price,
		IsActive:      true,
		IngredientIDs: input.IngredientIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, dish); err != nil {
		if errors.Is(err, ErrDishExists) {
			return nil, apperror.Conflict("dish with this name already exists", input.Name)
		}
		return nil, err
	}

	log.Info().Stringer("dish_id", dish.ID).Str("name", dish.Name).Msg("Dish created")
	return dish, nil
}

// GetDishByID resolves a dish for ordering. An active dish that is out of
// stock is reported inactive so callers refuse to sell it.
func (s *service) GetDishByID(ctx context.Context, id uuid.UUID) (*Dish, error) {
	dish, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrDishNotFound) {
		return nil, apperror.NotFound("dish", id.String())
	}
	if err != nil {
		return nil, err
	}

	s.applyStock(ctx, dish)
	return dish, nil
}

func (s *service) GetDishByName(ctx context.Context, name string) (*Dish, error) {
	dish, err := s.repo.GetByName(ctx, name)
	if errors.Is(err, ErrDishNotFound) {
		return nil, apperror.NotFound("dish", name)
	}
	if err != nil {
		return nil, err
	}

	s.applyStock(ctx, dish)
	return dish, nil
}

func (s *service) ListDishes(ctx context.Context, activeOnly bool, category *Category) ([]Dish, error) {
	return s.repo.List(ctx, activeOnly, category)
}

func (s *service) UpdateDish(ctx context.Context, id uuid.UUID, input UpdateDishInput) (*Dish, error) {
	if input.Name == "" {
		return nil, apperror.Validation("name", input.Name, "name is required")
	}
	if !input.Category.Valid() {
		return nil, apperror.Validation("category", input.Category, "unknown category")
	}
	if !input.Price.IsPositive() {
		return nil, apperror.Validation("price", input.Price.String(), "price must be positive")
	}

	dish, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrDishNotFound) {
		return nil, apperror.NotFound("dish", id.String())
	}
	if err != nil {
		return nil, err
	}

	dish.Name = input.Name
	dish.Description = input.Description
	dish.Category = input.Category
	dish.Price = input.Price
	dish.IsActive = input.IsActive
	dish.IngredientIDs = input.IngredientIDs
	dish.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, dish); err != nil {
		if errors.Is(err, ErrDishExists) {
			return nil, apperror.Conflict("dish with this name already exists", input.Name)
		}
		return nil, err
	}

	return dish, nil
}

func (s *service) SetDishActive(ctx context.Context, id uuid.UUID, active bool) error {
	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return err
	}
	if !updated {
		return apperror.NotFound("dish", id.String())
	}

	log.Info().Stringer("dish_id", id).Bool("active", active).Msg("Dish availability changed")
	return nil
}

func (s *service) DeleteDish(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrDishNotFound) {
		return apperror.NotFound("dish", id.String())
	}
	return err
}

func (s *service) applyStock(ctx context.Context, dish *Dish) {
	if !dish.IsActive || len(dish.IngredientIDs) == 0 {
		return
	}
	if !s.inventory.AllAvailable(ctx, dish.IngredientIDs) {
		log.Warn().Stringer("dish_id", dish.ID).Msg("Dish ingredients out of stock, reporting inactive")
		dish.IsActive = false
	}
}
