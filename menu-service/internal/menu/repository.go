package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrDishNotFound = errors.New("dish not found")
	ErrDishExists   = errors.New("dish with this name already exists")
)

type Repository interface {
	Create(ctx context.Context, dish *Dish) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dish, error)
	GetByName(ctx context.Context, name string) (*Dish, error)
	List(ctx context.Context, activeOnly bool, category *Category) ([]Dish, error)
	Update(ctx context.Context, dish *Dish) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const dishColumns = `id, name, description, category, price, is_active, created_at, updated_at`

func scanDish(row pgx.Row) (*Dish, error) {
	var d Dish
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Category, &d.Price,
		&d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDishNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan dish: %w", err)
	}
	return &d, nil
}

func (r *postgresRepository) Create(ctx context.Context, dish *Dish) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		query := `INSERT INTO dishes (id, name, description, category, price, is_active, created_at, updated_at)
                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		_, err := tx.Exec(ctx, query, dish.ID, dish.Name, dish.Description,
			dish.Category, dish.Price, dish.IsActive, dish.CreatedAt, dish.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDishExists
			}
			return fmt.Errorf("repository: failed to create dish: %w", err)
		}

		return r.insertIngredients(ctx, tx, dish.ID, dish.IngredientIDs)
	})
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Dish, error) {
	query := `SELECT ` + dishColumns + ` FROM dishes WHERE id = $1`
	dish, err := scanDish(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return r.loadIngredients(ctx, dish)
}

func (r *postgresRepository) GetByName(ctx context.Context, name string) (*Dish, error) {
	query := `SELECT ` + dishColumns + ` FROM dishes WHERE name = $1`
	dish, err := scanDish(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		return nil, err
	}
	return r.loadIngredients(ctx, dish)
}

func (r *postgresRepository) List(ctx context.Context, activeOnly bool, category *Category) ([]Dish, error) {
	query := `SELECT ` + dishColumns + ` FROM dishes WHERE ($1 = false OR is_active)
              AND ($2::VARCHAR IS NULL OR category = $2) ORDER BY category, name`

	var cat *string
	if category != nil {
		s := string(*category)
		cat = &s
	}

	rows, err := r.pool.Query(ctx, query, activeOnly, cat)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list dishes: %w", err)
	}
	defer rows.Close()

	dishes := []Dish{}
	for rows.Next() {
		d, err := scanDish(rows)
		if err != nil {
			return nil, err
		}
		dishes = append(dishes, *d)
	}

	return dishes, rows.Err()
}

func (r *postgresRepository) Update(ctx context.Context, dish *Dish) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		query := `UPDATE dishes
                  SET name = $2, description = $3, category = $4, price = $5,
                      is_active = $6, updated_at = $7
                  WHERE id = $1`
		tag, err := tx.Exec(ctx, query, dish.ID, dish.Name, dish.Description,
			dish.Category, dish.Price, dish.IsActive, dish.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDishExists
			}
			return fmt.Errorf("repository: failed to update dish: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrDishNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM dish_ingredients WHERE dish_id = $1`, dish.ID); err != nil {
			return fmt.Errorf("repository: failed to clear dish ingredients: %w", err)
		}
		return r.insertIngredients(ctx, tx, dish.ID, dish.IngredientIDs)
	})
}

func (r *postgresRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	query := `UPDATE dishes SET is_active = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return false, fmt.Errorf("repository: failed to toggle dish: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM dishes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete dish: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDishNotFound
	}

	return nil
}

func (r *postgresRepository) insertIngredients(ctx context.Context, tx pgx.Tx, dishID uuid.UUID, ingredientIDs []uuid.UUID) error {
	for _, ingredientID := range ingredientIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO dish_ingredients (dish_id, ingredient_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			dishID, ingredientID,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to link ingredient %s: %w", ingredientID, err)
		}
	}
	return nil
}

// loadIngredients fills IngredientIDs for a single dish. List skips this;
// the stock check only runs on single-dish lookups.
func (r *postgresRepository) loadIngredients(ctx context.Context, dish *Dish) (*Dish, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ingredient_id FROM dish_ingredients WHERE dish_id = $1 ORDER BY ingredient_id`, dish.ID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to load dish ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ingredientID uuid.UUID
		if err := rows.Scan(&ingredientID); err != nil {
			return nil, fmt.Errorf("repository: failed to scan ingredient id: %w", err)
		}
		dish.IngredientIDs = append(dish.IngredientIDs, ingredientID)
	}

	return dish, rows.Err()
}

func (r *postgresRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(tx)
}
