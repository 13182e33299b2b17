package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrItemNotFound    = errors.New("order item not found")
	ErrVersionConflict = errors.New("order version conflict")
)

// Repository owns orders and their items. Item mutations carry the order's
// expected version: the total update is a compare-and-swap, and a lost race
// surfaces as ErrVersionConflict for the service retry loop.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	InsertItem(ctx context.Context, item *OrderItem, newTotal decimal.Decimal, version int64) error
	DeleteItem(ctx context.Context, orderID, itemID uuid.UUID, newTotal decimal.Decimal, version int64) error
	GetItem(ctx context.Context, orderID, itemID uuid.UUID) (*OrderItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next OrderStatus, allowedFrom []OrderStatus, closedAt *time.Time) (bool, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order id: %w", err)
		}
		o.ID = id
	}
	o.CreatedAt = time.Now().UTC()
	o.Version = 1

	query := `
		INSERT INTO orders (id, table_id, waiter_id, status, total_amount, special_requests, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		o.ID, o.TableID, o.WaiterID, string(o.Status), o.TotalAmount, o.SpecialRequests, o.CreatedAt, o.Version,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `
		SELECT id, table_id, waiter_id, status, total_amount, special_requests, created_at, closed_at, version
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.TableID, &o.WaiterID, &o.Status, &o.TotalAmount,
		&o.SpecialRequests, &o.CreatedAt, &o.ClosedAt, &o.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	items, err := r.itemsByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Order, error) {
	query := `
		SELECT id, table_id, waiter_id, status, total_amount, special_requests, created_at, closed_at, version
		FROM orders
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.TableID, &o.WaiterID, &o.Status, &o.TotalAmount,
			&o.SpecialRequests, &o.CreatedAt, &o.ClosedAt, &o.Version,
		); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	for i := range orders {
		items, err := r.itemsByOrder(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *postgresRepository) itemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	query := `
		SELECT id, order_id, dish_id, dish_name, quantity, unit_price, special_request, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for %s: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.DishID, &item.DishName,
			&item.Quantity, &item.UnitPrice, &item.SpecialRequest, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for %s: %w", orderID, err)
	}

	return items, nil
}

func (r *postgresRepository) InsertItem(ctx context.Context, item *OrderItem, newTotal decimal.Decimal, version int64) error {
	if item.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate item id: %w", err)
		}
		item.ID = id
	}
	item.CreatedAt = time.Now().UTC()

	return r.withItemTx(ctx, item.OrderID, newTotal, version, func(tx pgx.Tx) error {
		query := `
			INSERT INTO order_items (id, order_id, dish_id, dish_name, quantity, unit_price, special_request, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.Exec(ctx, query,
			item.ID, item.OrderID, item.DishID, item.DishName,
			item.Quantity, item.UnitPrice, item.SpecialRequest, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item: %w", err)
		}
		return nil
	})
}

func (r *postgresRepository) DeleteItem(ctx context.Context, orderID, itemID uuid.UUID, newTotal decimal.Decimal, version int64) error {
	return r.withItemTx(ctx, orderID, newTotal, version, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM order_items WHERE id = $1 AND order_id = $2`, itemID, orderID)
		if err != nil {
			return fmt.Errorf("repository: failed to delete order item %s: %w", itemID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrItemNotFound
		}
		return nil
	})
}

// withItemTx runs the item mutation and the CAS total update in one
// transaction. Zero rows on the CAS means another writer moved the version
// first.
func (r *postgresRepository) withItemTx(ctx context.Context, orderID uuid.UUID, newTotal decimal.Decimal, version int64, mutate func(tx pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("order_id", orderID).Msg("Failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	if err = mutate(tx); err != nil {
		return err
	}

	tag, execErr := tx.Exec(ctx,
		`UPDATE orders SET total_amount = $2, version = version + 1 WHERE id = $1 AND version = $3`,
		orderID, newTotal, version,
	)
	if execErr != nil {
		err = fmt.Errorf("repository: failed to update order total: %w", execErr)
		return err
	}
	if tag.RowsAffected() == 0 {
		err = ErrVersionConflict
		return err
	}

	return nil
}

func (r *postgresRepository) GetItem(ctx context.Context, orderID, itemID uuid.UUID) (*OrderItem, error) {
	query := `
		SELECT id, order_id, dish_id, dish_name, quantity, unit_price, special_request, created_at
		FROM order_items
		WHERE id = $1 AND order_id = $2
	`

	var item OrderItem
	err := r.db.QueryRow(ctx, query, itemID, orderID).Scan(
		&item.ID, &item.OrderID, &item.DishID, &item.DishName,
		&item.Quantity, &item.UnitPrice, &item.SpecialRequest, &item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select item %s: %w", itemID, err)
	}

	return &item, nil
}

// UpdateStatus moves the order to next only when its current status is one of
// allowedFrom. Returns false when no row matched, which callers use both as
// the guard for conflicting transitions and as the consumer idempotency
// boundary.
func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, next OrderStatus, allowedFrom []OrderStatus, closedAt *time.Time) (bool, error) {
	from := make([]string, 0, len(allowedFrom))
	for _, s := range allowedFrom {
		from = append(from, string(s))
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $2, closed_at = COALESCE($3, closed_at) WHERE id = $1 AND status = ANY($4)`,
		id, string(next), closedAt, from,
	)
	if err != nil {
		return false, fmt.Errorf("repository: failed to update order %s status: %w", id, err)
	}

	return tag.RowsAffected() > 0, nil
}
