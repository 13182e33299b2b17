package kitchen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrQueueItemNotFound = errors.New("kitchen queue item not found")

// Repository owns kitchen queue rows. order_item_id carries a unique
// constraint: both ingestion paths (sync push and event consumption) insert
// through Insert, and only the first writer for an order item creates a row.
type Repository interface {
	Insert(ctx context.Context, item *QueueItem) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*QueueItem, error)
	GetByOrderItemID(ctx context.Context, orderItemID uuid.UUID) (*QueueItem, error)
	ListActive(ctx context.Context) ([]QueueItem, error)
	ListAll(ctx context.Context) ([]QueueItem, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]QueueItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, next DishStatus) (bool, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// Insert creates the row unless one already exists for the order item.
// Returns false when another path queued the dish first.
func (r *postgresRepository) Insert(ctx context.Context, item *QueueItem) (bool, error) {
	if item.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return false, fmt.Errorf("repository: failed to generate queue item id: %w", err)
		}
		item.ID = id
	}
	item.CreatedAt = time.Now().UTC()
	if item.Status == "" {
		item.Status = StatusPending
	}

	query := `
		INSERT INTO kitchen_queue (id, order_id, order_item_id, dish_name, quantity, status, special_request, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_item_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		item.ID, item.OrderID, item.OrderItemID, item.DishName,
		item.Quantity, string(item.Status), item.SpecialRequest, item.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("repository: failed to insert queue item: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

const queueColumns = `id, order_id, order_item_id, dish_name, quantity, status, special_request, created_at, started_at, completed_at`

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*QueueItem, error) {
	return r.getOne(ctx, `SELECT `+queueColumns+` FROM kitchen_queue WHERE id = $1`, id)
}

func (r *postgresRepository) GetByOrderItemID(ctx context.Context, orderItemID uuid.UUID) (*QueueItem, error) {
	return r.getOne(ctx, `SELECT `+queueColumns+` FROM kitchen_queue WHERE order_item_id = $1`, orderItemID)
}

func (r *postgresRepository) getOne(ctx context.Context, query string, arg any) (*QueueItem, error) {
	var item QueueItem
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&item.ID, &item.OrderID, &item.OrderItemID, &item.DishName, &item.Quantity,
		&item.Status, &item.SpecialRequest, &item.CreatedAt, &item.StartedAt, &item.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQueueItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select queue item: %w", err)
	}
	return &item, nil
}

// ListActive returns PENDING and IN_PROGRESS dishes, earliest submitted
// first.
func (r *postgresRepository) ListActive(ctx context.Context) ([]QueueItem, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM kitchen_queue
		WHERE status = ANY($1)
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, []string{string(StatusPending), string(StatusInProgress)})
}

func (r *postgresRepository) ListAll(ctx context.Context) ([]QueueItem, error) {
	return r.list(ctx, `SELECT `+queueColumns+` FROM kitchen_queue ORDER BY created_at ASC`)
}

func (r *postgresRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]QueueItem, error) {
	return r.list(ctx, `SELECT `+queueColumns+` FROM kitchen_queue WHERE order_id = $1 ORDER BY created_at ASC`, orderID)
}

func (r *postgresRepository) list(ctx context.Context, query string, args ...any) ([]QueueItem, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query queue items: %w", err)
	}
	defer rows.Close()

	items := make([]QueueItem, 0)
	for rows.Next() {
		var item QueueItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.OrderItemID, &item.DishName, &item.Quantity,
			&item.Status, &item.SpecialRequest, &item.CreatedAt, &item.StartedAt, &item.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("repository: failed to scan queue item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating queue items: %w", err)
	}
	return items, nil
}

// UpdateStatus moves the item from one status to the next conditionally.
// started_at and completed_at are stamped only when still null, so a stamp
// survives any later writes untouched. Zero rows means a concurrent writer
// already moved the item.
func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, next DishStatus) (bool, error) {
	now := time.Now().UTC()

	query := `
		UPDATE kitchen_queue
		SET status = $2,
		    started_at = CASE WHEN $2 = 'IN_PROGRESS' THEN COALESCE(started_at, $4) ELSE started_at END,
		    completed_at = CASE WHEN $2 = 'READY' THEN COALESCE(completed_at, $4) ELSE completed_at END
		WHERE id = $1 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, id, string(next), string(from), now)
	if err != nil {
		return false, fmt.Errorf("repository: failed to update queue item %s status: %w", id, err)
	}

	return tag.RowsAffected() > 0, nil
}
