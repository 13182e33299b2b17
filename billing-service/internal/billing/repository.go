package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrBillNotFound = errors.New("bill not found")
	ErrBillExists   = errors.New("bill already exists for order")
)

type Repository interface {
	Create(ctx context.Context, bill *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Bill, error)
	List(ctx context.Context, status *BillStatus) ([]Bill, error)
	Update(ctx context.Context, bill *Bill) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// uniqueViolation is the postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

func (r *postgresRepository) Create(ctx context.Context, bill *Bill) error {
	query := `INSERT INTO bills (id, order_id, table_id, waiter_id, subtotal, tax_amount,
                                 service_charge, discount_amount, final_amount, status,
                                 payment_method, issued_at, paid_at)
              VALUES (:id, :order_id, :table_id, :waiter_id, :subtotal, :tax_amount,
                      :service_charge, :discount_amount, :final_amount, :status,
                      :payment_method, :issued_at, :paid_at)`
	_, err := r.db.NamedExecContext(ctx, query, bill)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrBillExists
		}
		return fmt.Errorf("repository: failed to create bill: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	var bill Bill
	query := `SELECT * FROM bills WHERE id = $1`
	err := r.db.GetContext(ctx, &bill, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: failed to get bill by id: %w", err)
	}

	return &bill, nil
}

func (r *postgresRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Bill, error) {
	var bill Bill
	query := `SELECT * FROM bills WHERE order_id = $1`
	err := r.db.GetContext(ctx, &bill, query, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: failed to get bill by order id: %w", err)
	}

	return &bill, nil
}

func (r *postgresRepository) List(ctx context.Context, status *BillStatus) ([]Bill, error) {
	bills := []Bill{}

	var err error
	if status != nil {
		query := `SELECT * FROM bills WHERE status = $1 ORDER BY issued_at DESC`
		err = r.db.SelectContext(ctx, &bills, query, *status)
	} else {
		query := `SELECT * FROM bills ORDER BY issued_at DESC`
		err = r.db.SelectContext(ctx, &bills, query)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list bills: %w", err)
	}

	return bills, nil
}

func (r *postgresRepository) Update(ctx context.Context, bill *Bill) error {
	query := `UPDATE bills
              SET status = :status, payment_method = :payment_method,
                  discount_amount = :discount_amount, final_amount = :final_amount,
                  paid_at = :paid_at
              WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, bill)
	if err != nil {
		return fmt.Errorf("repository: failed to update bill: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrBillNotFound
	}

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete bill: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrBillNotFound
	}

	return nil
}
