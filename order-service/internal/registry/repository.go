package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTableNotFound    = errors.New("table not found")
	ErrEmployeeNotFound = errors.New("employee not found")
)

// Repository holds the reference data the order aggregate consults: tables
// and employees.
type Repository interface {
	CreateTable(ctx context.Context, t *RestaurantTable) error
	GetTable(ctx context.Context, id uuid.UUID) (*RestaurantTable, error)
	ListTables(ctx context.Context) ([]RestaurantTable, error)
	OccupyTable(ctx context.Context, id uuid.UUID) (bool, error)
	FreeTable(ctx context.Context, id uuid.UUID) error
	CreateEmployee(ctx context.Context, e *Employee) error
	GetEmployee(ctx context.Context, id uuid.UUID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateTable(ctx context.Context, t *RestaurantTable) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate table id: %w", err)
		}
		t.ID = id
	}
	if t.Status == "" {
		t.Status = TableFree
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO restaurant_tables (id, number, capacity, location, status) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Number, t.Capacity, t.Location, string(t.Status),
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert table: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetTable(ctx context.Context, id uuid.UUID) (*RestaurantTable, error) {
	var t RestaurantTable
	err := r.db.QueryRow(ctx,
		`SELECT id, number, capacity, location, status FROM restaurant_tables WHERE id = $1`, id,
	).Scan(&t.ID, &t.Number, &t.Capacity, &t.Location, &t.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("repository: failed to select table %s: %w", id, err)
	}
	return &t, nil
}

func (r *postgresRepository) ListTables(ctx context.Context) ([]RestaurantTable, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, number, capacity, location, status FROM restaurant_tables ORDER BY number ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query tables: %w", err)
	}
	defer rows.Close()

	tables := make([]RestaurantTable, 0)
	for rows.Next() {
		var t RestaurantTable
		if err := rows.Scan(&t.ID, &t.Number, &t.Capacity, &t.Location, &t.Status); err != nil {
			return nil, fmt.Errorf("repository: failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating tables: %w", err)
	}
	return tables, nil
}

// OccupyTable is the compare-and-swap closing the double-booking race: only
// a FREE row flips, and the affected-row count says who won.
func (r *postgresRepository) OccupyTable(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE restaurant_tables SET status = $2 WHERE id = $1 AND status = $3`,
		id, string(TableOccupied), string(TableFree),
	)
	if err != nil {
		return false, fmt.Errorf("repository: failed to occupy table %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) FreeTable(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE restaurant_tables SET status = $2 WHERE id = $1`,
		id, string(TableFree),
	)
	if err != nil {
		return fmt.Errorf("repository: failed to free table %s: %w", id, err)
	}
	return nil
}

func (r *postgresRepository) CreateEmployee(ctx context.Context, e *Employee) error {
	if e.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate employee id: %w", err)
		}
		e.ID = id
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO employees (id, first_name, last_name, email, phone, role) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.FirstName, e.LastName, e.Email, e.Phone, e.Role,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert employee: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetEmployee(ctx context.Context, id uuid.UUID) (*Employee, error) {
	var e Employee
	err := r.db.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, phone, role FROM employees WHERE id = $1`, id,
	).Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Phone, &e.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("repository: failed to select employee %s: %w", id, err)
	}
	return &e, nil
}

func (r *postgresRepository) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, first_name, last_name, email, phone, role FROM employees ORDER BY last_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query employees: %w", err)
	}
	defer rows.Close()

	employees := make([]Employee, 0)
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Phone, &e.Role); err != nil {
			return nil, fmt.Errorf("repository: failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating employees: %w", err)
	}
	return employees, nil
}
