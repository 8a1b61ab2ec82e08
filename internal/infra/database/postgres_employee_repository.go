package database

import (
	"context"
	"database/sql"
	"fmt" // For error wrapping
	"strings"

	"hotel_ops_bot/internal/domain/employee"
)

// Custom errors
var ErrDuplicateTelegramID = fmt.Errorf("employee with this Telegram ID already exists")

const employeeColumns = `id, telegram_id, first_name, last_name, department, role, is_active, created_at, updated_at`

type PostgresEmployeeRepository struct {
	db *sql.DB
}

func NewPostgresEmployeeRepository(db *sql.DB) *PostgresEmployeeRepository {
	return &PostgresEmployeeRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*employee.Employee, error) {
	e := &employee.Employee{}
	err := row.Scan(&e.ID, &e.TelegramID, &e.FirstName, &e.LastName, &e.Department, &e.Role, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *PostgresEmployeeRepository) Create(ctx context.Context, e *employee.Employee) error {
	query := `INSERT INTO employees (telegram_id, first_name, last_name, department, role, is_active)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, e.TelegramID, e.FirstName, e.LastName, e.Department, e.Role, e.IsActive).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "employees_telegram_id_key") {
			return ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating employee: %w", err)
	}
	return nil
}

func (r *PostgresEmployeeRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*employee.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE telegram_id = $1`
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, employee.ErrNotFound
		}
		return nil, fmt.Errorf("error getting employee by Telegram ID: %w", err)
	}
	return e, nil
}

func (r *PostgresEmployeeRepository) Update(ctx context.Context, e *employee.Employee) error {
	query := `UPDATE employees
               SET first_name = $1, last_name = $2, department = $3, role = $4, is_active = $5, updated_at = NOW()
               WHERE id = $6
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, e.FirstName, e.LastName, e.Department, e.Role, e.IsActive, e.ID).Scan(&e.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return employee.ErrNotFound
		}
		return fmt.Errorf("error updating employee: %w", err)
	}
	return nil
}

func (r *PostgresEmployeeRepository) list(ctx context.Context, what, query string, args ...any) ([]*employee.Employee, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", what, err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", what, err)
		}
		employees = append(employees, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return employees, nil
}

func (r *PostgresEmployeeRepository) ListActive(ctx context.Context) ([]*employee.Employee, error) {
	query := `SELECT ` + employeeColumns + `
               FROM employees WHERE is_active = TRUE ORDER BY first_name, last_name`
	return r.list(ctx, "active employees", query)
}

func (r *PostgresEmployeeRepository) ListLeads(ctx context.Context, department string) ([]*employee.Employee, error) {
	query := `SELECT ` + employeeColumns + `
               FROM employees
               WHERE is_active = TRUE AND department = $1 AND role IN ('lead', 'manager')
               ORDER BY telegram_id`
	return r.list(ctx, "department leads", query, department)
}
