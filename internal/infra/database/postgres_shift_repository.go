package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hotel_ops_bot/internal/domain/shift"

	"github.com/lib/pq"
)

const assignmentColumns = `id, employee_id, employee_name, shift_code, department, is_active, created_at, updated_at`

type PostgresShiftRepository struct {
	db *sql.DB
}

func NewPostgresShiftRepository(db *sql.DB) *PostgresShiftRepository {
	return &PostgresShiftRepository{db: db}
}

func scanAssignment(row rowScanner) (*shift.Assignment, error) {
	a := &shift.Assignment{}
	err := row.Scan(&a.ID, &a.EmployeeID, &a.EmployeeName, &a.ShiftCode, &a.Department, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PostgresShiftRepository) listAssignments(ctx context.Context, query string, args ...any) ([]*shift.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing shift assignments: %w", err)
	}
	defer rows.Close()

	out := make([]*shift.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning shift assignment: %w", err)
		}
		out = append(out, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shift assignments: %w", err)
	}
	return out, nil
}

func (r *PostgresShiftRepository) ListActiveAssignments(ctx context.Context, shiftCode string, departments []string) ([]*shift.Assignment, error) {
	if len(departments) == 0 {
		query := `SELECT ` + assignmentColumns + ` FROM shift_assignments
               WHERE is_active = TRUE AND shift_code = $1 ORDER BY department, employee_id`
		return r.listAssignments(ctx, query, shiftCode)
	}
	query := `SELECT ` + assignmentColumns + ` FROM shift_assignments
               WHERE is_active = TRUE AND shift_code = $1 AND department = ANY($2)
               ORDER BY department, employee_id`
	return r.listAssignments(ctx, query, shiftCode, pq.Array(departments))
}

func (r *PostgresShiftRepository) ListAssignmentsByDepartment(ctx context.Context, department string) ([]*shift.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM shift_assignments
               WHERE department = $1 AND is_active = TRUE ORDER BY shift_code, employee_name`
	return r.listAssignments(ctx, query, department)
}

func (r *PostgresShiftRepository) GetActiveAssignment(ctx context.Context, employeeID int64, department string) (*shift.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM shift_assignments
               WHERE employee_id = $1 AND department = $2 AND is_active = TRUE`
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, employeeID, department))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shift.ErrAssignmentMissing
		}
		return nil, fmt.Errorf("error getting shift assignment: %w", err)
	}
	return a, nil
}

// UpsertAssignment keeps one row per (employee, department).
func (r *PostgresShiftRepository) UpsertAssignment(ctx context.Context, a *shift.Assignment) error {
	query := `INSERT INTO shift_assignments (employee_id, employee_name, shift_code, department, is_active)
               VALUES ($1, $2, $3, $4, $5)
               ON CONFLICT (employee_id, department) DO UPDATE
               SET employee_name = EXCLUDED.employee_name, shift_code = EXCLUDED.shift_code,
                   is_active = EXCLUDED.is_active, updated_at = NOW()
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, a.EmployeeID, a.EmployeeName, a.ShiftCode, a.Department, a.IsActive).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting shift assignment: %w", err)
	}
	return nil
}

func (r *PostgresShiftRepository) DeactivateAssignments(ctx context.Context, employeeID int64, department string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if department == "" {
		res, err = r.db.ExecContext(ctx,
			`UPDATE shift_assignments SET is_active = FALSE, updated_at = NOW()
               WHERE employee_id = $1 AND is_active = TRUE`, employeeID)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE shift_assignments SET is_active = FALSE, updated_at = NOW()
               WHERE employee_id = $1 AND department = $2 AND is_active = TRUE`, employeeID, department)
	}
	if err != nil {
		return 0, fmt.Errorf("error deactivating shift assignments: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresShiftRepository) HasReport(ctx context.Context, employeeID int64, shiftNumber int, date time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM shift_reports
               WHERE employee_id = $1 AND shift_number = $2 AND shift_date = $3)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, employeeID, shiftNumber, dateOnly(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking shift report: %w", err)
	}
	return exists, nil
}

func (r *PostgresShiftRepository) CreateReport(ctx context.Context, rep *shift.Report) (bool, error) {
	query := `INSERT INTO shift_reports (employee_id, shift_number, shift_date, submitted_at)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (employee_id, shift_number, shift_date) DO NOTHING
               RETURNING id`
	err := r.db.QueryRowContext(ctx, query, rep.EmployeeID, rep.ShiftNumber, dateOnly(rep.ShiftDate), rep.SubmittedAt).Scan(&rep.ID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error creating shift report: %w", err)
	}
	return true, nil
}
