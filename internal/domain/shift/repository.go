package shift

import (
	"context"
	"errors"
	"time"
)

// Repository gives access to shift assignments and handover reports.
type Repository interface {
	// ListActiveAssignments filters by department only when departments is non-empty.
	ListActiveAssignments(ctx context.Context, shiftCode string, departments []string) ([]*Assignment, error)
	ListAssignmentsByDepartment(ctx context.Context, department string) ([]*Assignment, error)
	GetActiveAssignment(ctx context.Context, employeeID int64, department string) (*Assignment, error)
	UpsertAssignment(ctx context.Context, a *Assignment) error
	// DeactivateAssignments clears all departments when department is empty.
	DeactivateAssignments(ctx context.Context, employeeID int64, department string) (int64, error)

	HasReport(ctx context.Context, employeeID int64, shiftNumber int, date time.Time) (bool, error)
	// CreateReport is idempotent on (employee, shift number, date); created is false on a repeat.
	CreateReport(ctx context.Context, r *Report) (created bool, err error)
}

// ErrCacheMiss is returned by an ActiveCache that holds no value for the key.
var ErrCacheMiss = errors.New("shift cache miss")

// ActiveCache memoises the resolved active shift code.
type ActiveCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, code string, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
