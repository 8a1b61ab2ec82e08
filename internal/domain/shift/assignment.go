package shift

import (
	"errors"
	"time"
)

var (
	ErrInvalidSchedule   = errors.New("invalid shift schedule")
	ErrInvalidTimeOfDay  = errors.New("invalid time of day, want HH:MM")
	ErrAssignmentMissing = errors.New("active shift assignment not found")
)

// Assignment places an employee on a shift in a department.
// There is at most one active assignment per employee per department.
type Assignment struct {
	ID           int64
	EmployeeID   int64 // telegram id
	EmployeeName string
	ShiftCode    string
	Department   string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Report is the handover report an employee files at the end of a shift.
// Its existence for (employee, shift number, date) means the employee has handed over.
type Report struct {
	ID          int64
	EmployeeID  int64
	ShiftNumber int
	ShiftDate   time.Time
	SubmittedAt time.Time
}
