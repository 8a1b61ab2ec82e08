package employee

import (
	"database/sql"
	"errors"
	"time"
)

// Role of an employee inside their department.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleLead    Role = "lead"
	RoleManager Role = "manager"
)

// Employee represents a hotel staff member reachable over Telegram.
type Employee struct {
	ID         int64
	TelegramID int64
	FirstName  string
	LastName   sql.NullString // To handle optional last name
	Department string
	Role       Role
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName is the first name plus the last name when present.
func (e *Employee) DisplayName() string {
	if e.LastName.Valid && e.LastName.String != "" {
		return e.FirstName + " " + e.LastName.String
	}
	return e.FirstName
}

// ErrNotFound is returned when no employee matches the lookup.
var ErrNotFound = errors.New("employee not found")
