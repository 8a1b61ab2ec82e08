package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hotel_ops_bot/internal/domain/employee"
	"hotel_ops_bot/internal/domain/shift"
)

// Custom application-level errors for roster service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrEmployeeAlreadyExists = fmt.Errorf("employee with this Telegram ID already exists")
var ErrEmployeeAlreadyInactive = fmt.Errorf("employee is already inactive")
var ErrEmployeeInactive = fmt.Errorf("employee is inactive")
var ErrUnknownShiftCode = fmt.Errorf("shift code is not part of the schedule")

type RosterService struct {
	employeeRepo    employee.Repository
	shiftRepo       shift.Repository
	schedule        *shift.Schedule
	cache           shift.ActiveCache // optional, shared with the ShiftResolver
	adminTelegramID int64
}

func NewRosterService(er employee.Repository, sr shift.Repository, schedule *shift.Schedule, cache shift.ActiveCache, adminID int64) *RosterService {
	return &RosterService{
		employeeRepo:    er,
		shiftRepo:       sr,
		schedule:        schedule,
		cache:           cache,
		adminTelegramID: adminID,
	}
}

// invalidate drops cached active shifts; assignment changes can move a handover gate.
func (s *RosterService) invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("roster changed but shift cache is stale: %w", err)
	}
	return nil
}

// AddEmployee registers a new staff member.
func (s *RosterService) AddEmployee(ctx context.Context, performingAdminID int64, telegramID int64, firstName, lastNameValue, department string, role employee.Role) (*employee.Employee, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}

	_, err := s.employeeRepo.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return nil, ErrEmployeeAlreadyExists
	}
	if !errors.Is(err, employee.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing employee: %w", err)
	}

	var lastName sql.NullString
	if lastNameValue != "" {
		lastName.String = lastNameValue
		lastName.Valid = true
	}
	if role == "" {
		role = employee.RoleStaff
	}

	e := &employee.Employee{
		TelegramID: telegramID,
		FirstName:  firstName,
		LastName:   lastName,
		Department: department,
		Role:       role,
		IsActive:   true,
	}
	if err := s.employeeRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create employee in repository: %w", err)
	}
	return e, nil
}

// DeactivateEmployee marks the employee inactive and drops all of their shift assignments.
func (s *RosterService) DeactivateEmployee(ctx context.Context, performingAdminID int64, telegramID int64) (*employee.Employee, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}

	target, err := s.employeeRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive {
		return target, ErrEmployeeAlreadyInactive
	}

	target.IsActive = false
	if err := s.employeeRepo.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to update employee to inactive in repository: %w", err)
	}
	n, err := s.shiftRepo.DeactivateAssignments(ctx, telegramID, "")
	if err != nil {
		return target, fmt.Errorf("employee deactivated but assignments remain: %w", err)
	}
	if n > 0 {
		if err := s.invalidate(ctx); err != nil {
			return target, err
		}
	}
	return target, nil
}

// AssignShift puts an employee on a shift in a department, replacing any previous assignment
// there.
func (s *RosterService) AssignShift(ctx context.Context, performingAdminID int64, telegramID int64, department, shiftCode string) (*shift.Assignment, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	if _, ok := s.schedule.ByCode(shiftCode); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShiftCode, shiftCode)
	}

	e, err := s.employeeRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return nil, ErrEmployeeInactive
	}

	a, err := s.shiftRepo.GetActiveAssignment(ctx, telegramID, department)
	switch {
	case err == nil:
		a.ShiftCode = shiftCode
	case errors.Is(err, shift.ErrAssignmentMissing):
		a = &shift.Assignment{
			EmployeeID: telegramID,
			Department: department,
			ShiftCode:  shiftCode,
		}
	default:
		return nil, fmt.Errorf("failed to look up current assignment: %w", err)
	}
	a.EmployeeName = e.DisplayName()
	a.IsActive = true

	if err := s.shiftRepo.UpsertAssignment(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to save shift assignment: %w", err)
	}
	if err := s.invalidate(ctx); err != nil {
		return a, err
	}
	return a, nil
}

// RemoveShift deactivates the employee's assignment in one department.
func (s *RosterService) RemoveShift(ctx context.Context, performingAdminID int64, telegramID int64, department string) error {
	if performingAdminID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	n, err := s.shiftRepo.DeactivateAssignments(ctx, telegramID, department)
	if err != nil {
		return fmt.Errorf("failed to remove shift assignment: %w", err)
	}
	if n == 0 {
		return shift.ErrAssignmentMissing
	}
	return s.invalidate(ctx)
}

func (s *RosterService) ListDepartmentRoster(ctx context.Context, performingAdminID int64, department string) ([]*shift.Assignment, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	return s.shiftRepo.ListAssignmentsByDepartment(ctx, department)
}
