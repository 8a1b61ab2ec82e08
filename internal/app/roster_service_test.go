package app

import (
	"context"
	"testing"

	"hotel_ops_bot/internal/domain/employee"
	"hotel_ops_bot/internal/domain/shift"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminID = 1

func newTestRoster() (*RosterService, *mockEmployeeRepo, *mockShiftRepo) {
	er := newMockEmployeeRepo()
	sr := newMockShiftRepo()
	return NewRosterService(er, sr, shift.DefaultSchedule(), nil, testAdminID), er, sr
}

func TestRoster_AdminGate(t *testing.T) {
	svc, _, _ := newTestRoster()
	ctx := context.Background()

	_, err := svc.AddEmployee(ctx, 2, 100, "Ana", "", "Reception", employee.RoleStaff)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	_, err = svc.AssignShift(ctx, 2, 100, "Reception", "A")
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	assert.ErrorIs(t, svc.RemoveShift(ctx, 2, 100, "Reception"), ErrAdminNotAuthorized)
	_, err = svc.ListDepartmentRoster(ctx, 2, "Reception")
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
}

func TestRoster_AssignMoveAndRemove(t *testing.T) {
	svc, _, sr := newTestRoster()
	ctx := context.Background()

	e, err := svc.AddEmployee(ctx, testAdminID, 100, "Ana", "Silva", "Reception", "")
	require.NoError(t, err)
	assert.Equal(t, employee.RoleStaff, e.Role)

	_, err = svc.AddEmployee(ctx, testAdminID, 100, "Ana", "", "Reception", "")
	assert.ErrorIs(t, err, ErrEmployeeAlreadyExists)

	a, err := svc.AssignShift(ctx, testAdminID, 100, "Reception", "A")
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", a.EmployeeName)

	_, err = svc.AssignShift(ctx, testAdminID, 100, "Reception", "B")
	require.NoError(t, err)

	roster, err := svc.ListDepartmentRoster(ctx, testAdminID, "Reception")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "B", roster[0].ShiftCode)

	_, err = svc.AssignShift(ctx, testAdminID, 100, "Reception", "Z")
	assert.ErrorIs(t, err, ErrUnknownShiftCode)

	require.NoError(t, svc.RemoveShift(ctx, testAdminID, 100, "Reception"))
	assert.ErrorIs(t, svc.RemoveShift(ctx, testAdminID, 100, "Reception"), shift.ErrAssignmentMissing)
	assert.False(t, sr.assignments[0].IsActive)
}

func TestRoster_DeactivateEmployee(t *testing.T) {
	svc, er, sr := newTestRoster()
	ctx := context.Background()

	_, err := svc.AddEmployee(ctx, testAdminID, 100, "Ana", "", "Reception", employee.RoleLead)
	require.NoError(t, err)
	_, err = svc.AssignShift(ctx, testAdminID, 100, "Reception", "A")
	require.NoError(t, err)
	_, err = svc.AssignShift(ctx, testAdminID, 100, "Restaurant", "B")
	require.NoError(t, err)

	e, err := svc.DeactivateEmployee(ctx, testAdminID, 100)
	require.NoError(t, err)
	assert.False(t, e.IsActive)
	assert.False(t, er.employees[100].IsActive)
	for _, a := range sr.assignments {
		assert.False(t, a.IsActive)
	}

	_, err = svc.DeactivateEmployee(ctx, testAdminID, 100)
	assert.ErrorIs(t, err, ErrEmployeeAlreadyInactive)

	_, err = svc.AssignShift(ctx, testAdminID, 100, "Reception", "A")
	assert.ErrorIs(t, err, ErrEmployeeInactive)

	_, err = svc.DeactivateEmployee(ctx, testAdminID, 555)
	assert.ErrorIs(t, err, employee.ErrNotFound)
}

func TestRoster_ChangesInvalidateShiftCache(t *testing.T) {
	er := newMockEmployeeRepo()
	sr := newMockShiftRepo()
	cache := newMockShiftCache()
	svc := NewRosterService(er, sr, shift.DefaultSchedule(), cache, testAdminID)
	ctx := context.Background()

	_, err := svc.AddEmployee(ctx, testAdminID, 100, "Ana", "", "Reception", "")
	require.NoError(t, err)
	assert.Zero(t, cache.invalidated)

	cache.values["B:2026-03-10"] = "A"
	_, err = svc.AssignShift(ctx, testAdminID, 100, "Reception", "A")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
	assert.Empty(t, cache.values)

	require.NoError(t, svc.RemoveShift(ctx, testAdminID, 100, "Reception"))
	assert.Equal(t, 2, cache.invalidated)

	// nothing left to drop, nothing to invalidate
	_, err = svc.DeactivateEmployee(ctx, testAdminID, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.invalidated)

	_, err = svc.AssignShift(ctx, 2, 100, "Reception", "B")
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	assert.Equal(t, 2, cache.invalidated)
}

func TestRoster_AssignmentSeenByCachedResolver(t *testing.T) {
	er := newMockEmployeeRepo()
	sr := newMockShiftRepo()
	cache := newMockShiftCache()
	clk := clockAt(16, 30)
	resolver := newTestResolver(clk, sr, cache)
	svc := NewRosterService(er, sr, shift.DefaultSchedule(), cache, testAdminID)
	ctx := context.Background()

	active, err := resolver.ActiveShift(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", active.Code)

	// a morning receptionist without a handover report holds shift A open
	_, err = svc.AddEmployee(ctx, testAdminID, 21, "Rui", "", "Reception", "")
	require.NoError(t, err)
	_, err = svc.AssignShift(ctx, testAdminID, 21, "Reception", "A")
	require.NoError(t, err)

	active, err = resolver.ActiveShift(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", active.Code)
}
