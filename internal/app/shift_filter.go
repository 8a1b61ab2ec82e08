package app

import (
	"context"
	"fmt"

	"hotel_ops_bot/internal/domain/shift"
)

// OnShiftLookup lists the active-shift assignments of one department. *ShiftResolver
// satisfies it.
type OnShiftLookup interface {
	OnShiftEmployees(ctx context.Context, department string) ([]*shift.Assignment, error)
}

// ShiftFilter narrows recipients in shift-run departments to the staff on the active shift.
// Other departments pass through. A nil *ShiftFilter keeps everyone.
type ShiftFilter struct {
	lookup      OnShiftLookup
	departments map[string]bool
}

func NewShiftFilter(lookup OnShiftLookup, shiftDepartments []string) *ShiftFilter {
	f := &ShiftFilter{
		lookup:      lookup,
		departments: make(map[string]bool, len(shiftDepartments)),
	}
	for _, d := range shiftDepartments {
		f.departments[d] = true
	}
	return f
}

// Applies reports whether department is shift-run.
func (f *ShiftFilter) Applies(department string) bool {
	return f != nil && f.lookup != nil && f.departments[department]
}

// OnShift returns the members of ids that are on the active shift in department, keeping
// their order. Outside shift-run departments ids is returned unchanged.
func (f *ShiftFilter) OnShift(ctx context.Context, department string, ids []int64) ([]int64, error) {
	if !f.Applies(department) || len(ids) == 0 {
		return ids, nil
	}

	assignments, err := f.lookup.OnShiftEmployees(ctx, department)
	if err != nil {
		return nil, fmt.Errorf("failed to list on-shift staff of %s: %w", department, err)
	}
	on := make(map[int64]bool, len(assignments))
	for _, a := range assignments {
		on[a.EmployeeID] = true
	}

	kept := make([]int64, 0, len(ids))
	for _, id := range ids {
		if on[id] {
			kept = append(kept, id)
		}
	}
	return kept, nil
}
