// internal/app/shift_resolver.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel_ops_bot/internal/domain/clock"
	"hotel_ops_bot/internal/domain/shift"

	"github.com/sirupsen/logrus"
)

var ErrUnknownShiftNumber = fmt.Errorf("shift number is not part of the schedule")

// Resolution is the outcome of one handover-gated shift lookup.
type Resolution struct {
	Active           shift.Window
	TimeIndicated    shift.Window
	Previous         shift.Window
	ReportDate       time.Time // date the previous shift's reports are filed under
	HandoverComplete bool
	PendingEmployees []*shift.Assignment
}

type ShiftResolver struct {
	schedule    *shift.Schedule
	repo        shift.Repository
	departments []string // departments under handover control
	clock       clock.Clock
	cache       shift.ActiveCache // optional
	cacheTTL    time.Duration
	logger      *logrus.Entry
}

func NewShiftResolver(
	schedule *shift.Schedule,
	repo shift.Repository,
	handoverDepartments []string,
	clk clock.Clock,
	cache shift.ActiveCache,
	cacheTTL time.Duration,
	logger *logrus.Entry,
) *ShiftResolver {
	return &ShiftResolver{
		schedule:    schedule,
		repo:        repo,
		departments: handoverDepartments,
		clock:       clk,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.WithField("component", "shift_resolver"),
	}
}

// Resolve finds the active shift. The time-indicated window only becomes active once every
// employee of the previous window in the handover departments has filed a report. A store error
// is returned as is; no time-based fallback is made.
func (r *ShiftResolver) Resolve(ctx context.Context) (*Resolution, error) {
	now := r.clock.Now()
	indicated := r.schedule.Locate(now)
	prev := r.schedule.Previous(indicated)

	res := &Resolution{
		TimeIndicated: indicated,
		Previous:      prev,
		ReportDate:    prev.StartedOn(now),
	}

	// a single-window day has nobody to hand over to
	if prev.Number == indicated.Number {
		res.Active = indicated
		res.HandoverComplete = true
		return res, nil
	}

	assignments, err := r.repo.ListActiveAssignments(ctx, prev.Code, r.departments)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for shift %s: %w", prev.Code, err)
	}

	checked := make(map[int64]bool, len(assignments))
	for _, a := range assignments {
		if checked[a.EmployeeID] {
			continue
		}
		checked[a.EmployeeID] = true

		filed, err := r.repo.HasReport(ctx, a.EmployeeID, prev.Number, res.ReportDate)
		if err != nil {
			return nil, fmt.Errorf("failed to check shift report for employee %d: %w", a.EmployeeID, err)
		}
		if !filed {
			res.PendingEmployees = append(res.PendingEmployees, a)
		}
	}

	res.HandoverComplete = len(res.PendingEmployees) == 0
	if res.HandoverComplete {
		res.Active = indicated
	} else {
		res.Active = prev
		r.logger.WithFields(logrus.Fields{
			"time_indicated": indicated.Code,
			"previous":       prev.Code,
			"pending":        len(res.PendingEmployees),
		}).Debug("Handover incomplete, previous shift stays active")
	}
	return res, nil
}

func (r *ShiftResolver) cacheKey(now time.Time) string {
	indicated := r.schedule.Locate(now)
	return fmt.Sprintf("%s:%s", indicated.Code, shift.DateOf(now).Format("2006-01-02"))
}

// ActiveShift returns only the active window, served from the cache when one is configured.
func (r *ShiftResolver) ActiveShift(ctx context.Context) (shift.Window, error) {
	if r.cache == nil {
		res, err := r.Resolve(ctx)
		if err != nil {
			return shift.Window{}, err
		}
		return res.Active, nil
	}

	key := r.cacheKey(r.clock.Now())
	code, err := r.cache.Get(ctx, key)
	if err == nil {
		if w, ok := r.schedule.ByCode(code); ok {
			return w, nil
		}
		r.logger.WithField("code", code).Warn("Cached shift code not in schedule, resolving again")
	} else if !errors.Is(err, shift.ErrCacheMiss) {
		r.logger.WithError(err).Warn("Shift cache read failed, resolving from store")
	}

	res, err := r.Resolve(ctx)
	if err != nil {
		return shift.Window{}, err
	}
	if err := r.cache.Set(ctx, key, res.Active.Code, r.cacheTTL); err != nil {
		r.logger.WithError(err).Warn("Shift cache write failed")
	}
	return res.Active, nil
}

// OnShiftEmployees lists the active-shift assignments of one department.
func (r *ShiftResolver) OnShiftEmployees(ctx context.Context, department string) ([]*shift.Assignment, error) {
	active, err := r.ActiveShift(ctx)
	if err != nil {
		return nil, err
	}
	return r.repo.ListActiveAssignments(ctx, active.Code, []string{department})
}

// IsOnShift reports whether the employee holds an active assignment on the active shift
// in any department.
func (r *ShiftResolver) IsOnShift(ctx context.Context, employeeID int64) (bool, error) {
	active, err := r.ActiveShift(ctx)
	if err != nil {
		return false, err
	}
	assignments, err := r.repo.ListActiveAssignments(ctx, active.Code, nil)
	if err != nil {
		return false, err
	}
	for _, a := range assignments {
		if a.EmployeeID == employeeID {
			return true, nil
		}
	}
	return false, nil
}

// SubmitReport files a handover report. Filing twice is harmless.
func (r *ShiftResolver) SubmitReport(ctx context.Context, employeeID int64, shiftNumber int, date time.Time) (bool, error) {
	known := false
	for _, w := range r.schedule.Windows() {
		if w.Number == shiftNumber {
			known = true
			break
		}
	}
	if !known {
		return false, fmt.Errorf("%w: %d", ErrUnknownShiftNumber, shiftNumber)
	}

	created, err := r.repo.CreateReport(ctx, &shift.Report{
		EmployeeID:  employeeID,
		ShiftNumber: shiftNumber,
		ShiftDate:   shift.DateOf(date),
		SubmittedAt: r.clock.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to file shift report: %w", err)
	}

	if created && r.cache != nil {
		if err := r.cache.Invalidate(ctx); err != nil {
			r.logger.WithError(err).Warn("Shift cache invalidation failed")
		}
	}

	r.logger.WithFields(logrus.Fields{
		"employee_id":  employeeID,
		"shift_number": shiftNumber,
		"created":      created,
	}).Info("Shift report filed")
	return created, nil
}
