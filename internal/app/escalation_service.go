// internal/app/escalation_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel_ops_bot/internal/domain/clock"
	"hotel_ops_bot/internal/domain/employee"
	"hotel_ops_bot/internal/domain/notification"
	"hotel_ops_bot/internal/domain/shift"
	"hotel_ops_bot/internal/domain/workitem"

	"github.com/sirupsen/logrus"
)

// SweepReport counts per-row outcomes of one sweep.
type SweepReport struct {
	Selected int
	Notified int
	Failed   int // store or notifier errors
	Skipped  int // rows another sweep already claimed
	OffShift int // notices held until the assignee's shift starts
}

func (r *SweepReport) add(o SweepReport) {
	r.Selected += o.Selected
	r.Notified += o.Notified
	r.Failed += o.Failed
	r.Skipped += o.Skipped
	r.OffShift += o.OffShift
}

// EscalationScheduler runs the overdue-notice and supervisor-escalation sweeps.
type EscalationScheduler interface {
	SweepOverdue(ctx context.Context) (SweepReport, error)
	SweepEscalations(ctx context.Context) (SweepReport, error)
}

type EscalationServiceImpl struct {
	store             workitem.Store
	employees         employee.Repository
	gateway           notification.Gateway
	shifts            *ShiftFilter
	clock             clock.Clock
	threshold         time.Duration
	managerTelegramID int64
	mirror            notification.ChannelHint // extra channel for escalations, empty for none
	logger            *logrus.Entry
}

func NewEscalationServiceImpl(
	store workitem.Store,
	employees employee.Repository,
	gateway notification.Gateway,
	shifts *ShiftFilter,
	clk clock.Clock,
	threshold time.Duration,
	managerID int64,
	mirror notification.ChannelHint,
	logger *logrus.Entry,
) *EscalationServiceImpl {
	return &EscalationServiceImpl{
		store:             store,
		employees:         employees,
		gateway:           gateway,
		shifts:            shifts,
		clock:             clk,
		threshold:         threshold,
		managerTelegramID: managerID,
		mirror:            mirror,
		logger:            logger.WithField("component", "escalation_scheduler"),
	}
}

// SweepOverdue sends each open, overdue item's assignee at most one notice per calendar day.
// The day is stamped even when the send fails. An assignee off shift in a shift-run department
// is left unstamped and picked up by a later sweep.
func (s *EscalationServiceImpl) SweepOverdue(ctx context.Context) (SweepReport, error) {
	now := s.clock.Now()
	today := shift.DateOf(now)
	var total SweepReport

	for _, kind := range workitem.AllKinds() {
		log := s.logger.WithFields(logrus.Fields{"sweep": "overdue", "kind": kind})

		items, err := s.store.QueryOverdue(ctx, kind, workitem.OpenStatuses, now, today)
		if err != nil {
			log.WithError(err).Error("Failed to query overdue work items")
			total.Failed++
			continue
		}
		total.Selected += len(items)

		for _, item := range items {
			total.add(s.noticeOverdue(ctx, log, item, now, today))
		}
	}

	s.logger.WithFields(logrus.Fields{
		"sweep":     "overdue",
		"selected":  total.Selected,
		"notified":  total.Notified,
		"failed":    total.Failed,
		"skipped":   total.Skipped,
		"off_shift": total.OffShift,
	}).Info("Overdue sweep finished")
	return total, nil
}

func (s *EscalationServiceImpl) noticeOverdue(ctx context.Context, log *logrus.Entry, item *workitem.WorkItem, now, today time.Time) SweepReport {
	var out SweepReport
	log = log.WithField("item_id", item.ID)

	onShift, err := s.shifts.OnShift(ctx, item.Department, []int64{item.AssigneeID})
	if err != nil {
		log.WithError(err).Error("Failed to check assignee shift")
		out.Failed++
		return out
	}
	if len(onShift) == 0 {
		out.OffShift++
		return out
	}

	msg := notification.Message{
		Title: "Overdue work item",
		Body: fmt.Sprintf("%q was due %s and is still %s.",
			item.Title, item.DueAt.Format("2006-01-02 15:04"), item.Status),
	}
	if item.Status == workitem.StatusPending {
		msg.Actions = []notification.Action{{Label: "Start", Data: StartCallbackData(item.Kind, item.ID)}}
	}

	sendErr := s.gateway.Send(ctx, item.AssigneeID, notification.ChannelDefault, msg)
	if sendErr != nil {
		log.WithError(sendErr).Warn("Overdue notice not delivered")
		out.Failed++
	}

	claimed, err := s.store.MarkOverdueNotified(ctx, item.Kind, item.ID, today)
	if err != nil {
		log.WithError(err).Error("Failed to stamp overdue notice date")
		if sendErr == nil {
			out.Failed++
		}
		return out
	}
	if !claimed {
		out.Skipped++
		return out
	}
	if sendErr == nil {
		out.Notified++
	}
	return out
}

// SweepEscalations notifies a supervisor once per item that is open more than the threshold
// past due. The escalated flag is one-way.
func (s *EscalationServiceImpl) SweepEscalations(ctx context.Context) (SweepReport, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.threshold)
	var total SweepReport

	for _, kind := range workitem.AllKinds() {
		log := s.logger.WithFields(logrus.Fields{"sweep": "escalation", "kind": kind})

		items, err := s.store.QueryEscalationCandidates(ctx, kind, workitem.OpenStatuses, cutoff)
		if err != nil {
			log.WithError(err).Error("Failed to query escalation candidates")
			total.Failed++
			continue
		}
		total.Selected += len(items)

		for _, item := range items {
			total.add(s.escalate(ctx, log, item, now))
		}
	}

	s.logger.WithFields(logrus.Fields{
		"sweep":    "escalation",
		"selected": total.Selected,
		"notified": total.Notified,
		"failed":   total.Failed,
		"skipped":  total.Skipped,
	}).Info("Escalation sweep finished")
	return total, nil
}

func (s *EscalationServiceImpl) escalate(ctx context.Context, log *logrus.Entry, item *workitem.WorkItem, now time.Time) SweepReport {
	var out SweepReport
	log = log.WithField("item_id", item.ID)

	// claim first so overlapping sweeps cannot both escalate
	claimed, err := s.store.MarkEscalated(ctx, item.Kind, item.ID, now)
	if err != nil {
		log.WithError(err).Error("Failed to mark work item escalated")
		out.Failed++
		return out
	}
	if !claimed {
		out.Skipped++
		return out
	}

	supervisors, err := s.resolveSupervisors(ctx, item)
	if err != nil {
		log.WithError(err).Warn("Supervisor lookup failed, escalating to manager")
		supervisors = []int64{s.managerTelegramID}
	}

	overdueBy := now.Sub(item.DueAt).Truncate(time.Minute)
	msg := notification.Message{
		Title: "Work item escalated",
		Body: fmt.Sprintf("%s item %q (department %s) assigned to %d is %s past due and still %s.",
			item.Kind, item.Title, item.Department, item.AssigneeID, overdueBy, item.Status),
		Actions: []notification.Action{{Label: "History", Data: HistoryCallbackData(item.Kind, item.ID)}},
	}

	delivered := false
	for _, sup := range supervisors {
		if err := s.gateway.Send(ctx, sup, notification.ChannelDefault, msg); err != nil {
			log.WithField("supervisor_id", sup).WithError(err).Warn("Escalation not delivered")
		} else {
			delivered = true
		}
		if s.mirror == notification.ChannelDefault {
			continue
		}
		if err := s.gateway.Send(ctx, sup, s.mirror, msg); err != nil {
			log.WithFields(logrus.Fields{"supervisor_id": sup, "channel": s.mirror}).WithError(err).Warn("Escalation copy not delivered")
			continue
		}
		delivered = true
	}
	if delivered {
		out.Notified++
	} else {
		out.Failed++
	}
	return out
}

// resolveSupervisors picks who hears about an escalation: the creator when distinct from the
// assignee, else the department leads, else the manager. Creators and leads of shift-run
// departments count only while on shift; the manager is always reachable.
func (s *EscalationServiceImpl) resolveSupervisors(ctx context.Context, item *workitem.WorkItem) ([]int64, error) {
	if item.CreatedBy != 0 && item.CreatedBy != item.AssigneeID {
		ok, err := s.creatorOnShift(ctx, item.CreatedBy)
		if err != nil {
			return nil, err
		}
		if ok {
			return []int64{item.CreatedBy}, nil
		}
	}

	if item.Department != "" {
		leads, err := s.employees.ListLeads(ctx, item.Department)
		if err != nil && !errors.Is(err, employee.ErrNotFound) {
			return nil, err
		}
		var ids []int64
		for _, l := range leads {
			if l.TelegramID != item.AssigneeID {
				ids = append(ids, l.TelegramID)
			}
		}
		ids, err = s.shifts.OnShift(ctx, item.Department, ids)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	return []int64{s.managerTelegramID}, nil
}

// creatorOnShift is true unless the creator is a known employee of a shift-run department who
// is off shift. Creators outside the roster always qualify.
func (s *EscalationServiceImpl) creatorOnShift(ctx context.Context, creatorID int64) (bool, error) {
	if s.shifts == nil {
		return true, nil
	}
	creator, err := s.employees.GetByTelegramID(ctx, creatorID)
	if errors.Is(err, employee.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !s.shifts.Applies(creator.Department) {
		return true, nil
	}
	kept, err := s.shifts.OnShift(ctx, creator.Department, []int64{creatorID})
	if err != nil {
		return false, err
	}
	return len(kept) == 1, nil
}
