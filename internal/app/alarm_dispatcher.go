// internal/app/alarm_dispatcher.go
package app

import (
	"context"
	"fmt"
	"time"

	"hotel_ops_bot/internal/domain/clock"
	"hotel_ops_bot/internal/domain/event"
	"hotel_ops_bot/internal/domain/notification"
	"hotel_ops_bot/internal/domain/shift"

	"github.com/sirupsen/logrus"
)

// AlarmReport counts the outcome of one dispatch pass.
type AlarmReport struct {
	Events    int
	Records   int
	Throttled int
	Sent      int
	Failed    int
	Skipped   int // recipients already claimed
	OffShift  int // recipients held back until their shift starts
}

// EventAlarmDispatcher sends T-2, T-1 and day-of alarms and records department milestones.
type EventAlarmDispatcher interface {
	Dispatch(ctx context.Context) (AlarmReport, error)
	Acknowledge(ctx context.Context, eventID int64, department string, t event.AlarmType, actorID int64) (bool, error)
	ConfirmPreparation(ctx context.Context, eventID int64, department string, t event.AlarmType, actorID int64) (bool, error)
	ConfirmReady(ctx context.Context, eventID int64, department string, t event.AlarmType, actorID int64, evidence string) (bool, error)
	AlarmStatus(ctx context.Context, eventID int64) ([]*event.AlarmRecord, error)
}

type AlarmDispatcherImpl struct {
	store          event.Store
	gateway        notification.Gateway
	shifts         *ShiftFilter
	clock          clock.Clock
	resendInterval time.Duration
	horizonDays    int
	logger         *logrus.Entry
}

func NewAlarmDispatcherImpl(
	store event.Store,
	gateway notification.Gateway,
	shifts *ShiftFilter,
	clk clock.Clock,
	resendInterval time.Duration,
	horizonDays int,
	logger *logrus.Entry,
) *AlarmDispatcherImpl {
	return &AlarmDispatcherImpl{
		store:          store,
		gateway:        gateway,
		shifts:         shifts,
		clock:          clk,
		resendInterval: resendInterval,
		horizonDays:    horizonDays,
		logger:         logger.WithField("component", "event_alarm_dispatcher"),
	}
}

// Dispatch walks every event inside the horizon. Failures on one department or recipient are
// logged and never stop the pass.
func (d *AlarmDispatcherImpl) Dispatch(ctx context.Context) (AlarmReport, error) {
	now := d.clock.Now()
	today := shift.DateOf(now)
	var rep AlarmReport

	events, err := d.store.ListEventsNeedingAlarm(ctx, today, d.horizonDays)
	if err != nil {
		return rep, fmt.Errorf("failed to list events needing alarms: %w", err)
	}

	for _, ev := range events {
		alarmType, ok := event.AlarmTypeFor(ev.EventDate, today)
		if !ok {
			continue
		}
		rep.Events++
		for _, dept := range ev.Departments {
			d.dispatchDepartment(ctx, ev, dept, alarmType, now, &rep)
		}
	}

	d.logger.WithFields(logrus.Fields{
		"events":    rep.Events,
		"records":   rep.Records,
		"throttled": rep.Throttled,
		"sent":      rep.Sent,
		"failed":    rep.Failed,
		"skipped":   rep.Skipped,
		"off_shift": rep.OffShift,
	}).Info("Event alarm dispatch finished")
	return rep, nil
}

func (d *AlarmDispatcherImpl) dispatchDepartment(ctx context.Context, ev *event.ScheduledEvent, dept string, alarmType event.AlarmType, now time.Time, rep *AlarmReport) {
	log := d.logger.WithFields(logrus.Fields{"event_id": ev.ID, "department": dept, "alarm_type": alarmType})

	record, err := d.store.UpsertAlarmRecord(ctx, ev.ID, dept, alarmType)
	if err != nil {
		log.WithError(err).Error("Failed to load alarm record")
		rep.Failed++
		return
	}
	rep.Records++

	if record.Throttled(now, d.resendInterval) {
		rep.Throttled++
		return
	}

	recipients, err := d.store.ListDepartmentRecipients(ctx, ev.ID, dept)
	if err != nil {
		log.WithError(err).Error("Failed to list department recipients")
		rep.Failed++
		return
	}
	// off-shift staff get no record, so a later pass still reaches them
	onShift, err := d.shifts.OnShift(ctx, dept, recipients)
	if err != nil {
		log.WithError(err).Error("Failed to filter recipients by shift")
		rep.Failed++
		return
	}
	rep.OffShift += len(recipients) - len(onShift)
	recipients = onShift

	notified, err := d.store.ListNotifiedRecipients(ctx, ev.ID, alarmType)
	if err != nil {
		log.WithError(err).Error("Failed to list notified recipients")
		rep.Failed++
		return
	}
	already := make(map[int64]bool, len(notified))
	for _, id := range notified {
		already[id] = true
	}

	msg := alarmMessage(ev, dept, alarmType)
	claimedAny := false
	for _, recipient := range recipients {
		if already[recipient] {
			continue
		}
		// the unique key decides who sends; a lost race means another sweep has it
		inserted, err := d.store.RecordUserNotification(ctx, &event.UserNotification{
			EventID:     ev.ID,
			RecipientID: recipient,
			AlarmType:   alarmType,
			SentAt:      now,
		})
		if err != nil {
			log.WithField("recipient_id", recipient).WithError(err).Error("Failed to record user notification")
			rep.Failed++
			continue
		}
		if !inserted {
			rep.Skipped++
			continue
		}
		claimedAny = true

		if err := d.gateway.Send(ctx, recipient, notification.ChannelDefault, msg); err != nil {
			log.WithField("recipient_id", recipient).WithError(err).Warn("Event alarm not delivered")
			rep.Failed++
			continue
		}
		rep.Sent++
	}

	if !claimedAny {
		return
	}
	if err := d.store.UpdateLastSent(ctx, record.ID, now); err != nil {
		log.WithError(err).Error("Failed to update alarm last_sent_at")
		rep.Failed++
	}
}

func alarmMessage(ev *event.ScheduledEvent, dept string, t event.AlarmType) notification.Message {
	var when string
	switch t {
	case event.AlarmTwoDaysBefore:
		when = "in two days"
	case event.AlarmDayBefore:
		when = "tomorrow"
	default:
		when = "today"
	}
	return notification.Message{
		Title: fmt.Sprintf("Event %s: %s", when, ev.Title),
		Body: fmt.Sprintf("%s is on %s. Department %s, please prepare.",
			ev.Title, ev.EventDate.Format("2006-01-02"), dept),
		Actions: []notification.Action{{Label: "Seen", Data: AckCallbackData(ev.ID, dept, t)}},
	}
}

func (d *AlarmDispatcherImpl) setMilestone(ctx context.Context, eventID int64, dept string, t event.AlarmType, m event.Milestone, actorID int64, evidence string) (bool, error) {
	record, err := d.store.UpsertAlarmRecord(ctx, eventID, dept, t)
	if err != nil {
		return false, fmt.Errorf("failed to load alarm record for event %d/%s/%s: %w", eventID, dept, t, err)
	}
	changed, err := d.store.SetMilestone(ctx, record.ID, m, evidence)
	if err != nil {
		return false, fmt.Errorf("failed to set %s on event %d/%s/%s: %w", m, eventID, dept, t, err)
	}
	d.logger.WithFields(logrus.Fields{
		"event_id":   eventID,
		"department": dept,
		"alarm_type": t,
		"milestone":  m,
		"actor_id":   actorID,
		"changed":    changed,
	}).Info("Alarm milestone recorded")
	return changed, nil
}

// Acknowledge records that someone in the department saw the alarm. Only the department's
// recipients may acknowledge.
func (d *AlarmDispatcherImpl) Acknowledge(ctx context.Context, eventID int64, department string, t event.AlarmType, actorID int64) (bool, error) {
	recipients, err := d.store.ListDepartmentRecipients(ctx, eventID, department)
	if err != nil {
		return false, fmt.Errorf("failed to list recipients of %s: %w", department, err)
	}
	member := false
	for _, id := range recipients {
		if id == actorID {
			member = true
			break
		}
	}
	if !member {
		return false, fmt.Errorf("%w: %d is not in %s", event.ErrNotDepartmentMember, actorID, department)
	}
	return d.setMilestone(ctx, eventID, department, t, event.MilestoneAcknowledged, actorID, "")
}

// ConfirmPreparation records the lead's confirmation, usually at T-1.
func (d *AlarmDispatcherImpl) ConfirmPreparation(ctx context.Context, eventID int64, department string, t event.AlarmType, actorID int64) (bool, error) {
	return d.setMilestone(ctx, eventID, department, t, event.MilestoneConfirmed, actorID, "")
}

// ConfirmReady records day-of readiness together with its evidence.
func (d *AlarmDispatcherImpl) ConfirmReady(ctx context.Context, eventID int64, department string, t event.AlarmType, actorID int64, evidence string) (bool, error) {
	return d.setMilestone(ctx, eventID, department, t, event.MilestoneReadyConfirmed, actorID, evidence)
}

func (d *AlarmDispatcherImpl) AlarmStatus(ctx context.Context, eventID int64) ([]*event.AlarmRecord, error) {
	return d.store.ListAlarmRecords(ctx, eventID)
}
