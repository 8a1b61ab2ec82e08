package event

import (
	"context"
	"time"
)

// Store persists scheduled events and their alarm bookkeeping.
type Store interface {
	// ListEventsNeedingAlarm returns alarming events dated from today through today+horizonDays.
	ListEventsNeedingAlarm(ctx context.Context, today time.Time, horizonDays int) ([]*ScheduledEvent, error)

	GetAlarmRecord(ctx context.Context, eventID int64, department string, t AlarmType) (*AlarmRecord, error)
	// UpsertAlarmRecord creates the record if missing and returns the stored row.
	UpsertAlarmRecord(ctx context.Context, eventID int64, department string, t AlarmType) (*AlarmRecord, error)
	UpdateLastSent(ctx context.Context, recordID int64, at time.Time) error
	// SetMilestone sets one flag only if it is still false. changed is false on a repeat.
	SetMilestone(ctx context.Context, recordID int64, m Milestone, evidence string) (changed bool, err error)
	ListAlarmRecords(ctx context.Context, eventID int64) ([]*AlarmRecord, error)

	// ListDepartmentRecipients returns the telegram ids of active employees of department.
	ListDepartmentRecipients(ctx context.Context, eventID int64, department string) ([]int64, error)
	ListNotifiedRecipients(ctx context.Context, eventID int64, t AlarmType) ([]int64, error)
	// RecordUserNotification is an insert-or-ignore on (event, recipient, alarm type).
	RecordUserNotification(ctx context.Context, n *UserNotification) (inserted bool, err error)
}
