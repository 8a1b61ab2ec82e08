// internal/domain/event/event.go
package event

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrAlarmRecordNotFound = errors.New("event alarm record not found")
	ErrEventNotFound       = errors.New("scheduled event not found")
	ErrUnknownAlarmType    = errors.New("unknown alarm type")
	ErrUnknownMilestone    = errors.New("unknown alarm milestone")
	ErrNotDepartmentMember = errors.New("actor is not a recipient of this department")
)

// Status of a scheduled event. Only scheduled and confirmed events are alarmed.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// AlarmingStatuses are the event statuses that still owe alarms.
var AlarmingStatuses = []Status{StatusScheduled, StatusConfirmed}

// ScheduledEvent is a dated hotel occasion (banquet, group arrival) that departments prepare for.
type ScheduledEvent struct {
	ID          int64
	Title       string
	EventDate   time.Time
	Status      Status
	Departments []string
}

// AlarmType names the occasion relative to the event date.
type AlarmType string

const (
	AlarmTwoDaysBefore AlarmType = "T-2"
	AlarmDayBefore     AlarmType = "T-1"
	AlarmDayOf         AlarmType = "day-of"
)

func ParseAlarmType(s string) (AlarmType, error) {
	switch t := AlarmType(s); t {
	case AlarmTwoDaysBefore, AlarmDayBefore, AlarmDayOf:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlarmType, s)
}

// AlarmTypeFor computes the alarm owed for an event on eventDate as of today.
// ok is false outside the T-2..day-of range.
func AlarmTypeFor(eventDate, today time.Time) (AlarmType, bool) {
	switch daysBetween(today, eventDate) {
	case 2:
		return AlarmTwoDaysBefore, true
	case 1:
		return AlarmDayBefore, true
	case 0:
		return AlarmDayOf, true
	}
	return "", false
}

// daysBetween counts calendar days from a to b, ignoring time of day and DST.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Milestone is one of the three independent flags on an alarm record.
type Milestone string

const (
	MilestoneAcknowledged   Milestone = "acknowledged"
	MilestoneConfirmed      Milestone = "confirmed"
	MilestoneReadyConfirmed Milestone = "ready_confirmed"
)

func (m Milestone) Valid() bool {
	switch m {
	case MilestoneAcknowledged, MilestoneConfirmed, MilestoneReadyConfirmed:
		return true
	}
	return false
}

// AlarmRecord tracks one (event, department, alarm type) occasion.
type AlarmRecord struct {
	ID             int64
	EventID        int64
	Department     string
	AlarmType      AlarmType
	LastSentAt     sql.NullTime
	Acknowledged   bool
	Confirmed      bool
	ReadyConfirmed bool
	ReadyEvidence  sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Throttled reports whether the record was sent less than interval ago.
func (r *AlarmRecord) Throttled(now time.Time, interval time.Duration) bool {
	return r.LastSentAt.Valid && now.Sub(r.LastSentAt.Time) < interval
}

// UserNotification marks that recipient was notified for (event, alarm type).
type UserNotification struct {
	EventID     int64
	RecipientID int64
	AlarmType   AlarmType
	SentAt      time.Time
}
