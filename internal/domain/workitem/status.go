// internal/domain/workitem/status.go
package workitem

import "fmt"

// Status is the lifecycle state of a work item.
type Status string

const (
	StatusPending             Status = "pending"
	StatusInProgress          Status = "in_progress"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusCompleted           Status = "completed"
	StatusRejected            Status = "rejected"
)

// transitions is the fixed lifecycle graph. Anything not listed here is refused.
var transitions = map[Status][]Status{
	StatusPending:             {StatusInProgress, StatusPendingConfirmation, StatusRejected},
	StatusInProgress:          {StatusPendingConfirmation, StatusRejected},
	StatusPendingConfirmation: {StatusCompleted, StatusRejected},
	StatusCompleted:           {},
	StatusRejected:            {StatusPending},
}

// OpenStatuses are the statuses the overdue and escalation sweeps look at.
var OpenStatuses = []Status{StatusPending, StatusInProgress}

// ParseStatus maps a stored string to a Status, refusing anything unknown.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// CanTransitionTo reports whether next is an edge out of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal is true for completed only; rejected can still be reassigned.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsOpen is true while the assignee still owes work.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress
}

func (s Status) String() string { return string(s) }

// Priority of a work item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority maps a stored string to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPriority, s)
	}
}
