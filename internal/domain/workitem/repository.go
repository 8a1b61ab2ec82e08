package workitem

import (
	"context"
	"time"
)

// Store is the single contract over every work item table. The table is selected by kind.
type Store interface {
	Get(ctx context.Context, kind Kind, id int64) (*WorkItem, error)

	// UpdateStatus writes next and the lifecycle columns only if the row is still in expected.
	// Zero rows affected on an existing row yields ErrConcurrentModification.
	UpdateStatus(ctx context.Context, kind Kind, id int64, expected, next Status, lc Lifecycle) error

	// QueryOverdue lists items in statuses due before `before` whose overdue notice date is
	// null or earlier than notifiedBefore.
	QueryOverdue(ctx context.Context, kind Kind, statuses []Status, before, notifiedBefore time.Time) ([]*WorkItem, error)
	// QueryEscalationCandidates lists unescalated items in statuses due before dueBefore.
	QueryEscalationCandidates(ctx context.Context, kind Kind, statuses []Status, dueBefore time.Time) ([]*WorkItem, error)

	// MarkOverdueNotified stamps the dedup date. It returns false when another sweep got there first.
	MarkOverdueNotified(ctx context.Context, kind Kind, id int64, date time.Time) (bool, error)
	// MarkEscalated flips the one-way escalated flag. It returns false if it was already set.
	MarkEscalated(ctx context.Context, kind Kind, id int64, at time.Time) (bool, error)

	AppendAudit(ctx context.Context, entry *AuditEntry) error
	ListAudit(ctx context.Context, entityType string, entityID int64) ([]*AuditEntry, error)
}
