// internal/domain/workitem/item.go
package workitem

import (
	"database/sql"
	"time"
)

// WorkItem is one assignable unit of staff work, whichever table backs it.
type WorkItem struct {
	ID                  int64
	Kind                Kind
	Title               string
	Department          string
	Status              Status
	Priority            Priority
	AssigneeID          int64 // telegram id of the employee doing the work
	CreatedBy           int64 // telegram id of the supervisor who created it
	DueAt               time.Time
	ProofRequired       bool
	ProofReference      sql.NullString
	CompletionNotes     sql.NullString
	StartedAt           sql.NullTime
	CompletedAt         sql.NullTime
	RejectedAt          sql.NullTime
	RejectionReason     sql.NullString
	Escalated           bool
	EscalatedAt         sql.NullTime
	OverdueNotifiedDate sql.NullTime
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Lifecycle holds the columns a status transition rewrites. Every transition writes all of them.
type Lifecycle struct {
	StartedAt       sql.NullTime
	CompletedAt     sql.NullTime
	RejectedAt      sql.NullTime
	RejectionReason sql.NullString
	ProofReference  sql.NullString
	CompletionNotes sql.NullString
}

// Lifecycle returns the item's current lifecycle columns.
func (w *WorkItem) Lifecycle() Lifecycle {
	return Lifecycle{
		StartedAt:       w.StartedAt,
		CompletedAt:     w.CompletedAt,
		RejectedAt:      w.RejectedAt,
		RejectionReason: w.RejectionReason,
		ProofReference:  w.ProofReference,
		CompletionNotes: w.CompletionNotes,
	}
}

// Apply copies the lifecycle columns and status onto the item.
func (w *WorkItem) Apply(status Status, lc Lifecycle) {
	w.Status = status
	w.StartedAt = lc.StartedAt
	w.CompletedAt = lc.CompletedAt
	w.RejectedAt = lc.RejectedAt
	w.RejectionReason = lc.RejectionReason
	w.ProofReference = lc.ProofReference
	w.CompletionNotes = lc.CompletionNotes
}

// IsOverdue reports whether the item is still open past its due time.
func (w *WorkItem) IsOverdue(now time.Time) bool {
	return w.Status.IsOpen() && w.DueAt.Before(now)
}
