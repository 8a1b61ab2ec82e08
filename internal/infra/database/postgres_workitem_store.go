// internal/infra/database/postgres_workitem_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hotel_ops_bot/internal/domain/workitem"

	"github.com/lib/pq" // For pq.Array
)

const workItemColumns = `id, title, department, status, priority, assignee_id, created_by, due_at,
       proof_required, proof_reference, completion_notes, started_at, completed_at, rejected_at,
       rejection_reason, escalated, escalated_at, overdue_notified_date, created_at, updated_at`

// PostgresWorkItemStore serves every work item table. The table name comes from the closed Kind
// enum and is never user input.
type PostgresWorkItemStore struct {
	db *sql.DB
}

func NewPostgresWorkItemStore(db *sql.DB) *PostgresWorkItemStore {
	return &PostgresWorkItemStore{db: db}
}

func statusStrings(statuses []workitem.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanWorkItem(kind workitem.Kind, row rowScanner) (*workitem.WorkItem, error) {
	w := &workitem.WorkItem{Kind: kind}
	var status, priority string
	err := row.Scan(
		&w.ID, &w.Title, &w.Department, &status, &priority, &w.AssigneeID, &w.CreatedBy, &w.DueAt,
		&w.ProofRequired, &w.ProofReference, &w.CompletionNotes, &w.StartedAt, &w.CompletedAt, &w.RejectedAt,
		&w.RejectionReason, &w.Escalated, &w.EscalatedAt, &w.OverdueNotifiedDate, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if w.Status, err = workitem.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("%s row %d: %w", kind, w.ID, err)
	}
	if w.Priority, err = workitem.ParsePriority(priority); err != nil {
		return nil, fmt.Errorf("%s row %d: %w", kind, w.ID, err)
	}
	return w, nil
}

func (s *PostgresWorkItemStore) Get(ctx context.Context, kind workitem.Kind, id int64) (*workitem.WorkItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, workItemColumns, kind.Table())
	w, err := scanWorkItem(kind, s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, workitem.ErrNotFound
		}
		return nil, fmt.Errorf("error getting %s work item %d: %w", kind, id, err)
	}
	return w, nil
}

func (s *PostgresWorkItemStore) UpdateStatus(ctx context.Context, kind workitem.Kind, id int64, expected, next workitem.Status, lc workitem.Lifecycle) error {
	query := fmt.Sprintf(`UPDATE %s
               SET status = $1, started_at = $2, completed_at = $3, rejected_at = $4,
                   rejection_reason = $5, proof_reference = $6, completion_notes = $7, updated_at = NOW()
               WHERE id = $8 AND status = $9`, kind.Table())

	res, err := s.db.ExecContext(ctx, query,
		string(next), lc.StartedAt, lc.CompletedAt, lc.RejectedAt,
		lc.RejectionReason, lc.ProofReference, lc.CompletionNotes,
		id, string(expected),
	)
	if err != nil {
		return fmt.Errorf("error updating %s work item %d status: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	existsQuery := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, kind.Table())
	if err := s.db.QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
		return fmt.Errorf("error checking %s work item %d: %w", kind, id, err)
	}
	if !exists {
		return workitem.ErrNotFound
	}
	return fmt.Errorf("%w: %s work item %d is no longer %s", workitem.ErrConcurrentModification, kind, id, expected)
}

func (s *PostgresWorkItemStore) query(ctx context.Context, kind workitem.Kind, query string, args ...any) ([]*workitem.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying %s work items: %w", kind, err)
	}
	defer rows.Close()

	items := make([]*workitem.WorkItem, 0)
	for rows.Next() {
		w, err := scanWorkItem(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s work item: %w", kind, err)
		}
		items = append(items, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s work items: %w", kind, err)
	}
	return items, nil
}

func (s *PostgresWorkItemStore) QueryOverdue(ctx context.Context, kind workitem.Kind, statuses []workitem.Status, before, notifiedBefore time.Time) ([]*workitem.WorkItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
               WHERE status = ANY($1) AND due_at < $2
                 AND (overdue_notified_date IS NULL OR overdue_notified_date < $3)
               ORDER BY due_at`, workItemColumns, kind.Table())
	return s.query(ctx, kind, query, pq.Array(statusStrings(statuses)), before, dateOnly(notifiedBefore))
}

func (s *PostgresWorkItemStore) QueryEscalationCandidates(ctx context.Context, kind workitem.Kind, statuses []workitem.Status, dueBefore time.Time) ([]*workitem.WorkItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
               WHERE status = ANY($1) AND escalated = FALSE AND due_at < $2
               ORDER BY due_at`, workItemColumns, kind.Table())
	return s.query(ctx, kind, query, pq.Array(statusStrings(statuses)), dueBefore)
}

func (s *PostgresWorkItemStore) claim(ctx context.Context, what, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("error %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresWorkItemStore) MarkOverdueNotified(ctx context.Context, kind workitem.Kind, id int64, date time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET overdue_notified_date = $1, updated_at = NOW()
               WHERE id = $2 AND (overdue_notified_date IS NULL OR overdue_notified_date < $1)`, kind.Table())
	return s.claim(ctx, "stamping overdue notice", query, dateOnly(date), id)
}

func (s *PostgresWorkItemStore) MarkEscalated(ctx context.Context, kind workitem.Kind, id int64, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET escalated = TRUE, escalated_at = $1, updated_at = NOW()
               WHERE id = $2 AND escalated = FALSE`, kind.Table())
	return s.claim(ctx, "marking escalated", query, at, id)
}

func (s *PostgresWorkItemStore) AppendAudit(ctx context.Context, e *workitem.AuditEntry) error {
	query := `INSERT INTO audit_log (id, actor_id, action, entity_type, entity_id, before_state, after_state, at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, query, e.ID, e.ActorID, e.Action, e.EntityType, e.EntityID, e.BeforeState, e.AfterState, e.At)
	if err != nil {
		return fmt.Errorf("error appending audit entry: %w", err)
	}
	return nil
}

func (s *PostgresWorkItemStore) ListAudit(ctx context.Context, entityType string, entityID int64) ([]*workitem.AuditEntry, error) {
	query := `SELECT id, actor_id, action, entity_type, entity_id, before_state, after_state, at
               FROM audit_log WHERE entity_type = $1 AND entity_id = $2 ORDER BY at, id`
	rows, err := s.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("error listing audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*workitem.AuditEntry, 0)
	for rows.Next() {
		e := &workitem.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &e.BeforeState, &e.AfterState, &e.At); err != nil {
			return nil, fmt.Errorf("error scanning audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}
