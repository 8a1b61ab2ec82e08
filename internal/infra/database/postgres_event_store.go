// internal/infra/database/postgres_event_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hotel_ops_bot/internal/domain/event"

	"github.com/lib/pq" // For pq.Array and pq.StringArray
)

const alarmRecordColumns = `id, event_id, department, alarm_type, last_sent_at, acknowledged, confirmed,
       ready_confirmed, ready_evidence, created_at, updated_at`

type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func eventStatusStrings(statuses []event.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (s *PostgresEventStore) ListEventsNeedingAlarm(ctx context.Context, today time.Time, horizonDays int) ([]*event.ScheduledEvent, error) {
	query := `SELECT id, title, event_date, status, departments
               FROM scheduled_events
               WHERE status = ANY($1) AND event_date BETWEEN $2 AND $3
               ORDER BY event_date, id`
	from := dateOnly(today)
	to := from.AddDate(0, 0, horizonDays)

	rows, err := s.db.QueryContext(ctx, query, pq.Array(eventStatusStrings(event.AlarmingStatuses)), from, to)
	if err != nil {
		return nil, fmt.Errorf("error listing events needing alarms: %w", err)
	}
	defer rows.Close()

	events := make([]*event.ScheduledEvent, 0)
	for rows.Next() {
		ev := &event.ScheduledEvent{}
		var depts pq.StringArray
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.EventDate, &ev.Status, &depts); err != nil {
			return nil, fmt.Errorf("error scanning scheduled event: %w", err)
		}
		ev.Departments = []string(depts)
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scheduled events: %w", err)
	}
	return events, nil
}

func scanAlarmRecord(row rowScanner) (*event.AlarmRecord, error) {
	rec := &event.AlarmRecord{}
	var alarmType string
	err := row.Scan(&rec.ID, &rec.EventID, &rec.Department, &alarmType, &rec.LastSentAt, &rec.Acknowledged,
		&rec.Confirmed, &rec.ReadyConfirmed, &rec.ReadyEvidence, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if rec.AlarmType, err = event.ParseAlarmType(alarmType); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresEventStore) GetAlarmRecord(ctx context.Context, eventID int64, department string, t event.AlarmType) (*event.AlarmRecord, error) {
	query := `SELECT ` + alarmRecordColumns + ` FROM event_alarm_records
               WHERE event_id = $1 AND department = $2 AND alarm_type = $3`
	rec, err := scanAlarmRecord(s.db.QueryRowContext(ctx, query, eventID, department, string(t)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, event.ErrAlarmRecordNotFound
		}
		return nil, fmt.Errorf("error getting alarm record: %w", err)
	}
	return rec, nil
}

// UpsertAlarmRecord inserts-or-ignores on the unique key and reads the row back in one transaction.
func (s *PostgresEventStore) UpsertAlarmRecord(ctx context.Context, eventID int64, department string, t event.AlarmType) (*event.AlarmRecord, error) {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for alarm record: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	_, err = txn.ExecContext(ctx, `INSERT INTO event_alarm_records (event_id, department, alarm_type)
               VALUES ($1, $2, $3)
               ON CONFLICT (event_id, department, alarm_type) DO NOTHING`, eventID, department, string(t))
	if err != nil {
		return nil, fmt.Errorf("error inserting alarm record: %w", err)
	}

	query := `SELECT ` + alarmRecordColumns + ` FROM event_alarm_records
               WHERE event_id = $1 AND department = $2 AND alarm_type = $3`
	rec, err := scanAlarmRecord(txn.QueryRowContext(ctx, query, eventID, department, string(t)))
	if err != nil {
		return nil, fmt.Errorf("error reading alarm record: %w", err)
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit alarm record: %w", err)
	}
	return rec, nil
}

func (s *PostgresEventStore) UpdateLastSent(ctx context.Context, recordID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE event_alarm_records SET last_sent_at = $1, updated_at = NOW() WHERE id = $2`, at, recordID)
	if err != nil {
		return fmt.Errorf("error updating alarm last_sent_at: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if n == 0 {
		return event.ErrAlarmRecordNotFound
	}
	return nil
}

// SetMilestone flips one flag from FALSE to TRUE. The column name comes from the closed
// Milestone enum.
func (s *PostgresEventStore) SetMilestone(ctx context.Context, recordID int64, m event.Milestone, evidence string) (bool, error) {
	if !m.Valid() {
		return false, fmt.Errorf("%w: %q", event.ErrUnknownMilestone, m)
	}

	var (
		res sql.Result
		err error
	)
	if m == event.MilestoneReadyConfirmed {
		res, err = s.db.ExecContext(ctx, `UPDATE event_alarm_records
               SET ready_confirmed = TRUE, ready_evidence = $1, updated_at = NOW()
               WHERE id = $2 AND ready_confirmed = FALSE`, sql.NullString{String: evidence, Valid: evidence != ""}, recordID)
	} else {
		query := fmt.Sprintf(`UPDATE event_alarm_records SET %[1]s = TRUE, updated_at = NOW()
               WHERE id = $1 AND %[1]s = FALSE`, string(m))
		res, err = s.db.ExecContext(ctx, query, recordID)
	}
	if err != nil {
		return false, fmt.Errorf("error setting %s: %w", m, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresEventStore) ListAlarmRecords(ctx context.Context, eventID int64) ([]*event.AlarmRecord, error) {
	query := `SELECT ` + alarmRecordColumns + ` FROM event_alarm_records
               WHERE event_id = $1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("error listing alarm records: %w", err)
	}
	defer rows.Close()

	records := make([]*event.AlarmRecord, 0)
	for rows.Next() {
		rec, err := scanAlarmRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning alarm record: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alarm records: %w", err)
	}
	return records, nil
}

func (s *PostgresEventStore) int64Column(ctx context.Context, what, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", what, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", what, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return ids, nil
}

// ListDepartmentRecipients returns every active employee of the department.
func (s *PostgresEventStore) ListDepartmentRecipients(ctx context.Context, _ int64, department string) ([]int64, error) {
	return s.int64Column(ctx, "department recipients",
		`SELECT telegram_id FROM employees WHERE department = $1 AND is_active = TRUE ORDER BY telegram_id`, department)
}

func (s *PostgresEventStore) ListNotifiedRecipients(ctx context.Context, eventID int64, t event.AlarmType) ([]int64, error) {
	return s.int64Column(ctx, "notified recipients",
		`SELECT recipient_id FROM user_notification_records WHERE event_id = $1 AND alarm_type = $2`, eventID, string(t))
}

func (s *PostgresEventStore) RecordUserNotification(ctx context.Context, n *event.UserNotification) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO user_notification_records (event_id, recipient_id, alarm_type, sent_at)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (event_id, recipient_id, alarm_type) DO NOTHING`,
		n.EventID, n.RecipientID, string(n.AlarmType), n.SentAt)
	if err != nil {
		return false, fmt.Errorf("error recording user notification: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return inserted == 1, nil
}
