// internal/app/workitem_service.go
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hotel_ops_bot/internal/domain/clock"
	"hotel_ops_bot/internal/domain/workitem"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WorkItemService is the state machine over work items of every kind.
type WorkItemService interface {
	Start(ctx context.Context, kind workitem.Kind, id, actorID int64) (*workitem.WorkItem, error)
	SubmitForConfirmation(ctx context.Context, kind workitem.Kind, id, actorID int64, proofReference, notes string) (*workitem.WorkItem, error)
	Confirm(ctx context.Context, kind workitem.Kind, id, supervisorID int64) (*workitem.WorkItem, error)
	Reject(ctx context.Context, kind workitem.Kind, id, supervisorID int64, reason string) (*workitem.WorkItem, error)
	Reassign(ctx context.Context, kind workitem.Kind, id, actorID int64) (*workitem.WorkItem, error)
}

type WorkItemServiceImpl struct {
	store  workitem.Store
	clock  clock.Clock
	logger *logrus.Entry
}

func NewWorkItemServiceImpl(store workitem.Store, clk clock.Clock, logger *logrus.Entry) *WorkItemServiceImpl {
	return &WorkItemServiceImpl{
		store:  store,
		clock:  clk,
		logger: logger.WithField("component", "workitem_state_machine"),
	}
}

// auditState is the snapshot stored in before_state/after_state.
type auditState struct {
	Status          workitem.Status `json:"status"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	ProofReference  string          `json:"proof_reference,omitempty"`
	CompletionNotes string          `json:"completion_notes,omitempty"`
}

func snapshot(status workitem.Status, lc workitem.Lifecycle) string {
	st := auditState{
		Status:          status,
		StartedAt:       nullTimePtr(lc.StartedAt),
		CompletedAt:     nullTimePtr(lc.CompletedAt),
		RejectedAt:      nullTimePtr(lc.RejectedAt),
		RejectionReason: lc.RejectionReason.String,
		ProofReference:  lc.ProofReference.String,
		CompletionNotes: lc.CompletionNotes.String,
	}
	b, err := json.Marshal(st)
	if err != nil {
		// only plain strings and times; cannot fail
		return fmt.Sprintf(`{"status":%q}`, status)
	}
	return string(b)
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

// transition loads the item, checks the edge, lets mutate build the new lifecycle and persists it
// under the expected-status guard. The audit entry is appended only after the guarded update wins.
func (s *WorkItemServiceImpl) transition(
	ctx context.Context,
	kind workitem.Kind,
	id, actorID int64,
	action string,
	next workitem.Status,
	precheck func(item *workitem.WorkItem) error,
	mutate func(lc *workitem.Lifecycle, now time.Time),
) (*workitem.WorkItem, error) {
	log := s.logger.WithFields(logrus.Fields{"kind": kind, "item_id": id, "actor_id": actorID, "action": action})

	item, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s work item %d: %w", kind, id, err)
	}

	if precheck != nil {
		if err := precheck(item); err != nil {
			log.WithError(err).Info("Transition refused")
			return nil, err
		}
	}

	if !item.Status.CanTransitionTo(next) {
		err := &workitem.TransitionError{From: item.Status, To: next}
		log.WithError(err).Info("Transition refused")
		return nil, err
	}

	now := s.clock.Now()
	before := item.Lifecycle()
	after := before
	mutate(&after, now)

	if err := s.store.UpdateStatus(ctx, kind, id, item.Status, next, after); err != nil {
		if errors.Is(err, workitem.ErrConcurrentModification) {
			log.Warn("Work item changed underneath the transition")
		}
		return nil, err
	}

	prev := item.Status
	item.Apply(next, after)
	item.UpdatedAt = now

	entry := &workitem.AuditEntry{
		ID:          uuid.NewString(),
		ActorID:     actorID,
		Action:      action,
		EntityType:  kind.EntityType(),
		EntityID:    id,
		BeforeState: snapshot(prev, before),
		AfterState:  snapshot(next, after),
		At:          now,
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		log.WithError(err).Error("Transition applied but audit entry could not be written")
		return item, fmt.Errorf("audit append for %s work item %d: %w", kind, id, err)
	}

	log.WithFields(logrus.Fields{"from": prev, "to": next}).Info("Work item transitioned")
	return item, nil
}

// Start moves a pending item to in_progress.
func (s *WorkItemServiceImpl) Start(ctx context.Context, kind workitem.Kind, id, actorID int64) (*workitem.WorkItem, error) {
	return s.transition(ctx, kind, id, actorID, workitem.ActionStart, workitem.StatusInProgress, nil,
		func(lc *workitem.Lifecycle, now time.Time) {
			lc.StartedAt = nullTime(now)
		})
}

// SubmitForConfirmation hands the work to a supervisor. Items that require proof are refused
// without a proof reference, whatever their status.
func (s *WorkItemServiceImpl) SubmitForConfirmation(ctx context.Context, kind workitem.Kind, id, actorID int64, proofReference, notes string) (*workitem.WorkItem, error) {
	return s.transition(ctx, kind, id, actorID, workitem.ActionSubmit, workitem.StatusPendingConfirmation,
		func(item *workitem.WorkItem) error {
			if item.ProofRequired && proofReference == "" {
				return fmt.Errorf("%w: %s work item %d", workitem.ErrProofRequired, kind, id)
			}
			return nil
		},
		func(lc *workitem.Lifecycle, now time.Time) {
			lc.CompletedAt = nullTime(now)
			if proofReference != "" {
				lc.ProofReference = nullString(proofReference)
			}
			if notes != "" {
				lc.CompletionNotes = nullString(notes)
			}
		})
}

// Confirm accepts submitted work. Completed is terminal.
func (s *WorkItemServiceImpl) Confirm(ctx context.Context, kind workitem.Kind, id, supervisorID int64) (*workitem.WorkItem, error) {
	return s.transition(ctx, kind, id, supervisorID, workitem.ActionConfirm, workitem.StatusCompleted, nil,
		func(lc *workitem.Lifecycle, now time.Time) {})
}

// Reject sends the item back with a reason. A tentative completion time is cleared.
func (s *WorkItemServiceImpl) Reject(ctx context.Context, kind workitem.Kind, id, supervisorID int64, reason string) (*workitem.WorkItem, error) {
	return s.transition(ctx, kind, id, supervisorID, workitem.ActionReject, workitem.StatusRejected, nil,
		func(lc *workitem.Lifecycle, now time.Time) {
			lc.RejectedAt = nullTime(now)
			lc.RejectionReason = nullString(reason)
			lc.CompletedAt = sql.NullTime{}
		})
}

// Reassign re-opens a rejected item as pending.
func (s *WorkItemServiceImpl) Reassign(ctx context.Context, kind workitem.Kind, id, actorID int64) (*workitem.WorkItem, error) {
	return s.transition(ctx, kind, id, actorID, workitem.ActionReassign, workitem.StatusPending, nil,
		func(lc *workitem.Lifecycle, now time.Time) {
			lc.CompletedAt = sql.NullTime{}
		})
}
