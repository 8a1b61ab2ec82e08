package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotel_ops_bot/internal/domain/clock"
	"hotel_ops_bot/internal/domain/workitem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func newTestStateMachine() (*WorkItemServiceImpl, *mockWorkItemStore, *clock.Fixed) {
	store := newMockWorkItemStore()
	clk := &clock.Fixed{T: testNow}
	return NewWorkItemServiceImpl(store, clk, testLogger()), store, clk
}

func seedItem(store *mockWorkItemStore, id int64, status workitem.Status) *workitem.WorkItem {
	item := &workitem.WorkItem{
		ID:         id,
		Kind:       workitem.KindLaundry,
		Title:      "Room 204 linen",
		Department: "Housekeeping",
		Status:     status,
		Priority:   workitem.PriorityNormal,
		AssigneeID: 501,
		CreatedBy:  900,
		DueAt:      testNow.Add(2 * time.Hour),
	}
	store.put(item)
	return item
}

func TestStateMachine_FullLifecycle(t *testing.T) {
	svc, store, clk := newTestStateMachine()
	ctx := context.Background()
	seedItem(store, 1, workitem.StatusPending)

	item, err := svc.Start(ctx, workitem.KindLaundry, 1, 501)
	require.NoError(t, err)
	assert.Equal(t, workitem.StatusInProgress, item.Status)
	assert.Equal(t, testNow, item.StartedAt.Time)

	clk.Advance(time.Hour)
	item, err = svc.SubmitForConfirmation(ctx, workitem.KindLaundry, 1, 501, "", "folded and delivered")
	require.NoError(t, err)
	assert.Equal(t, workitem.StatusPendingConfirmation, item.Status)
	assert.True(t, item.CompletedAt.Valid)
	assert.Equal(t, "folded and delivered", store.row(workitem.KindLaundry, 1).CompletionNotes.String)

	item, err = svc.Confirm(ctx, workitem.KindLaundry, 1, 900)
	require.NoError(t, err)
	assert.Equal(t, workitem.StatusCompleted, item.Status)

	require.Len(t, store.audit, 3)
	assert.Equal(t, workitem.ActionStart, store.audit[0].Action)
	assert.Equal(t, "work_item:laundry", store.audit[0].EntityType)
	assert.Contains(t, store.audit[0].BeforeState, `"status":"pending"`)
	assert.Contains(t, store.audit[0].AfterState, `"status":"in_progress"`)
	assert.Equal(t, int64(900), store.audit[2].ActorID)
	assert.NotEmpty(t, store.audit[2].ID)
}

func TestStateMachine_CompletedIsTerminal(t *testing.T) {
	svc, store, _ := newTestStateMachine()
	ctx := context.Background()
	seedItem(store, 1, workitem.StatusCompleted)

	calls := []func() error{
		func() error { _, err := svc.Start(ctx, workitem.KindLaundry, 1, 501); return err },
		func() error {
			_, err := svc.SubmitForConfirmation(ctx, workitem.KindLaundry, 1, 501, "photo-1", "")
			return err
		},
		func() error { _, err := svc.Confirm(ctx, workitem.KindLaundry, 1, 900); return err },
		func() error { _, err := svc.Reject(ctx, workitem.KindLaundry, 1, 900, "late"); return err },
		func() error { _, err := svc.Reassign(ctx, workitem.KindLaundry, 1, 900); return err },
	}
	for _, call := range calls {
		err := call()
		assert.ErrorIs(t, err, workitem.ErrInvalidTransition)
	}
	assert.Equal(t, workitem.StatusCompleted, store.row(workitem.KindLaundry, 1).Status)
	assert.Empty(t, store.audit)
	assert.Zero(t, store.updates)
}

func TestStateMachine_InvalidTransitionReportsStatuses(t *testing.T) {
	svc, store, _ := newTestStateMachine()
	seedItem(store, 1, workitem.StatusInProgress)

	_, err := svc.Start(context.Background(), workitem.KindLaundry, 1, 501)
	var te *workitem.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, workitem.StatusInProgress, te.From)
	assert.Equal(t, workitem.StatusInProgress, te.To)
	assert.Empty(t, store.audit)
}

func TestStateMachine_ProofRequiredForAnyStatus(t *testing.T) {
	for _, st := range []workitem.Status{
		workitem.StatusPending,
		workitem.StatusInProgress,
		workitem.StatusPendingConfirmation,
		workitem.StatusCompleted,
		workitem.StatusRejected,
	} {
		svc, store, _ := newTestStateMachine()
		item := seedItem(store, 7, st)
		item.ProofRequired = true

		_, err := svc.SubmitForConfirmation(context.Background(), workitem.KindLaundry, 7, 501, "", "done")
		assert.ErrorIs(t, err, workitem.ErrProofRequired, st)
		assert.Equal(t, st, store.row(workitem.KindLaundry, 7).Status)
		assert.Empty(t, store.audit)
	}
}

func TestStateMachine_ProofAccepted(t *testing.T) {
	svc, store, _ := newTestStateMachine()
	item := seedItem(store, 7, workitem.StatusPending)
	item.ProofRequired = true

	got, err := svc.SubmitForConfirmation(context.Background(), workitem.KindLaundry, 7, 501, "file:abc123", "")
	require.NoError(t, err)
	assert.Equal(t, "file:abc123", got.ProofReference.String)
	assert.Equal(t, workitem.StatusPendingConfirmation, store.row(workitem.KindLaundry, 7).Status)
}

func TestStateMachine_RejectAndReassign(t *testing.T) {
	svc, store, _ := newTestStateMachine()
	ctx := context.Background()
	seedItem(store, 3, workitem.StatusPendingConfirmation)
	store.row(workitem.KindLaundry, 3).CompletedAt.Valid = true

	item, err := svc.Reject(ctx, workitem.KindLaundry, 3, 900, "stains remain")
	require.NoError(t, err)
	assert.Equal(t, workitem.StatusRejected, item.Status)
	assert.Equal(t, "stains remain", item.RejectionReason.String)
	assert.True(t, item.RejectedAt.Valid)
	assert.False(t, item.CompletedAt.Valid)

	item, err = svc.Reassign(ctx, workitem.KindLaundry, 3, 900)
	require.NoError(t, err)
	assert.Equal(t, workitem.StatusPending, item.Status)

	_, err = svc.Start(ctx, workitem.KindLaundry, 3, 501)
	require.NoError(t, err)
	assert.Len(t, store.audit, 3)
}

func TestStateMachine_ConcurrentModification(t *testing.T) {
	svc, store, _ := newTestStateMachine()
	seedItem(store, 4, workitem.StatusPendingConfirmation)

	// a supervisor rejects between our read and our write
	store.beforeUpdate = func() {
		store.row(workitem.KindLaundry, 4).Status = workitem.StatusRejected
	}

	_, err := svc.Confirm(context.Background(), workitem.KindLaundry, 4, 901)
	assert.ErrorIs(t, err, workitem.ErrConcurrentModification)
	assert.NotErrorIs(t, err, workitem.ErrInvalidTransition)
	assert.Equal(t, workitem.StatusRejected, store.row(workitem.KindLaundry, 4).Status)
	assert.Empty(t, store.audit)
}

func TestStateMachine_NotFound(t *testing.T) {
	svc, _, _ := newTestStateMachine()
	_, err := svc.Start(context.Background(), workitem.KindRepair, 99, 501)
	assert.ErrorIs(t, err, workitem.ErrNotFound)
}

func TestStateMachine_AuditFailureKeepsTransition(t *testing.T) {
	svc, store, _ := newTestStateMachine()
	seedItem(store, 5, workitem.StatusPending)
	store.auditErr = errors.New("disk full")

	item, err := svc.Start(context.Background(), workitem.KindLaundry, 5, 501)
	require.Error(t, err)
	require.NotNil(t, item)
	assert.Equal(t, workitem.StatusInProgress, store.row(workitem.KindLaundry, 5).Status)
}

func TestStateMachine_RejectThenReassignAlwaysPending(t *testing.T) {
	for _, st := range []workitem.Status{
		workitem.StatusPending,
		workitem.StatusInProgress,
		workitem.StatusPendingConfirmation,
	} {
		svc, store, _ := newTestStateMachine()
		seedItem(store, 8, st)

		_, err := svc.Reject(context.Background(), workitem.KindLaundry, 8, 900, "redo")
		require.NoError(t, err, st)
		item, err := svc.Reassign(context.Background(), workitem.KindLaundry, 8, 900)
		require.NoError(t, err, st)
		assert.Equal(t, workitem.StatusPending, item.Status, st)
	}
}

func TestStateMachine_RandomWalkStaysOnGraph(t *testing.T) {
	svc, store, _ := newTestStateMachine()
	ctx := context.Background()
	seedItem(store, 9, workitem.StatusPending)

	ops := []func() (*workitem.WorkItem, error){
		func() (*workitem.WorkItem, error) { return svc.Start(ctx, workitem.KindLaundry, 9, 501) },
		func() (*workitem.WorkItem, error) {
			return svc.SubmitForConfirmation(ctx, workitem.KindLaundry, 9, 501, "", "")
		},
		func() (*workitem.WorkItem, error) { return svc.Confirm(ctx, workitem.KindLaundry, 9, 900) },
		func() (*workitem.WorkItem, error) { return svc.Reject(ctx, workitem.KindLaundry, 9, 900, "no") },
		func() (*workitem.WorkItem, error) { return svc.Reassign(ctx, workitem.KindLaundry, 9, 900) },
	}

	// deterministic pseudo-random sequence
	seq := uint32(7)
	prev := workitem.StatusPending
	for i := 0; i < 500; i++ {
		seq = seq*1103515245 + 12345
		item, err := ops[(seq>>16)%uint32(len(ops))]()
		if err != nil {
			assert.ErrorIs(t, err, workitem.ErrInvalidTransition)
			assert.Equal(t, prev, store.row(workitem.KindLaundry, 9).Status)
			continue
		}
		assert.True(t, prev.CanTransitionTo(item.Status), "%s -> %s", prev, item.Status)
		if item.Status == workitem.StatusCompleted {
			assert.Equal(t, workitem.StatusPendingConfirmation, prev)
		}
		prev = item.Status
	}
}
