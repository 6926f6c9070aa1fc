package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

func TestScenarioDOnlyAssignedApproverSchedules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "diploma")
	when := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	_, err := f.clearance.ScheduleClearance(ctx, approver2, req.ID, "R-101", when, "")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrPermission))

	meeting, err := f.clearance.ScheduleClearance(ctx, approver, req.ID, "R-101", when, "bring id")
	require.NoError(t, err)
	assert.Equal(t, req.ID, meeting.RequestID)
	assert.Equal(t, approver.ID, meeting.ApproverID)
	assert.Equal(t, student.ID, meeting.RequesterID)

	stored, err := f.store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClearanceScheduled, stored.ClearanceStatus)

	require.Len(t, f.emitter.notes, 1)
	note := f.emitter.notes[0]
	assert.Equal(t, domain.NotifyClearanceScheduled, note.Kind)
	assert.Equal(t, student.ID, note.UserID)
	assert.Equal(t, "R-101", note.Fields["room"])
	assert.Equal(t, when.Format(time.RFC3339), note.Fields["scheduled_at"])
}

func TestScheduleClearanceErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plain := f.request(t, "transcript")
	gated := f.request(t, "diploma")
	when := time.Now().Add(time.Hour)

	_, err := f.clearance.ScheduleClearance(ctx, approver, plain.ID, "R-1", when, "")
	assert.True(t, domain.IsKind(err, domain.ErrPrecondition))
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState))

	_, err = f.clearance.ScheduleClearance(ctx, registrar, gated.ID, "R-1", when, "")
	assert.True(t, domain.IsKind(err, domain.ErrPermission), "only approvers manage clearance")

	_, err = f.clearance.ScheduleClearance(ctx, approver, gated.ID, " ", when, "")
	assert.True(t, domain.IsKind(err, domain.ErrValidation))

	_, err = f.clearance.ScheduleClearance(ctx, approver, gated.ID, "R-1", time.Time{}, "")
	assert.True(t, domain.IsKind(err, domain.ErrValidation))

	_, err = f.clearance.ScheduleClearance(ctx, approver, "missing", "R-1", when, "")
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))

	f.schedule(t, gated.ID)
	_, err = f.clearance.ScheduleClearance(ctx, approver, gated.ID, "R-2", when, "")
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState))
}

func TestScheduleClearanceOnCancelledRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "diploma")
	_, err := f.lifecycle.AdvanceStatus(ctx, registrar, req.ID, domain.StatusCancelled, "applied twice")
	require.NoError(t, err)

	_, err = f.clearance.ScheduleClearance(ctx, approver, req.ID, "R-1", time.Now(), "")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState))

	_, err = f.store.Meetings().GetByRequestID(ctx, req.ID)
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
}

func TestConcurrentScheduleCreatesOneMeeting(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, "diploma")

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		invalid   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.clearance.ScheduleClearance(context.Background(), approver, req.ID, "R-1", time.Now().Add(time.Hour), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case domain.IsKind(err, domain.ErrInvalidState):
				invalid++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, invalid)

	meetings, err := f.store.Meetings().ListByParticipant(context.Background(), approver.ID)
	require.NoError(t, err)
	assert.Len(t, meetings, 1)
}

func TestRescheduleClearance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "diploma")

	room := "R-202"
	_, err := f.clearance.RescheduleClearance(ctx, approver, req.ID, domain.MeetingPatch{Room: &room})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState), "nothing scheduled yet")

	original := f.schedule(t, req.ID)

	_, err = f.clearance.RescheduleClearance(ctx, approver2, req.ID, domain.MeetingPatch{Room: &room})
	assert.True(t, domain.IsKind(err, domain.ErrPermission))

	_, err = f.clearance.RescheduleClearance(ctx, approver, req.ID, domain.MeetingPatch{})
	assert.True(t, domain.IsKind(err, domain.ErrValidation))

	updated, err := f.clearance.RescheduleClearance(ctx, approver, req.ID, domain.MeetingPatch{Room: &room})
	require.NoError(t, err)
	assert.Equal(t, "R-202", updated.Room)
	assert.Equal(t, original.ScheduledAt, updated.ScheduledAt)
	assert.Equal(t, original.Description, updated.Description)

	stored, err := f.store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClearanceScheduled, stored.ClearanceStatus)

	assert.Equal(t, []domain.NotificationKind{domain.NotifyClearanceScheduled, domain.NotifyClearanceRescheduled}, f.emitter.kinds())
}

func TestCompleteClearanceRequiresScheduledMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "diploma")

	_, err := f.clearance.CompleteClearance(ctx, approver, req.ID)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState))

	f.schedule(t, req.ID)
	_, err = f.clearance.CompleteClearance(ctx, approver2, req.ID)
	assert.True(t, domain.IsKind(err, domain.ErrPermission))

	got, err := f.clearance.CompleteClearance(ctx, approver, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClearanceCompleted, got.ClearanceStatus)
	assert.Equal(t, domain.StatusPending, got.DocumentStatus, "completion does not advance the status")

	_, err = f.clearance.CompleteClearance(ctx, approver, req.ID)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState))

	f.observer.mu.Lock()
	defer f.observer.mu.Unlock()
	assert.Equal(t, []string{ClearanceActionScheduled, ClearanceActionCompleted}, f.observer.actions)
}

func TestGetMeetingAndListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "diploma")

	_, err := f.clearance.GetMeeting(ctx, student, req.ID)
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))

	scheduled := f.schedule(t, req.ID)

	for _, caller := range []domain.Identity{student, approver, registrar} {
		got, err := f.clearance.GetMeeting(ctx, caller, req.ID)
		require.NoError(t, err, "caller %s", caller.ID)
		assert.Equal(t, scheduled.ID, got.ID)
	}
	_, err = f.clearance.GetMeeting(ctx, student2, req.ID)
	assert.True(t, domain.IsKind(err, domain.ErrPermission))

	mine, err := f.clearance.ListMyMeetings(ctx, student)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.clearance.ListMyMeetings(ctx, approver2)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestReconcileClearanceRepairsAwaitingRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, "diploma")
	untouched := f.request(t, "diploma")

	// Simulate a crash between writing the meeting and flipping the flag.
	stored, err := f.store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	meeting, err := domain.NewClearanceMeeting("m-1", stored, "R-1", time.Now().Add(time.Hour), "", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Meetings().Create(ctx, meeting))

	repaired, err := f.clearance.ReconcileClearance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	stored, err = f.store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClearanceScheduled, stored.ClearanceStatus)

	other, err := f.store.Requests().GetByID(ctx, untouched.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClearanceAwaiting, other.ClearanceStatus)

	repaired, err = f.clearance.ReconcileClearance(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestRescheduleClearanceRetriesConflicts(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, "diploma")
	f.schedule(t, req.ID)

	meetings := &conflictingMeetings{MeetingRepository: f.store.Meetings(), conflicts: 1}
	uc := NewClearanceUseCase(f.store.Requests(), meetings, f.store, nil, nil)

	room := "R-202"
	got, err := uc.RescheduleClearance(context.Background(), approver, req.ID, domain.MeetingPatch{Room: &room})
	require.NoError(t, err)
	assert.Equal(t, "R-202", got.Room)
	assert.Equal(t, 2, meetings.updates)
}

func TestReconcileClearanceDrainsEveryBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	total := reconcileBatchSize + 1

	for i := 0; i < total; i++ {
		req := f.request(t, "diploma")
		meeting, err := domain.NewClearanceMeeting(fmt.Sprintf("m-%d", i), req, "R-1", time.Now().Add(time.Hour), "", time.Now())
		require.NoError(t, err)
		require.NoError(t, f.store.Meetings().Create(ctx, meeting))
	}

	repaired, err := f.clearance.ReconcileClearance(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, repaired)

	stale, err := f.store.Requests().ListAwaitingWithMeeting(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, stale)
}
