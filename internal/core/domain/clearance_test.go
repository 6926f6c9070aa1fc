package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanScheduleClearance(t *testing.T) {
	t.Run("precondition when clearance not required", func(t *testing.T) {
		req := newRequest(t, plainType())
		err := req.CanScheduleClearance("approver-1")
		require.Error(t, err)
		assert.True(t, IsKind(err, ErrPrecondition))
	})

	t.Run("permission for non-assigned approver", func(t *testing.T) {
		req := newRequest(t, clearanceType())
		err := req.CanScheduleClearance("approver-2")
		require.Error(t, err)
		assert.True(t, IsKind(err, ErrPermission))
	})

	t.Run("invalid state when already scheduled", func(t *testing.T) {
		req := newRequest(t, clearanceType())
		req.MarkClearanceScheduled(testNow)
		err := req.CanScheduleClearance("approver-1")
		require.Error(t, err)
		assert.True(t, IsKind(err, ErrInvalidState))
	})

	t.Run("invalid state when request cancelled", func(t *testing.T) {
		req := newRequest(t, clearanceType())
		require.NoError(t, req.Advance(StatusCancelled, "withdrawn by office", testNow))
		err := req.CanScheduleClearance("approver-1")
		require.Error(t, err)
		assert.True(t, IsKind(err, ErrInvalidState))
	})

	t.Run("assigned approver succeeds", func(t *testing.T) {
		req := newRequest(t, clearanceType())
		require.NoError(t, req.CanScheduleClearance("approver-1"))
		req.MarkClearanceScheduled(testNow)
		assert.Equal(t, ClearanceScheduled, req.ClearanceStatus)
	})
}

func TestScenarioBClearanceRoundTrip(t *testing.T) {
	req := newRequest(t, clearanceType())

	err := req.Advance(StatusProcessing, "", testNow)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrClearanceRequired))

	require.NoError(t, req.CanScheduleClearance("approver-1"))
	req.MarkClearanceScheduled(testNow)

	err = req.Advance(StatusProcessing, "", testNow)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrClearanceRequired))

	require.NoError(t, req.CompleteClearance("approver-1", testNow))
	require.NoError(t, req.Advance(StatusProcessing, "", testNow))
	assert.Equal(t, StatusProcessing, req.DocumentStatus)
}

func TestCompleteClearanceRules(t *testing.T) {
	req := newRequest(t, clearanceType())

	err := req.CompleteClearance("approver-1", testNow)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInvalidState), "cannot complete before scheduling")

	req.MarkClearanceScheduled(testNow)
	err = req.CompleteClearance("approver-2", testNow)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrPermission))

	require.NoError(t, req.CompleteClearance("approver-1", testNow))
	err = req.CompleteClearance("approver-1", testNow)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInvalidState))
}

func TestCanRescheduleClearance(t *testing.T) {
	req := newRequest(t, clearanceType())

	err := req.CanRescheduleClearance("approver-1")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInvalidState))

	req.MarkClearanceScheduled(testNow)
	err = req.CanRescheduleClearance("approver-9")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrPermission))

	require.NoError(t, req.CanRescheduleClearance("approver-1"))
	assert.Equal(t, ClearanceScheduled, req.ClearanceStatus)
}

func TestNewClearanceMeetingValidates(t *testing.T) {
	req := newRequest(t, clearanceType())

	_, err := NewClearanceMeeting("m-1", req, " ", testNow, "", testNow)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrValidation))

	_, err = NewClearanceMeeting("m-1", req, "R-101", time.Time{}, "", testNow)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrValidation))

	meeting, err := NewClearanceMeeting("m-1", req, " R-101 ", testNow.Add(24*time.Hour), "bring id", testNow)
	require.NoError(t, err)
	assert.Equal(t, "R-101", meeting.Room)
	assert.Equal(t, "approver-1", meeting.ApproverID)
	assert.Equal(t, "student-1", meeting.RequesterID)
	assert.Equal(t, req.ID, meeting.RequestID)
}

func TestMeetingApplyPartialPatch(t *testing.T) {
	req := newRequest(t, clearanceType())
	meeting, err := NewClearanceMeeting("m-1", req, "R-101", testNow.Add(24*time.Hour), "bring id", testNow)
	require.NoError(t, err)

	newRoom := "R-202"
	later := testNow.Add(time.Hour)
	require.NoError(t, meeting.Apply(MeetingPatch{Room: &newRoom}, later))
	assert.Equal(t, "R-202", meeting.Room)
	assert.Equal(t, testNow.Add(24*time.Hour), meeting.ScheduledAt)
	assert.Equal(t, "bring id", meeting.Description)
	assert.Equal(t, later, meeting.UpdatedAt)

	err = meeting.Apply(MeetingPatch{}, later)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrValidation))

	blank := "  "
	err = meeting.Apply(MeetingPatch{Room: &blank}, later)
	require.Error(t, err)
	assert.Equal(t, "R-202", meeting.Room)
}

func TestStatusNotification(t *testing.T) {
	req := newRequest(t, plainType())

	_, ok := StatusNotification("n-1", req, testNow)
	assert.False(t, ok)

	require.NoError(t, req.Advance(StatusCancelled, "duplicate", testNow))
	n, ok := StatusNotification("n-1", req, testNow)
	require.True(t, ok)
	assert.Equal(t, NotifyRequestCancelled, n.Kind)
	assert.Equal(t, "student-1", n.UserID)
	assert.Equal(t, "duplicate", n.Fields["cancel_reason"])
}
