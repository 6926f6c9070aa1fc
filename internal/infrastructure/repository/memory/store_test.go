package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

var t0 = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func seedRequest(t *testing.T, s *Store, id string, created time.Time) *domain.DocumentRequest {
	t.Helper()
	entry := domain.DocumentType{ID: "dt", Name: "diploma", RequiresClearance: true, AssignedApprover: "ap-1", Active: true}
	req, err := domain.NewDocumentRequest(id, entry, "st-1", created)
	require.NoError(t, err)
	require.NoError(t, s.Requests().Create(context.Background(), req))
	return req
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	req := seedRequest(t, s, "r-1", t0)
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		meeting, err := domain.NewClearanceMeeting("m-1", req, "R-1", t0.Add(time.Hour), "", t0)
		require.NoError(t, err)
		require.NoError(t, s.Meetings().Create(ctx, meeting))

		current, err := s.Requests().GetForUpdate(ctx, "r-1")
		require.NoError(t, err)
		current.MarkClearanceScheduled(t0)
		require.NoError(t, s.Requests().Update(ctx, current))
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := s.Requests().GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ClearanceAwaiting, stored.ClearanceStatus)
	assert.Equal(t, int64(1), stored.Version)

	_, err = s.Meetings().GetByRequestID(context.Background(), "r-1")
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	s := NewStore()
	seedRequest(t, s, "r-1", t0)

	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		current, err := s.Requests().GetForUpdate(ctx, "r-1")
		if err != nil {
			return err
		}
		current.MarkClearanceScheduled(t0)
		return s.Requests().Update(ctx, current)
	})
	require.NoError(t, err)

	stored, err := s.Requests().GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ClearanceScheduled, stored.ClearanceStatus)
	assert.Equal(t, int64(2), stored.Version)
}

func TestNestedWithinTxJoinsOuter(t *testing.T) {
	s := NewStore()
	seedRequest(t, s, "r-1", t0)
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.WithinTx(ctx, func(ctx context.Context) error {
			return s.Requests().Delete(ctx, "r-1", 1)
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Requests().GetByID(context.Background(), "r-1")
	require.NoError(t, err, "inner writes roll back with the outer transaction")
}

func TestRequestUpdateRejectsStaleVersion(t *testing.T) {
	s := NewStore()
	req := seedRequest(t, s, "r-1", t0)
	stale := *req

	req.MarkClearanceScheduled(t0)
	require.NoError(t, s.Requests().Update(context.Background(), req))
	assert.Equal(t, int64(2), req.Version)

	stale.ClearanceStatus = domain.ClearanceCompleted
	err := s.Requests().Update(context.Background(), &stale)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrConflict))

	err = s.Requests().Delete(context.Background(), "r-1", 1)
	assert.True(t, domain.IsKind(err, domain.ErrConflict))
}

func TestDeleteRequestRemovesMeeting(t *testing.T) {
	s := NewStore()
	req := seedRequest(t, s, "r-1", t0)
	meeting, err := domain.NewClearanceMeeting("m-1", req, "R-1", t0.Add(time.Hour), "", t0)
	require.NoError(t, err)
	require.NoError(t, s.Meetings().Create(context.Background(), meeting))

	require.NoError(t, s.Requests().Delete(context.Background(), "r-1", req.Version))

	_, err = s.Meetings().GetByRequestID(context.Background(), "r-1")
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
}

func TestMeetingCreateIsUniquePerRequest(t *testing.T) {
	s := NewStore()
	req := seedRequest(t, s, "r-1", t0)
	first, err := domain.NewClearanceMeeting("m-1", req, "R-1", t0.Add(time.Hour), "", t0)
	require.NoError(t, err)
	second, err := domain.NewClearanceMeeting("m-2", req, "R-2", t0.Add(2*time.Hour), "", t0)
	require.NoError(t, err)

	require.NoError(t, s.Meetings().Create(context.Background(), first))
	err = s.Meetings().Create(context.Background(), second)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState))
}

func TestListAppliesFilterNewestFirst(t *testing.T) {
	s := NewStore()
	seedRequest(t, s, "r-1", t0)
	seedRequest(t, s, "r-2", t0.Add(time.Hour))
	seedRequest(t, s, "r-3", t0.Add(2*time.Hour))

	from := t0.Add(30 * time.Minute)
	out, err := s.Requests().List(context.Background(), domain.RequestFilter{RequestedBy: "st-1", CreatedFrom: &from, Limit: 10})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "r-3", out[0].ID)
	assert.Equal(t, "r-2", out[1].ID)

	out, err = s.Requests().List(context.Background(), domain.RequestFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "r-3", out[0].ID)
}

func TestListAwaitingWithMeeting(t *testing.T) {
	s := NewStore()
	orphan := seedRequest(t, s, "r-1", t0)
	seedRequest(t, s, "r-2", t0)

	meeting, err := domain.NewClearanceMeeting("m-1", orphan, "R-1", t0.Add(time.Hour), "", t0)
	require.NoError(t, err)
	require.NoError(t, s.Meetings().Create(context.Background(), meeting))

	out, err := s.Requests().ListAwaitingWithMeeting(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "r-1", out[0].ID)
}

func TestCatalogActiveNameIsUnique(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	first, err := domain.NewDocumentType("dt-1", "transcript", false, "", t0)
	require.NoError(t, err)
	require.NoError(t, s.Catalog().Create(ctx, first))

	dup, err := domain.NewDocumentType("dt-2", "transcript", false, "", t0)
	require.NoError(t, err)
	err = s.Catalog().Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrValidation))

	first.Deactivate(t0)
	require.NoError(t, s.Catalog().Update(ctx, first))
	require.NoError(t, s.Catalog().Create(ctx, dup), "name frees up once the old entry is inactive")

	found, err := s.Catalog().FindActiveByName(ctx, "transcript")
	require.NoError(t, err)
	assert.Equal(t, "dt-2", found.ID)

	active, err := s.Catalog().ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestNotificationSaveIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	n := domain.Notification{ID: "n-1", UserID: "st-1", Kind: domain.NotifyRequestReady, CreatedAt: t0}

	require.NoError(t, s.Notifications().Save(ctx, n))
	require.NoError(t, s.Notifications().Save(ctx, n))

	out, err := s.Notifications().ListForUser(ctx, "st-1")
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestUserUpsertAndLookup(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.Error(t, s.Users().Upsert(ctx, domain.Identity{ID: "x", Role: "teacher"}))
	require.NoError(t, s.Users().Upsert(ctx, domain.Identity{ID: "ap-1", Role: domain.RoleApprover}))

	identity, err := s.Users().GetIdentity(ctx, "ap-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleApprover, identity.Role)

	_, err = s.Users().GetIdentity(ctx, "nobody")
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
}
