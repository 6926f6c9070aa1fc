package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/infrastructure/repository/memory"
)

var (
	student   = domain.Identity{ID: "st-1", Role: domain.RoleRequester}
	student2  = domain.Identity{ID: "st-2", Role: domain.RoleRequester}
	approver  = domain.Identity{ID: "ap-1", Role: domain.RoleApprover}
	approver2 = domain.Identity{ID: "ap-2", Role: domain.RoleApprover}
	registrar = domain.Identity{ID: "ro-1", Role: domain.RoleRecordsOffice}
	admin     = domain.Identity{ID: "ad-1", Role: domain.RoleAdministrator}
)

type emitterFake struct {
	mu    sync.Mutex
	err   error
	notes []domain.Notification
}

func (f *emitterFake) Notify(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, n)
	return f.err
}

func (f *emitterFake) kinds() []domain.NotificationKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(f.notes))
	for _, n := range f.notes {
		out = append(out, n.Kind)
	}
	return out
}

type observerFake struct {
	mu          sync.Mutex
	transitions []domain.DocumentStatus
	actions     []string
}

func (f *observerFake) ObserveTransition(to domain.DocumentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, to)
}

func (f *observerFake) ObserveClearanceAction(action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

type fixture struct {
	store     *memory.Store
	emitter   *emitterFake
	observer  *observerFake
	catalog   *CatalogUseCase
	lifecycle *LifecycleUseCase
	clearance *ClearanceUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	for _, id := range []domain.Identity{student, student2, approver, approver2, registrar, admin} {
		require.NoError(t, store.Users().Upsert(ctx, id))
	}

	f := &fixture{
		store:    store,
		emitter:  &emitterFake{},
		observer: &observerFake{},
	}
	f.catalog = NewCatalogUseCase(store.Catalog(), store.Users())
	f.lifecycle = NewLifecycleUseCase(store.Catalog(), store.Requests(), store, f.emitter, f.observer)
	f.clearance = NewClearanceUseCase(store.Requests(), store.Meetings(), store, f.emitter, f.observer)

	_, err := f.catalog.Create(ctx, admin, domain.DocumentTypeInput{Name: "transcript"})
	require.NoError(t, err)
	_, err = f.catalog.Create(ctx, admin, domain.DocumentTypeInput{Name: "diploma", RequiresClearance: true, AssignedApprover: approver.ID})
	require.NoError(t, err)
	return f
}

func (f *fixture) request(t *testing.T, documentType string) *domain.DocumentRequest {
	t.Helper()
	req, err := f.lifecycle.CreateRequest(context.Background(), student, documentType)
	require.NoError(t, err)
	return req
}

func (f *fixture) schedule(t *testing.T, requestID string) *domain.ClearanceMeeting {
	t.Helper()
	meeting, err := f.clearance.ScheduleClearance(context.Background(), approver, requestID, "R-101", time.Now().Add(24*time.Hour), "bring student id")
	require.NoError(t, err)
	return meeting
}

// conflictingRequests wraps the memory request store and fails the first
// conflicts Update calls with ErrConflict.
type conflictingRequests struct {
	*memory.RequestRepository
	mu        sync.Mutex
	conflicts int
	updates   int
}

func (c *conflictingRequests) Update(ctx context.Context, req *domain.DocumentRequest) error {
	c.mu.Lock()
	c.updates++
	fail := c.conflicts > 0
	if fail {
		c.conflicts--
	}
	c.mu.Unlock()
	if fail {
		return domain.WrapError(domain.ErrConflict, "update request", errors.New("injected"))
	}
	return c.RequestRepository.Update(ctx, req)
}

// conflictingMeetings fails the first conflicts Update calls with ErrConflict.
type conflictingMeetings struct {
	*memory.MeetingRepository
	conflicts int
	updates   int
}

func (c *conflictingMeetings) Update(ctx context.Context, meeting *domain.ClearanceMeeting) error {
	c.updates++
	if c.conflicts > 0 {
		c.conflicts--
		return domain.WrapError(domain.ErrConflict, "update clearance meeting", errors.New("injected"))
	}
	return c.MeetingRepository.Update(ctx, meeting)
}
