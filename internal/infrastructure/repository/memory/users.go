package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetIdentity(_ context.Context, userID string) (domain.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	identity, ok := r.s.users[userID]
	if !ok {
		return domain.Identity{}, domain.WrapError(domain.ErrNotFound, "get identity", fmt.Errorf("user %s", userID))
	}
	return identity, nil
}

func (r *UserRepository) Upsert(ctx context.Context, identity domain.Identity) error {
	if !identity.Valid() {
		return domain.NewError(domain.ErrValidation, "upsert user", "user id and a known role are required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	putWithUndo(ctx, r.s, r.s.users, identity.ID, identity)
	return nil
}

// NotificationRepository is the in-memory notification inbox.
type NotificationRepository struct {
	s *Store
}

func (r *NotificationRepository) Save(ctx context.Context, n domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.notifications[n.ID]; exists {
		return nil
	}
	putWithUndo(ctx, r.s, r.s.notifications, n.ID, n)
	return nil
}

func (r *NotificationRepository) ListForUser(_ context.Context, userID string) ([]domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Notification, 0)
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
