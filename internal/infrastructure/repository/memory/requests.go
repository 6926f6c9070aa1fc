package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

type RequestRepository struct {
	s *Store
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.DocumentRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.requests[req.ID]; exists {
		return domain.WrapError(domain.ErrConflict, "create request", fmt.Errorf("id %s already exists", req.ID))
	}
	if req.Version == 0 {
		req.Version = 1
	}
	putWithUndo(ctx, r.s, r.s.requests, req.ID, *req)
	return nil
}

func (r *RequestRepository) GetByID(_ context.Context, id string) (*domain.DocumentRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get request", fmt.Errorf("id %s", id))
	}
	return &req, nil
}

// GetForUpdate is a plain read: transactions are already serialized by the
// store.
func (r *RequestRepository) GetForUpdate(ctx context.Context, id string) (*domain.DocumentRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *RequestRepository) Update(ctx context.Context, req *domain.DocumentRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.requests[req.ID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update request", fmt.Errorf("id %s", req.ID))
	}
	if stored.Version != req.Version {
		return domain.WrapError(domain.ErrConflict, "update request", fmt.Errorf("id %s: version %d is stale", req.ID, req.Version))
	}
	next := *req
	next.Version++
	putWithUndo(ctx, r.s, r.s.requests, req.ID, next)
	req.Version = next.Version
	return nil
}

func (r *RequestRepository) Delete(ctx context.Context, id string, version int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.requests[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "delete request", fmt.Errorf("id %s", id))
	}
	if stored.Version != version {
		return domain.WrapError(domain.ErrConflict, "delete request", fmt.Errorf("id %s: version %d is stale", id, version))
	}
	deleteWithUndo(ctx, r.s, r.s.meetings, id)
	deleteWithUndo(ctx, r.s, r.s.requests, id)
	return nil
}

func (r *RequestRepository) List(_ context.Context, filter domain.RequestFilter) ([]domain.DocumentRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.DocumentRequest, 0)
	for _, req := range r.s.requests {
		if filter.Matches(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *RequestRepository) ListAwaitingWithMeeting(_ context.Context, limit int) ([]domain.DocumentRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.DocumentRequest, 0)
	for id, req := range r.s.requests {
		if req.ClearanceStatus != domain.ClearanceAwaiting || req.IsTerminal() {
			continue
		}
		if _, hasMeeting := r.s.meetings[id]; hasMeeting {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
