package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

// MeetingRepository keys meetings by request id, one meeting per request.
type MeetingRepository struct {
	s *Store
}

func (r *MeetingRepository) Create(ctx context.Context, meeting *domain.ClearanceMeeting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.requests[meeting.RequestID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "create clearance meeting", fmt.Errorf("request %s", meeting.RequestID))
	}
	if _, exists := r.s.meetings[meeting.RequestID]; exists {
		return domain.WrapError(domain.ErrInvalidState, "create clearance meeting", fmt.Errorf("request %s already has a clearance meeting", meeting.RequestID))
	}
	putWithUndo(ctx, r.s, r.s.meetings, meeting.RequestID, *meeting)
	return nil
}

func (r *MeetingRepository) GetByRequestID(_ context.Context, requestID string) (*domain.ClearanceMeeting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	meeting, ok := r.s.meetings[requestID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get clearance meeting", fmt.Errorf("request %s has no clearance meeting", requestID))
	}
	return &meeting, nil
}

func (r *MeetingRepository) Update(ctx context.Context, meeting *domain.ClearanceMeeting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.meetings[meeting.RequestID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "update clearance meeting", fmt.Errorf("request %s has no clearance meeting", meeting.RequestID))
	}
	putWithUndo(ctx, r.s, r.s.meetings, meeting.RequestID, *meeting)
	return nil
}

func (r *MeetingRepository) ListByParticipant(_ context.Context, userID string) ([]domain.ClearanceMeeting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.ClearanceMeeting, 0)
	for _, meeting := range r.s.meetings {
		if meeting.ApproverID == userID || meeting.RequesterID == userID {
			out = append(out, meeting)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}
