package domain

import (
	"strings"
	"time"
)

// ClearanceMeeting ties a request to the approver conducting its clearance.
// The meeting has no status of its own; progress is tracked by
// DocumentRequest.ClearanceStatus.
type ClearanceMeeting struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	ApproverID  string    `json:"approver_id"`
	RequesterID string    `json:"requester_id"`
	Room        string    `json:"room"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MeetingPatch carries a partial reschedule. Nil fields are left unchanged.
type MeetingPatch struct {
	Room        *string
	ScheduledAt *time.Time
	Description *string
}

func (p MeetingPatch) IsEmpty() bool {
	return p.Room == nil && p.ScheduledAt == nil && p.Description == nil
}

func NewClearanceMeeting(id string, req *DocumentRequest, room string, scheduledAt time.Time, description string, now time.Time) (*ClearanceMeeting, error) {
	const op = "new clearance meeting"

	room = strings.TrimSpace(room)
	if room == "" {
		return nil, NewError(ErrValidation, op, "room is required")
	}
	if scheduledAt.IsZero() {
		return nil, NewError(ErrValidation, op, "meeting date is required")
	}
	return &ClearanceMeeting{
		ID:          id,
		RequestID:   req.ID,
		ApproverID:  req.AssignedApprover,
		RequesterID: req.RequestedBy,
		Room:        room,
		ScheduledAt: scheduledAt.UTC(),
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Apply reschedules the meeting in place.
func (m *ClearanceMeeting) Apply(patch MeetingPatch, now time.Time) error {
	const op = "reschedule clearance meeting"

	if patch.IsEmpty() {
		return NewError(ErrValidation, op, "nothing to update")
	}
	room := m.Room
	if patch.Room != nil {
		room = strings.TrimSpace(*patch.Room)
		if room == "" {
			return NewError(ErrValidation, op, "room cannot be blank")
		}
	}
	scheduledAt := m.ScheduledAt
	if patch.ScheduledAt != nil {
		if patch.ScheduledAt.IsZero() {
			return NewError(ErrValidation, op, "meeting date cannot be empty")
		}
		scheduledAt = patch.ScheduledAt.UTC()
	}

	m.Room = room
	m.ScheduledAt = scheduledAt
	if patch.Description != nil {
		m.Description = strings.TrimSpace(*patch.Description)
	}
	m.UpdatedAt = now
	return nil
}

// CanScheduleClearance validates that approverID may schedule the clearance
// meeting now. Pair with MarkClearanceScheduled once the meeting is stored.
func (r *DocumentRequest) CanScheduleClearance(approverID string) error {
	const op = "schedule clearance"

	if !r.RequiresClearance {
		return NewError(ErrPrecondition, op, "this document does not require clearance")
	}
	if r.AssignedApprover != approverID {
		return NewError(ErrPermission, op, "you are not assigned to handle this clearance")
	}
	if r.IsTerminal() {
		return NewError(ErrInvalidState, op, "request is already closed")
	}
	if r.ClearanceStatus != ClearanceAwaiting {
		return NewError(ErrInvalidState, op, "clearance already scheduled or completed")
	}
	return nil
}

func (r *DocumentRequest) MarkClearanceScheduled(now time.Time) {
	r.ClearanceStatus = ClearanceScheduled
	r.UpdatedAt = now
}

// CanRescheduleClearance validates a reschedule by approverID. The request
// itself is not modified by a reschedule.
func (r *DocumentRequest) CanRescheduleClearance(approverID string) error {
	const op = "reschedule clearance"

	if r.AssignedApprover != approverID || !r.RequiresClearance {
		return NewError(ErrPermission, op, "you are not assigned to handle this clearance")
	}
	if r.IsTerminal() {
		return NewError(ErrInvalidState, op, "request is already closed")
	}
	if r.ClearanceStatus != ClearanceScheduled {
		return NewError(ErrInvalidState, op, "only a scheduled clearance can be rescheduled")
	}
	return nil
}

// CompleteClearance records that the clearance meeting took place.
func (r *DocumentRequest) CompleteClearance(approverID string, now time.Time) error {
	const op = "complete clearance"

	if r.AssignedApprover != approverID || !r.RequiresClearance {
		return NewError(ErrPermission, op, "you are not assigned to handle this clearance")
	}
	if r.IsTerminal() {
		return NewError(ErrInvalidState, op, "request is already closed")
	}
	if r.ClearanceStatus != ClearanceScheduled {
		return NewError(ErrInvalidState, op, "clearance must be scheduled before it can be completed")
	}
	r.ClearanceStatus = ClearanceCompleted
	r.UpdatedAt = now
	return nil
}
