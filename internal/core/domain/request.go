package domain

import (
	"fmt"
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusPending       DocumentStatus = "pending"
	StatusProcessing    DocumentStatus = "processing"
	StatusReadyToPickup DocumentStatus = "ready-to-pickup"
	StatusCompleted     DocumentStatus = "completed"
	StatusCancelled     DocumentStatus = "cancelled"
)

func ParseDocumentStatus(raw string) (DocumentStatus, error) {
	status := DocumentStatus(strings.TrimSpace(raw))
	switch status {
	case StatusPending, StatusProcessing, StatusReadyToPickup, StatusCompleted, StatusCancelled:
		return status, nil
	default:
		return "", WrapError(ErrValidation, "parse document status", fmt.Errorf("unknown status %q", raw))
	}
}

func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// documentEdges is the complete transition graph. Anything absent is illegal.
var documentEdges = map[DocumentStatus][]DocumentStatus{
	StatusPending:       {StatusProcessing, StatusCancelled},
	StatusProcessing:    {StatusReadyToPickup, StatusCancelled},
	StatusReadyToPickup: {StatusCompleted},
}

func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	for _, next := range documentEdges[s] {
		if next == target {
			return true
		}
	}
	return false
}

// NotifiesRequester reports whether entering s is announced to the requester.
func (s DocumentStatus) NotifiesRequester() bool {
	return s == StatusReadyToPickup || s == StatusCancelled
}

type ClearanceStatus string

const (
	ClearanceNone      ClearanceStatus = "none"
	ClearanceAwaiting  ClearanceStatus = "awaiting"
	ClearanceScheduled ClearanceStatus = "scheduled"
	ClearanceCompleted ClearanceStatus = "completed"
)

func ParseClearanceStatus(raw string) (ClearanceStatus, error) {
	status := ClearanceStatus(strings.TrimSpace(raw))
	switch status {
	case ClearanceNone, ClearanceAwaiting, ClearanceScheduled, ClearanceCompleted:
		return status, nil
	default:
		return "", WrapError(ErrValidation, "parse clearance status", fmt.Errorf("unknown clearance status %q", raw))
	}
}

// DocumentRequest is the aggregate root of the request lifecycle.
//
// Invariants:
//   - CancelReason is non-empty iff DocumentStatus is cancelled
//   - ClearanceStatus other than none implies RequiresClearance
//   - completed and cancelled are terminal: no field changes afterwards
//   - RequiresClearance and AssignedApprover are snapshots of the catalog entry
//     taken at creation and never re-read
type DocumentRequest struct {
	ID                string          `json:"id"`
	DocumentType      string          `json:"document_type"`
	RequestedBy       string          `json:"requested_by"`
	RequiresClearance bool            `json:"requires_clearance"`
	ClearanceStatus   ClearanceStatus `json:"clearance_status"`
	AssignedApprover  string          `json:"assigned_approver,omitempty"`
	DocumentStatus    DocumentStatus  `json:"document_status"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func NewDocumentRequest(id string, entry DocumentType, requesterID string, now time.Time) (*DocumentRequest, error) {
	const op = "new document request"

	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, NewError(ErrValidation, op, "requester is required")
	}
	if !entry.Active {
		return nil, NewError(ErrNotFound, op, "document type not available")
	}

	req := &DocumentRequest{
		ID:                id,
		DocumentType:      entry.Name,
		RequestedBy:       requesterID,
		RequiresClearance: entry.RequiresClearance,
		ClearanceStatus:   ClearanceNone,
		DocumentStatus:    StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if entry.RequiresClearance {
		req.ClearanceStatus = ClearanceAwaiting
		req.AssignedApprover = entry.AssignedApprover
	}
	return req, nil
}

func (r *DocumentRequest) IsTerminal() bool {
	return r.DocumentStatus.IsTerminal()
}

// ClearanceBlocks is the single guard tying the two state machines together:
// a request needing clearance cannot progress until clearance is completed.
func (r *DocumentRequest) ClearanceBlocks() bool {
	return r.RequiresClearance && r.ClearanceStatus != ClearanceCompleted
}

// Advance moves the request to target. cancelReason must be supplied for, and
// only for, a transition to cancelled.
func (r *DocumentRequest) Advance(target DocumentStatus, cancelReason string, now time.Time) error {
	const op = "advance request"

	if _, err := ParseDocumentStatus(string(target)); err != nil {
		return err
	}
	current := r.DocumentStatus
	if current.IsTerminal() {
		return NewError(ErrInvalidState, op, fmt.Sprintf("requests with status %q cannot be updated anymore", current))
	}
	if target == current {
		return NewError(ErrInvalidState, op, fmt.Sprintf("already in %q status", current))
	}
	if !current.CanTransitionTo(target) {
		return invalidTransition(op, current, target)
	}
	if target != StatusCancelled && r.ClearanceBlocks() {
		return NewError(ErrClearanceRequired, op, "status can only be updated after clearance is completed")
	}

	cancelReason = strings.TrimSpace(cancelReason)
	if target == StatusCancelled {
		if cancelReason == "" {
			return NewError(ErrValidation, op, "cancel reason is required when cancelling")
		}
		r.DocumentStatus = StatusCancelled
		r.CancelReason = cancelReason
		r.UpdatedAt = now
		return nil
	}
	if cancelReason != "" {
		return NewError(ErrValidation, op, "cancel reason can only be set when cancelling a request")
	}

	r.DocumentStatus = target
	r.UpdatedAt = now
	return nil
}

func invalidTransition(op string, from, to DocumentStatus) error {
	switch {
	case from == StatusProcessing && to == StatusPending:
		return NewError(ErrInvalidState, op, "cannot revert from processing back to pending")
	case from == StatusReadyToPickup:
		return NewError(ErrInvalidState, op, `a "ready-to-pickup" request can only be updated to "completed"`)
	case to == StatusCancelled:
		return NewError(ErrInvalidState, op, "only pending or processing requests can be cancelled")
	default:
		return NewError(ErrInvalidState, op, fmt.Sprintf("transition %q -> %q is not allowed", from, to))
	}
}

// CanWithdraw checks that requesterID may delete the request.
func (r *DocumentRequest) CanWithdraw(requesterID string) error {
	const op = "withdraw request"

	if r.RequestedBy != requesterID {
		return NewError(ErrPermission, op, "only the requester may withdraw this request")
	}
	if r.DocumentStatus != StatusPending {
		return NewError(ErrInvalidState, op, "a request cannot be withdrawn once it is past pending")
	}
	return nil
}

// VisibleTo reports whether caller may read the request.
func (r *DocumentRequest) VisibleTo(caller Identity) bool {
	switch caller.Role {
	case RoleAdministrator, RoleRecordsOffice:
		return true
	case RoleApprover:
		return r.RequiresClearance && r.AssignedApprover == caller.ID
	default:
		return r.RequestedBy == caller.ID
	}
}
