package domain

import (
	"errors"
	"strings"
	"time"
)

const maxDocumentTypeNameLen = 128

// DocumentType is a requestable entry of the document catalog.
//
// Invariants:
//   - Name is trimmed and 1..128 characters
//   - AssignedApprover is set iff RequiresClearance
//   - entries are never hard-deleted, only deactivated
type DocumentType struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	RequiresClearance bool      `json:"requires_clearance"`
	AssignedApprover  string    `json:"assigned_approver,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func NewDocumentType(id, name string, requiresClearance bool, approverID string, now time.Time) (*DocumentType, error) {
	const op = "new document type"

	name = strings.TrimSpace(name)
	approverID = strings.TrimSpace(approverID)
	if name == "" {
		return nil, NewError(ErrValidation, op, "name is required")
	}
	if len(name) > maxDocumentTypeNameLen {
		return nil, NewError(ErrValidation, op, "name must be 128 characters or less")
	}
	if requiresClearance && approverID == "" {
		return nil, NewError(ErrValidation, op, "assigned approver is required when clearance is required")
	}
	if !requiresClearance && approverID != "" {
		return nil, NewError(ErrValidation, op, "assigned approver is only allowed when clearance is required")
	}

	return &DocumentType{
		ID:                id,
		Name:              name,
		RequiresClearance: requiresClearance,
		AssignedApprover:  approverID,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Deactivate soft-deletes the entry. Already inactive entries are left untouched.
func (d *DocumentType) Deactivate(now time.Time) bool {
	if !d.Active {
		return false
	}
	d.Active = false
	d.UpdatedAt = now
	return true
}

// ValidateApprover checks that the identity resolved for AssignedApprover may
// conduct clearance meetings.
func (d *DocumentType) ValidateApprover(approver Identity) error {
	if !d.RequiresClearance {
		return nil
	}
	if approver.ID != d.AssignedApprover || approver.Role != RoleApprover {
		return WrapError(ErrValidation, "validate approver", errors.New("assigned user must hold the approver role"))
	}
	return nil
}

// DocumentTypeInput is the payload for creating a catalog entry.
type DocumentTypeInput struct {
	Name              string `json:"name" yaml:"name"`
	RequiresClearance bool   `json:"requires_clearance" yaml:"requires_clearance"`
	AssignedApprover  string `json:"assigned_approver,omitempty" yaml:"assigned_approver"`
}
