package domain

import "time"

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// RequestFilter narrows request listings. Zero values mean "any".
type RequestFilter struct {
	RequestedBy      string
	AssignedApprover string
	DocumentType     string
	DocumentStatus   DocumentStatus
	ClearanceStatus  ClearanceStatus
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
	Limit            int
}

// Normalize clamps the limit and rejects inverted date ranges.
func (f RequestFilter) Normalize() (RequestFilter, error) {
	out := f
	if out.Limit <= 0 {
		out.Limit = DefaultListLimit
	}
	if out.Limit > MaxListLimit {
		out.Limit = MaxListLimit
	}
	if out.CreatedFrom != nil && out.CreatedTo != nil && out.CreatedTo.Before(*out.CreatedFrom) {
		return RequestFilter{}, NewError(ErrValidation, "normalize filter", "created_to must not be before created_from")
	}
	return out, nil
}

// Matches evaluates the filter in memory.
func (f RequestFilter) Matches(r DocumentRequest) bool {
	switch {
	case f.RequestedBy != "" && r.RequestedBy != f.RequestedBy:
		return false
	case f.AssignedApprover != "" && r.AssignedApprover != f.AssignedApprover:
		return false
	case f.DocumentType != "" && r.DocumentType != f.DocumentType:
		return false
	case f.DocumentStatus != "" && r.DocumentStatus != f.DocumentStatus:
		return false
	case f.ClearanceStatus != "" && r.ClearanceStatus != f.ClearanceStatus:
		return false
	case f.CreatedFrom != nil && r.CreatedAt.Before(*f.CreatedFrom):
		return false
	case f.CreatedTo != nil && r.CreatedAt.After(*f.CreatedTo):
		return false
	}
	return true
}
