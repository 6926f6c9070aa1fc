package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleRequester     Role = "requester"
	RoleApprover      Role = "approver"
	RoleAdministrator Role = "administrator"
	RoleRecordsOffice Role = "records-office"
)

func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleRequester, RoleApprover, RoleAdministrator, RoleRecordsOffice:
		return role, nil
	default:
		return "", WrapError(ErrValidation, "parse role", fmt.Errorf("unknown role %q", raw))
	}
}

// Identity is the caller as resolved by the identity provider.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (i Identity) Valid() bool {
	if strings.TrimSpace(i.ID) == "" {
		return false
	}
	_, err := ParseRole(string(i.Role))
	return err == nil
}
