package usecase

import (
	"fmt"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

type capability string

const (
	capRequestDocument capability = "request-document"
	capWithdrawRequest capability = "withdraw-request"
	capAdvanceStatus   capability = "advance-status"
	capManageClearance capability = "manage-clearance"
	capManageCatalog   capability = "manage-catalog"
	capViewAllRequests capability = "view-all-requests"
)

var capabilityRoles = map[capability][]domain.Role{
	capRequestDocument: {domain.RoleRequester},
	capWithdrawRequest: {domain.RoleRequester},
	capAdvanceStatus:   {domain.RoleAdministrator, domain.RoleRecordsOffice},
	capManageClearance: {domain.RoleApprover},
	capManageCatalog:   {domain.RoleAdministrator, domain.RoleRecordsOffice},
	capViewAllRequests: {domain.RoleAdministrator, domain.RoleRecordsOffice},
}

func hasCapability(role domain.Role, c capability) bool {
	for _, allowed := range capabilityRoles[c] {
		if allowed == role {
			return true
		}
	}
	return false
}

// authenticated rejects identities the provider should never have produced.
func authenticated(caller domain.Identity) error {
	if !caller.Valid() {
		return domain.NewError(domain.ErrUnauthorized, "authorize", "caller identity is missing or malformed")
	}
	return nil
}

func authorize(caller domain.Identity, c capability) error {
	if err := authenticated(caller); err != nil {
		return err
	}
	if !hasCapability(caller.Role, c) {
		return domain.NewError(domain.ErrPermission, "authorize", fmt.Sprintf("role %q cannot %s", caller.Role, c))
	}
	return nil
}
