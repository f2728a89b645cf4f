package auth

import (
	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/domain/shared"
)

// Permission codes understood by the ledger
const (
	PermissionReceiptApprove = "receipt:approve"
	PermissionReceiptCreate  = "receipt:create"
	PermissionLedgerRead     = "ledger:read"
)

// ClaimsAuthorizer derives scope and approval rights from the claims that
// were turned into an actor. A token without a branch grants the whole
// tenant.
type ClaimsAuthorizer struct {
	approvePermission string
}

// NewClaimsAuthorizer returns an authorizer that treats holders of
// PermissionReceiptApprove as approvers
func NewClaimsAuthorizer() *ClaimsAuthorizer {
	return &ClaimsAuthorizer{approvePermission: PermissionReceiptApprove}
}

// Scope returns the tenant/branch boundary of the actor
func (a *ClaimsAuthorizer) Scope(actor shared.Actor) (shared.Scope, error) {
	if actor.TenantID == uuid.Nil || actor.UserID == uuid.Nil {
		return shared.Scope{}, shared.ErrPermissionDenied.WithMessage("actor is not bound to a tenant")
	}
	if actor.BranchID == nil {
		return shared.TenantScope(actor.TenantID), nil
	}
	if *actor.BranchID == uuid.Nil {
		return shared.Scope{}, shared.ErrPermissionDenied.WithMessage("actor has an invalid branch")
	}
	return shared.BranchScope(actor.TenantID, *actor.BranchID), nil
}

// IsApprover reports whether the actor may approve or reject receipts
func (a *ClaimsAuthorizer) IsApprover(actor shared.Actor) bool {
	return actor.HasPermission(a.approvePermission)
}
