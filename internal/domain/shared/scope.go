package shared

import (
	"github.com/google/uuid"
)

// Scope is the tenant/branch boundary every ledger read and write is
// restricted to. A nil BranchID means the whole tenant.
type Scope struct {
	TenantID uuid.UUID
	BranchID *uuid.UUID
}

// TenantScope returns a scope covering every branch of the tenant
func TenantScope(tenantID uuid.UUID) Scope {
	return Scope{TenantID: tenantID}
}

// BranchScope returns a scope restricted to a single branch
func BranchScope(tenantID, branchID uuid.UUID) Scope {
	return Scope{TenantID: tenantID, BranchID: &branchID}
}

// IsTenantWide reports whether the scope spans all branches
func (s Scope) IsTenantWide() bool {
	return s.BranchID == nil
}

// Contains reports whether a row owned by tenantID/branchID is visible
func (s Scope) Contains(tenantID, branchID uuid.UUID) bool {
	if s.TenantID == uuid.Nil || s.TenantID != tenantID {
		return false
	}
	return s.BranchID == nil || *s.BranchID == branchID
}

// MustBeBound panics when the scope has no tenant. An unbound scope is a
// programming error: it would otherwise turn into an unfiltered query.
func (s Scope) MustBeBound() {
	if s.TenantID == uuid.Nil {
		panic("ledger: scope without tenant id")
	}
}

// Actor is the authenticated caller of a ledger operation
type Actor struct {
	UserID      uuid.UUID
	TenantID    uuid.UUID
	BranchID    *uuid.UUID
	Username    string
	Permissions []string
}

// HasPermission reports whether the actor holds the permission code
func (a Actor) HasPermission(code string) bool {
	for _, p := range a.Permissions {
		if p == code || p == "*" {
			return true
		}
	}
	return false
}
