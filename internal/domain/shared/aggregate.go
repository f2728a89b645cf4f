package shared

import (
	"github.com/google/uuid"
)

// BaseAggregateRoot adds an optimistic version to an entity
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// GetVersion returns the aggregate version
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// BranchAggregateRoot is an aggregate owned by one branch of one tenant
type BranchAggregateRoot struct {
	BaseAggregateRoot
	TenantID uuid.UUID
	BranchID uuid.UUID
}

// NewBranchAggregateRoot creates a new branch-owned aggregate root
func NewBranchAggregateRoot(tenantID, branchID uuid.UUID) BranchAggregateRoot {
	return BranchAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		TenantID:          tenantID,
		BranchID:          branchID,
	}
}

// VisibleIn reports whether the aggregate falls inside the given scope
func (b *BranchAggregateRoot) VisibleIn(scope Scope) bool {
	return scope.Contains(b.TenantID, b.BranchID)
}
