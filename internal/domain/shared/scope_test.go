package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestScope_Contains(t *testing.T) {
	tenant := uuid.New()
	branchA := uuid.New()
	branchB := uuid.New()

	t.Run("tenant-wide scope sees every branch", func(t *testing.T) {
		s := TenantScope(tenant)
		assert.True(t, s.IsTenantWide())
		assert.True(t, s.Contains(tenant, branchA))
		assert.True(t, s.Contains(tenant, branchB))
	})

	t.Run("branch scope sees only its branch", func(t *testing.T) {
		s := BranchScope(tenant, branchA)
		assert.False(t, s.IsTenantWide())
		assert.True(t, s.Contains(tenant, branchA))
		assert.False(t, s.Contains(tenant, branchB))
	})

	t.Run("other tenant is never visible", func(t *testing.T) {
		s := TenantScope(tenant)
		assert.False(t, s.Contains(uuid.New(), branchA))
	})

	t.Run("unbound scope sees nothing", func(t *testing.T) {
		assert.False(t, Scope{}.Contains(uuid.Nil, branchA))
	})
}

func TestScope_MustBeBound(t *testing.T) {
	assert.Panics(t, func() { Scope{}.MustBeBound() })
	assert.NotPanics(t, func() { TenantScope(uuid.New()).MustBeBound() })
}

func TestActor_HasPermission(t *testing.T) {
	a := Actor{Permissions: []string{"receipt:read", "receipt:approve"}}
	assert.True(t, a.HasPermission("receipt:approve"))
	assert.False(t, a.HasPermission("ledger:balance"))

	admin := Actor{Permissions: []string{"*"}}
	assert.True(t, admin.HasPermission("ledger:balance"))
}
