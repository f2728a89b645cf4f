package persistence

import (
	"github.com/retailops/ledger/internal/domain/shared"
	"gorm.io/gorm"
)

// ScopeFilter restricts a query to the scope's tenant and, when set, its
// branch. table qualifies the filtered columns for joined queries, e.g.
// "receipts". It panics on a scope without tenant so that a missing scope
// can never become an unfiltered query.
func ScopeFilter(scope shared.Scope, table string) func(db *gorm.DB) *gorm.DB {
	scope.MustBeBound()
	prefix := ""
	if table != "" {
		prefix = table + "."
	}
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where(prefix+"tenant_id = ?", scope.TenantID)
		if scope.BranchID != nil {
			db = db.Where(prefix+"branch_id = ?", *scope.BranchID)
		}
		return db
	}
}
