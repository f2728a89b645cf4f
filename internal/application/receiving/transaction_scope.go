package receiving

import (
	"context"

	"github.com/retailops/ledger/internal/domain/ledger"
	"github.com/retailops/ledger/internal/domain/receiving"
)

// TransactionScope runs a unit of work in one database transaction.
// If fn returns an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are the repositories bound to the current
// transaction. The approval path needs all three so that the status change,
// the stock increments and the audit entry commit together.
type TransactionalRepositories interface {
	ReceiptRepo() receiving.ReceiptRepository
	AuditRepo() receiving.AuditRepository
	ProductRepo() ledger.ProductRepository
}
