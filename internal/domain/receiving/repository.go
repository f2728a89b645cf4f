package receiving

import (
	"context"

	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ReceiptFilter narrows a receipt listing
type ReceiptFilter struct {
	shared.Filter
	Status ReceiptStatus
}

// ReceiptRepository persists receipts. Every method takes the caller's scope;
// rows outside it behave as if they did not exist.
type ReceiptRepository interface {
	// FindByID loads a receipt with its lines, or shared.ErrNotFound
	FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*Receipt, error)

	// List returns a page of receipts and the total count
	List(ctx context.Context, scope shared.Scope, filter ReceiptFilter) ([]Receipt, int64, error)

	// Create inserts a new receipt and its lines
	Create(ctx context.Context, receipt *Receipt) error

	// CompareAndSwapStatus writes the receipt's new status and decision
	// fields only if the stored status still equals expected. It returns
	// shared.ErrConflict when another writer got there first.
	CompareAndSwapStatus(ctx context.Context, scope shared.Scope, receipt *Receipt, expected ReceiptStatus) error
}

// AuditRepository is the append-only store of receipt transitions
type AuditRepository interface {
	// Append records one transition
	Append(ctx context.Context, entry *AuditEntry) error

	// ListByReceipt returns a receipt's history, most recent first
	ListByReceipt(ctx context.Context, scope shared.Scope, receiptID uuid.UUID) ([]AuditEntry, error)
}
