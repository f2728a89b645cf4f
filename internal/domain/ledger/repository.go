package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductRepository reads and adjusts product stock
type ProductRepository interface {
	// IncrementStock adds qty to the product's quantity in stock. It returns
	// shared.ErrProductMissing when the product does not exist in scope.
	IncrementStock(ctx context.Context, scope shared.Scope, productID uuid.UUID, qty decimal.Decimal) error

	// ExistingIDs returns the subset of ids that exist in scope
	ExistingIDs(ctx context.Context, scope shared.Scope, ids []uuid.UUID) (map[uuid.UUID]bool, error)

	// ListStock returns the current stock of every product in scope
	ListStock(ctx context.Context, scope shared.Scope) ([]ProductStock, error)
}

// MovementLog is the read side of the sales, receipt and return logs.
// Each method is one aggregate query grouped by product.
type MovementLog interface {
	// SalesSince sums non-voided sale quantities at or after the instant
	SalesSince(ctx context.Context, scope shared.Scope, after time.Time) ([]MovementTotal, error)

	// ReceiptsSince sums approved receipt line quantities approved at or after the instant
	ReceiptsSince(ctx context.Context, scope shared.Scope, after time.Time) ([]MovementTotal, error)

	// ApprovedReturnsSince sums approved return quantities approved at or after the instant
	ApprovedReturnsSince(ctx context.Context, scope shared.Scope, after time.Time) ([]MovementTotal, error)
}
