package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind classifies the forward-only logs the reconstructor reads
type MovementKind string

const (
	MovementKindSale           MovementKind = "SALE"
	MovementKindReceipt        MovementKind = "RECEIPT"
	MovementKindApprovedReturn MovementKind = "APPROVED_RETURN"
)

// MovementTotal is the summed quantity of one movement kind for one product
type MovementTotal struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// Totals indexes movement totals by product, summing duplicates
func Totals(rows []MovementTotal) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, r := range rows {
		out[r.ProductID] = out[r.ProductID].Add(r.Quantity)
	}
	return out
}
