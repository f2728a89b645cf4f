package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStock is the current stock snapshot of one product
type ProductStock struct {
	ProductID        uuid.UUID
	BranchID         uuid.UUID
	Code             string
	Name             string
	QuantityInStock  decimal.Decimal
	ReorderThreshold decimal.Decimal
}
