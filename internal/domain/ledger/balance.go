package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceRow is the reconstructed as-of balance of one product. The three
// deltas are kept alongside the result so the figure can be audited.
type BalanceRow struct {
	ProductID     uuid.UUID
	ProductCode   string
	ProductName   string
	BalanceAsAt   decimal.Decimal
	CurrentStock  decimal.Decimal
	SalesAfter    decimal.Decimal
	ReceiptsAfter decimal.Decimal
	ReturnsAfter  decimal.Decimal
	RawBalance    decimal.Decimal
	Clamped       bool
	BelowReorder  bool
}

// Movements bundles the per-kind totals observed after the cutoff
type Movements struct {
	Sales    map[uuid.UUID]decimal.Decimal
	Receipts map[uuid.UUID]decimal.Decimal
	Returns  map[uuid.UUID]decimal.Decimal
}

// EndOfDay returns the first instant after the calendar day of asOf in loc.
// Movements at or after this instant happened "after" asOf.
func EndOfDay(asOf time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	d := asOf.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
}

// Reconstruct walks current stock back to the cutoff by undoing every
// movement after it: sales are added back, receipts and approved returns
// are taken away. Negative results are clamped to zero and flagged.
func Reconstruct(stock []ProductStock, m Movements) []BalanceRow {
	rows := make([]BalanceRow, 0, len(stock))
	for _, p := range stock {
		sales := m.Sales[p.ProductID]
		receipts := m.Receipts[p.ProductID]
		returns := m.Returns[p.ProductID]

		raw := p.QuantityInStock.Add(sales).Sub(receipts).Sub(returns)
		balance := raw
		clamped := false
		if raw.IsNegative() {
			balance = decimal.Zero
			clamped = true
		}

		rows = append(rows, BalanceRow{
			ProductID:     p.ProductID,
			ProductCode:   p.Code,
			ProductName:   p.Name,
			BalanceAsAt:   balance,
			CurrentStock:  p.QuantityInStock,
			SalesAfter:    sales,
			ReceiptsAfter: receipts,
			ReturnsAfter:  returns,
			RawBalance:    raw,
			Clamped:       clamped,
			BelowReorder:  p.ReorderThreshold.IsPositive() && balance.LessThanOrEqual(p.ReorderThreshold),
		})
	}
	return rows
}
