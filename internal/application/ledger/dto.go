package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailops/ledger/internal/domain/ledger"
)

// BalanceRowResponse is the reconstructed balance of one product
type BalanceRowResponse struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductCode   string          `json:"product_code"`
	ProductName   string          `json:"product_name"`
	BalanceAsAt   decimal.Decimal `json:"balance_as_at"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	SalesAfter    decimal.Decimal `json:"sales_after"`
	ReceiptsAfter decimal.Decimal `json:"receipts_after"`
	ReturnsAfter  decimal.Decimal `json:"returns_after"`
	RawBalance    decimal.Decimal `json:"raw_balance"` // before clamping; differs from BalanceAsAt only when Clamped
	Clamped       bool            `json:"clamped"`
	BelowReorder  bool            `json:"below_reorder"`
}

// BalanceReport is the as-of balance of every product in scope
type BalanceReport struct {
	AsOf         string               `json:"as_of"`
	Cutoff       time.Time            `json:"cutoff"`
	Timezone     string               `json:"timezone"`
	Rows         []BalanceRowResponse `json:"rows"`
	ProductCount int                  `json:"product_count"`
	ClampedCount int                  `json:"clamped_count"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

func newBalanceReport(asOf, cutoff time.Time, loc *time.Location, rows []ledger.BalanceRow, now time.Time) *BalanceReport {
	report := &BalanceReport{
		AsOf:         asOf.In(loc).Format(time.DateOnly),
		Cutoff:       cutoff.UTC(),
		Timezone:     loc.String(),
		Rows:         make([]BalanceRowResponse, len(rows)),
		ProductCount: len(rows),
		GeneratedAt:  now.UTC(),
	}
	for i, r := range rows {
		if r.Clamped {
			report.ClampedCount++
		}
		report.Rows[i] = BalanceRowResponse{
			ProductID:     r.ProductID,
			ProductCode:   r.ProductCode,
			ProductName:   r.ProductName,
			BalanceAsAt:   r.BalanceAsAt,
			CurrentStock:  r.CurrentStock,
			SalesAfter:    r.SalesAfter,
			ReceiptsAfter: r.ReceiptsAfter,
			ReturnsAfter:  r.ReturnsAfter,
			RawBalance:    r.RawBalance,
			Clamped:       r.Clamped,
			BelowReorder:  r.BelowReorder,
		}
	}
	return report
}

// Row returns the row for productID, or nil
func (r *BalanceReport) Row(productID uuid.UUID) *BalanceRowResponse {
	for i := range r.Rows {
		if r.Rows[i].ProductID == productID {
			return &r.Rows[i]
		}
	}
	return nil
}
