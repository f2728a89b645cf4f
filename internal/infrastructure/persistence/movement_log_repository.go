package persistence

import (
	"context"
	"time"

	"github.com/retailops/ledger/internal/domain/ledger"
	"github.com/retailops/ledger/internal/domain/receiving"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/retailops/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMovementLog reads the sales, receipt and return logs. Every method is
// a single grouped aggregate over the whole scope, never a per-product query.
type GormMovementLog struct {
	db *gorm.DB
}

// NewGormMovementLog creates a new GormMovementLog
func NewGormMovementLog(db *gorm.DB) *GormMovementLog {
	return &GormMovementLog{db: db}
}

// SalesSince sums non-voided sale quantities sold at or after the instant
func (r *GormMovementLog) SalesSince(ctx context.Context, scope shared.Scope, after time.Time) ([]ledger.MovementTotal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SaleLineModel{}).
		Scopes(ScopeFilter(scope, "")).
		Select("product_id, SUM(quantity) AS total").
		Where("voided = ?", false).
		Where("sold_at >= ?", after.UTC()).
		Group("product_id")
	return scanTotals(query)
}

// ReceiptsSince sums line quantities of receipts approved at or after the instant
func (r *GormMovementLog) ReceiptsSince(ctx context.Context, scope shared.Scope, after time.Time) ([]ledger.MovementTotal, error) {
	query := r.db.WithContext(ctx).
		Table("receipt_lines").
		Joins("JOIN receipts ON receipts.id = receipt_lines.receipt_id").
		Scopes(ScopeFilter(scope, "receipts")).
		Select("receipt_lines.product_id AS product_id, SUM(receipt_lines.quantity) AS total").
		Where("receipts.status = ?", receiving.ReceiptStatusApproved).
		Where("receipts.approved_at >= ?", after.UTC()).
		Group("receipt_lines.product_id")
	return scanTotals(query)
}

// ApprovedReturnsSince sums quantities of returns approved at or after the
// instant. A return linked to a voided sale line is the entry that voided
// it; since SalesSince already leaves that sale out, the return is left out
// too and the pair nets to nothing.
func (r *GormMovementLog) ApprovedReturnsSince(ctx context.Context, scope shared.Scope, after time.Time) ([]ledger.MovementTotal, error) {
	query := r.db.WithContext(ctx).
		Table("return_lines").
		Joins("LEFT JOIN sale_lines ON sale_lines.id = return_lines.sale_line_id").
		Scopes(ScopeFilter(scope, "return_lines")).
		Select("return_lines.product_id AS product_id, SUM(return_lines.quantity) AS total").
		Where("return_lines.status = ?", models.ReturnStatusApproved).
		Where("return_lines.approved_at >= ?", after.UTC()).
		Where("(sale_lines.id IS NULL OR sale_lines.voided = ?)", false).
		Group("return_lines.product_id")
	return scanTotals(query)
}

func scanTotals(query *gorm.DB) ([]ledger.MovementTotal, error) {
	var rows []models.MovementTotalRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	totals := make([]ledger.MovementTotal, len(rows))
	for i, row := range rows {
		totals[i] = row.ToDomain()
	}
	return totals, nil
}

// Ensure GormMovementLog implements MovementLog
var _ ledger.MovementLog = (*GormMovementLog)(nil)
