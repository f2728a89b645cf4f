package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/domain/ledger"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/retailops/ledger/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// IncrementStock adds qty to the product's stock with a single relative
// UPDATE, so concurrent increments never overwrite each other. A product
// that is missing, soft-deleted or outside the scope yields ErrProductMissing.
func (r *GormProductRepository) IncrementStock(ctx context.Context, scope shared.Scope, productID uuid.UUID, qty decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Scopes(ScopeFilter(scope, "")).
		Where("id = ?", productID).
		UpdateColumn("quantity_in_stock", gorm.Expr("quantity_in_stock + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrProductMissing.WithMessagef("product %s does not exist", productID)
	}
	return nil
}

// ExistingIDs returns which of ids exist in scope
func (r *GormProductRepository) ExistingIDs(ctx context.Context, scope shared.Scope, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	found := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var existing []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Scopes(ScopeFilter(scope, "")).
		Where("id IN ?", ids).
		Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

// ListStock returns the current stock snapshot of every product in scope,
// ordered by product code.
func (r *GormProductRepository) ListStock(ctx context.Context, scope shared.Scope) ([]ledger.ProductStock, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Scopes(ScopeFilter(scope, "")).
		Order("code ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	stock := make([]ledger.ProductStock, len(rows))
	for i := range rows {
		stock[i] = rows[i].ToStock()
	}
	return stock, nil
}

// Ensure GormProductRepository implements ProductRepository
var _ ledger.ProductRepository = (*GormProductRepository)(nil)
