package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/domain/receiving"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/retailops/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReceiptRepository implements ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID loads a receipt and its lines. Receipts outside the scope are
// reported as not found.
func (r *GormReceiptRepository) FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*receiving.Receipt, error) {
	var model models.ReceiptModel
	err := r.db.WithContext(ctx).
		Scopes(ScopeFilter(scope, "")).
		Preload("Lines", orderedLines).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage("receipt not found")
		}
		return nil, err
	}
	return model.ToDomain()
}

// List returns one page of receipts in scope and the total number matching
func (r *GormReceiptRepository) List(ctx context.Context, scope shared.Scope, filter receiving.ReceiptFilter) ([]receiving.Receipt, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.ReceiptModel{}).Scopes(ScopeFilter(scope, ""))
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = shared.DefaultFilter().PageSize
	}
	orderBy := ValidateSortField(filter.OrderBy, ReceiptSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.ReceiptModel
	if err := base().
		Preload("Lines", orderedLines).
		Order(orderBy + " " + orderDir).
		Order("id ASC").
		Offset(filter.Offset()).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	receipts := make([]receiving.Receipt, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		receipts = append(receipts, *rec)
	}
	return receipts, total, nil
}

// Create inserts a receipt and its lines in one transaction
func (r *GormReceiptRepository) Create(ctx context.Context, receipt *receiving.Receipt) error {
	model := &models.ReceiptModel{}
	model.FromDomain(receipt)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(model).Error; err != nil {
			return err
		}
		if len(model.Lines) == 0 {
			return nil
		}
		return tx.Create(&model.Lines).Error
	})
}

// CompareAndSwapStatus writes the receipt's decision columns only while the
// stored row still has the expected status. Zero affected rows means another
// writer already moved it, which is reported as a conflict.
func (r *GormReceiptRepository) CompareAndSwapStatus(ctx context.Context, scope shared.Scope, receipt *receiving.Receipt, expected receiving.ReceiptStatus) error {
	model := &models.ReceiptModel{}
	model.FromDomain(receipt)

	result := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Scopes(ScopeFilter(scope, "")).
		Where("id = ? AND status = ?", receipt.ID, expected).
		Updates(model.DecisionColumns())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConflict.WithMessagef("receipt is no longer %s", expected)
	}
	return nil
}

// Ensure GormReceiptRepository implements ReceiptRepository
var _ receiving.ReceiptRepository = (*GormReceiptRepository)(nil)
