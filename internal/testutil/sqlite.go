package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory SQLite database with every ledger
// table migrated. The pool is pinned to one connection so that concurrent
// transactions serialise instead of each seeing an empty database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// Fixtures seeds ledger rows for one tenant/branch pair
type Fixtures struct {
	DB       *gorm.DB
	TenantID uuid.UUID
	BranchID uuid.UUID
}

// NewFixtures returns fixtures bound to a fresh tenant and branch
func NewFixtures(db *gorm.DB) *Fixtures {
	return &Fixtures{DB: db, TenantID: uuid.New(), BranchID: uuid.New()}
}

// InBranch returns fixtures for another branch of the same tenant
func (f *Fixtures) InBranch(branchID uuid.UUID) *Fixtures {
	return &Fixtures{DB: f.DB, TenantID: f.TenantID, BranchID: branchID}
}

// Product inserts a product with the given stock and returns its id
func (f *Fixtures) Product(t *testing.T, code string, stock int64) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	m := &models.ProductModel{
		BaseModel:       models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		TenantID:        f.TenantID,
		BranchID:        f.BranchID,
		Code:            code,
		Name:            "Product " + code,
		QuantityInStock: decimal.NewFromInt(stock),
	}
	require.NoError(t, f.DB.Create(m).Error)
	return m.ID
}

// SetReorderThreshold updates a product's reorder threshold
func (f *Fixtures) SetReorderThreshold(t *testing.T, productID uuid.UUID, threshold int64) {
	t.Helper()
	require.NoError(t, f.DB.Model(&models.ProductModel{}).
		Where("id = ?", productID).
		Update("reorder_threshold", decimal.NewFromInt(threshold)).Error)
}

// DeleteProduct soft-deletes a product
func (f *Fixtures) DeleteProduct(t *testing.T, productID uuid.UUID) {
	t.Helper()
	require.NoError(t, f.DB.Delete(&models.ProductModel{}, "id = ?", productID).Error)
}

// Sale records a sale line and returns its id
func (f *Fixtures) Sale(t *testing.T, productID uuid.UUID, qty int64, soldAt time.Time, voided bool) uuid.UUID {
	t.Helper()
	m := &models.SaleLineModel{
		ID:        uuid.New(),
		TenantID:  f.TenantID,
		BranchID:  f.BranchID,
		SaleID:    uuid.New(),
		ProductID: productID,
		Quantity:  decimal.NewFromInt(qty),
		SoldAt:    soldAt.UTC(),
		Voided:    voided,
	}
	require.NoError(t, f.DB.Create(m).Error)
	return m.ID
}

// Return records a customer return line in the given status
func (f *Fixtures) Return(t *testing.T, productID uuid.UUID, qty int64, status string, approvedAt *time.Time) {
	t.Helper()
	f.createReturn(t, nil, productID, qty, status, approvedAt)
}

// ReturnOfSale records an approved return line answering saleLineID
func (f *Fixtures) ReturnOfSale(t *testing.T, saleLineID, productID uuid.UUID, qty int64, approvedAt time.Time) {
	t.Helper()
	f.createReturn(t, &saleLineID, productID, qty, models.ReturnStatusApproved, &approvedAt)
}

func (f *Fixtures) createReturn(t *testing.T, saleLineID *uuid.UUID, productID uuid.UUID, qty int64, status string, approvedAt *time.Time) {
	t.Helper()
	var at *time.Time
	if approvedAt != nil {
		u := approvedAt.UTC()
		at = &u
	}
	require.NoError(t, f.DB.Create(&models.ReturnLineModel{
		ID:         uuid.New(),
		TenantID:   f.TenantID,
		BranchID:   f.BranchID,
		ReturnID:   uuid.New(),
		SaleLineID: saleLineID,
		ProductID:  productID,
		Quantity:   decimal.NewFromInt(qty),
		Status:     status,
		ApprovedAt: at,
	}).Error)
}

// Stock reads a product's current quantity in stock
func (f *Fixtures) Stock(t *testing.T, productID uuid.UUID) decimal.Decimal {
	t.Helper()
	var m models.ProductModel
	require.NoError(t, f.DB.Unscoped().First(&m, "id = ?", productID).Error)
	return m.QuantityInStock
}

// AuditCount counts audit entries for a receipt
func (f *Fixtures) AuditCount(t *testing.T, receiptID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.DB.Model(&models.ReceiptAuditEntryModel{}).
		Where("receipt_id = ?", receiptID).
		Count(&n).Error)
	return n
}

// ApprovedReceipt records a receipt with one line that was approved at the
// given instant. Stock is not touched; callers seed current stock as already
// including it.
func (f *Fixtures) ApprovedReceipt(t *testing.T, productID uuid.UUID, qty int64, approvedAt time.Time) uuid.UUID {
	t.Helper()
	at := approvedAt.UTC()
	approver := uuid.New()
	receipt := &models.ReceiptModel{
		BranchAggregateModel: models.BranchAggregateModel{
			BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: at, UpdatedAt: at},
			Version:   2,
			TenantID:  f.TenantID,
			BranchID:  f.BranchID,
		},
		Status:      "APPROVED",
		CreatedBy:   approver,
		ApprovedBy:  &approver,
		ApprovedAt:  &at,
		Attachments: "[]",
	}
	require.NoError(t, f.DB.Omit("Lines").Create(receipt).Error)
	require.NoError(t, f.DB.Create(&models.ReceiptLineModel{
		ID:        uuid.New(),
		ReceiptID: receipt.ID,
		ProductID: productID,
		Quantity:  decimal.NewFromInt(qty),
		LineNo:    1,
	}).Error)
	return receipt.ID
}
