package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductModel holds the current stock of one product in one branch.
type ProductModel struct {
	BaseModel
	TenantID         uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_branch_code,priority:1"`
	BranchID         uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_branch_code,priority:2"`
	Code             string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_product_branch_code,priority:3"`
	Name             string          `gorm:"type:varchar(200);not null"`
	QuantityInStock  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReorderThreshold decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DeletedAt        gorm.DeletedAt  `gorm:"index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToStock converts the model to the domain stock snapshot
func (m *ProductModel) ToStock() ledger.ProductStock {
	return ledger.ProductStock{
		ProductID:        m.ID,
		BranchID:         m.BranchID,
		Code:             m.Code,
		Name:             m.Name,
		QuantityInStock:  m.QuantityInStock,
		ReorderThreshold: m.ReorderThreshold,
	}
}

// SaleLineModel is one line of the sales log. Voided lines stay in the
// table and are excluded by readers.
type SaleLineModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_sale_lines_scope,priority:1"`
	BranchID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_sale_lines_scope,priority:2"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SoldAt    time.Time       `gorm:"not null;index:idx_sale_lines_scope,priority:3"`
	Voided    bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (SaleLineModel) TableName() string {
	return "sale_lines"
}

// ReturnLineModel is one line of a customer return. Only APPROVED returns
// put goods back into stock. SaleLineID names the sale line the return
// answers; when that line is voided the return is its voiding entry.
type ReturnLineModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_return_lines_scope,priority:1"`
	BranchID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_return_lines_scope,priority:2"`
	ReturnID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleLineID *uuid.UUID      `gorm:"type:uuid;index"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status     string          `gorm:"type:varchar(20);not null"`
	ApprovedAt *time.Time      `gorm:"index:idx_return_lines_scope,priority:3"`
}

// TableName returns the table name for GORM
func (ReturnLineModel) TableName() string {
	return "return_lines"
}

// ReturnStatusApproved marks a return whose goods were restocked
const ReturnStatusApproved = "APPROVED"

// MovementTotalRow is the scan target of the grouped movement queries
type MovementTotalRow struct {
	ProductID uuid.UUID
	Total     decimal.Decimal
}

// ToDomain converts the row to a domain movement total
func (r MovementTotalRow) ToDomain() ledger.MovementTotal {
	return ledger.MovementTotal{ProductID: r.ProductID, Quantity: r.Total}
}

// All lists every model for AutoMigrate in tests and local setups
func All() []any {
	return []any{
		&ReceiptModel{},
		&ReceiptLineModel{},
		&ReceiptAuditEntryModel{},
		&ProductModel{},
		&SaleLineModel{},
		&ReturnLineModel{},
	}
}
