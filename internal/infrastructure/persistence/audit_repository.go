package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/domain/receiving"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/retailops/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository implements the append-only receipt audit log
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts one audit entry
func (r *GormAuditRepository) Append(ctx context.Context, entry *receiving.AuditEntry) error {
	model := &models.ReceiptAuditEntryModel{}
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// ListByReceipt returns the receipt's entries, most recent first
func (r *GormAuditRepository) ListByReceipt(ctx context.Context, scope shared.Scope, receiptID uuid.UUID) ([]receiving.AuditEntry, error) {
	var rows []models.ReceiptAuditEntryModel
	if err := r.db.WithContext(ctx).
		Scopes(ScopeFilter(scope, "")).
		Where("receipt_id = ?", receiptID).
		Order("occurred_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]receiving.AuditEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// Ensure GormAuditRepository implements AuditRepository
var _ receiving.AuditRepository = (*GormAuditRepository)(nil)
