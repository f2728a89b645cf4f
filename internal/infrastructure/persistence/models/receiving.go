package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/domain/receiving"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReceiptModel is the persistence model for the Receipt aggregate root.
type ReceiptModel struct {
	BranchAggregateModel
	Reference       string                  `gorm:"type:varchar(200)"`
	Status          receiving.ReceiptStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	CreatedBy       uuid.UUID               `gorm:"type:uuid;not null"`
	ApprovedBy      *uuid.UUID              `gorm:"type:uuid"`
	ApprovedAt      *time.Time              `gorm:"index"`
	RejectedBy      *uuid.UUID              `gorm:"type:uuid"`
	RejectedAt      *time.Time
	RejectionReason string             `gorm:"type:varchar(500)"`
	Attachments     string             `gorm:"type:jsonb;not null;default:'[]'"`
	Lines           []ReceiptLineModel `gorm:"foreignKey:ReceiptID;references:ID"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the persistence model to a domain Receipt. Rows written
// before attachments were canonicalised may still carry a single string or a
// wrapped object; they are normalised here.
func (m *ReceiptModel) ToDomain() (*receiving.Receipt, error) {
	paths, err := decodeAttachments(m.Attachments)
	if err != nil {
		return nil, shared.ErrDataIntegrity.WithMessagef("receipt %s has unreadable attachments", m.ID)
	}

	r := &receiving.Receipt{
		BranchAggregateRoot: m.ToDomainBranchAggregateRoot(),
		Reference:           m.Reference,
		Status:              m.Status,
		CreatedBy:           m.CreatedBy,
		ApprovedBy:          m.ApprovedBy,
		ApprovedAt:          m.ApprovedAt,
		RejectedBy:          m.RejectedBy,
		RejectedAt:          m.RejectedAt,
		RejectionReason:     m.RejectionReason,
		Attachments:         paths,
		Lines:               make([]receiving.ReceiptLine, len(m.Lines)),
	}
	for i := range m.Lines {
		r.Lines[i] = m.Lines[i].ToDomain()
	}
	return r, nil
}

// FromDomain populates the persistence model from a domain Receipt.
func (m *ReceiptModel) FromDomain(r *receiving.Receipt) {
	m.FromDomainBranchAggregateRoot(r.BranchAggregateRoot)
	m.Reference = r.Reference
	m.Status = r.Status
	m.CreatedBy = r.CreatedBy
	m.ApprovedBy = r.ApprovedBy
	m.ApprovedAt = r.ApprovedAt
	m.RejectedBy = r.RejectedBy
	m.RejectedAt = r.RejectedAt
	m.RejectionReason = r.RejectionReason
	m.Attachments = encodeAttachments(r.Attachments)
	m.Lines = make([]ReceiptLineModel, len(r.Lines))
	for i := range r.Lines {
		m.Lines[i].FromDomain(&r.Lines[i])
	}
}

// DecisionColumns returns the columns a status transition writes
func (m *ReceiptModel) DecisionColumns() map[string]any {
	return map[string]any{
		"status":           m.Status,
		"approved_by":      m.ApprovedBy,
		"approved_at":      m.ApprovedAt,
		"rejected_by":      m.RejectedBy,
		"rejected_at":      m.RejectedAt,
		"rejection_reason": m.RejectionReason,
		"version":          m.Version,
		"updated_at":       m.UpdatedAt,
	}
}

func decodeAttachments(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && !json.Valid([]byte(trimmed)) {
		// bare path stored as plain text
		return receiving.NewAttachments(trimmed).Paths(), nil
	}
	return receiving.NormalizeAttachments(json.RawMessage(trimmed))
}

func encodeAttachments(paths []string) string {
	if len(paths) == 0 {
		return "[]"
	}
	b, err := json.Marshal(paths)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// ReceiptLineModel is the persistence model for a receipt line.
type ReceiptLineModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReceiptID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineNo    int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReceiptLineModel) TableName() string {
	return "receipt_lines"
}

// ToDomain converts the persistence model to a domain ReceiptLine
func (m *ReceiptLineModel) ToDomain() receiving.ReceiptLine {
	return receiving.ReceiptLine{
		ID:        m.ID,
		ReceiptID: m.ReceiptID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		LineNo:    m.LineNo,
	}
}

// FromDomain populates the persistence model from a domain ReceiptLine
func (m *ReceiptLineModel) FromDomain(l *receiving.ReceiptLine) {
	m.ID = l.ID
	m.ReceiptID = l.ReceiptID
	m.ProductID = l.ProductID
	m.Quantity = l.Quantity
	m.LineNo = l.LineNo
}

// ReceiptAuditEntryModel is the persistence model for an audit entry.
// Rows are only ever inserted.
type ReceiptAuditEntryModel struct {
	ID         uuid.UUID               `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	BranchID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	ReceiptID  uuid.UUID               `gorm:"type:uuid;not null;index"`
	Action     receiving.AuditAction   `gorm:"type:varchar(20);not null"`
	FromStatus receiving.ReceiptStatus `gorm:"type:varchar(20);not null"`
	ToStatus   receiving.ReceiptStatus `gorm:"type:varchar(20);not null"`
	ActorID    uuid.UUID               `gorm:"type:uuid;not null"`
	Note       string                  `gorm:"type:varchar(500)"`
	OccurredAt time.Time               `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ReceiptAuditEntryModel) TableName() string {
	return "receipt_audit_entries"
}

// ToDomain converts the persistence model to a domain AuditEntry
func (m *ReceiptAuditEntryModel) ToDomain() receiving.AuditEntry {
	return receiving.AuditEntry{
		ID:         m.ID,
		TenantID:   m.TenantID,
		BranchID:   m.BranchID,
		ReceiptID:  m.ReceiptID,
		Action:     m.Action,
		FromStatus: m.FromStatus,
		ToStatus:   m.ToStatus,
		ActorID:    m.ActorID,
		Note:       m.Note,
		OccurredAt: m.OccurredAt,
	}
}

// FromDomain populates the persistence model from a domain AuditEntry
func (m *ReceiptAuditEntryModel) FromDomain(e *receiving.AuditEntry) {
	m.ID = e.ID
	m.TenantID = e.TenantID
	m.BranchID = e.BranchID
	m.ReceiptID = e.ReceiptID
	m.Action = e.Action
	m.FromStatus = e.FromStatus
	m.ToStatus = e.ToStatus
	m.ActorID = e.ActorID
	m.Note = e.Note
	m.OccurredAt = e.OccurredAt
}
