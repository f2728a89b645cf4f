package receiving

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/domain/receiving"
	"github.com/shopspring/decimal"
)

// CreateReceiptRequest is the intake payload of a new receipt. BranchID is
// only needed when the caller works across the whole tenant.
type CreateReceiptRequest struct {
	BranchID    *uuid.UUID           `json:"branch_id"`
	Reference   string               `json:"reference" binding:"max=200"`
	Lines       []ReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`
	Attachments json.RawMessage      `json:"attachments"`

	// IdempotencyKey comes from the Idempotency-Key header
	IdempotencyKey string `json:"-"`
}

// ReceiptLineRequest is one line of a CreateReceiptRequest
type ReceiptLineRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// RejectReceiptRequest carries the optional rejection reason
type RejectReceiptRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ReceiptListFilter narrows a receipt listing
type ReceiptListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ReceiptLineResponse is one line of a receipt
type ReceiptLineResponse struct {
	ID        uuid.UUID       `json:"id"`
	LineNo    int             `json:"line_no"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// ResolvedAttachment is an attachment path with its signed URL. When signing
// failed Available is false and ErrorCode says why; the rest of the receipt
// is still returned.
type ResolvedAttachment struct {
	Path      string     `json:"path"`
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Available bool       `json:"available"`
	ErrorCode string     `json:"error_code,omitempty"`
}

// ReceiptResponse is a receipt with its lines and resolved attachments
type ReceiptResponse struct {
	ID              uuid.UUID             `json:"id"`
	TenantID        uuid.UUID             `json:"tenant_id"`
	BranchID        uuid.UUID             `json:"branch_id"`
	Reference       string                `json:"reference"`
	Status          string                `json:"status"`
	CreatedBy       uuid.UUID             `json:"created_by"`
	ApprovedBy      *uuid.UUID            `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time            `json:"approved_at,omitempty"`
	RejectedBy      *uuid.UUID            `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time            `json:"rejected_at,omitempty"`
	RejectionReason string                `json:"rejection_reason,omitempty"`
	Lines           []ReceiptLineResponse `json:"lines"`
	Attachments     []ResolvedAttachment  `json:"attachments"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Version         int                   `json:"version"`
}

// ReceiptListItemResponse is the listing shape of a receipt. Attachments are
// counted, not signed.
type ReceiptListItemResponse struct {
	ID              uuid.UUID  `json:"id"`
	BranchID        uuid.UUID  `json:"branch_id"`
	Reference       string     `json:"reference"`
	Status          string     `json:"status"`
	LineCount       int        `json:"line_count"`
	AttachmentCount int        `json:"attachment_count"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
}

// DecisionResponse reports the outcome of an approve or reject
type DecisionResponse struct {
	ReceiptID uuid.UUID `json:"receipt_id"`
	Status    string    `json:"status"`
	DecidedBy uuid.UUID `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
	Note      string    `json:"note,omitempty"`
}

// AuditEntryResponse is one recorded transition
type AuditEntryResponse struct {
	ID         uuid.UUID `json:"id"`
	ReceiptID  uuid.UUID `json:"receipt_id"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    uuid.UUID `json:"actor_id"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ToReceiptResponse converts a receipt; attachments are filled in by the
// caller once resolved
func ToReceiptResponse(r *receiving.Receipt, attachments []ResolvedAttachment) ReceiptResponse {
	lines := make([]ReceiptLineResponse, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ReceiptLineResponse{ID: l.ID, LineNo: l.LineNo, ProductID: l.ProductID, Quantity: l.Quantity}
	}
	if attachments == nil {
		attachments = []ResolvedAttachment{}
	}
	return ReceiptResponse{
		ID:              r.ID,
		TenantID:        r.TenantID,
		BranchID:        r.BranchID,
		Reference:       r.Reference,
		Status:          r.Status.String(),
		CreatedBy:       r.CreatedBy,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		RejectedBy:      r.RejectedBy,
		RejectedAt:      r.RejectedAt,
		RejectionReason: r.RejectionReason,
		Lines:           lines,
		Attachments:     attachments,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Version:         r.Version,
	}
}

// ToReceiptListItemResponse converts a receipt for listings
func ToReceiptListItemResponse(r *receiving.Receipt) ReceiptListItemResponse {
	return ReceiptListItemResponse{
		ID:              r.ID,
		BranchID:        r.BranchID,
		Reference:       r.Reference,
		Status:          r.Status.String(),
		LineCount:       len(r.Lines),
		AttachmentCount: len(r.Attachments),
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		ApprovedAt:      r.ApprovedAt,
		RejectedAt:      r.RejectedAt,
	}
}

// ToAuditEntryResponse converts an audit entry
func ToAuditEntryResponse(e receiving.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:         e.ID,
		ReceiptID:  e.ReceiptID,
		Action:     string(e.Action),
		FromStatus: e.FromStatus.String(),
		ToStatus:   e.ToStatus.String(),
		ActorID:    e.ActorID,
		Note:       e.Note,
		OccurredAt: e.OccurredAt,
	}
}
