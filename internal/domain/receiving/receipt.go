package receiving

import (
	"strings"
	"time"

	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptStatus represents the status of a receiving record
type ReceiptStatus string

const (
	ReceiptStatusPending  ReceiptStatus = "PENDING"
	ReceiptStatusApproved ReceiptStatus = "APPROVED"
	ReceiptStatusRejected ReceiptStatus = "REJECTED"
)

const (
	maxReferenceLength = 200
	maxReasonLength    = 500
)

// IsValid checks if the status is a valid ReceiptStatus
func (s ReceiptStatus) IsValid() bool {
	switch s {
	case ReceiptStatusPending, ReceiptStatusApproved, ReceiptStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of ReceiptStatus
func (s ReceiptStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible
func (s ReceiptStatus) IsTerminal() bool {
	return s == ReceiptStatusApproved || s == ReceiptStatusRejected
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReceiptStatus) CanTransitionTo(target ReceiptStatus) bool {
	if s != ReceiptStatusPending {
		return false
	}
	return target == ReceiptStatusApproved || target == ReceiptStatusRejected
}

// ReceiptLine is one product-quantity pair within a receipt
type ReceiptLine struct {
	ID        uuid.UUID
	ReceiptID uuid.UUID
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	LineNo    int
}

// LineInput is the intake shape of a receipt line
type LineInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// Receipt is a record of goods received, pending confirmation before it
// affects usable inventory.
type Receipt struct {
	shared.BranchAggregateRoot
	Reference       string
	Status          ReceiptStatus
	CreatedBy       uuid.UUID
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	RejectedBy      *uuid.UUID
	RejectedAt      *time.Time
	RejectionReason string
	Attachments     []string
	Lines           []ReceiptLine
}

// NewReceipt creates a pending receipt after validating its lines
func NewReceipt(tenantID, branchID uuid.UUID, reference string, createdBy uuid.UUID, lines []LineInput, attachments Attachments) (*Receipt, error) {
	if tenantID == uuid.Nil || branchID == uuid.Nil {
		return nil, shared.ErrValidation.WithMessage("tenant and branch are required")
	}
	if createdBy == uuid.Nil {
		return nil, shared.ErrValidation.WithMessage("creator is required")
	}
	reference = strings.TrimSpace(reference)
	if len(reference) > maxReferenceLength {
		return nil, shared.ErrValidation.WithMessagef("reference cannot exceed %d characters", maxReferenceLength)
	}
	if len(lines) == 0 {
		return nil, shared.ErrValidation.WithMessage("receipt must have at least one line")
	}

	r := &Receipt{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(tenantID, branchID),
		Reference:           reference,
		Status:              ReceiptStatusPending,
		CreatedBy:           createdBy,
		Attachments:         attachments.Paths(),
		Lines:               make([]ReceiptLine, 0, len(lines)),
	}

	for i, in := range lines {
		if in.ProductID == uuid.Nil {
			return nil, shared.ErrValidation.WithMessagef("line %d: product is required", i+1)
		}
		if !in.Quantity.IsPositive() {
			return nil, shared.ErrValidation.WithMessagef("line %d: quantity must be positive", i+1)
		}
		r.Lines = append(r.Lines, ReceiptLine{
			ID:        uuid.New(),
			ReceiptID: r.ID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			LineNo:    i + 1,
		})
	}

	return r, nil
}

// ProductIDs returns the distinct products referenced by the receipt's lines
func (r *Receipt) ProductIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(r.Lines))
	ids := make([]uuid.UUID, 0, len(r.Lines))
	for _, l := range r.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}

// OwnerScope returns the branch scope the receipt belongs to
func (r *Receipt) OwnerScope() shared.Scope {
	return shared.BranchScope(r.TenantID, r.BranchID)
}

// Approve moves a pending receipt to APPROVED and returns the audit entry
// recording the transition. The caller persists both atomically.
func (r *Receipt) Approve(actorID uuid.UUID, at time.Time) (*AuditEntry, error) {
	if err := r.checkTransition(actorID, ReceiptStatusApproved); err != nil {
		return nil, err
	}

	from := r.Status
	r.Status = ReceiptStatusApproved
	r.ApprovedBy = &actorID
	r.ApprovedAt = &at
	r.UpdatedAt = at
	r.IncrementVersion()

	return newAuditEntry(r, AuditActionApprove, from, actorID, "", at), nil
}

// Reject moves a pending receipt to REJECTED. The reason is optional.
func (r *Receipt) Reject(actorID uuid.UUID, reason string, at time.Time) (*AuditEntry, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLength {
		return nil, shared.ErrValidation.WithMessagef("reason cannot exceed %d characters", maxReasonLength)
	}
	if err := r.checkTransition(actorID, ReceiptStatusRejected); err != nil {
		return nil, err
	}

	from := r.Status
	r.Status = ReceiptStatusRejected
	r.RejectedBy = &actorID
	r.RejectedAt = &at
	r.RejectionReason = reason
	r.UpdatedAt = at
	r.IncrementVersion()

	return newAuditEntry(r, AuditActionReject, from, actorID, reason, at), nil
}

func (r *Receipt) checkTransition(actorID uuid.UUID, target ReceiptStatus) error {
	if actorID == uuid.Nil {
		return shared.ErrValidation.WithMessage("actor is required")
	}
	if !r.Status.CanTransitionTo(target) {
		return shared.ErrConflict.WithMessagef("receipt is already %s", r.Status)
	}
	return nil
}
