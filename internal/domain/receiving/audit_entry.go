package receiving

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names the kind of transition recorded
type AuditAction string

const (
	AuditActionApprove AuditAction = "APPROVE"
	AuditActionReject  AuditAction = "REJECT"
)

// AuditEntry is an immutable record of a single receipt transition
type AuditEntry struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	BranchID   uuid.UUID
	ReceiptID  uuid.UUID
	Action     AuditAction
	FromStatus ReceiptStatus
	ToStatus   ReceiptStatus
	ActorID    uuid.UUID
	Note       string
	OccurredAt time.Time
}

func newAuditEntry(r *Receipt, action AuditAction, from ReceiptStatus, actorID uuid.UUID, note string, at time.Time) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New(),
		TenantID:   r.TenantID,
		BranchID:   r.BranchID,
		ReceiptID:  r.ID,
		Action:     action,
		FromStatus: from,
		ToStatus:   r.Status,
		ActorID:    actorID,
		Note:       note,
		OccurredAt: at,
	}
}
