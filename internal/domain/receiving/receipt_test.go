package receiving

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingReceipt(t *testing.T) *Receipt {
	t.Helper()
	r, err := NewReceipt(uuid.New(), uuid.New(), "TRUCK-42", uuid.New(), []LineInput{
		{ProductID: uuid.New(), Quantity: decimal.NewFromInt(20)},
		{ProductID: uuid.New(), Quantity: decimal.NewFromFloat(2.5)},
	}, NewAttachments("waybills/a.jpg"))
	require.NoError(t, err)
	return r
}

func TestReceiptStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, ReceiptStatusPending.CanTransitionTo(ReceiptStatusApproved))
	assert.True(t, ReceiptStatusPending.CanTransitionTo(ReceiptStatusRejected))
	assert.False(t, ReceiptStatusPending.CanTransitionTo(ReceiptStatusPending))

	for _, terminal := range []ReceiptStatus{ReceiptStatusApproved, ReceiptStatusRejected} {
		assert.True(t, terminal.IsTerminal())
		assert.False(t, terminal.CanTransitionTo(ReceiptStatusApproved))
		assert.False(t, terminal.CanTransitionTo(ReceiptStatusRejected))
	}
	assert.False(t, ReceiptStatus("SHIPPED").IsValid())
}

func TestNewReceipt(t *testing.T) {
	tenant, branch, user := uuid.New(), uuid.New(), uuid.New()
	product := uuid.New()

	t.Run("creates pending receipt with numbered lines", func(t *testing.T) {
		r, err := NewReceipt(tenant, branch, "  VAN-7 ", user, []LineInput{
			{ProductID: product, Quantity: decimal.NewFromInt(5)},
			{ProductID: product, Quantity: decimal.NewFromInt(3)},
		}, NewAttachments("a.jpg", "", "b.jpg"))
		require.NoError(t, err)

		assert.Equal(t, ReceiptStatusPending, r.Status)
		assert.Equal(t, "VAN-7", r.Reference)
		assert.Equal(t, 1, r.Version)
		assert.Len(t, r.Lines, 2)
		assert.Equal(t, 2, r.Lines[1].LineNo)
		assert.Equal(t, r.ID, r.Lines[0].ReceiptID)
		assert.Equal(t, []string{"a.jpg", "b.jpg"}, r.Attachments)
		assert.Equal(t, []uuid.UUID{product}, r.ProductIDs())
		assert.True(t, r.VisibleIn(shared.TenantScope(tenant)))
		assert.False(t, r.VisibleIn(shared.BranchScope(tenant, uuid.New())))
	})

	cases := []struct {
		name  string
		lines []LineInput
	}{
		{"no lines", nil},
		{"zero quantity", []LineInput{{ProductID: product, Quantity: decimal.Zero}}},
		{"negative quantity", []LineInput{{ProductID: product, Quantity: decimal.NewFromInt(-1)}}},
		{"missing product", []LineInput{{ProductID: uuid.Nil, Quantity: decimal.NewFromInt(1)}}},
	}
	for _, tc := range cases {
		t.Run("rejects "+tc.name, func(t *testing.T) {
			_, err := NewReceipt(tenant, branch, "", user, tc.lines, Attachments{})
			assert.True(t, errors.Is(err, shared.ErrValidation))
		})
	}

	t.Run("requires tenant and branch", func(t *testing.T) {
		_, err := NewReceipt(uuid.Nil, branch, "", user, []LineInput{{ProductID: product, Quantity: decimal.NewFromInt(1)}}, Attachments{})
		assert.True(t, errors.Is(err, shared.ErrValidation))
	})
}

func TestReceipt_Approve(t *testing.T) {
	r := newPendingReceipt(t)
	actor := uuid.New()
	at := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)

	entry, err := r.Approve(actor, at)
	require.NoError(t, err)

	assert.Equal(t, ReceiptStatusApproved, r.Status)
	assert.Equal(t, actor, *r.ApprovedBy)
	assert.Equal(t, at, *r.ApprovedAt)
	assert.Nil(t, r.RejectedBy)
	assert.Equal(t, 2, r.Version)

	assert.Equal(t, AuditActionApprove, entry.Action)
	assert.Equal(t, ReceiptStatusPending, entry.FromStatus)
	assert.Equal(t, ReceiptStatusApproved, entry.ToStatus)
	assert.Equal(t, actor, entry.ActorID)
	assert.Equal(t, r.ID, entry.ReceiptID)
	assert.Equal(t, at, entry.OccurredAt)

	t.Run("second decision conflicts", func(t *testing.T) {
		_, err := r.Approve(actor, at)
		assert.True(t, errors.Is(err, shared.ErrConflict))

		_, err = r.Reject(actor, "late", at)
		assert.True(t, errors.Is(err, shared.ErrConflict))
		assert.Equal(t, ReceiptStatusApproved, r.Status)
	})
}

func TestReceipt_Reject(t *testing.T) {
	r := newPendingReceipt(t)
	actor := uuid.New()
	at := time.Now().UTC()

	entry, err := r.Reject(actor, " damaged pallets ", at)
	require.NoError(t, err)

	assert.Equal(t, ReceiptStatusRejected, r.Status)
	assert.Equal(t, "damaged pallets", r.RejectionReason)
	assert.Equal(t, "damaged pallets", entry.Note)
	assert.Equal(t, ReceiptStatusRejected, entry.ToStatus)
	assert.Nil(t, r.ApprovedBy)

	t.Run("reason is optional", func(t *testing.T) {
		other := newPendingReceipt(t)
		_, err := other.Reject(actor, "", at)
		assert.NoError(t, err)
	})

	t.Run("actor is required", func(t *testing.T) {
		other := newPendingReceipt(t)
		_, err := other.Approve(uuid.Nil, at)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Equal(t, ReceiptStatusPending, other.Status)
	})
}
