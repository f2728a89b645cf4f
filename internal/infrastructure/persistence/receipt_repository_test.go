package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/retailops/ledger/internal/domain/receiving"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/retailops/ledger/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingReceipt(t *testing.T, f *testutil.Fixtures, productIDs ...uuid.UUID) *receiving.Receipt {
	t.Helper()
	lines := make([]receiving.LineInput, len(productIDs))
	for i, id := range productIDs {
		lines[i] = receiving.LineInput{ProductID: id, Quantity: decimal.NewFromInt(int64(10 * (i + 1)))}
	}
	r, err := receiving.NewReceipt(f.TenantID, f.BranchID, "GRN-001", uuid.New(), lines,
		receiving.NewAttachments("grn/scan-1.jpg", "grn/scan-2.pdf"))
	require.NoError(t, err)
	return r
}

func TestGormReceiptRepository_CompareAndSwapStatus_Mock(t *testing.T) {
	tenantID, branchID := uuid.New(), uuid.New()
	receipt, err := receiving.NewReceipt(tenantID, branchID, "GRN-9", uuid.New(),
		[]receiving.LineInput{{ProductID: uuid.New(), Quantity: decimal.NewFromInt(1)}}, receiving.Attachments{})
	require.NoError(t, err)
	_, err = receipt.Approve(uuid.New(), time.Now().UTC())
	require.NoError(t, err)

	t.Run("one row affected wins the swap", func(t *testing.T) {
		mdb := testutil.NewMockDB(t)
		repo := NewGormReceiptRepository(mdb.DB)

		mdb.Mock.ExpectExec(`UPDATE "receipts" SET .*"status"=.* WHERE .*status = `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CompareAndSwapStatus(context.Background(), receipt.OwnerScope(), receipt, receiving.ReceiptStatusPending)
		assert.NoError(t, err)
		mdb.ExpectationsWereMet(t)
	})

	t.Run("zero rows affected is a conflict", func(t *testing.T) {
		mdb := testutil.NewMockDB(t)
		repo := NewGormReceiptRepository(mdb.DB)

		mdb.Mock.ExpectExec(`UPDATE "receipts" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.CompareAndSwapStatus(context.Background(), receipt.OwnerScope(), receipt, receiving.ReceiptStatusPending)
		assert.ErrorIs(t, err, shared.ErrConflict)
		mdb.ExpectationsWereMet(t)
	})

	t.Run("driver errors pass through", func(t *testing.T) {
		mdb := testutil.NewMockDB(t)
		repo := NewGormReceiptRepository(mdb.DB)

		mdb.Mock.ExpectExec(`UPDATE "receipts" SET`).
			WillReturnError(assert.AnError)

		err := repo.CompareAndSwapStatus(context.Background(), receipt.OwnerScope(), receipt, receiving.ReceiptStatusPending)
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, shared.IsCode(err, shared.CodeConflict))
	})
}

func TestGormReceiptRepository_SQLite(t *testing.T) {
	ctx := context.Background()

	t.Run("create then find round-trips lines and attachments", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		f := testutil.NewFixtures(db)
		p1, p2 := f.Product(t, "A", 0), f.Product(t, "B", 0)
		repo := NewGormReceiptRepository(db)

		receipt := newPendingReceipt(t, f, p1, p2)
		require.NoError(t, repo.Create(ctx, receipt))

		got, err := repo.FindByID(ctx, receipt.OwnerScope(), receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, receiving.ReceiptStatusPending, got.Status)
		assert.Equal(t, []string{"grn/scan-1.jpg", "grn/scan-2.pdf"}, got.Attachments)
		require.Len(t, got.Lines, 2)
		assert.Equal(t, p1, got.Lines[0].ProductID)
		assert.True(t, got.Lines[1].Quantity.Equal(decimal.NewFromInt(20)))
	})

	t.Run("other tenant sees not found", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		f := testutil.NewFixtures(db)
		repo := NewGormReceiptRepository(db)
		receipt := newPendingReceipt(t, f, f.Product(t, "A", 0))
		require.NoError(t, repo.Create(ctx, receipt))

		_, err := repo.FindByID(ctx, shared.TenantScope(uuid.New()), receipt.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByID(ctx, shared.BranchScope(f.TenantID, uuid.New()), receipt.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByID(ctx, shared.TenantScope(f.TenantID), receipt.ID)
		assert.NoError(t, err)
	})

	t.Run("second swap from pending conflicts", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		f := testutil.NewFixtures(db)
		repo := NewGormReceiptRepository(db)
		receipt := newPendingReceipt(t, f, f.Product(t, "A", 0))
		require.NoError(t, repo.Create(ctx, receipt))

		first, err := repo.FindByID(ctx, receipt.OwnerScope(), receipt.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, receipt.OwnerScope(), receipt.ID)
		require.NoError(t, err)

		_, err = first.Approve(uuid.New(), time.Now().UTC())
		require.NoError(t, err)
		_, err = second.Reject(uuid.New(), "damaged", time.Now().UTC())
		require.NoError(t, err)

		require.NoError(t, repo.CompareAndSwapStatus(ctx, first.OwnerScope(), first, receiving.ReceiptStatusPending))
		err = repo.CompareAndSwapStatus(ctx, second.OwnerScope(), second, receiving.ReceiptStatusPending)
		assert.ErrorIs(t, err, shared.ErrConflict)

		stored, err := repo.FindByID(ctx, receipt.OwnerScope(), receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, receiving.ReceiptStatusApproved, stored.Status)
		assert.NotNil(t, stored.ApprovedAt)
		assert.Empty(t, stored.RejectionReason)
	})

	t.Run("swap outside scope conflicts without writing", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		f := testutil.NewFixtures(db)
		repo := NewGormReceiptRepository(db)
		receipt := newPendingReceipt(t, f, f.Product(t, "A", 0))
		require.NoError(t, repo.Create(ctx, receipt))

		_, err := receipt.Approve(uuid.New(), time.Now().UTC())
		require.NoError(t, err)
		err = repo.CompareAndSwapStatus(ctx, shared.TenantScope(uuid.New()), receipt, receiving.ReceiptStatusPending)
		assert.ErrorIs(t, err, shared.ErrConflict)

		stored, err := repo.FindByID(ctx, shared.TenantScope(f.TenantID), receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, receiving.ReceiptStatusPending, stored.Status)
	})

	t.Run("list filters by status and paginates", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		f := testutil.NewFixtures(db)
		repo := NewGormReceiptRepository(db)
		productID := f.Product(t, "A", 0)

		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Create(ctx, newPendingReceipt(t, f, productID)))
		}
		approved := newPendingReceipt(t, f, productID)
		_, err := approved.Approve(uuid.New(), time.Now().UTC())
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, approved))

		filter := receiving.ReceiptFilter{Filter: shared.DefaultFilter(), Status: receiving.ReceiptStatusPending}
		filter.PageSize = 2
		items, total, err := repo.List(ctx, shared.TenantScope(f.TenantID), filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, items, 2)
		for _, r := range items {
			assert.Equal(t, receiving.ReceiptStatusPending, r.Status)
			assert.Len(t, r.Lines, 1)
		}

		_, total, err = repo.List(ctx, shared.TenantScope(uuid.New()), receiving.ReceiptFilter{Filter: shared.DefaultFilter()})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("legacy wrapped attachments are normalised on read", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		f := testutil.NewFixtures(db)
		repo := NewGormReceiptRepository(db)
		receipt := newPendingReceipt(t, f, f.Product(t, "A", 0))
		require.NoError(t, repo.Create(ctx, receipt))

		require.NoError(t, db.Table("receipts").Where("id = ?", receipt.ID).
			Update("attachments", `{"images":["a.jpg","","b.jpg"]}`).Error)

		got, err := repo.FindByID(ctx, receipt.OwnerScope(), receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.jpg", "b.jpg"}, got.Attachments)
	})
}

func TestGormAuditRepository_ListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	f := testutil.NewFixtures(db)
	repo := NewGormAuditRepository(db)
	receiptID := uuid.New()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, action := range []receiving.AuditAction{receiving.AuditActionReject, receiving.AuditActionApprove} {
		require.NoError(t, repo.Append(ctx, &receiving.AuditEntry{
			ID:         uuid.New(),
			TenantID:   f.TenantID,
			BranchID:   f.BranchID,
			ReceiptID:  receiptID,
			Action:     action,
			FromStatus: receiving.ReceiptStatusPending,
			ToStatus:   receiving.ReceiptStatusApproved,
			ActorID:    uuid.New(),
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	entries, err := repo.ListByReceipt(ctx, shared.TenantScope(f.TenantID), receiptID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, receiving.AuditActionApprove, entries[0].Action)
	assert.True(t, entries[0].OccurredAt.After(entries[1].OccurredAt))

	entries, err = repo.ListByReceipt(ctx, shared.TenantScope(uuid.New()), receiptID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
