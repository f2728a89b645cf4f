package receiving_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	appreceiving "github.com/retailops/ledger/internal/application/receiving"
	"github.com/retailops/ledger/internal/domain/receiving"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/retailops/ledger/internal/infrastructure/auth"
	"github.com/retailops/ledger/internal/infrastructure/cache"
	"github.com/retailops/ledger/internal/infrastructure/persistence"
	"github.com/retailops/ledger/internal/testutil"
)

var decidedAt = time.Date(2026, time.March, 6, 10, 30, 0, 0, time.UTC)

type serviceFixture struct {
	db  *gorm.DB
	f   *testutil.Fixtures
	svc *appreceiving.ReceivingService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	signer := funcSigner(func(_ context.Context, path string, _ time.Duration) (string, error) {
		return "https://cdn.example.com/" + path + "?sig=test", nil
	})
	svc := appreceiving.NewReceivingService(
		persistence.NewGormReceiptRepository(db),
		persistence.NewGormAuditRepository(db),
		persistence.NewGormProductRepository(db),
		persistence.NewGormTransactionScope(db),
		auth.NewClaimsAuthorizer(),
		appreceiving.NewAttachmentResolver(signer, appreceiving.ResolverOptions{}),
	)
	svc.SetClock(func() time.Time { return decidedAt })

	return &serviceFixture{db: db, f: testutil.NewFixtures(db), svc: svc}
}

func (sf *serviceFixture) clerk() shared.Actor {
	branch := sf.f.BranchID
	return shared.Actor{
		UserID:      uuid.New(),
		TenantID:    sf.f.TenantID,
		BranchID:    &branch,
		Permissions: []string{auth.PermissionReceiptCreate},
	}
}

func (sf *serviceFixture) approver() shared.Actor {
	a := sf.clerk()
	a.Permissions = append(a.Permissions, auth.PermissionReceiptApprove)
	return a
}

func (sf *serviceFixture) createReceipt(t *testing.T, lines map[uuid.UUID]int64, attachments string) *appreceiving.ReceiptResponse {
	t.Helper()
	req := appreceiving.CreateReceiptRequest{Reference: "GRN-100"}
	for id, qty := range lines {
		req.Lines = append(req.Lines, appreceiving.ReceiptLineRequest{ProductID: id, Quantity: decimal.NewFromInt(qty)})
	}
	if attachments != "" {
		req.Attachments = json.RawMessage(attachments)
	}
	resp, err := sf.svc.CreateReceipt(context.Background(), sf.clerk(), req)
	require.NoError(t, err)
	return resp
}

func TestReceivingService_CreateReceipt(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending receipt with signed attachments", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 5)

		resp := sf.createReceipt(t, map[uuid.UUID]int64{p: 12}, `{"files":["grn/1.jpg", null, "grn/2.jpg"]}`)

		assert.Equal(t, "PENDING", resp.Status)
		assert.Equal(t, sf.f.BranchID, resp.BranchID)
		require.Len(t, resp.Lines, 1)
		assert.True(t, resp.Lines[0].Quantity.Equal(decimal.NewFromInt(12)))
		require.Len(t, resp.Attachments, 2)
		assert.Equal(t, "grn/1.jpg", resp.Attachments[0].Path)
		assert.True(t, resp.Attachments[0].Available)
		assert.Contains(t, resp.Attachments[1].URL, "grn/2.jpg")

		assert.True(t, sf.f.Stock(t, p).Equal(decimal.NewFromInt(5)), "intake must not touch stock")
	})

	t.Run("unknown product is rejected", func(t *testing.T) {
		sf := newServiceFixture(t)
		_, err := sf.svc.CreateReceipt(ctx, sf.clerk(), appreceiving.CreateReceiptRequest{
			Lines: []appreceiving.ReceiptLineRequest{{ProductID: uuid.New(), Quantity: decimal.NewFromInt(1)}},
		})
		assert.ErrorIs(t, err, shared.ErrProductMissing)
	})

	t.Run("product of another branch is rejected", func(t *testing.T) {
		sf := newServiceFixture(t)
		other := sf.f.InBranch(uuid.New()).Product(t, "SKU-X", 1)
		_, err := sf.svc.CreateReceipt(ctx, sf.clerk(), appreceiving.CreateReceiptRequest{
			Lines: []appreceiving.ReceiptLineRequest{{ProductID: other, Quantity: decimal.NewFromInt(1)}},
		})
		assert.ErrorIs(t, err, shared.ErrProductMissing)
	})

	t.Run("invalid attachment payload is a validation error", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 0)
		_, err := sf.svc.CreateReceipt(ctx, sf.clerk(), appreceiving.CreateReceiptRequest{
			Lines:       []appreceiving.ReceiptLineRequest{{ProductID: p, Quantity: decimal.NewFromInt(1)}},
			Attachments: json.RawMessage(`42`),
		})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("branch actor cannot target another branch", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 0)
		otherBranch := uuid.New()
		_, err := sf.svc.CreateReceipt(ctx, sf.clerk(), appreceiving.CreateReceiptRequest{
			BranchID: &otherBranch,
			Lines:    []appreceiving.ReceiptLineRequest{{ProductID: p, Quantity: decimal.NewFromInt(1)}},
		})
		assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	})

	t.Run("tenant-wide actor must name a branch", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 0)
		actor := sf.clerk()
		actor.BranchID = nil

		_, err := sf.svc.CreateReceipt(ctx, actor, appreceiving.CreateReceiptRequest{
			Lines: []appreceiving.ReceiptLineRequest{{ProductID: p, Quantity: decimal.NewFromInt(1)}},
		})
		assert.ErrorIs(t, err, shared.ErrValidation)

		branch := sf.f.BranchID
		resp, err := sf.svc.CreateReceipt(ctx, actor, appreceiving.CreateReceiptRequest{
			BranchID: &branch,
			Lines:    []appreceiving.ReceiptLineRequest{{ProductID: p, Quantity: decimal.NewFromInt(1)}},
		})
		require.NoError(t, err)
		assert.Equal(t, branch, resp.BranchID)
	})

	t.Run("idempotency key replays the first receipt", func(t *testing.T) {
		sf := newServiceFixture(t)
		store := cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = store.Close() })
		sf.svc.SetIdempotencyStore(store, time.Hour)

		p := sf.f.Product(t, "SKU-1", 0)
		req := appreceiving.CreateReceiptRequest{
			Lines:          []appreceiving.ReceiptLineRequest{{ProductID: p, Quantity: decimal.NewFromInt(3)}},
			IdempotencyKey: "client-key-1",
		}

		first, err := sf.svc.CreateReceipt(ctx, sf.clerk(), req)
		require.NoError(t, err)
		second, err := sf.svc.CreateReceipt(ctx, sf.clerk(), req)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		items, total, err := sf.svc.ListReceipts(ctx, sf.clerk(), appreceiving.ReceiptListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, items, 1)
	})

	t.Run("failed intake releases its idempotency key", func(t *testing.T) {
		sf := newServiceFixture(t)
		store := cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = store.Close() })
		sf.svc.SetIdempotencyStore(store, time.Hour)

		p := sf.f.Product(t, "SKU-1", 0)
		req := appreceiving.CreateReceiptRequest{
			Lines:          []appreceiving.ReceiptLineRequest{{ProductID: p, Quantity: decimal.NewFromInt(3)}},
			IdempotencyKey: "client-key-2",
		}

		require.NoError(t, sf.db.Exec("DROP TABLE receipt_lines").Error)
		_, err := sf.svc.CreateReceipt(ctx, sf.clerk(), req)
		require.Error(t, err)
		assert.Equal(t, 0, store.Size())
	})
}

func TestReceivingService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("approve adds stock and writes one audit entry", func(t *testing.T) {
		sf := newServiceFixture(t)
		p1 := sf.f.Product(t, "SKU-1", 100)
		p2 := sf.f.Product(t, "SKU-2", 0)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p1: 20, p2: 5}, "")

		approver := sf.approver()
		got, err := sf.svc.Approve(ctx, approver, receipt.ID)
		require.NoError(t, err)

		assert.Equal(t, "APPROVED", got.Status)
		assert.Equal(t, approver.UserID, got.DecidedBy)
		assert.Equal(t, decidedAt, got.DecidedAt)
		assert.True(t, sf.f.Stock(t, p1).Equal(decimal.NewFromInt(120)))
		assert.True(t, sf.f.Stock(t, p2).Equal(decimal.NewFromInt(5)))
		assert.Equal(t, int64(1), sf.f.AuditCount(t, receipt.ID))

		stored, err := sf.svc.GetReceipt(ctx, approver, receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", stored.Status)
		require.NotNil(t, stored.ApprovedBy)
		assert.Equal(t, approver.UserID, *stored.ApprovedBy)
	})

	t.Run("second approve is a conflict and changes nothing", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		_, err := sf.svc.Approve(ctx, sf.approver(), receipt.ID)
		require.NoError(t, err)
		_, err = sf.svc.Approve(ctx, sf.approver(), receipt.ID)
		assert.ErrorIs(t, err, shared.ErrConflict)

		assert.True(t, sf.f.Stock(t, p).Equal(decimal.NewFromInt(120)))
		assert.Equal(t, int64(1), sf.f.AuditCount(t, receipt.ID))
	})

	t.Run("concurrent approves produce one success and one conflict", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = sf.svc.Approve(ctx, sf.approver(), receipt.ID)
			}()
		}
		wg.Wait()

		var ok, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case shared.IsCode(err, shared.CodeConflict):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, conflicts)
		assert.True(t, sf.f.Stock(t, p).Equal(decimal.NewFromInt(120)))
		assert.Equal(t, int64(1), sf.f.AuditCount(t, receipt.ID))
	})

	t.Run("missing product rolls the whole approval back", func(t *testing.T) {
		sf := newServiceFixture(t)
		p1 := sf.f.Product(t, "SKU-1", 100)
		p2 := sf.f.Product(t, "SKU-2", 50)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p1: 20, p2: 5}, "")
		sf.f.DeleteProduct(t, p2)

		_, err := sf.svc.Approve(ctx, sf.approver(), receipt.ID)
		assert.ErrorIs(t, err, shared.ErrProductMissing)

		assert.True(t, sf.f.Stock(t, p1).Equal(decimal.NewFromInt(100)))
		assert.Equal(t, int64(0), sf.f.AuditCount(t, receipt.ID))
		stored, err := sf.svc.GetReceipt(ctx, sf.approver(), receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", stored.Status)
	})

	t.Run("actor without approve permission is denied", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		_, err := sf.svc.Approve(ctx, sf.clerk(), receipt.ID)
		assert.ErrorIs(t, err, shared.ErrPermissionDenied)
		assert.True(t, sf.f.Stock(t, p).Equal(decimal.NewFromInt(100)))
	})

	t.Run("another tenant cannot see the receipt", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		intruder := sf.approver()
		intruder.TenantID = uuid.New()
		_, err := sf.svc.Approve(ctx, intruder, receipt.ID)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound) || shared.IsCode(err, shared.CodePermissionDenied))
		assert.True(t, sf.f.Stock(t, p).Equal(decimal.NewFromInt(100)))
		assert.Equal(t, int64(0), sf.f.AuditCount(t, receipt.ID))
	})

	t.Run("another branch of the same tenant cannot see the receipt", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		other := sf.approver()
		branch := uuid.New()
		other.BranchID = &branch
		_, err := sf.svc.Approve(ctx, other, receipt.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("tenant-wide approver may approve any branch", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		admin := sf.approver()
		admin.BranchID = nil
		_, err := sf.svc.Approve(ctx, admin, receipt.ID)
		require.NoError(t, err)
		assert.True(t, sf.f.Stock(t, p).Equal(decimal.NewFromInt(120)))
	})

	t.Run("unknown receipt is not found", func(t *testing.T) {
		sf := newServiceFixture(t)
		_, err := sf.svc.Approve(ctx, sf.approver(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestReceivingService_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("reject records the reason and leaves stock alone", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		got, err := sf.svc.Reject(ctx, sf.approver(), receipt.ID, "  damaged pallet ")
		require.NoError(t, err)
		assert.Equal(t, "REJECTED", got.Status)
		assert.Equal(t, "damaged pallet", got.Note)

		assert.True(t, sf.f.Stock(t, p).Equal(decimal.NewFromInt(100)))
		assert.Equal(t, int64(1), sf.f.AuditCount(t, receipt.ID))

		stored, err := sf.svc.GetReceipt(ctx, sf.approver(), receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, "damaged pallet", stored.RejectionReason)
	})

	t.Run("approve after reject is a conflict", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		_, err := sf.svc.Reject(ctx, sf.approver(), receipt.ID, "")
		require.NoError(t, err)
		_, err = sf.svc.Approve(ctx, sf.approver(), receipt.ID)
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.True(t, sf.f.Stock(t, p).Equal(decimal.NewFromInt(100)))
	})

	t.Run("clerk cannot reject", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		_, err := sf.svc.Reject(ctx, sf.clerk(), receipt.ID, "no")
		assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	})
}

func TestReceivingService_ListAudit(t *testing.T) {
	ctx := context.Background()

	t.Run("lists the decision of a receipt", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")
		approver := sf.approver()
		_, err := sf.svc.Approve(ctx, approver, receipt.ID)
		require.NoError(t, err)

		entries, err := sf.svc.ListAudit(ctx, sf.clerk(), receipt.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, string(receiving.AuditActionApprove), entries[0].Action)
		assert.Equal(t, "PENDING", entries[0].FromStatus)
		assert.Equal(t, "APPROVED", entries[0].ToStatus)
		assert.Equal(t, approver.UserID, entries[0].ActorID)
	})

	t.Run("pending receipt has an empty history", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		entries, err := sf.svc.ListAudit(ctx, sf.clerk(), receipt.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("out of scope receipt is not found", func(t *testing.T) {
		sf := newServiceFixture(t)
		p := sf.f.Product(t, "SKU-1", 100)
		receipt := sf.createReceipt(t, map[uuid.UUID]int64{p: 20}, "")

		stranger := sf.clerk()
		stranger.TenantID = uuid.New()
		_, err := sf.svc.ListAudit(ctx, stranger, receipt.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestReceivingService_ListReceipts(t *testing.T) {
	ctx := context.Background()
	sf := newServiceFixture(t)
	p := sf.f.Product(t, "SKU-1", 100)

	first := sf.createReceipt(t, map[uuid.UUID]int64{p: 1}, "")
	sf.createReceipt(t, map[uuid.UUID]int64{p: 2}, `"grn/a.jpg"`)
	_, err := sf.svc.Approve(ctx, sf.approver(), first.ID)
	require.NoError(t, err)

	all, total, err := sf.svc.ListReceipts(ctx, sf.clerk(), appreceiving.ReceiptListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	approved, total, err := sf.svc.ListReceipts(ctx, sf.clerk(), appreceiving.ReceiptListFilter{Status: "APPROVED"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, approved, 1)
	assert.Equal(t, first.ID, approved[0].ID)

	page, total, err := sf.svc.ListReceipts(ctx, sf.clerk(), appreceiving.ReceiptListFilter{Page: 2, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, page, 1)

	_, _, err = sf.svc.ListReceipts(ctx, sf.clerk(), appreceiving.ReceiptListFilter{Status: "LOST"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	stranger := sf.clerk()
	stranger.TenantID = uuid.New()
	none, total, err := sf.svc.ListReceipts(ctx, stranger, appreceiving.ReceiptListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}
