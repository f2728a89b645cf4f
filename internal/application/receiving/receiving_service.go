package receiving

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/retailops/ledger/internal/domain/ledger"
	"github.com/retailops/ledger/internal/domain/receiving"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/retailops/ledger/internal/infrastructure/logger"
	"github.com/retailops/ledger/internal/infrastructure/telemetry"
)

const (
	decisionApprove = "approve"
	decisionReject  = "reject"
)

// ReceivingService runs receipt intake and the approval state machine
type ReceivingService struct {
	receiptRepo receiving.ReceiptRepository
	auditRepo   receiving.AuditRepository
	productRepo ledger.ProductRepository
	txScope     TransactionScope
	authz       Authorizer
	resolver    *AttachmentResolver

	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	metrics        *telemetry.LedgerMetrics
	now            func() time.Time
}

// NewReceivingService creates a new ReceivingService
func NewReceivingService(
	receiptRepo receiving.ReceiptRepository,
	auditRepo receiving.AuditRepository,
	productRepo ledger.ProductRepository,
	txScope TransactionScope,
	authz Authorizer,
	resolver *AttachmentResolver,
) *ReceivingService {
	return &ReceivingService{
		receiptRepo: receiptRepo,
		auditRepo:   auditRepo,
		productRepo: productRepo,
		txScope:     txScope,
		authz:       authz,
		resolver:    resolver,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetIdempotencyStore enables Idempotency-Key handling on intake
func (s *ReceivingService) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	s.idempotency = store
	s.idempotencyTTL = ttl
}

// SetMetrics attaches the ledger counters
func (s *ReceivingService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// SetClock overrides the time source used for decision timestamps
func (s *ReceivingService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateReceipt records a new pending receipt. Every referenced product must
// exist in the receipt's branch. With an idempotency key, a repeated request
// returns the receipt the first one created.
func (s *ReceivingService) CreateReceipt(ctx context.Context, actor shared.Actor, req CreateReceiptRequest) (*ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receiving", "create_receipt")
	defer span.End()

	scope, err := s.authz.Scope(actor)
	if err != nil {
		return nil, err
	}
	branchID, err := intakeBranch(scope, req.BranchID)
	if err != nil {
		return nil, err
	}

	attachments, err := receiving.ParseAttachments(req.Attachments)
	if err != nil {
		return nil, err
	}

	lines := make([]receiving.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = receiving.LineInput{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	receipt, err := receiving.NewReceipt(scope.TenantID, branchID, req.Reference, actor.UserID, lines, attachments)
	if err != nil {
		return nil, err
	}

	branchScope := receipt.OwnerScope()
	existing, err := s.productRepo.ExistingIDs(ctx, branchScope, receipt.ProductIDs())
	if err != nil {
		return nil, err
	}
	for _, id := range receipt.ProductIDs() {
		if !existing[id] {
			return nil, shared.ErrProductMissing.WithMessagef("product %s does not exist in this branch", id)
		}
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		key := idempotencyKey(scope.TenantID, req.IdempotencyKey)
		previous, reserved, err := s.idempotency.Reserve(ctx, key, receipt.ID.String(), s.idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if !reserved {
			return s.replay(ctx, scope, previous)
		}
		if err := s.receiptRepo.Create(ctx, receipt); err != nil {
			if relErr := s.idempotency.Release(ctx, key); relErr != nil {
				logger.L(ctx).Warn("Failed to release idempotency key", zap.Error(relErr))
			}
			return nil, err
		}
	} else if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("receipt_id", receipt.ID.String()))
	logger.L(ctx).Info("Receipt created",
		zap.String("receipt_id", receipt.ID.String()),
		zap.String("branch_id", branchID.String()),
		zap.Int("lines", len(receipt.Lines)),
		zap.String("attachment_encoding", attachments.Encoding.String()),
	)

	resp := ToReceiptResponse(receipt, s.resolver.Resolve(ctx, receipt.Attachments))
	return &resp, nil
}

func (s *ReceivingService) replay(ctx context.Context, scope shared.Scope, previous string) (*ReceiptResponse, error) {
	id, err := uuid.Parse(previous)
	if err != nil {
		return nil, fmt.Errorf("idempotency store holds invalid receipt id %q: %w", previous, err)
	}
	receipt, err := s.receiptRepo.FindByID(ctx, scope, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrConflict.WithMessage("a request with this idempotency key is still in progress")
	}
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Replayed receipt intake", zap.String("receipt_id", receipt.ID.String()))
	resp := ToReceiptResponse(receipt, s.resolver.Resolve(ctx, receipt.Attachments))
	return &resp, nil
}

// intakeBranch picks the branch a new receipt belongs to. A branch-bound
// actor may only create receipts in their own branch.
func intakeBranch(scope shared.Scope, requested *uuid.UUID) (uuid.UUID, error) {
	if scope.BranchID != nil {
		if requested != nil && *requested != *scope.BranchID {
			return uuid.Nil, shared.ErrPermissionDenied.WithMessage("cannot create receipts for another branch")
		}
		return *scope.BranchID, nil
	}
	if requested == nil || *requested == uuid.Nil {
		return uuid.Nil, shared.ErrValidation.WithMessage("branch_id is required for tenant-wide users")
	}
	return *requested, nil
}

func idempotencyKey(tenantID uuid.UUID, key string) string {
	return "receipt:" + tenantID.String() + ":" + key
}

// GetReceipt returns a receipt with its lines and freshly signed attachments
func (s *ReceivingService) GetReceipt(ctx context.Context, actor shared.Actor, id uuid.UUID) (*ReceiptResponse, error) {
	scope, err := s.authz.Scope(actor)
	if err != nil {
		return nil, err
	}
	receipt, err := s.receiptRepo.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	resp := ToReceiptResponse(receipt, s.resolver.Resolve(ctx, receipt.Attachments))
	return &resp, nil
}

// ListReceipts returns a page of receipts visible to the actor
func (s *ReceivingService) ListReceipts(ctx context.Context, actor shared.Actor, filter ReceiptListFilter) ([]ReceiptListItemResponse, int64, error) {
	scope, err := s.authz.Scope(actor)
	if err != nil {
		return nil, 0, err
	}

	f := receiving.ReceiptFilter{Filter: shared.DefaultFilter()}
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		f.Status = receiving.ReceiptStatus(filter.Status)
		if !f.Status.IsValid() {
			return nil, 0, shared.ErrValidation.WithMessagef("unknown status %q", filter.Status)
		}
	}

	receipts, total, err := s.receiptRepo.List(ctx, scope, f)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ReceiptListItemResponse, len(receipts))
	for i := range receipts {
		items[i] = ToReceiptListItemResponse(&receipts[i])
	}
	return items, total, nil
}

// Approve moves a pending receipt to APPROVED. The status swap, one stock
// increment per line and the audit entry commit in a single transaction:
// a lost race yields Conflict, a missing product yields ProductMissing, and
// either way nothing is written.
func (s *ReceivingService) Approve(ctx context.Context, actor shared.Actor, receiptID uuid.UUID) (*DecisionResponse, error) {
	return s.decide(ctx, actor, receiptID, decisionApprove, func(r *receiving.Receipt, at time.Time) (*receiving.AuditEntry, error) {
		return r.Approve(actor.UserID, at)
	})
}

// Reject moves a pending receipt to REJECTED with an optional reason. Stock
// is not touched.
func (s *ReceivingService) Reject(ctx context.Context, actor shared.Actor, receiptID uuid.UUID, reason string) (*DecisionResponse, error) {
	return s.decide(ctx, actor, receiptID, decisionReject, func(r *receiving.Receipt, at time.Time) (*receiving.AuditEntry, error) {
		return r.Reject(actor.UserID, reason, at)
	})
}

type transition func(r *receiving.Receipt, at time.Time) (*receiving.AuditEntry, error)

func (s *ReceivingService) decide(ctx context.Context, actor shared.Actor, receiptID uuid.UUID, decision string, apply transition) (resp *DecisionResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receiving", decision,
		attribute.String("receipt_id", receiptID.String()),
	)
	start := time.Now()
	defer func() { s.finishDecision(ctx, span, decision, receiptID, start, err) }()

	scope, err := s.authz.Scope(actor)
	if err != nil {
		return nil, err
	}
	if !s.authz.IsApprover(actor) {
		return nil, shared.ErrPermissionDenied.WithMessage("only approvers may decide on receipts")
	}

	var entry *receiving.AuditEntry
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := repos.ReceiptRepo().FindByID(ctx, scope, receiptID)
		if err != nil {
			return err
		}
		entry, err = apply(receipt, s.now())
		if err != nil {
			return err
		}
		if err := repos.ReceiptRepo().CompareAndSwapStatus(ctx, scope, receipt, receiving.ReceiptStatusPending); err != nil {
			return err
		}
		if decision == decisionApprove {
			for _, line := range receipt.Lines {
				if err := repos.ProductRepo().IncrementStock(ctx, receipt.OwnerScope(), line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
		}
		return repos.AuditRepo().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return &DecisionResponse{
		ReceiptID: receiptID,
		Status:    entry.ToStatus.String(),
		DecidedBy: entry.ActorID,
		DecidedAt: entry.OccurredAt,
		Note:      entry.Note,
	}, nil
}

func (s *ReceivingService) finishDecision(ctx context.Context, span trace.Span, decision string, receiptID uuid.UUID, start time.Time, err error) {
	defer span.End()

	outcome := outcomeOf(err)
	s.metrics.RecordDecision(ctx, decision, outcome, time.Since(start))
	span.SetAttributes(telemetry.AttrOutcome.String(outcome))

	log := logger.L(ctx).With(
		zap.String("receipt_id", receiptID.String()),
		zap.String("decision", decision),
		zap.String("outcome", outcome),
	)
	var de *shared.DomainError
	switch {
	case err == nil:
		telemetry.SetOK(span)
		log.Info("Receipt decided")
	case errors.As(err, &de):
		// Expected outcomes such as Conflict are not span errors
		telemetry.AddEvent(span, "rejected_decision", telemetry.AttrErrorCode.String(de.Code))
		log.Info("Receipt decision refused", zap.String("reason", de.Message))
	default:
		telemetry.RecordError(span, err)
		log.Error("Receipt decision failed", zap.Error(err))
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL_ERROR"
}

// ListAudit returns a receipt's transitions, most recent first
func (s *ReceivingService) ListAudit(ctx context.Context, actor shared.Actor, receiptID uuid.UUID) ([]AuditEntryResponse, error) {
	scope, err := s.authz.Scope(actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.receiptRepo.FindByID(ctx, scope, receiptID); err != nil {
		return nil, err
	}
	entries, err := s.auditRepo.ListByReceipt(ctx, scope, receiptID)
	if err != nil {
		return nil, err
	}
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = ToAuditEntryResponse(e)
	}
	return out, nil
}
