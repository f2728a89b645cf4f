package ledger

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/retailops/ledger/internal/domain/ledger"
	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/retailops/ledger/internal/infrastructure/logger"
	"github.com/retailops/ledger/internal/infrastructure/telemetry"
)

// ScopeResolver turns an actor into the tenant/branch boundary of its reads
type ScopeResolver interface {
	Scope(actor shared.Actor) (shared.Scope, error)
}

// BalanceService reconstructs stock balances as of a past date from the
// current stock and the movement logs
type BalanceService struct {
	products  ledger.ProductRepository
	movements ledger.MovementLog
	authz     ScopeResolver
	location  *time.Location
	metrics   *telemetry.LedgerMetrics
	now       func() time.Time
}

// NewBalanceService creates a new BalanceService. Calendar days are cut in
// loc; nil means UTC.
func NewBalanceService(products ledger.ProductRepository, movements ledger.MovementLog, authz ScopeResolver, loc *time.Location) *BalanceService {
	if loc == nil {
		loc = time.UTC
	}
	return &BalanceService{
		products:  products,
		movements: movements,
		authz:     authz,
		location:  loc,
		now:       time.Now,
	}
}

// SetMetrics attaches the ledger counters
func (s *BalanceService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// Location returns the zone calendar days are cut in
func (s *BalanceService) Location() *time.Location {
	return s.location
}

// BalancesAsOf returns the balance of every product in the actor's scope at
// the end of asOf's calendar day. The four reads are independent aggregate
// queries run concurrently; they are not a single snapshot, so a movement
// committed while they run may be seen by one read and not another.
func (s *BalanceService) BalancesAsOf(ctx context.Context, actor shared.Actor, asOf time.Time) (*BalanceReport, error) {
	if asOf.IsZero() {
		return nil, shared.ErrValidation.WithMessage("as_of date is required")
	}
	scope, err := s.authz.Scope(actor)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "balances_as_of",
		attribute.String("as_of", asOf.In(s.location).Format(time.DateOnly)),
	)
	defer span.End()
	start := time.Now()

	cutoff := ledger.EndOfDay(asOf, s.location)

	var (
		stock                    []ledger.ProductStock
		sales, receipts, returns []ledger.MovementTotal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stock, err = s.products.ListStock(gctx, scope)
		return err
	})
	g.Go(func() (err error) {
		sales, err = s.movements.SalesSince(gctx, scope, cutoff)
		return err
	})
	g.Go(func() (err error) {
		receipts, err = s.movements.ReceiptsSince(gctx, scope, cutoff)
		return err
	})
	g.Go(func() (err error) {
		returns, err = s.movements.ApprovedReturnsSince(gctx, scope, cutoff)
		return err
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	rows := ledger.Reconstruct(stock, ledger.Movements{
		Sales:    ledger.Totals(sales),
		Receipts: ledger.Totals(receipts),
		Returns:  ledger.Totals(returns),
	})

	report := newBalanceReport(asOf, cutoff, s.location, rows, s.now())
	if report.ClampedCount > 0 {
		s.reportClamped(ctx, scope, rows)
	}

	s.metrics.RecordBalanceDuration(ctx, time.Since(start))
	span.SetAttributes(
		attribute.Int("product_count", report.ProductCount),
		attribute.Int("clamped_count", report.ClampedCount),
	)
	telemetry.SetOK(span)
	return report, nil
}

// reportClamped logs every negative reconstruction. A negative balance means
// the movement logs disagree with current stock.
func (s *BalanceService) reportClamped(ctx context.Context, scope shared.Scope, rows []ledger.BalanceRow) {
	log := logger.L(ctx)
	clamped := 0
	for _, r := range rows {
		if !r.Clamped {
			continue
		}
		clamped++
		log.Warn("Reconstructed balance is negative, clamped to zero",
			zap.String("code", shared.CodeDataIntegrity),
			zap.String("product_id", r.ProductID.String()),
			zap.String("raw_balance", r.RawBalance.String()),
			zap.String("current_stock", r.CurrentStock.String()),
			zap.String("sales_after", r.SalesAfter.String()),
			zap.String("receipts_after", r.ReceiptsAfter.String()),
			zap.String("returns_after", r.ReturnsAfter.String()),
		)
	}
	s.metrics.RecordClamped(ctx, scope.TenantID.String(), clamped)
}
