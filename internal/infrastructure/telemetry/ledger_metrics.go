package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics are the business counters of the receiving and balance
// services. A nil *LedgerMetrics records nothing, so services can run
// without telemetry in tests.
type LedgerMetrics struct {
	decisions          *Counter
	decisionDuration   *Histogram
	clampedBalances    *Counter
	attachmentFailures *Counter
	balanceDuration    *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	var (
		m   LedgerMetrics
		err error
	)
	if m.decisions, err = NewCounter(meter, "ledger_receipt_decisions_total",
		"Approve and reject attempts by outcome", "{decision}"); err != nil {
		return nil, err
	}
	if m.decisionDuration, err = NewHistogram(meter, "ledger_receipt_decision_duration_seconds",
		"Time spent in the approve or reject transaction", "s", DurationBuckets...); err != nil {
		return nil, err
	}
	if m.clampedBalances, err = NewCounter(meter, "ledger_balance_clamped_total",
		"Reconstructed balances that came out negative and were clamped to zero", "{row}"); err != nil {
		return nil, err
	}
	if m.attachmentFailures, err = NewCounter(meter, "ledger_attachment_sign_failures_total",
		"Attachments whose URL could not be signed", "{attachment}"); err != nil {
		return nil, err
	}
	if m.balanceDuration, err = NewHistogram(meter, "ledger_balance_compute_duration_seconds",
		"Time spent reconstructing balances for one request", "s", DurationBuckets...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordDecision counts one approve or reject attempt. outcome is "ok" or
// the error code that ended it.
func (m *LedgerMetrics) RecordDecision(ctx context.Context, decision, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisions.Inc(ctx, AttrDecision.String(decision), AttrOutcome.String(outcome))
	m.decisionDuration.RecordDuration(ctx, elapsed, AttrDecision.String(decision))
}

// RecordClamped counts rows whose raw balance was negative
func (m *LedgerMetrics) RecordClamped(ctx context.Context, tenantID string, rows int) {
	if m == nil || rows == 0 {
		return
	}
	m.clampedBalances.Add(ctx, int64(rows), AttrTenantID.String(tenantID))
}

// RecordAttachmentFailure counts one attachment that could not be signed
func (m *LedgerMetrics) RecordAttachmentFailure(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.attachmentFailures.Inc(ctx, AttrErrorCode.String(code))
}

// RecordBalanceDuration records how long one balance computation took
func (m *LedgerMetrics) RecordBalanceDuration(ctx context.Context, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.balanceDuration.RecordDuration(ctx, elapsed)
}
