package receiving

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/retailops/ledger/internal/domain/shared"
	"github.com/retailops/ledger/internal/infrastructure/logger"
	"github.com/retailops/ledger/internal/infrastructure/telemetry"
)

// Defaults used when ResolverOptions leaves a field zero
const (
	DefaultAttachmentTTL     = 15 * time.Minute
	DefaultResolveTimeout    = 3 * time.Second
	DefaultResolveMaxWorkers = 8
)

// ResolverOptions tune attachment signing
type ResolverOptions struct {
	TTL         time.Duration // lifetime of each signed URL
	Timeout     time.Duration // budget of a single Sign call
	MaxParallel int           // concurrent Sign calls per Resolve
}

// AttachmentResolver signs attachment paths in parallel. Every path gets
// its own deadline, and one failing path never fails the others. Results
// are never cached, so a path that failed once is retried on the next call.
type AttachmentResolver struct {
	signer  Signer
	opts    ResolverOptions
	metrics *telemetry.LedgerMetrics
	now     func() time.Time
}

// NewAttachmentResolver creates a resolver over signer
func NewAttachmentResolver(signer Signer, opts ResolverOptions) *AttachmentResolver {
	if opts.TTL <= 0 {
		opts.TTL = DefaultAttachmentTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultResolveTimeout
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultResolveMaxWorkers
	}
	return &AttachmentResolver{signer: signer, opts: opts, now: time.Now}
}

// SetMetrics attaches failure counters
func (r *AttachmentResolver) SetMetrics(m *telemetry.LedgerMetrics) {
	r.metrics = m
}

// Resolve returns one result per path, in input order
func (r *AttachmentResolver) Resolve(ctx context.Context, paths []string) []ResolvedAttachment {
	results := make([]ResolvedAttachment, len(paths))
	if len(paths) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(r.opts.MaxParallel)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = r.resolveOne(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type signResult struct {
	url string
	err error
}

func (r *AttachmentResolver) resolveOne(ctx context.Context, path string) ResolvedAttachment {
	callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	// The signer may ignore its context; the buffered channel lets the
	// goroutine finish after we stop waiting.
	done := make(chan signResult, 1)
	go func() {
		url, err := r.signer.Sign(callCtx, path, r.opts.TTL)
		done <- signResult{url: url, err: err}
	}()

	var res signResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = signResult{err: callCtx.Err()}
	}

	if res.err == nil && res.url == "" {
		res.err = errors.New("signer returned an empty url")
	}
	if res.err != nil {
		r.metrics.RecordAttachmentFailure(ctx, shared.CodeAttachmentUnavailable)
		logger.L(ctx).Warn("Attachment could not be signed",
			zap.String("path", path),
			zap.String("code", shared.CodeAttachmentUnavailable),
			zap.Bool("timeout", errors.Is(res.err, context.DeadlineExceeded)),
			zap.Error(res.err),
		)
		return ResolvedAttachment{Path: path, Available: false, ErrorCode: shared.CodeAttachmentUnavailable}
	}

	expiresAt := r.now().Add(r.opts.TTL).UTC()
	return ResolvedAttachment{Path: path, URL: res.url, ExpiresAt: &expiresAt, Available: true}
}
