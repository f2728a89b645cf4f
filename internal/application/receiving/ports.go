package receiving

import (
	"context"
	"time"

	"github.com/retailops/ledger/internal/domain/shared"
)

// Authorizer answers the two questions the ledger asks about a caller
type Authorizer interface {
	// Scope returns the tenant and optional branch the actor may see
	Scope(actor shared.Actor) (shared.Scope, error)

	// IsApprover reports whether the actor may approve or reject receipts
	IsApprover(actor shared.Actor) bool
}

// Signer turns a stored attachment path into a time-limited URL
type Signer interface {
	Sign(ctx context.Context, path string, ttl time.Duration) (string, error)
}
