package ledger

import (
	"context"

	"github.com/kailas-cloud/quotaledger/internal/domain"
)

// Store is the persistence interface for per-subject ledgers.
type Store interface {
	Load(ctx context.Context, subject string) (q domain.Quota, found bool, err error)
	Save(ctx context.Context, subject string, q domain.Quota) error
}

// Ledger is the metering contract exposed to callers. Implemented by
// Service and by the instrumented decorator.
type Ledger interface {
	Spend(ctx context.Context, subject string, cost domain.Money) error
	EnsureNotDepleted(ctx context.Context, subject string) error
	Snapshot(ctx context.Context, subject string) (domain.Quota, error)
}
