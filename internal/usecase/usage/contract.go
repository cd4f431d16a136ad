package usage

import (
	"context"

	"github.com/kailas-cloud/quotaledger/internal/domain"
)

// LedgerReader provides read access to a subject's current quota state.
type LedgerReader interface {
	Snapshot(ctx context.Context, subject string) (domain.Quota, error)
}
