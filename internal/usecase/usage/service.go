// Package usage builds quota consumption reports for display.
package usage

import (
	"context"

	domusage "github.com/kailas-cloud/quotaledger/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	ledger LedgerReader
}

// New creates a Service.
func New(ledger LedgerReader) *Service {
	return &Service{ledger: ledger}
}

// GetReport builds a usage report for the subject. The underlying
// snapshot applies the lazy reset, so a report never shows usage from
// an elapsed window.
func (s *Service) GetReport(ctx context.Context, subject string) (domusage.Report, error) {
	q, err := s.ledger.Snapshot(ctx, subject)
	if err != nil {
		return domusage.Report{}, err
	}

	return domusage.NewReport(
		subject,
		q.Limit(),
		q.Used(),
		q.Remaining(),
		q.Depleted(),
		q.ResetAt(),
	), nil
}
