package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quotaledger/internal/domain"
	"github.com/kailas-cloud/quotaledger/internal/metrics"
)

// Instrumented wraps a Ledger with Prometheus counters and operation
// logging. The inner service stays free of observability concerns.
type Instrumented struct {
	inner  Ledger
	logger *zap.Logger
}

var _ Ledger = (*Instrumented)(nil)

// NewInstrumented wraps a ledger with metrics and logging.
func NewInstrumented(inner Ledger, logger *zap.Logger) *Instrumented {
	return &Instrumented{inner: inner, logger: logger}
}

// Spend delegates and records the outcome.
func (i *Instrumented) Spend(ctx context.Context, subject string, cost domain.Money) error {
	start := time.Now()
	err := i.inner.Spend(ctx, subject, cost)

	switch {
	case err == nil:
		metrics.QuotaSpendsTotal.WithLabelValues("ok").Inc()
		metrics.QuotaSpentMicrocentsTotal.Add(float64(cost.Microcents()))
	case errors.Is(err, domain.ErrInvalidAmount):
		metrics.QuotaSpendsTotal.WithLabelValues("invalid").Inc()
	default:
		metrics.QuotaSpendsTotal.WithLabelValues("error").Inc()
		i.logger.Error("quota spend failed",
			zap.String("subject", subject),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
	}
	return err
}

// EnsureNotDepleted delegates and records the outcome.
func (i *Instrumented) EnsureNotDepleted(ctx context.Context, subject string) error {
	err := i.inner.EnsureNotDepleted(ctx, subject)

	switch {
	case err == nil:
		metrics.QuotaChecksTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, domain.ErrQuotaDepleted):
		metrics.QuotaChecksTotal.WithLabelValues("depleted").Inc()
		i.logger.Info("quota depleted", zap.String("subject", subject), zap.Error(err))
	default:
		metrics.QuotaChecksTotal.WithLabelValues("error").Inc()
		i.logger.Error("quota check failed", zap.String("subject", subject), zap.Error(err))
	}
	return err
}

// Snapshot delegates without extra bookkeeping.
func (i *Instrumented) Snapshot(ctx context.Context, subject string) (domain.Quota, error) {
	return i.inner.Snapshot(ctx, subject)
}
