// Package ledger implements the quota metering core: spend recording,
// depletion checks and the lazy reset protocol.
package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quotaledger/internal/domain"
)

// Service is the quota ledger. Each public operation runs the full
// load -> lazy reset -> mutate/compare -> save sequence inside a
// per-subject critical section, so concurrent spends for one subject
// never lose an increment and a reset racing a spend is never split.
type Service struct {
	store        Store
	defaultLimit domain.Money
	window       time.Duration
	locks        *keyedMutex
	clock        func() time.Time
	logger       *zap.Logger
}

var _ Ledger = (*Service)(nil)

// New creates a ledger service. defaultLimit and window apply to
// ledgers created lazily on first access.
func New(store Store, defaultLimit domain.Money, window time.Duration, logger *zap.Logger) *Service {
	return &Service{
		store:        store,
		defaultLimit: defaultLimit,
		window:       window,
		locks:        newKeyedMutex(),
		clock:        func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// WithClock overrides the wall-clock source (tests).
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Spend records a cost against the subject's ledger. Overage is
// recorded, not rejected: a cost already incurred must be billed even
// when it pushes the subject past the limit. Depletion is enforced by
// the next EnsureNotDepleted call.
func (s *Service) Spend(ctx context.Context, subject string, cost domain.Money) error {
	if cost.IsNegative() {
		return fmt.Errorf("%w: spend cost must be non-negative, got %s", domain.ErrInvalidAmount, cost)
	}

	unlock := s.locks.lock(subject)
	defer unlock()

	q, _, err := s.current(ctx, subject)
	if err != nil {
		return err
	}

	q = q.Spend(cost)
	if err := s.store.Save(ctx, subject, q); err != nil {
		return err
	}

	s.logger.Debug("quota spend recorded",
		zap.String("subject", subject),
		zap.Int64("cost_microcents", cost.Microcents()),
		zap.Int64("used_microcents", q.Used().Microcents()),
		zap.Int64("limit_microcents", q.Limit().Microcents()),
	)
	return nil
}

// EnsureNotDepleted guards a metered operation whose cost is not yet
// incurred. It returns a QuotaDepletedError when used >= limit for the
// current window; the lazy reset runs first, so an elapsed window
// always grants a fresh budget.
func (s *Service) EnsureNotDepleted(ctx context.Context, subject string) error {
	unlock := s.locks.lock(subject)
	defer unlock()

	q, dirty, err := s.current(ctx, subject)
	if err != nil {
		return err
	}
	if dirty {
		if err := s.store.Save(ctx, subject, q); err != nil {
			return err
		}
	}

	if q.Depleted() {
		return domain.NewQuotaDepleted(q.Used(), q.Limit(), q.ResetAt())
	}
	return nil
}

// Snapshot returns the subject's current ledger state, applying the
// lazy reset first. Read surface for usage reports.
func (s *Service) Snapshot(ctx context.Context, subject string) (domain.Quota, error) {
	unlock := s.locks.lock(subject)
	defer unlock()

	q, dirty, err := s.current(ctx, subject)
	if err != nil {
		return domain.Quota{}, err
	}
	if dirty {
		if err := s.store.Save(ctx, subject, q); err != nil {
			return domain.Quota{}, err
		}
	}
	return q, nil
}

// current loads the subject's ledger, creating it lazily and applying
// the lazy reset. dirty reports whether the returned quota differs from
// the persisted state and needs a save. Must be called with the
// subject's lock held.
func (s *Service) current(ctx context.Context, subject string) (q domain.Quota, dirty bool, err error) {
	q, found, err := s.store.Load(ctx, subject)
	if err != nil {
		return domain.Quota{}, false, err
	}

	now := s.clock()
	if !found {
		q = domain.NewQuota(s.defaultLimit, now, s.window)
		s.logger.Debug("quota created",
			zap.String("subject", subject),
			zap.Int64("limit_microcents", q.Limit().Microcents()),
			zap.Time("reset_at", q.ResetAt()),
		)
		return q, true, nil
	}

	if q.DueForReset(now) {
		q = q.Reset(now, s.window)
		s.logger.Debug("quota reset",
			zap.String("subject", subject),
			zap.Time("reset_at", q.ResetAt()),
		)
		return q, true, nil
	}

	return q, false, nil
}
