// Package quota persists per-subject ledgers as storage hashes.
package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/quotaledger/internal/domain"
)

// Hash field names for a persisted ledger.
const (
	fieldLimit   = "limit_microcents"
	fieldUsed    = "used_microcents"
	fieldResetAt = "reset_at_unix_ms"
)

// store is the consumer interface for ledger persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
}

// Store reads and writes domain.Quota values keyed by subject.
type Store struct {
	store     store
	keyPrefix string
}

// New creates a quota store. keyPrefix namespaces all keys
// (e.g. "quotaledger:").
func New(s store, keyPrefix string) *Store {
	return &Store{store: s, keyPrefix: keyPrefix}
}

func (s *Store) key(subject string) string {
	return s.keyPrefix + "quota:" + subject
}

// Load fetches a subject's ledger. found is false when the subject has
// no persisted ledger yet.
func (s *Store) Load(ctx context.Context, subject string) (domain.Quota, bool, error) {
	m, err := s.store.HGetAll(ctx, s.key(subject))
	if err != nil {
		return domain.Quota{}, false, fmt.Errorf("quota load %s: %w", subject, err)
	}
	if len(m) == 0 {
		return domain.Quota{}, false, nil
	}

	q, err := quotaFromHash(m)
	if err != nil {
		return domain.Quota{}, false, fmt.Errorf("quota load %s: %w", subject, err)
	}
	return q, true, nil
}

// Save persists a subject's ledger, overwriting all fields.
func (s *Store) Save(ctx context.Context, subject string, q domain.Quota) error {
	if err := s.store.HSet(ctx, s.key(subject), quotaToHash(q)); err != nil {
		return fmt.Errorf("quota save %s: %w", subject, err)
	}
	return nil
}

// Delete removes a subject's ledger. The ledger subsystem never calls
// this itself; it exists for the owning record's lifecycle (e.g. user
// deletion).
func (s *Store) Delete(ctx context.Context, subject string) error {
	if err := s.store.Del(ctx, s.key(subject)); err != nil {
		return fmt.Errorf("quota delete %s: %w", subject, err)
	}
	return nil
}

func quotaToHash(q domain.Quota) map[string]string {
	return map[string]string{
		fieldLimit:   strconv.FormatInt(q.Limit().Microcents(), 10),
		fieldUsed:    strconv.FormatInt(q.Used().Microcents(), 10),
		fieldResetAt: strconv.FormatInt(q.ResetAt().UnixMilli(), 10),
	}
}

// quotaFromHash hydrates a domain Quota from an HGETALL result map.
func quotaFromHash(m map[string]string) (domain.Quota, error) {
	limit, err := strconv.ParseInt(m[fieldLimit], 10, 64)
	if err != nil {
		return domain.Quota{}, fmt.Errorf("parse %s: %w", fieldLimit, err)
	}
	used, err := strconv.ParseInt(m[fieldUsed], 10, 64)
	if err != nil {
		return domain.Quota{}, fmt.Errorf("parse %s: %w", fieldUsed, err)
	}
	resetAtMs, err := strconv.ParseInt(m[fieldResetAt], 10, 64)
	if err != nil {
		return domain.Quota{}, fmt.Errorf("parse %s: %w", fieldResetAt, err)
	}

	return domain.RestoreQuota(
		domain.MoneyFromMicrocents(limit),
		domain.MoneyFromMicrocents(used),
		time.UnixMilli(resetAtMs).UTC(),
	), nil
}
