package domain

import "time"

// Quota is a per-subject spending ledger for one accounting window.
// It is an immutable value: Reset and Spend return the updated quota
// instead of mutating in place. Atomicity of read-modify-write cycles
// is the ledger service's job, not the value's.
type Quota struct {
	limit   Money
	used    Money
	resetAt time.Time
}

// NewQuota creates a fresh ledger: nothing spent, window open until
// now+window.
func NewQuota(limit Money, now time.Time, window time.Duration) Quota {
	return Quota{
		limit:   limit,
		used:    Money{},
		resetAt: now.Add(window),
	}
}

// RestoreQuota rebuilds a quota from persisted state.
func RestoreQuota(limit, used Money, resetAt time.Time) Quota {
	return Quota{limit: limit, used: used, resetAt: resetAt}
}

// DueForReset reports whether the current window has elapsed
// (resetAt <= now).
func (q Quota) DueForReset(now time.Time) bool {
	return !q.resetAt.After(now)
}

// Reset zeroes usage and opens a new window ending at now+window.
// The deadline is recomputed from now rather than extended from the old
// one, so applying a reset twice at the same instant is a no-op.
func (q Quota) Reset(now time.Time, window time.Duration) Quota {
	return Quota{
		limit:   q.limit,
		used:    Money{},
		resetAt: now.Add(window),
	}
}

// Spend records a cost against the ledger. Overage is recorded, not
// rejected: usage may exceed the limit and depletion is enforced by the
// next check.
func (q Quota) Spend(cost Money) Quota {
	return Quota{
		limit:   q.limit,
		used:    q.used.Add(cost),
		resetAt: q.resetAt,
	}
}

// Depleted reports whether usage has reached or passed the limit.
func (q Quota) Depleted() bool {
	return q.used.Cmp(q.limit) >= 0
}

// Limit returns the budget ceiling.
func (q Quota) Limit() Money { return q.limit }

// Used returns the usage accumulated since the last reset.
func (q Quota) Used() Money { return q.used }

// ResetAt returns the exclusive end of the current window.
func (q Quota) ResetAt() time.Time { return q.resetAt }

// Remaining returns limit minus used, clamped at zero.
func (q Quota) Remaining() Money {
	r := q.limit.Sub(q.used)
	if r.IsNegative() {
		return Money{}
	}
	return r
}
