// Package quotaledger meters per-subject spending against a periodic
// budget. Costs are recorded as they happen; depletion is enforced on
// the next check, and usage zeroes lazily once the accounting window
// elapses.
package quotaledger

import (
	"time"

	"github.com/kailas-cloud/quotaledger/internal/domain"
)

// Money is a fixed-point monetary amount (10^-8 dollar resolution).
type Money = domain.Money

// Sentinel errors, matchable with errors.Is.
var (
	// ErrInvalidAmount signals a malformed or negative monetary value.
	ErrInvalidAmount = domain.ErrInvalidAmount
	// ErrQuotaDepleted signals an exhausted spending quota.
	ErrQuotaDepleted = domain.ErrQuotaDepleted
)

// QuotaDepletedError carries depletion diagnostics. Extract it from an
// EnsureNotDepleted error with errors.As.
type QuotaDepletedError = domain.QuotaDepletedError

// ParseMoney parses a decimal dollar string such as "5", "0.42" or
// "$1.999999995". An optional leading "$" is allowed. Fractions beyond
// the 8th digit round half-up.
func ParseMoney(s string) (Money, error) {
	return domain.ParseMoney(s)
}

// MoneyFromMicrocents builds a Money from a raw microcent count.
func MoneyFromMicrocents(mc int64) Money {
	return domain.MoneyFromMicrocents(mc)
}

// Usage is a point-in-time view of a subject's quota consumption.
type Usage struct {
	Subject   string
	Limit     Money
	Used      Money
	Remaining Money
	Exhausted bool
	ResetsAt  time.Time
}
