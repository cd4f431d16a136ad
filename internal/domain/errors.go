package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidAmount signals a malformed or negative monetary value.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrQuotaDepleted signals an exhausted spending quota.
	ErrQuotaDepleted = errors.New("quota depleted")
)

// QuotaDepletedError wraps ErrQuotaDepleted with the usage and limit
// that triggered the rejection, so the caller can render a specific
// "exhausted, resets at ..." message instead of a generic failure.
type QuotaDepletedError struct {
	Used     Money
	Limit    Money
	ResetsAt time.Time
}

func (e *QuotaDepletedError) Error() string {
	return fmt.Sprintf("%s: used %s of %s, resets at %s",
		ErrQuotaDepleted.Error(), e.Used, e.Limit, e.ResetsAt.UTC().Format(time.RFC3339))
}

func (e *QuotaDepletedError) Unwrap() error { return ErrQuotaDepleted }

// NewQuotaDepleted creates a depletion error carrying diagnostics.
func NewQuotaDepleted(used, limit Money, resetsAt time.Time) error {
	return &QuotaDepletedError{Used: used, Limit: limit, ResetsAt: resetsAt}
}
