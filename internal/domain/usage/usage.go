// Package usage holds the read-side view of a subject's quota.
package usage

import (
	"time"

	"github.com/kailas-cloud/quotaledger/internal/domain"
)

// Report is a point-in-time snapshot of a subject's quota consumption.
type Report struct {
	subject   string
	limit     domain.Money
	used      domain.Money
	remaining domain.Money
	exhausted bool
	resetsAt  time.Time
}

// NewReport creates a usage report.
func NewReport(subject string, limit, used, remaining domain.Money, exhausted bool, resetsAt time.Time) Report {
	return Report{
		subject:   subject,
		limit:     limit,
		used:      used,
		remaining: remaining,
		exhausted: exhausted,
		resetsAt:  resetsAt,
	}
}

// Subject returns the subject the report describes.
func (r Report) Subject() string { return r.subject }

// Limit returns the budget ceiling.
func (r Report) Limit() domain.Money { return r.limit }

// Used returns the usage accumulated in the current window.
func (r Report) Used() domain.Money { return r.used }

// Remaining returns the unspent budget, clamped at zero.
func (r Report) Remaining() domain.Money { return r.remaining }

// IsExhausted reports whether the quota is spent.
func (r Report) IsExhausted() bool { return r.exhausted }

// ResetsAt returns when the current window ends.
func (r Report) ResetsAt() time.Time { return r.resetsAt }
