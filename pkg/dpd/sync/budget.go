// Package sync implements the resumable import pipeline that mirrors the
// carrier's geography and terminal catalogs into the local store.
package sync

import (
	"time"
)

// budgetMargin is the safety margin kept in reserve: work stops once the
// remaining time budget drops below it, leaving room to persist the cursor.
const budgetMargin = 5 * time.Second

// requestBoundCeiling caps an otherwise unbounded run when executing inside
// a request handler.
const requestBoundCeiling = 60 * time.Second

// BudgetGuard answers whether a chunked operation should stop now and hand
// back a continuation cursor.
type BudgetGuard interface {
	ShouldStop(start time.Time) bool
}

// Budget bounds one pipeline invocation to a maximum wall-clock duration.
type Budget struct {
	// Max is the execution-time allowance. Zero or negative means no limit
	// unless RequestBound is set.
	Max time.Duration
	// RequestBound marks invocations running inside an HTTP request, which
	// get a conservative ceiling even without a configured limit.
	RequestBound bool

	// now is overridable for tests.
	now func() time.Time
}

// ShouldStop reports whether elapsed time since start is within the safety
// margin of the allowance.
func (b Budget) ShouldStop(start time.Time) bool {
	max := b.Max
	if max <= 0 {
		if !b.RequestBound {
			return false
		}
		max = requestBoundCeiling
	}

	clock := b.now
	if clock == nil {
		clock = time.Now
	}
	return clock().Sub(start) >= max-budgetMargin
}
