package sync

import (
	"context"

	"github.com/kskby/dpd/pkg/dpd"
)

// LocationStore is the storage surface the location agent writes through.
type LocationStore interface {
	// UpsertLocation inserts or updates a row keyed by Location.CityID.
	// The cash-on-delivery flag is only ever raised by an upsert, never
	// cleared: the bulk feed does not carry it, and a reload must not
	// drop flags set by the cash-pay pass.
	UpsertLocation(ctx context.Context, loc *dpd.Location) error
}

// TerminalStore is the storage surface the terminal agent writes through.
type TerminalStore interface {
	// UpsertTerminal inserts or updates a row keyed by Terminal.Code.
	UpsertTerminal(ctx context.Context, t *dpd.Terminal) error

	// CountTerminals returns the number of stored terminals.
	CountTerminals(ctx context.Context) (int64, error)

	// DeleteTerminalPage removes at most limit terminals and reports how
	// many were removed.
	DeleteTerminalPage(ctx context.Context, limit int) (int64, error)
}

// SettingStore persists the pipeline state between invocations.
type SettingStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Result is the outcome of one step operation: either the step completed,
// or the budget tripped and Cursor is the resume point.
type Result struct {
	Done   bool
	Cursor string
}

func completed() Result {
	return Result{Done: true}
}

func continued(cursor string) Result {
	return Result{Cursor: cursor}
}
