package results

import (
	"context"
	"time"
)

// Repository owns the engine's output tables. Both Replace operations
// delete existing rows keyed by (instrument_id, baseline_date) and insert
// the freshly computed set inside a single transaction, which is what makes
// reruns idempotent.
type Repository interface {
	ReplaceSelections(ctx context.Context, instrumentID string, baselineDate time.Time, rows []StrikeSelection) error

	ReplaceReductionEvents(ctx context.Context, instrumentID string, baselineDate time.Time, rows []ReductionEvent) error

	// GetSelections returns the persisted selections for one unit,
	// ordered by option_class then rank
	GetSelections(ctx context.Context, instrumentID string, baselineDate time.Time) ([]StrikeSelection, error)

	// GetReductionEvents returns the persisted events for one unit,
	// ordered by target_date ascending
	GetReductionEvents(ctx context.Context, instrumentID string, baselineDate time.Time) ([]ReductionEvent, error)
}
