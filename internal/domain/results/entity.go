package results

import (
	"time"

	"argus/internal/domain/quotes"
)

// StrikeSelection is one matched (strike, option class) contract for a
// baseline observation. Recomputed fresh on every run; the output store
// slice for (instrument_id, baseline_date) is fully replaced.
type StrikeSelection struct {
	InstrumentID   string             `db:"instrument_id"`
	BaselineDate   time.Time          `db:"baseline_date"`
	ReferenceValue float64            `db:"reference_value"`
	StrikePrice    float64            `db:"strike_price"`
	OptionClass    quotes.OptionClass `db:"option_class"`
	Rank           int                `db:"rank"`
	Distance       float64            `db:"distance"`
	ExpiryDate     time.Time          `db:"expiry_date"`
	ClosePrice     float64            `db:"close_price"`

	// Partial marks selections produced from a market with fewer strikes
	// than requested
	Partial bool `db:"partial"`

	RunTimestamp time.Time `db:"run_timestamp"`
}

// ReductionEvent is a later trading day on which a contract's price fell by
// at least the configured percentage relative to its baseline price.
// TargetDate is always strictly after BaselineDate.
type ReductionEvent struct {
	InstrumentID  string             `db:"instrument_id"`
	StrikePrice   float64            `db:"strike_price"`
	OptionClass   quotes.OptionClass `db:"option_class"`
	BaselineDate  time.Time          `db:"baseline_date"`
	BaselinePrice float64            `db:"baseline_price"`
	TargetDate    time.Time          `db:"target_date"`
	TargetPrice   float64            `db:"target_price"`
	PctChange     float64            `db:"pct_change"`
	RunTimestamp  time.Time          `db:"run_timestamp"`
}

// ScanMode selects how far a reduction scan reads past the first crossing
type ScanMode string

const (
	// ScanFirst stops at the first qualifying date
	ScanFirst ScanMode = "first"

	// ScanAll emits every qualifying date to the end of available history
	ScanAll ScanMode = "all"
)

// Valid reports whether the mode is known
func (m ScanMode) Valid() bool {
	return m == ScanFirst || m == ScanAll
}
