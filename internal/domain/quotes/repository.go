package quotes

import (
	"context"
	"time"
)

// Repository defines read-only access to derivative daily quotes.
// Absence of data is an expected condition: queries return empty results,
// never an error, when no rows exist for the requested key.
type Repository interface {
	// GetQuotes returns all quotes for an instrument on a trade date,
	// optionally restricted to a strike subset. A nil or empty strikes
	// slice means no strike filter.
	GetQuotes(ctx context.Context, instrumentID string, tradeDate time.Time, strikes []float64) ([]DerivativeQuote, error)

	// GetQuoteRange returns a lazy, forward-only iterator over quotes for
	// one (instrument, strike, class) contract strictly after afterDate,
	// ordered by trade_date ascending. The caller must Close the iterator.
	GetQuoteRange(ctx context.Context, instrumentID string, strike float64, class OptionClass, afterDate time.Time) (RangeIterator, error)
}

// RangeIterator is a forward-only cursor over an ordered quote range.
// It exists so the reduction scan can short-circuit without the store
// materializing unbounded history.
type RangeIterator interface {
	// Next advances to the next quote, returning false at end of range
	// or on error
	Next() bool

	// Quote returns the current quote; valid only after Next returned true
	Quote() DerivativeQuote

	// Err returns the error that stopped iteration, if any
	Err() error

	// Close releases the underlying cursor
	Close() error
}
