package engine

import (
	"time"

	"argus/internal/domain/quotes"
	"argus/pkg/errors"
)

// ExpiryResolver picks the single applicable contract when a (strike,
// option class) pair trades under multiple expiries on the same date
type ExpiryResolver struct{}

// NewExpiryResolver creates an expiry resolver
func NewExpiryResolver() *ExpiryResolver {
	return &ExpiryResolver{}
}

// Resolve returns exactly one quote from the candidates: the nearest
// still-valid contract (earliest expiry on or after the trade date),
// breaking ties by highest open interest, then by insertion order.
// When every candidate is already expired the selection must be dropped;
// Resolve reports that with errors.ErrNoValidExpiry rather than defaulting
// to an expired contract.
func (r *ExpiryResolver) Resolve(candidates []quotes.DerivativeQuote, tradeDate time.Time) (quotes.DerivativeQuote, error) {
	var winner quotes.DerivativeQuote
	found := false

	for _, q := range candidates {
		if q.ExpiryDate.Before(tradeDate) {
			continue
		}
		if !found {
			winner = q
			found = true
			continue
		}
		if q.ExpiryDate.Before(winner.ExpiryDate) {
			winner = q
			continue
		}
		if q.ExpiryDate.Equal(winner.ExpiryDate) && q.OpenInterest > winner.OpenInterest {
			winner = q
		}
		// Equal expiry and equal open interest keeps the earlier
		// candidate: insertion order is the final deterministic tiebreak.
	}

	if !found {
		return quotes.DerivativeQuote{}, errors.Wrapf(errors.ErrNoValidExpiry,
			"all %d candidate expiries precede %s", len(candidates), tradeDate.Format("2006-01-02"))
	}
	return winner, nil
}
