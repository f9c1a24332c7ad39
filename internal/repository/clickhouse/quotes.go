package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"golang.org/x/time/rate"

	"argus/internal/domain/quotes"
	"argus/pkg/errors"
	"argus/pkg/retry"
)

// Compile-time check
var _ quotes.Repository = (*QuoteRepository)(nil)

const quoteColumns = `
	instrument_id, trade_date, strike_price, option_class,
	expiry_date, close_price, open_interest, traded_contracts`

// QuoteRepository implements quotes.Repository for ClickHouse. All calls
// pass through the shared rate limiter and the retry policy; logical empty
// results are returned as empty slices and are never retried.
type QuoteRepository struct {
	conn    driver.Conn
	policy  *retry.Policy
	limiter *rate.Limiter
}

// NewQuoteRepository creates a quote repository
func NewQuoteRepository(conn driver.Conn, policy *retry.Policy, limiter *rate.Limiter) *QuoteRepository {
	return &QuoteRepository{
		conn:    conn,
		policy:  policy,
		limiter: limiter,
	}
}

// GetQuotes returns all quotes for an instrument on a trade date, optionally
// restricted to a strike subset. No rows is an expected condition and yields
// an empty slice.
func (r *QuoteRepository) GetQuotes(ctx context.Context, instrumentID string, tradeDate time.Time, strikes []float64) ([]quotes.DerivativeQuote, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + quoteColumns + `
		FROM derivative_quotes
		WHERE instrument_id = ? AND trade_date = ?`
	args := []interface{}{instrumentID, tradeDate}
	if len(strikes) > 0 {
		query += ` AND strike_price IN (?)`
		args = append(args, strikes)
	}
	query += ` ORDER BY strike_price, option_class, expiry_date`

	var out []quotes.DerivativeQuote
	err := r.policy.Do(ctx, "get_quotes", func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var q quotes.DerivativeQuote
			if err := rows.Scan(
				&q.InstrumentID, &q.TradeDate, &q.StrikePrice, &q.OptionClass,
				&q.ExpiryDate, &q.ClosePrice, &q.OpenInterest, &q.TradedContracts,
			); err != nil {
				return err
			}
			out = append(out, q)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrap(err, "query derivative quotes")
	}
	return out, nil
}

// GetQuoteRange opens a forward-only cursor over one contract's quotes
// strictly after afterDate, ordered by trade_date ascending. Only the open
// is retried; the caller owns the cursor from then on.
func (r *QuoteRepository) GetQuoteRange(ctx context.Context, instrumentID string, strike float64, class quotes.OptionClass, afterDate time.Time) (quotes.RangeIterator, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + quoteColumns + `
		FROM derivative_quotes
		WHERE instrument_id = ?
		  AND strike_price = ?
		  AND option_class = ?
		  AND trade_date > ?
		ORDER BY trade_date ASC`

	var rows driver.Rows
	err := r.policy.Do(ctx, "get_quote_range", func(ctx context.Context) error {
		var err error
		rows, err = r.conn.Query(ctx, query, instrumentID, strike, string(class), afterDate)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "open quote range")
	}

	return &rangeIterator{rows: rows}, nil
}

// rangeIterator adapts driver.Rows to the domain cursor
type rangeIterator struct {
	rows    driver.Rows
	current quotes.DerivativeQuote
	err     error
}

func (it *rangeIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}

	var q quotes.DerivativeQuote
	if err := it.rows.Scan(
		&q.InstrumentID, &q.TradeDate, &q.StrikePrice, &q.OptionClass,
		&q.ExpiryDate, &q.ClosePrice, &q.OpenInterest, &q.TradedContracts,
	); err != nil {
		it.err = err
		return false
	}
	it.current = q
	return true
}

func (it *rangeIterator) Quote() quotes.DerivativeQuote {
	return it.current
}

func (it *rangeIterator) Err() error {
	return it.err
}

func (it *rangeIterator) Close() error {
	return it.rows.Close()
}
