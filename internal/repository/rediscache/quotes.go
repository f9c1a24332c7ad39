package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"argus/internal/domain/quotes"
	"argus/pkg/logger"
)

// Compile-time check
var _ quotes.Repository = (*QuoteCache)(nil)

// QuoteCache is a read-through cache over a quote repository. The matcher
// queries a full option chain per (instrument, trade date) and a batch run
// touches the same chain once per class pass, so caching the unfiltered
// chain is enough. Cache failures degrade to the inner repository and never
// fail a unit. Range scans pass through untouched.
type QuoteCache struct {
	inner quotes.Repository
	rdb   *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// NewQuoteCache creates a caching decorator around inner
func NewQuoteCache(inner quotes.Repository, rdb *redis.Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   logger.Get().With("component", "quote_cache"),
	}
}

func chainKey(instrumentID string, tradeDate time.Time) string {
	return fmt.Sprintf("argus:chain:%s:%s", instrumentID, tradeDate.Format("2006-01-02"))
}

// GetQuotes serves the unfiltered chain from Redis when present; strike
// filters are applied locally against the cached chain
func (c *QuoteCache) GetQuotes(ctx context.Context, instrumentID string, tradeDate time.Time, strikes []float64) ([]quotes.DerivativeQuote, error) {
	key := chainKey(instrumentID, tradeDate)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var chain []quotes.DerivativeQuote
		if err := json.Unmarshal(data, &chain); err == nil {
			return filterStrikes(chain, strikes), nil
		}
		// Corrupt entry: drop it and fall through
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		c.log.Debugw("Quote cache unavailable, using store", "error", err)
	}

	chain, err := c.inner.GetQuotes(ctx, instrumentID, tradeDate, nil)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(chain); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Debugw("Failed to populate quote cache", "error", err)
		}
	}

	return filterStrikes(chain, strikes), nil
}

// GetQuoteRange passes through: temporal scans are contract-specific and
// rarely repeat within a cache window
func (c *QuoteCache) GetQuoteRange(ctx context.Context, instrumentID string, strike float64, class quotes.OptionClass, afterDate time.Time) (quotes.RangeIterator, error) {
	return c.inner.GetQuoteRange(ctx, instrumentID, strike, class, afterDate)
}

func filterStrikes(chain []quotes.DerivativeQuote, strikes []float64) []quotes.DerivativeQuote {
	if len(strikes) == 0 {
		return chain
	}
	want := make(map[float64]struct{}, len(strikes))
	for _, s := range strikes {
		want[s] = struct{}{}
	}
	out := make([]quotes.DerivativeQuote, 0, len(chain))
	for _, q := range chain {
		if q.StrikePrice == nil {
			continue
		}
		if _, ok := want[*q.StrikePrice]; ok {
			out = append(out, q)
		}
	}
	return out
}
