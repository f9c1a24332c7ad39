package retry

import (
	"context"
	"time"

	"argus/pkg/errors"
	"argus/pkg/logger"
)

// Policy retries an operation with exponential backoff and a bounded number
// of attempts. It is meant for the store-accessor boundary only: transient
// failures (timeouts, dropped connections) are retried, logical outcomes
// (empty results, validation errors) are returned unchanged.
type Policy struct {
	maxAttempts       int
	minBackoff        time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	attemptTimeout    time.Duration
	retryable         func(error) bool
	onRetry           func(op string)

	logger *logger.Logger
}

// Config configures a retry policy
type Config struct {
	MaxAttempts       int           // Total attempts including the first (default 3)
	MinBackoff        time.Duration // Initial backoff (default 200ms)
	MaxBackoff        time.Duration // Backoff ceiling (default 5s)
	BackoffMultiplier float64       // Exponential multiplier (default 2.0)
	AttemptTimeout    time.Duration // Per-attempt deadline (default 10s)
	Retryable         func(error) bool
	OnRetry           func(op string) // Called once per retried attempt
}

// NewPolicy creates a retry policy with sensible defaults
func NewPolicy(config Config, log *logger.Logger) *Policy {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.MinBackoff == 0 {
		config.MinBackoff = 200 * time.Millisecond
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 5 * time.Second
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = 2.0
	}
	if config.AttemptTimeout == 0 {
		config.AttemptTimeout = 10 * time.Second
	}
	if config.Retryable == nil {
		config.Retryable = DefaultRetryable
	}

	return &Policy{
		maxAttempts:       config.MaxAttempts,
		minBackoff:        config.MinBackoff,
		maxBackoff:        config.MaxBackoff,
		backoffMultiplier: config.BackoffMultiplier,
		attemptTimeout:    config.AttemptTimeout,
		retryable:         config.Retryable,
		onRetry:           config.OnRetry,
		logger:            log,
	}
}

// DefaultRetryable treats timeouts, unavailability and context deadline
// expiry as transient. Validation and not-found errors never retry.
func DefaultRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, errors.ErrInvalidInput),
		errors.Is(err, errors.ErrNotFound),
		errors.Is(err, errors.ErrNoBaseline),
		errors.Is(err, errors.ErrInvalidReference),
		errors.Is(err, errors.ErrZeroBaselinePrice),
		errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, errors.ErrTimeout),
		errors.Is(err, errors.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		// Unknown store errors are assumed transient
		return true
	}
}

// Do runs fn until it succeeds, the attempts are exhausted, or the error is
// not retryable. Each attempt gets its own deadline derived from ctx.
func (p *Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := p.minBackoff

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
		lastErr = fn(attemptCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) {
			return lastErr
		}
		if attempt == p.maxAttempts {
			break
		}

		if p.onRetry != nil {
			p.onRetry(op)
		}
		if p.logger != nil {
			p.logger.Warnw("Retrying store operation",
				"op", op,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * p.backoffMultiplier)
		if backoff > p.maxBackoff {
			backoff = p.maxBackoff
		}
	}

	return errors.Wrapf(lastErr, "%s failed after %d attempts", op, p.maxAttempts)
}
