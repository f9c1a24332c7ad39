package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argus/pkg/errors"
)

func newTestPolicy(maxAttempts int) *Policy {
	return NewPolicy(Config{
		MaxAttempts: maxAttempts,
		MinBackoff:  time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}, nil)
}

func TestPolicy_SucceedsFirstAttempt(t *testing.T) {
	p := newTestPolicy(3)

	calls := 0
	err := p.Do(context.Background(), "query", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_RetriesTransientErrors(t *testing.T) {
	p := newTestPolicy(3)

	calls := 0
	err := p.Do(context.Background(), "query", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.ErrTimeout
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_ExhaustsAttempts(t *testing.T) {
	p := newTestPolicy(2)

	calls := 0
	err := p.Do(context.Background(), "query", func(ctx context.Context) error {
		calls++
		return errors.ErrUnavailable
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

func TestPolicy_DoesNotRetryLogicalErrors(t *testing.T) {
	p := newTestPolicy(5)

	for _, sentinel := range []error{
		errors.ErrNotFound,
		errors.ErrNoBaseline,
		errors.ErrInvalidReference,
		errors.ErrZeroBaselinePrice,
		errors.ErrInvalidInput,
	} {
		calls := 0
		err := p.Do(context.Background(), "query", func(ctx context.Context) error {
			calls++
			return sentinel
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls, "sentinel %v must not retry", sentinel)
		assert.True(t, errors.Is(err, sentinel))
	}
}

func TestPolicy_OnRetryHook(t *testing.T) {
	var retried []string
	p := NewPolicy(Config{
		MaxAttempts: 3,
		MinBackoff:  time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		OnRetry:     func(op string) { retried = append(retried, op) },
	}, nil)

	calls := 0
	err := p.Do(context.Background(), "get_quotes", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.ErrUnavailable
		}
		return nil
	})

	require.NoError(t, err)
	// The hook fires once per retried attempt, not for the first try
	assert.Equal(t, []string{"get_quotes", "get_quotes"}, retried)
}

func TestPolicy_StopsOnContextCancel(t *testing.T) {
	p := newTestPolicy(10)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := p.Do(ctx, "query", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.ErrTimeout
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestDefaultRetryable(t *testing.T) {
	assert.False(t, DefaultRetryable(nil))
	assert.False(t, DefaultRetryable(context.Canceled))
	assert.True(t, DefaultRetryable(context.DeadlineExceeded))
	assert.True(t, DefaultRetryable(errors.New("connection reset")))
	assert.False(t, DefaultRetryable(errors.Wrap(errors.ErrNotFound, "quotes")))
}
