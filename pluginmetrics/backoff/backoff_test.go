//go:build unit

package backoff

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRedisDown = errors.New("redis down")

func TestExponential(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     time.Duration
		attempt  int
		expected time.Duration
	}{
		{name: "first attempt", base: 100 * time.Millisecond, attempt: 0, expected: 100 * time.Millisecond},
		{name: "third attempt", base: 100 * time.Millisecond, attempt: 3, expected: 800 * time.Millisecond},
		{name: "negative attempt", base: time.Second, attempt: -2, expected: time.Second},
		{name: "zero base", base: 0, attempt: 5, expected: 0},
		{name: "overflow saturates", base: time.Hour, attempt: 100, expected: time.Duration(math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, Exponential(tt.base, tt.attempt))
		})
	}
}

func TestFullJitter(t *testing.T) {
	t.Parallel()

	assert.Zero(t, FullJitter(0))
	assert.Zero(t, FullJitter(-time.Second))

	for range 50 {
		d := FullJitter(10 * time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 10*time.Millisecond)
	}
}

func TestPolicyDelay_Capped(t *testing.T) {
	t.Parallel()

	p := Policy{Attempts: 5, Base: time.Second, Max: 50 * time.Millisecond}

	for attempt := range 10 {
		assert.Less(t, p.Delay(attempt), 50*time.Millisecond)
	}
}

func TestSleepWithContext_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SleepWithContext(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, SleepWithContext(ctx, 0))
}

func TestRetry(t *testing.T) {
	t.Parallel()

	fast := Policy{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := Retry(context.Background(), fast, func(context.Context) error {
			calls++
			if calls < 3 {
				return errRedisDown
			}

			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausted wraps last error", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := Retry(context.Background(), fast, func(context.Context) error {
			calls++

			return errRedisDown
		})

		require.ErrorIs(t, err, errRedisDown)
		assert.Equal(t, 3, calls)
	})

	t.Run("zero attempts still tries once", func(t *testing.T) {
		t.Parallel()

		calls := 0
		_ = Retry(context.Background(), Policy{}, func(context.Context) error {
			calls++

			return errRedisDown
		})

		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0

		err := Retry(ctx, Policy{Attempts: 5, Base: time.Minute}, func(context.Context) error {
			calls++
			cancel()

			return errRedisDown
		})

		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, errRedisDown)
		assert.Equal(t, 1, calls)
	})

	t.Run("nil operation", func(t *testing.T) {
		t.Parallel()

		assert.ErrorIs(t, Retry(context.Background(), fast, nil), ErrNilOperation)
	})
}
