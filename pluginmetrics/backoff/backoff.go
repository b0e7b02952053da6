package backoff

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"
)

const maxShift = 62

// ErrNilOperation is returned by Retry when fn is nil.
var ErrNilOperation = errors.New("backoff: operation is nil")

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of tries, including the first. Values below 1 mean 1.
	Attempts int
	// Base is the delay before the first retry, before jitter.
	Base time.Duration
	// Max caps a single delay. Zero means uncapped.
	Max time.Duration
}

// DefaultPolicy retries a publish twice, waiting at most one second.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Base: 100 * time.Millisecond, Max: time.Second}
}

// Delay returns the jittered wait before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := Exponential(p.Base, attempt)
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}

	return FullJitter(d)
}

// Exponential returns base * 2^attempt, saturating instead of overflowing.
// Negative attempts are treated as 0.
func Exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}

	multiplier := int64(1 << attempt)

	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(int64(base) * multiplier)
}

// FullJitter returns a random duration in [0, delay). Zero or negative delays return 0.
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(delay)))
	if err != nil {
		return delay / 2
	}

	return time.Duration(n.Int64())
}

// SleepWithContext sleeps for duration unless ctx is done first.
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}

// Retry calls fn until it succeeds, the policy is exhausted, or ctx is done.
// The returned error wraps the last failure from fn.
func Retry(ctx context.Context, policy Policy, fn func(context.Context) error) error {
	if fn == nil {
		return ErrNilOperation
	}

	attempts := max(policy.Attempts, 1)

	var lastErr error

	for attempt := range attempts {
		if attempt > 0 {
			if err := SleepWithContext(ctx, policy.Delay(attempt-1)); err != nil {
				return errors.Join(lastErr, err)
			}
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
