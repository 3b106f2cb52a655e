package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestLinearBackoff(t *testing.T) {
	b := Linear(500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, b(1))
	assert.Equal(t, time.Second, b(2))
	assert.Equal(t, 1500*time.Millisecond, b(3))
}

func TestExponentialBackoff_Capped(t *testing.T) {
	b := Exponential(100*time.Millisecond, 300*time.Millisecond, 2.0, 0)
	assert.Equal(t, 100*time.Millisecond, b(1))
	assert.Equal(t, 200*time.Millisecond, b(2))
	assert.Equal(t, 300*time.Millisecond, b(3))
	assert.Equal(t, 300*time.Millisecond, b(10))
}

func TestRetrier_RetriesRetryableUntilSuccess(t *testing.T) {
	var delays []time.Duration
	calls := 0

	r := New(
		WithMaxAttempts(3),
		WithBackoff(Linear(time.Millisecond)),
		WithOnRetry(func(_ int, _ error, d time.Duration) { delays = append(delays, d) }),
	)

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errBoom)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestRetrier_StopsOnPermanent(t *testing.T) {
	calls := 0
	r := New(WithMaxAttempts(5), WithBackoff(Linear(time.Millisecond)))
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(errBoom)
	})

	assert.ErrorIs(t, err, errBoom)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestRetrier_PlainErrorNotRetriedByDefault(t *testing.T) {
	calls := 0
	err := New(WithMaxAttempts(5)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	calls := 0
	r := New(
		WithMaxAttempts(3),
		WithBackoff(Linear(time.Millisecond)),
		WithRetryIf(func(error) bool { return true }),
	)

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, calls)
}

func TestRetrier_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	r := New(WithMaxAttempts(3), WithBackoff(Linear(time.Hour)))
	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return Retryable(errBoom)
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestDoWithData(t *testing.T) {
	r := ProfileValidationRetrier(2, time.Millisecond)
	calls := 0

	got, err := DoWithData(context.Background(), r, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, Retryable(errBoom)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}
