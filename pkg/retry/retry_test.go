package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := Config{
		MaxAttempts:   5,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cfg := Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1.0,
	}

	sentinel := errors.New("always fails")
	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return sentinel
	}, nil)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, attempts)
}

func TestDo_HonorsContextCancellation(t *testing.T) {
	cfg := Config{
		MaxAttempts:   100,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      50 * time.Millisecond,
		BackoffFactor: 1.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		return errors.New("fail")
	}, nil)

	assert.Error(t, err)
	assert.LessOrEqual(t, attempts, 1)
}

func TestDo_ReportsEachRetry(t *testing.T) {
	cfg := Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1.0,
	}

	var logged []int
	_ = Do(context.Background(), cfg, func() error {
		return errors.New("fail")
	}, func(attempt int, err error, nextDelay time.Duration) {
		logged = append(logged, attempt)
	})

	// The final attempt is not followed by a sleep, so it is not logged.
	assert.Equal(t, []int{1, 2}, logged)
}
