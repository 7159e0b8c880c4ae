package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestGoSucceedsOnThirdAttempt(t *testing.T) {
	attempts := 0
	err := Go(
		context.Background(),
		func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		},
		WithMaxAttempts(5),
		WithBackoff(time.Millisecond, 0),
	)

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestGoExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Go(
		context.Background(),
		func() error {
			attempts++
			return errors.Errorf("attempt %d", attempts)
		},
		WithMaxAttempts(3),
		WithBackoff(time.Millisecond, 0),
	)

	require.Error(t, err)
	require.Equal(t, 3, attempts)
	require.Contains(t, err.Error(), "attempt 1")
	require.Contains(t, err.Error(), "attempt 3")
}

func TestGoDoRetryDeclines(t *testing.T) {
	fatal := errors.New("fatal")
	attempts := 0
	err := Go(
		context.Background(),
		func() error {
			attempts++
			return fatal
		},
		WithMaxAttempts(5),
		WithDoRetry(func(err error) bool { return !errors.Is(err, fatal) }),
	)

	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestGoStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Go(
		ctx,
		func() error {
			attempts++
			cancel()
			return errors.New("transient")
		},
		WithMaxAttempts(10),
		WithBackoff(time.Minute, 0),
	)

	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestBackoffDoubles(t *testing.T) {
	delay := Backoff(time.Second, 0)
	require.Equal(t, time.Second, delay(1))
	require.Equal(t, 2*time.Second, delay(2))
	require.Equal(t, 4*time.Second, delay(3))
}
