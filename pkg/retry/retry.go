package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Go invokes fn until it succeeds, the attempt cap is reached, the
// DoRetry predicate declines, or ctx is canceled. The errors from every
// failed attempt are collected and returned together.
func Go(ctx context.Context, fn func() error, options ...Option) error {
	r := retrier{
		fn:          fn,
		maxAttempts: DefaultMaxAttempts,
		delay:       Backoff(DefaultBaseDelay, 0),
		doRetry:     func(int, error) (time.Duration, bool) { return 0, true },
	}

	for _, opt := range options {
		opt(&r)
	}

	if r.maxAttempts < 1 {
		return errors.New("maxAttempts is less than 1")
	}

	var multi *multierror.Error
	attempt := 0
	for {
		attempt++
		err := r.fn()
		if err == nil {
			return nil
		}

		multi = multierror.Append(multi, err)
		override, next := r.doRetry(attempt, err)
		if attempt >= r.maxAttempts || !next {
			return multi.ErrorOrNil()
		}

		wait := r.delay(attempt)
		if override > 0 {
			wait = override
		}
		if r.onRetry != nil {
			r.onRetry(attempt, wait, err)
		}

		if err := sleep(ctx, wait); err != nil {
			multi = multierror.Append(multi, err)
			return multi.ErrorOrNil()
		}
	}
}

// Backoff doubles the base delay on every attempt and adds up to jitter
// of random noise on top.
func Backoff(base, jitter time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		n := base
		n *= 1 << (attempt - 1)
		if jitter > 0 {
			n += time.Duration(rand.Int63n(int64(jitter)))
		}
		return n
	}
}

type retrier struct {
	fn          func() error
	maxAttempts int
	delay       func(attempt int) time.Duration
	doRetry     func(attempt int, err error) (time.Duration, bool)
	onRetry     func(attempt int, wait time.Duration, err error)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
