package retry

import (
	"time"
)

type Option func(r *retrier)

func WithMaxAttempts(maxAttempts int) Option {
	return func(r *retrier) {
		r.maxAttempts = maxAttempts
	}
}

func WithBackoff(base, jitter time.Duration) Option {
	return func(r *retrier) {
		r.delay = Backoff(base, jitter)
	}
}

func WithDelay(delay func(attempt int) time.Duration) Option {
	return func(r *retrier) {
		r.delay = delay
	}
}

func WithDoRetry(doRetry func(err error) bool) Option {
	return func(r *retrier) {
		r.doRetry = func(attempt int, err error) (time.Duration, bool) {
			return 0, doRetry(err)
		}
	}
}

// WithDoRetryWithDelay lets the predicate supply its own wait, e.g.
// from a Retry-After header. A zero duration falls back to the
// configured backoff.
func WithDoRetryWithDelay(doRetry func(attempt int, err error) (time.Duration, bool)) Option {
	return func(r *retrier) {
		r.doRetry = doRetry
	}
}

func WithOnRetry(onRetry func(attempt int, wait time.Duration, err error)) Option {
	return func(r *retrier) {
		r.onRetry = onRetry
	}
}
