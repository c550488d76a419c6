// Package retry runs provider calls under a bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how many times and on which errors an operation is retried.
type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Retryable reports whether err is worth another attempt. Nil retries every error.
	Retryable func(err error) bool
	// OnRetry is called before each wait.
	OnRetry func(err error, attempt int, wait time.Duration)
}

// Attempts returns the total number of attempts the policy allows.
func (p Policy) Attempts() int {
	return max(0, p.MaxRetries) + 1
}

// Do runs op until it succeeds, returns a non-retryable error, the attempts run out,
// or ctx is done. The last error is returned unwrapped.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	attempt := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.Attempts())),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if p.OnRetry != nil {
				p.OnRetry(err, attempt, wait)
			}
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return res, err
}
