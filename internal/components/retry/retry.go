package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a bounded, fixed delay retry policy.
type Policy struct {
	// Attempts is the total number of calls made before giving up, values below 1 mean 1.
	Attempts int
	// Delay is slept between two attempts.
	Delay time.Duration
	// Retryable classifies an error returned by the call, nil retries every error.
	// Errors wrapped with Permanent are never retried.
	Retryable func(err error) bool
}

// ExhaustedError is returned by Do when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return e.Last.Error()
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Permanent marks err as non retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Any returns a classifier that retries errors matching any of targets.
func Any(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
}

func (p Policy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Do calls fn until it succeeds, returns a non retryable error, ctx is done or the
// attempt budget is spent. In the last case the error is an *ExhaustedError carrying
// the last failure, otherwise the error fn returned (or the ctx error) is returned as is.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempt := 0
	stopped := false

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(p.Delay),
			uint64(p.attempts()-1),
		),
		ctx,
	)

	err := backoff.Retry(func() error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			stopped = true
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			stopped = true
			return backoff.Permanent(err)
		}
		return err
	}, policy)

	switch {
	case err == nil:
		return nil
	case stopped:
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return &ExhaustedError{Attempts: attempt, Last: err}
}
