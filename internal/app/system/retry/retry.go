// Package retry wraps read queries in a bounded retry loop with exponential
// backoff. Writes are never retried here; they go through txn.Run.
package retry

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Defaults used by Do and Value.
const (
	DefaultAttempts = 3
	DefaultBase     = 100 * time.Millisecond
)

// Policy controls how many attempts are made and how long to wait between them.
// The wait before attempt n (n >= 2) is Base * 2^(n-2).
type Policy struct {
	Attempts int
	Base     time.Duration
}

// Default is the policy used by the package-level helpers.
var Default = Policy{Attempts: DefaultAttempts, Base: DefaultBase}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err so that it is returned immediately without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// retryable reports whether another attempt could plausibly succeed.
func retryable(err error) bool {
	var pe permanentError
	switch {
	case errors.As(err, &pe):
		return false
	case errors.Is(err, mongo.ErrNoDocuments):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// Do runs fn with the Default policy.
func Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return Default.Do(ctx, fn)
}

// Value runs fn with the Default policy and returns its result.
func Value[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Default.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted, or ctx is done. The last error is returned unwrapped from
// any Permanent marker.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	wait := p.Base

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			wait *= 2
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			break
		}
	}

	var pe permanentError
	if errors.As(err, &pe) {
		return pe.err
	}
	return err
}
