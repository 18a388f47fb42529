// Package retry runs an operation a bounded number of times.
package retry

import (
	"context"
)

// Result is the outcome of Do: either the first successful value or the
// last error.
type Result[T any] struct {
	value    T
	err      error
	attempts int
}

// OK reports whether some attempt succeeded.
func (r Result[T]) OK() bool {
	return r.err == nil
}

// Value returns the successful value, or the zero value on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the last error, or nil on success.
func (r Result[T]) Err() error {
	return r.err
}

// Message returns the last error's text, or "" on success.
func (r Result[T]) Message() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

// Attempts returns how many times the operation ran.
func (r Result[T]) Attempts() int {
	return r.attempts
}

// Do calls op until it succeeds or has run attempts times, one call after
// another with no delay. attempts below 1 is treated as 1. A done ctx stops
// further attempts and its error becomes the result.
func Do[T any](ctx context.Context, attempts int, op func(ctx context.Context) (T, error)) Result[T] {
	attempts = max(attempts, 1)

	var res Result[T]
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := ctx.Err(); err != nil {
				res.err = err
				return res
			}
		}

		res.attempts++
		value, err := op(ctx)
		if err == nil {
			return Result[T]{value: value, attempts: res.attempts}
		}
		res.err = err
	}
	return res
}
