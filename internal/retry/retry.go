// Package retry holds the bounded polling helper used wherever the gateway
// waits for the ledger to reflect something it cannot observe directly.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrExhausted is returned when the predicate never held within the attempts.
var ErrExhausted = errors.New("condition not met after all attempts")

var errNotYet = errors.New("condition not met yet")

type Policy struct {
	// Attempts is the total number of checks; 0 polls until the context is done.
	Attempts uint
	Delay    time.Duration
	OnRetry  func(attempt uint, err error)
}

// Poll calls fetch until done reports true for the fetched value. Fetch errors
// are retried like an unmet condition. The last successfully fetched value is
// returned in every case so callers can report what they observed.
func Poll[T any](ctx context.Context, p Policy, fetch func(ctx context.Context) (T, error), done func(T) bool) (T, error) {
	var (
		last     T
		observed bool
	)

	_, err := retry.DoWithData(func() (T, error) {
		value, err := fetch(ctx)
		if err != nil {
			return value, err
		}
		last, observed = value, true
		if !done(value) {
			return value, errNotYet
		}
		return value, nil
	}, options(ctx, p)...)

	if err == nil {
		return last, nil
	}
	if errors.Is(err, errNotYet) {
		return last, ErrExhausted
	}
	if observed && ctx.Err() == nil {
		// the final fetch failed after earlier ones succeeded
		return last, errors.Join(ErrExhausted, err)
	}
	return last, err
}

func options(ctx context.Context, p Policy) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	}

	if p.OnRetry != nil {
		opts = append(opts, retry.OnRetry(p.OnRetry))
	}

	return opts
}
