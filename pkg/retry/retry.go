// Package retry implements the polling engine behind every element operation:
// call an operation until it succeeds, returns the expected value, or the time
// budget runs out.
//
// The budget is checked between attempts only. An attempt already in flight is
// never interrupted, so timeouts are lower bounds rather than exact deadlines.
package retry

import (
	"context"
	"fmt"
	"time"
)

// sleep pauses between attempts. Tests replace it to avoid real waits.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do calls op until it returns a nil error and returns that result.
//
// Errors tagged fatal (see Fatal and IsFatal) are returned immediately. Any
// other error is recorded and op is called again while the budget lasts. When
// the budget is exhausted Do returns an *Error wrapping the last failure.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts ...Option) (T, error) {
	o := Resolve(opts...)
	return do(ctx, op, o)
}

func do[T any](ctx context.Context, op func(context.Context) (T, error), o Options) (T, error) {
	var zero T
	start := now()
	stillWithinBudget := MakeClock(o.Timeout)

	var last error
	attempts := 0
	for {
		attempts++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if IsFatal(err) {
			return zero, err
		}
		last = err

		if !stillWithinBudget() {
			break
		}
		if o.OnRetry != nil {
			o.OnRetry(attempts, err)
		}
		if serr := sleep(ctx, o.Interval); serr != nil {
			last = fmt.Errorf("%w: %w", serr, last)
			break
		}
	}

	return zero, exhausted(last, attempts, now().Sub(start), o)
}

func exhausted(last error, attempts int, elapsed time.Duration, o Options) *Error {
	e := &Error{
		Err:      last,
		Attempts: attempts,
		Elapsed:  elapsed,
		Timeout:  o.Timeout,
	}
	if !isAnnotated(last) {
		e.Context = o.Context
	}
	return e
}
