package retry

import (
	"errors"
	"fmt"
	"time"
)

// Annotated is implemented by errors that already describe the target they
// failed on. The engine does not attach Options.Context to those.
type Annotated interface {
	Annotated() bool
}

// retryable is the classification tag an error can carry. Errors without the
// tag are retryable.
type retryable interface {
	Retryable() bool
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string   { return e.err.Error() }
func (e *fatalError) Unwrap() error   { return e.err }
func (e *fatalError) Retryable() bool { return false }

// Fatal tags err as non-retryable. Do returns it after the attempt that produced it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether the first classification tag found in err's chain
// marks it as non-retryable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return !r.Retryable()
	}
	return false
}

func isAnnotated(err error) bool {
	var a Annotated
	return errors.As(err, &a) && a.Annotated()
}

// Error is returned by Do when the budget is exhausted. It wraps the last
// failure seen.
type Error struct {
	Err      error
	Context  string
	Attempts int
	Elapsed  time.Duration
	Timeout  time.Duration
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Context != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Context)
	}
	return fmt.Sprintf("%s [%d attempts in %s, timeout %s]",
		msg, e.Attempts, e.Elapsed.Round(time.Millisecond), e.Timeout)
}

func (e *Error) Unwrap() error { return e.Err }

// AssertionError is returned by Expect when the value never matched.
type AssertionError struct {
	Message  string
	Expected any
	Actual   any

	// Err is the operation error of the last attempt, if it failed outright.
	Err error

	Context  string
	Attempts int
	Elapsed  time.Duration
}

func (e *AssertionError) Error() string {
	if e.Context == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Context)
}

func (e *AssertionError) Unwrap() error { return e.Err }
