package retry

import "time"

// DefaultInterval is the pause between two attempts.
const DefaultInterval = 50 * time.Millisecond

// Options holds the resolved settings of a single Do or Expect call.
type Options struct {
	// Timeout is the overall budget. Zero means DefaultTimeout.
	Timeout time.Duration

	// Interval is the pause between attempts. Zero means DefaultInterval.
	Interval time.Duration

	// Context describes what is being retried (usually a locator chain).
	// It is attached to the final error unless that error already carries it.
	Context string

	// Message is the caller-supplied assertion message used by Expect.
	Message string

	// Concatenate appends the mismatch detail to Message.
	Concatenate bool

	// OnRetry is called after every failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Option configures a retry call.
type Option func(*Options)

// Resolve applies opts over the defaults.
func Resolve(opts ...Option) Options {
	o := Options{
		Timeout:  DefaultTimeout,
		Interval: DefaultInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval < 0 {
		o.Interval = 0
	}
	return o
}

// WithTimeout sets the overall retry budget.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithInterval sets the pause between attempts.
func WithInterval(d time.Duration) Option {
	return func(o *Options) { o.Interval = d }
}

// WithContext attaches a description of the retried target to the final error.
func WithContext(desc string) Option {
	return func(o *Options) { o.Context = desc }
}

// WithMessage sets the assertion message reported by Expect on timeout.
func WithMessage(msg string) Option {
	return func(o *Options) { o.Message = msg }
}

// ConcatenateMessages makes Expect report the caller message followed by the
// mismatch detail.
func ConcatenateMessages() Option {
	return func(o *Options) { o.Concatenate = true }
}

// OnRetry registers a hook invoked after each failed attempt that will be retried.
func OnRetry(fn func(attempt int, err error)) Option {
	return func(o *Options) {
		prev := o.OnRetry
		if prev == nil {
			o.OnRetry = fn
			return
		}
		o.OnRetry = func(attempt int, err error) {
			prev(attempt, err)
			fn(attempt, err)
		}
	}
}
