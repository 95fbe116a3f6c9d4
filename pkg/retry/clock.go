package retry

import "time"

// DefaultTimeout is the budget used when no WithTimeout option is given.
const DefaultTimeout = 15 * time.Second

// now is the time source for every clock. Tests replace it.
var now = time.Now

// MakeClock captures the current time and returns a predicate that reports
// whether the elapsed time is still within timeout. A non-positive timeout
// falls back to DefaultTimeout.
func MakeClock(timeout time.Duration) func() bool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	start := now()
	return func() bool {
		return now().Sub(start) <= timeout
	}
}
