package element

import "errors"

// Precondition failures. They are retried like any transient driver error.
var (
	ErrNotEnabled        = errors.New("element is not enabled")
	ErrNotVisible        = errors.New("element is not visible")
	ErrStillPresent      = errors.New("element is still present")
	ErrAttributeMismatch = errors.New("attribute mismatch")
)
