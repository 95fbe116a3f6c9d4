package driver

import (
	"errors"
	"fmt"
)

// Kind classifies a driver failure.
type Kind int

const (
	// KindUnknown is any failure without a more specific kind.
	KindUnknown Kind = iota

	// KindNoSuchElement means a lookup matched nothing.
	KindNoSuchElement

	// KindStaleElement means a previously found element left the document.
	KindStaleElement

	// KindInvalidSelector means the locator itself is malformed.
	KindInvalidSelector

	// KindNotInteractable means the element exists but cannot take the action.
	KindNotInteractable
)

func (k Kind) String() string {
	switch k {
	case KindNoSuchElement:
		return "no such element"
	case KindStaleElement:
		return "stale element reference"
	case KindInvalidSelector:
		return "invalid selector"
	case KindNotInteractable:
		return "element not interactable"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNoSuchElement   error = &Error{Kind: KindNoSuchElement}
	ErrStaleElement    error = &Error{Kind: KindStaleElement}
	ErrInvalidSelector error = &Error{Kind: KindInvalidSelector}
	ErrNotInteractable error = &Error{Kind: KindNotInteractable}
)

// Error is a classified driver failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError builds an *Error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error with a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Retryable reports whether waiting could make the failure go away. Only an
// invalid selector is permanent.
func (e *Error) Retryable() bool {
	return e.Kind != KindInvalidSelector
}

// IsNotPresent reports whether err means the element is absent from the
// document, either never found or gone stale.
func IsNotPresent(err error) bool {
	return errors.Is(err, ErrNoSuchElement) || errors.Is(err, ErrStaleElement)
}
