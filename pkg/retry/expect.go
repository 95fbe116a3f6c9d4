package retry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
)

var errMismatch = errors.New("value mismatch")

// Expect calls op until its value deep-equals expected.
//
// Operation errors are retried like in Do, fatal ones are returned as is. On
// timeout Expect returns an *AssertionError whose message is the caller message
// (WithMessage), the caller message followed by the mismatch detail
// (ConcatenateMessages), or the mismatch detail alone.
func Expect[T any](ctx context.Context, op func(context.Context) (T, error), expected T, opts ...Option) error {
	o := Resolve(opts...)

	var (
		actual  T
		seen    bool
		lastErr error
	)
	_, err := do(ctx, func(ctx context.Context) (struct{}, error) {
		v, err := op(ctx)
		if err != nil {
			lastErr = err
			return struct{}{}, err
		}
		lastErr = nil
		actual, seen = v, true
		if !assert.ObjectsAreEqual(expected, v) {
			return struct{}{}, errMismatch
		}
		return struct{}{}, nil
	}, o)
	if err == nil {
		return nil
	}

	var re *Error
	if !errors.As(err, &re) {
		return err
	}

	var detail string
	var got any
	if lastErr != nil {
		detail = lastErr.Error()
	} else if seen {
		got = actual
		detail = mismatchDetail(expected, actual)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		detail = fmt.Sprintf("%s: %s", ctxErr, detail)
	}

	return &AssertionError{
		Message:  composeMessage(o, detail),
		Expected: expected,
		Actual:   got,
		Err:      lastErr,
		Context:  re.Context,
		Attempts: re.Attempts,
		Elapsed:  re.Elapsed,
	}
}

func composeMessage(o Options, detail string) string {
	switch {
	case o.Message == "":
		return detail
	case o.Concatenate:
		return o.Message + ": " + detail
	default:
		return o.Message
	}
}

func mismatchDetail(expected, actual any) string {
	detail := fmt.Sprintf("Not equal:\nexpected: %s\nactual  : %s", formatValue(expected), formatValue(actual))
	if diff := diffValues(expected, actual); diff != "" {
		detail += "\n\nDiff:\n" + diff
	}
	return detail
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%#v", v)
}

// diffValues renders a unified diff for multi-line strings and slices. Other
// values return "".
func diffValues(expected, actual any) string {
	a, okA := lines(expected)
	b, okB := lines(actual)
	if !okA || !okB || (len(a) < 2 && len(b) < 2) {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return diff
}

func lines(v any) ([]string, bool) {
	if s, ok := v.(string); ok {
		return difflib.SplitLines(s), true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, strings.TrimRight(fmt.Sprintf("%v", rv.Index(i).Interface()), "\n")+"\n")
	}
	return out, true
}
