package element

import (
	"context"

	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/retry"
)

// present reports whether the chain resolves. Not-found and stale count as
// absent; any other lookup failure is fatal.
func (e *Element) present(context.Context) (bool, error) {
	_, err := e.resolve()
	switch {
	case err == nil:
		return true, nil
	case driver.IsNotPresent(err):
		return false, nil
	case retry.IsFatal(err):
		return false, err
	default:
		return false, retry.Fatal(err)
	}
}

// displayed is the visibility probe. An absent element is not displayed.
func (e *Element) displayed(context.Context) (bool, error) {
	el, err := e.resolve()
	if err != nil {
		if driver.IsNotPresent(err) {
			return false, nil
		}
		return false, err
	}
	return el.IsDisplayed()
}

// probe adapts a single driver call to an Expect operation.
func probe[T any](e *Element, read func(driver.Element) (T, error)) func(context.Context) (T, error) {
	return func(context.Context) (T, error) {
		var zero T
		el, err := e.resolve()
		if err != nil {
			return zero, err
		}
		return read(el)
	}
}

// expect runs retry.Expect with the element's options. A non-empty headline
// becomes the failure message, followed by any caller message.
func expect[T any](ctx context.Context, e *Element, op string, headline string, read func(context.Context) (T, error), want T, opts []retry.Option) error {
	all := e.options(op, opts)
	if headline != "" {
		msg := headline
		if caller := retry.Resolve(opts...).Message; caller != "" {
			msg += ": " + caller
		}
		all = append(all, retry.WithMessage(msg))
	}
	return retry.Expect(ctx, read, want, all...)
}

// ExpectToBePresent waits for the element to be found.
func (e *Element) ExpectToBePresent(ctx context.Context, opts ...retry.Option) error {
	return expect(ctx, e, "expect present", "Expected element to be present", e.present, true, opts)
}

// ExpectToBeNotPresent waits for the element to disappear.
func (e *Element) ExpectToBeNotPresent(ctx context.Context, opts ...retry.Option) error {
	return expect(ctx, e, "expect not present", "Expected element to be not present", e.present, false, opts)
}

// ExpectToBeSelected waits for the element to become selected.
func (e *Element) ExpectToBeSelected(ctx context.Context, opts ...retry.Option) error {
	return expect(ctx, e, "expect selected", "", probe(e, driver.Element.IsSelected), true, opts)
}

// ExpectToBeUnSelected waits for the element to become unselected.
func (e *Element) ExpectToBeUnSelected(ctx context.Context, opts ...retry.Option) error {
	return expect(ctx, e, "expect unselected", "", probe(e, driver.Element.IsSelected), false, opts)
}

// ExpectToBeDisplayed waits for the element to be present and visible.
func (e *Element) ExpectToBeDisplayed(ctx context.Context, opts ...retry.Option) error {
	return expect(ctx, e, "expect displayed", "", e.displayed, true, opts)
}

// ExpectToBeNotDisplayed succeeds once the element is hidden or gone.
func (e *Element) ExpectToBeNotDisplayed(ctx context.Context, opts ...retry.Option) error {
	return expect(ctx, e, "expect not displayed", "", e.displayed, false, opts)
}

// ExpectToBeEnabled waits for the element to accept input.
func (e *Element) ExpectToBeEnabled(ctx context.Context, opts ...retry.Option) error {
	return expect(ctx, e, "expect enabled", "", probe(e, driver.Element.IsEnabled), true, opts)
}

// ExpectTextToBe waits for the rendered text to equal text.
func (e *Element) ExpectTextToBe(ctx context.Context, text string, opts ...retry.Option) error {
	return expect(ctx, e, "expect text", "", probe(e, driver.Element.Text), text, opts)
}

// ExpectInputValueToBe waits for the value of an input to equal value.
func (e *Element) ExpectInputValueToBe(ctx context.Context, value string, opts ...retry.Option) error {
	return e.ExpectAttributeToBe(ctx, "value", value, opts...)
}

// ExpectAttributeToBe waits for attribute name to equal value exactly.
func (e *Element) ExpectAttributeToBe(ctx context.Context, name, value string, opts ...retry.Option) error {
	read := probe(e, func(el driver.Element) (string, error) { return el.Attribute(name) })
	return expect(ctx, e, "expect attribute "+name, "", read, value, opts)
}
