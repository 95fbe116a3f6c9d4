package element

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/retry"
)

// Click waits until the element is present and enabled, then clicks it.
func (e *Element) Click(ctx context.Context, opts ...retry.Option) error {
	_, err := retried(ctx, e, "click", opts, func(el driver.Element) (struct{}, error) {
		return struct{}{}, clickEnabled(el)
	})
	return err
}

// SimpleClick clicks exactly once. Only the lookup is retried.
func (e *Element) SimpleClick(ctx context.Context, opts ...retry.Option) error {
	_, err := once(ctx, e, "click", opts, func(el driver.Element) (struct{}, error) {
		return struct{}{}, el.Click()
	})
	return err
}

// ClickSendKeys clicks the element and types text in the same attempt. Some
// drivers drop keystrokes sent to an input that was never clicked.
func (e *Element) ClickSendKeys(ctx context.Context, text string, opts ...retry.Option) error {
	_, err := retried(ctx, e, "click and send keys", opts, func(el driver.Element) (struct{}, error) {
		if err := clickEnabled(el); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, el.SendKeys(text)
	})
	return err
}

// ClickTillAttributeEqual clicks until attribute name contains value.
func (e *Element) ClickTillAttributeEqual(ctx context.Context, name, value string, opts ...retry.Option) error {
	_, err := retried(ctx, e, "click till attribute", opts, func(el driver.Element) (struct{}, error) {
		if err := el.Click(); err != nil {
			return struct{}{}, err
		}
		got, err := el.Attribute(name)
		if err != nil {
			return struct{}{}, err
		}
		if !strings.Contains(got, value) {
			return struct{}{}, fmt.Errorf("%w: %s is %q, want it to contain %q", ErrAttributeMismatch, name, got, value)
		}
		return struct{}{}, nil
	})
	return err
}

// ClickTillElementPresent clicks until other can be found.
func (e *Element) ClickTillElementPresent(ctx context.Context, other *Element, opts ...retry.Option) error {
	_, err := retried(ctx, e, "click till present", opts, func(el driver.Element) (struct{}, error) {
		if err := el.Click(); err != nil {
			return struct{}{}, err
		}
		_, err := other.resolve()
		return struct{}{}, err
	})
	return err
}

func clickEnabled(el driver.Element) error {
	enabled, err := el.IsEnabled()
	if err != nil {
		return err
	}
	if !enabled {
		return ErrNotEnabled
	}
	return el.Click()
}

// SendKeys types text into the element.
func (e *Element) SendKeys(ctx context.Context, text string, opts ...retry.Option) error {
	_, err := once(ctx, e, "send keys", opts, func(el driver.Element) (struct{}, error) {
		return struct{}{}, el.SendKeys(text)
	})
	return err
}

// Clear empties an input or textarea.
func (e *Element) Clear(ctx context.Context, opts ...retry.Option) error {
	_, err := once(ctx, e, "clear", opts, func(el driver.Element) (struct{}, error) {
		return struct{}{}, el.Clear()
	})
	return err
}

// Submit submits the form the element belongs to.
func (e *Element) Submit(ctx context.Context, opts ...retry.Option) error {
	_, err := once(ctx, e, "submit", opts, func(el driver.Element) (struct{}, error) {
		return struct{}{}, el.Submit()
	})
	return err
}

// Text returns the rendered text of the element.
func (e *Element) Text(ctx context.Context, opts ...retry.Option) (string, error) {
	return once(ctx, e, "text", opts, driver.Element.Text)
}

// Attribute returns the named attribute, or the live property for "value".
func (e *Element) Attribute(ctx context.Context, name string, opts ...retry.Option) (string, error) {
	return once(ctx, e, "attribute "+name, opts, func(el driver.Element) (string, error) {
		return el.Attribute(name)
	})
}

// Rect reads the element's position and size once it resolves.
func (e *Element) Rect(ctx context.Context, opts ...retry.Option) (driver.Rect, error) {
	return once(ctx, e, "rect", opts, driver.Element.Rect)
}

// Size reads the element's width and height.
func (e *Element) Size(ctx context.Context, opts ...retry.Option) (driver.Size, error) {
	r, err := e.Rect(ctx, opts...)
	return r.Size(), err
}

// Location reads the element's top-left corner.
func (e *Element) Location(ctx context.Context, opts ...retry.Option) (driver.Point, error) {
	r, err := e.Rect(ctx, opts...)
	return r.Location(), err
}

// TakeScreenshot returns a PNG of the element. The static driver returns
// rendered markup instead.
func (e *Element) TakeScreenshot(ctx context.Context, opts ...retry.Option) ([]byte, error) {
	return once(ctx, e, "screenshot", opts, driver.Element.TakeScreenshot)
}

// IsSelected reports whether a checkbox, radio or option is selected.
func (e *Element) IsSelected(ctx context.Context, opts ...retry.Option) (bool, error) {
	return once(ctx, e, "is selected", opts, driver.Element.IsSelected)
}

// WaitForVisible waits until the element is present and displayed.
func (e *Element) WaitForVisible(ctx context.Context, opts ...retry.Option) error {
	_, err := retried(ctx, e, "wait for visible", opts, func(el driver.Element) (struct{}, error) {
		shown, err := el.IsDisplayed()
		if err != nil {
			return struct{}{}, err
		}
		if !shown {
			return struct{}{}, ErrNotVisible
		}
		return struct{}{}, nil
	})
	return err
}

// WaitForNotPresent waits until the element can no longer be found. A lookup
// error other than not-found or stale ends the wait immediately.
func (e *Element) WaitForNotPresent(ctx context.Context, opts ...retry.Option) error {
	_, err := retry.Do(ctx, func(context.Context) (struct{}, error) {
		_, err := e.resolve()
		switch {
		case err == nil:
			return struct{}{}, ErrStillPresent
		case driver.IsNotPresent(err):
			return struct{}{}, nil
		default:
			return struct{}{}, retry.Fatal(err)
		}
	}, e.options("wait for not present", opts)...)
	return err
}

// All resolves the element once and returns every descendant matching target.
// Nothing is retried after the lookup of the element itself.
func (e *Element) All(ctx context.Context, target Target, opts ...retry.Option) ([]driver.Element, error) {
	loc := target.Locator()
	return once(ctx, e, "find all "+loc.String(), opts, func(el driver.Element) ([]driver.Element, error) {
		return el.FindElements(loc)
	})
}
