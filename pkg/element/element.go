// Package element provides retrying handles over elements of a live page.
//
// An Element is a locator chain bound to a browser session. It holds no
// reference to a DOM node: every operation resolves the chain from the
// document root again, so an element that was re-rendered between two
// operations is simply found anew.
//
// Operations run in one of two modes. Retried operations (Click, WaitFor*,
// Expect*) repeat "resolve, check precondition, act" until it succeeds or the
// timeout elapses. Single-shot operations (SimpleClick, SendKeys, Text, ...)
// retry only the resolution and then act exactly once.
package element

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/steady/pkg/driver"
	"github.com/entrhq/steady/pkg/locator"
	"github.com/entrhq/steady/pkg/logging"
	"github.com/entrhq/steady/pkg/retry"
)

// Root is the session handles resolve against. It is shared by every handle
// built from it.
type Root interface {
	// Driver returns the live driver session, creating it on first use.
	Driver() (driver.Session, error)

	// Logger receives retry diagnostics.
	Logger() *logging.Logger

	// RetryOptions are applied before the options given to each call.
	RetryOptions() []retry.Option
}

// Target is anything that designates a single locator: a locator.Locator or
// another handle, whose own (last) locator is used.
type Target interface {
	Locator() locator.Locator
}

// Element is a lazily resolved handle on the first element matching a
// locator chain.
type Element struct {
	root  Root
	chain locator.Chain
}

// New returns a handle for chain.
func New(root Root, chain locator.Chain) *Element {
	return &Element{root: root, chain: chain}
}

// Chain returns the handle's locator chain.
func (e *Element) Chain() locator.Chain { return e.chain }

// Locator returns the handle's own locator, the last one of its chain.
func (e *Element) Locator() locator.Locator { return e.chain.Last() }

func (e *Element) String() string { return e.chain.String() }

// CSS returns a handle on the first descendant matching selector.
func (e *Element) CSS(selector string) *Element {
	return e.Element(locator.ByCSS(selector))
}

// XPath returns a handle on the first descendant matching expr.
func (e *Element) XPath(expr string) *Element {
	return e.Element(locator.ByXPath(expr))
}

// Element returns a handle on the first descendant matching target.
func (e *Element) Element(target Target) *Element {
	return New(e.root, e.chain.Append(target.Locator()))
}

// CSSAll returns a collection of descendants matching selector.
func (e *Element) CSSAll(selector string) *Collection {
	return e.Elements(locator.ByCSS(selector))
}

// XPathAll returns a collection of descendants matching expr.
func (e *Element) XPathAll(expr string) *Collection {
	return e.Elements(locator.ByXPath(expr))
}

// Elements returns a collection of descendants matching target.
func (e *Element) Elements(target Target) *Collection {
	return &Collection{root: e.root, parent: e, loc: target.Locator()}
}

// resolve walks the chain once from the document root.
func (e *Element) resolve() (driver.Element, error) {
	sess, err := e.root.Driver()
	if err != nil {
		return nil, retry.Fatal(fmt.Errorf("browser session unavailable: %w", err))
	}
	return resolveChain(e.chain, sess)
}

// resolveChain finds each locator inside the previous match. A failure is
// annotated with the locators consumed so far.
func resolveChain(chain locator.Chain, root driver.SearchContext) (driver.Element, error) {
	var (
		cur driver.SearchContext = root
		el  driver.Element
	)
	for i := 0; i < chain.Len(); i++ {
		next, err := cur.FindElement(chain.At(i))
		if err != nil {
			return nil, &locator.ChainError{Chain: chain.Prefix(i + 1), Err: err}
		}
		el, cur = next, next
	}
	return el, nil
}

// annotate attaches the chain to err unless it already carries one.
func (e *Element) annotate(err error) error {
	if err == nil {
		return nil
	}
	var a retry.Annotated
	if errors.As(err, &a) && a.Annotated() {
		return err
	}
	return &locator.ChainError{Chain: e.chain, Err: err}
}

// options builds the retry options for operation op.
func (e *Element) options(op string, opts []retry.Option) []retry.Option {
	return callOptions(e.root, op, e.chain.String(), opts)
}

func callOptions(root Root, op, desc string, opts []retry.Option) []retry.Option {
	log := root.Logger()
	out := make([]retry.Option, 0, len(opts)+3)
	out = append(out, root.RetryOptions()...)
	out = append(out,
		retry.WithContext("locator chain: "+desc),
		retry.OnRetry(func(attempt int, err error) {
			log.Debugf("%s %s: attempt %d failed: %v", op, desc, attempt, err)
		}),
	)
	return append(out, opts...)
}

// resolveRetry resolves the chain, retrying until it is found.
func (e *Element) resolveRetry(ctx context.Context, op string, opts []retry.Option) (driver.Element, error) {
	return retry.Do(ctx, func(context.Context) (driver.Element, error) {
		return e.resolve()
	}, e.options(op, opts)...)
}

// once resolves with retry, then runs act exactly once.
func once[T any](ctx context.Context, e *Element, op string, opts []retry.Option, act func(driver.Element) (T, error)) (T, error) {
	var zero T
	el, err := e.resolveRetry(ctx, op, opts)
	if err != nil {
		return zero, err
	}
	v, err := act(el)
	if err != nil {
		return zero, e.annotate(fmt.Errorf("%s: %w", op, err))
	}
	return v, nil
}

// retried repeats resolve and act until act succeeds.
func retried[T any](ctx context.Context, e *Element, op string, opts []retry.Option, act func(driver.Element) (T, error)) (T, error) {
	return retry.Do(ctx, func(context.Context) (T, error) {
		var zero T
		el, err := e.resolve()
		if err != nil {
			return zero, err
		}
		return act(el)
	}, e.options(op, opts)...)
}
