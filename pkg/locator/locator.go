// Package locator describes how elements are found: single locators and the
// ordered chains that scope one lookup inside another.
package locator

import (
	"fmt"
	"strings"
)

// Strategy is the selector language of a Locator.
type Strategy string

const (
	// CSS selects with a CSS selector.
	CSS Strategy = "css"

	// XPath selects with an XPath expression.
	XPath Strategy = "xpath"
)

// Locator is an immutable selector plus the strategy it belongs to.
type Locator struct {
	Strategy Strategy
	Value    string
}

// ByCSS returns a CSS locator.
func ByCSS(selector string) Locator {
	return Locator{Strategy: CSS, Value: selector}
}

// ByXPath returns an XPath locator.
func ByXPath(expr string) Locator {
	return Locator{Strategy: XPath, Value: expr}
}

// Locator returns l itself, so a bare Locator is accepted wherever an
// element handle's own locator is.
func (l Locator) Locator() Locator { return l }

// String renders the locator as "<strategy>=<value>".
func (l Locator) String() string {
	return string(l.Strategy) + "=" + l.Value
}

// Validate checks that the strategy is known and the value is not blank.
func (l Locator) Validate() error {
	switch l.Strategy {
	case CSS, XPath:
	default:
		return fmt.Errorf("unknown locator strategy %q", l.Strategy)
	}
	if strings.TrimSpace(l.Value) == "" {
		return fmt.Errorf("empty %s locator", l.Strategy)
	}
	return nil
}

// Parse reads a locator written as "css=<sel>" or "xpath=<expr>". Without a
// prefix, values starting with "/" or "(" are XPath and anything else is CSS.
func Parse(s string) (Locator, error) {
	var l Locator
	switch {
	case strings.HasPrefix(s, "css="):
		l = ByCSS(strings.TrimPrefix(s, "css="))
	case strings.HasPrefix(s, "xpath="):
		l = ByXPath(strings.TrimPrefix(s, "xpath="))
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "("):
		l = ByXPath(s)
	default:
		l = ByCSS(s)
	}
	if err := l.Validate(); err != nil {
		return Locator{}, err
	}
	return l, nil
}
