package browser

import (
	"os"
	"sync"

	"github.com/entrhq/steady/pkg/config"
	"github.com/entrhq/steady/pkg/element"
	"github.com/entrhq/steady/pkg/locator"
)

var (
	defaultSession *Session
	defaultMu      sync.Mutex
)

// Default returns the process-wide Session. It is configured from
// config.Global(); if config was never initialized, settings are resolved
// from the environment and a bad browser selection ends the process.
func Default() *Session {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultSession == nil {
		if !config.IsInitialized() {
			settings := config.MustResolve(config.Overrides{}, os.Getenv)
			if err := config.Initialize(settings); err != nil {
				panic(err) // MustResolve validated already
			}
		}
		defaultSession = New(config.Global())
	}
	return defaultSession
}

// SetDefault installs s as the process-wide Session and returns the previous
// one, which may be nil.
func SetDefault(s *Session) *Session {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultSession
	defaultSession = s
	return prev
}

// CSS returns a handle on the first element matching selector.
func (s *Session) CSS(selector string) *element.Element {
	return s.Locate(locator.ByCSS(selector))
}

// XPath returns a handle on the first element matching expr.
func (s *Session) XPath(expr string) *element.Element {
	return s.Locate(locator.ByXPath(expr))
}

// Locate returns a handle on the first element matching target.
func (s *Session) Locate(target element.Target) *element.Element {
	return element.New(s, locator.NewChain(target.Locator()))
}

// CSSAll returns a handle on every element matching selector.
func (s *Session) CSSAll(selector string) *element.Collection {
	return element.NewCollection(s, locator.ByCSS(selector))
}

// XPathAll returns a handle on every element matching expr.
func (s *Session) XPathAll(expr string) *element.Collection {
	return element.NewCollection(s, locator.ByXPath(expr))
}

// CSS is Default().CSS.
func CSS(selector string) *element.Element { return Default().CSS(selector) }

// XPath is Default().XPath.
func XPath(expr string) *element.Element { return Default().XPath(expr) }

// Locate is Default().Locate.
func Locate(target element.Target) *element.Element { return Default().Locate(target) }

// CSSAll is Default().CSSAll.
func CSSAll(selector string) *element.Collection { return Default().CSSAll(selector) }

// XPathAll is Default().XPathAll.
func XPathAll(expr string) *element.Collection { return Default().XPathAll(expr) }
