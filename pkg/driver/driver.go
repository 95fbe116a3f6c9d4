package driver

import "github.com/entrhq/steady/pkg/locator"

// SearchContext is anything elements can be looked up from.
type SearchContext interface {
	// FindElement returns the first match or an error of kind NoSuchElement.
	FindElement(loc locator.Locator) (Element, error)

	// FindElements returns all matches. No match is not an error.
	FindElements(loc locator.Locator) ([]Element, error)
}

// Element is a reference to a node in the current document.
type Element interface {
	SearchContext

	Click() error
	SendKeys(keys ...string) error
	Clear() error
	Submit() error

	Text() (string, error)
	Attribute(name string) (string, error)
	Rect() (Rect, error)
	TakeScreenshot() ([]byte, error)

	IsDisplayed() (bool, error)
	IsSelected() (bool, error)
	IsEnabled() (bool, error)
}

// TargetLocator changes which document lookups run against.
type TargetLocator interface {
	// Frame switches to the child frame with the given name or id.
	Frame(nameOrID string) error

	// DefaultContent switches back to the top-level document.
	DefaultContent() error
}

// Session is one live browser connection.
type Session interface {
	SearchContext

	Get(url string) error
	CurrentURL() (string, error)
	ExecuteScript(script string, args ...any) (any, error)
	SwitchTo() TargetLocator
	Capabilities() (Capabilities, error)
	TakeScreenshot() ([]byte, error)
	MaximizeWindow() error
	Quit() error
}

// Capabilities is the settings payload a session is created with, and the one
// it reports back.
type Capabilities map[string]any

// Clone returns a shallow copy.
func (c Capabilities) Clone() Capabilities {
	out := make(Capabilities, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String returns the value of key if it is a string.
func (c Capabilities) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Bool returns the value of key if it is a bool.
func (c Capabilities) Bool(key string) (value, ok bool) {
	value, ok = c[key].(bool)
	return value, ok
}

// Options are the settings a Factory builds a session from.
type Options struct {
	// Browser is the configured browser alias, e.g. "chrome".
	Browser string

	// HubURL is the remote endpoint to connect to. Empty means launch locally.
	HubURL string

	// Proxy is an optional proxy server address.
	Proxy string

	// Capabilities is the payload selected for Browser.
	Capabilities Capabilities
}

// Factory creates a session.
type Factory func(opts Options) (Session, error)

// Rect is an element's position and size in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size returns the width and height part of r.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Location returns the top-left corner of r.
func (r Rect) Location() Point { return Point{X: r.X, Y: r.Y} }

// Size is an element's width and height.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is an element's top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
